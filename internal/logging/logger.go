// Package logging provides a small wrapper around zap for structured
// logging, in the shape the teacher's infrastructure/logging package
// uses: a Logger with Fields-based structured calls plus Sprintf-style
// convenience methods, and a package-level default.
package logging

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with a simplified API.
type Logger struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

// Fields is a key-value map attached to a log entry.
type Fields map[string]interface{}

// Level is a log severity level.
type Level string

// Available levels.
const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config configures a Logger.
type Config struct {
	Level       Level
	Development bool
	OutputPaths []string
}

// DefaultConfig is the standard production configuration.
func DefaultConfig() Config {
	return Config{Level: InfoLevel, OutputPaths: []string{"stdout"}}
}

// New builds a Logger from Config.
func New(cfg Config) (*Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case DebugLevel:
		level = zapcore.DebugLevel
	case WarnLevel:
		level = zapcore.WarnLevel
	case ErrorLevel:
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Development,
		DisableCaller:     !cfg.Development,
		DisableStacktrace: !cfg.Development,
		Encoding:          "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{logger: zapLogger, sugar: zapLogger.Sugar()}, nil
}

// With returns a child logger carrying additional fields.
func (l *Logger) With(fields Fields) *Logger {
	if len(fields) == 0 {
		return l
	}
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	child := l.logger.With(zapFields...)
	return &Logger{logger: child, sugar: child.Sugar()}
}

// Debug logs msg at debug level with optional fields.
func (l *Logger) Debug(msg string, fields ...Fields) { l.log(l.logger.Debug, msg, fields) }

// Info logs msg at info level with optional fields.
func (l *Logger) Info(msg string, fields ...Fields) { l.log(l.logger.Info, msg, fields) }

// Warn logs msg at warn level with optional fields.
func (l *Logger) Warn(msg string, fields ...Fields) { l.log(l.logger.Warn, msg, fields) }

// Error logs msg at error level with optional fields.
func (l *Logger) Error(msg string, fields ...Fields) { l.log(l.logger.Error, msg, fields) }

func (l *Logger) log(fn func(string, ...zap.Field), msg string, fields []Fields) {
	if len(fields) > 0 {
		l.With(fields[0]).log(fn, msg, nil)
		return
	}
	fn(msg)
}

// Debugf logs a formatted message at debug level.
func (l *Logger) Debugf(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }

// Infof logs a formatted message at info level.
func (l *Logger) Infof(format string, args ...interface{}) { l.sugar.Infof(format, args...) }

// Warnf logs a formatted message at warn level.
func (l *Logger) Warnf(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }

// Errorf logs a formatted message at error level.
func (l *Logger) Errorf(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error { return l.logger.Sync() }

type contextKey string

const loggerKey contextKey = "logging.logger"

// WithContext attaches logger to ctx.
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger attached to ctx, or Default() if none.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey).(*Logger); ok && logger != nil {
		return logger
	}
	return Default()
}

var defaultLogger, _ = New(DefaultConfig())

// Default returns the package-level default logger.
func Default() *Logger { return defaultLogger }

// SetDefault replaces the package-level default logger.
func SetDefault(logger *Logger) { defaultLogger = logger }
