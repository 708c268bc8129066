// Package housekeeper implements a supervised background worker that
// periodically walks the SessionTable for disconnected-but-referenced
// sessions and drives their reconnection, without ever destroying a
// session itself.
package housekeeper

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/retry"
	"github.com/juju/worker/v4"
	"github.com/juju/worker/v4/catacomb"

	"github.com/opcua-go/sessionfactory/internal/domain"
	"github.com/opcua-go/sessionfactory/internal/logging"
	"github.com/opcua-go/sessionfactory/internal/sessiontable"
)

// Config configures a Worker.
type Config struct {
	Table    *sessiontable.Table
	Clock    clock.Clock
	Interval time.Duration

	// ReconnectAttempts bounds how many times a single DoHouseKeeping pass
	// retries a session's Connect before giving up on that pass; the next
	// periodic pass tries again.
	ReconnectAttempts int

	Logger *logging.Logger
}

// Validate returns an error if config cannot drive a Worker.
func (c Config) Validate() error {
	if c.Table == nil {
		return errors.NotValidf("nil Table")
	}
	if c.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if c.Interval <= 0 {
		return errors.NotValidf("non-positive Interval")
	}
	return nil
}

// Worker periodically invokes DoHouseKeeping until killed.
type Worker struct {
	catacomb catacomb.Catacomb
	config   Config
	log      *logging.Logger
}

// New starts a housekeeping Worker supervised by a catacomb, following the
// juju worker convention: New either returns a running worker or an error,
// never a worker that must be separately started.
func New(config Config) (worker.Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	log := config.Logger
	if log == nil {
		log = logging.Default()
	}
	if config.ReconnectAttempts <= 0 {
		config.ReconnectAttempts = 3
	}

	w := &Worker{config: config, log: log}
	err := catacomb.Invoke(catacomb.Plan{
		Site: &w.catacomb,
		Work: w.loop,
	})
	return w, errors.Trace(err)
}

// Kill is part of worker.Worker.
func (w *Worker) Kill() { w.catacomb.Kill(nil) }

// Wait is part of worker.Worker.
func (w *Worker) Wait() error { return w.catacomb.Wait() }

func (w *Worker) loop() error {
	timer := w.config.Clock.NewTimer(w.config.Interval)
	defer timer.Stop()
	for {
		select {
		case <-w.catacomb.Dying():
			return w.catacomb.ErrDying()
		case <-timer.Chan():
			w.DoHouseKeeping(w.catacomb.Context(context.Background()))
			timer.Reset(w.config.Interval)
		}
	}
}

// DoHouseKeeping walks the session table for sessions that are
// disconnected-but-referenced or that flagged a reconnect request, and
// attempts to reconnect each one. It never destroys a session, that
// remains exclusively release's and deleteAll's responsibility, and it
// never holds the activity-map lock while reconnecting, since
// Table.ForEachDisconnected releases the session-map lock before invoking
// the callback.
func (w *Worker) DoHouseKeeping(ctx context.Context) {
	w.config.Table.ForEachDisconnected(func(s domain.Session) {
		w.reconnect(ctx, s)
	})
}

func (w *Worker) reconnect(ctx context.Context, s domain.Session) {
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			return s.Connect(ctx)
		},
		Attempts:    w.config.ReconnectAttempts,
		Delay:       time.Second,
		Clock:       w.config.Clock,
		Stop:        w.catacomb.Dying(),
		IsFatalError: func(error) bool { return false },
	})
	if err != nil {
		w.log.Warn("reconnect attempt exhausted", logging.Fields{
			"connection_id": s.ConnectionID(),
			"server_uri":    s.ServerURI(),
			"error":         err.Error(),
		})
		return
	}
	w.log.Debug("reconnected session", logging.Fields{
		"connection_id": s.ConnectionID(),
		"server_uri":    s.ServerURI(),
	})
}
