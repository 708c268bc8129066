package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opcua-go/sessionfactory/internal/config"
	"github.com/opcua-go/sessionfactory/internal/discovery"
	"github.com/opcua-go/sessionfactory/internal/logging"
	"github.com/opcua-go/sessionfactory/internal/session"
	"github.com/opcua-go/sessionfactory/pkg/sessionfactory"
	"github.com/opcua-go/sessionfactory/pkg/types"
)

// loggingClient is a ClientInterface sink that logs every completion and
// connection status change, standing in for a real application.
type loggingClient struct {
	log *logging.Logger
}

func (c *loggingClient) ConnectionStatusChanged(connID types.ConnectionID, info types.SessionInformation) {
	c.log.Info("connection status changed", logging.Fields{
		"connection_id": connID,
		"server_uri":    info.ServerURI,
		"connected":     info.Connected,
	})
}

func (c *loggingClient) CallComplete(handle types.RequestHandle, status types.Status, result *types.Result) {
	c.log.Info("call complete", logging.Fields{"request_handle": handle, "good": status.Good()})
}

func (c *loggingClient) ReadComplete(handle types.RequestHandle, status types.Status, result *types.Result) {
	c.log.Info("read complete", logging.Fields{"request_handle": handle, "good": status.Good()})
}

func (c *loggingClient) WriteComplete(handle types.RequestHandle, status types.Status, result *types.Result) {
	c.log.Info("write complete", logging.Fields{"request_handle": handle, "good": status.Good()})
}

func main() {
	serverURI := flag.String("server", "urn:example:demo-server", "server URI to dispatch a sample read against")
	housekeepingEvery := flag.Duration("housekeeping-interval", 30*time.Second, "Housekeeper polling interval")
	useRedis := flag.Bool("redis", false, "back default session settings with Redis instead of an in-memory store")
	flag.Parse()

	log, err := logging.New(logging.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var db interface {
		DefaultSessionSettings(ctx context.Context, serverURI string) (types.SessionSettings, error)
	}
	if *useRedis {
		envCfg, err := config.LoadEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load environment config: %v\n", err)
			os.Exit(1)
		}
		redisDB, err := config.NewRedisDatabase(envCfg, types.SessionSettings{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect to redis: %v\n", err)
			os.Exit(1)
		}
		defer redisDB.Close()
		db = redisDB
	} else {
		db = config.NewInMemory(types.SessionSettings{SecurityPolicy: "Basic256Sha256"})
	}

	disc := discovery.NewStatic(*serverURI)
	client := &loggingClient{log: log}

	factory, err := sessionfactory.New(sessionfactory.Options{
		Discoverer:        disc,
		NewSession:        session.NewFactory(func(uri string) types.EndpointDescription { ep, _ := disc.Resolve(context.Background(), uri); return ep }, db, nil, log),
		ClientInterface:   client,
		Logger:            log,
		HousekeepingEvery: *housekeepingEvery,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start session factory: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("received shutdown signal")
		cancel()
	}()

	req := &types.BaseSessionRequest{TargetsValue: []types.RequestTarget{{Index: 0, ServerURI: *serverURI}}}
	result := types.NewResult(1)
	status := factory.InvokeRead(ctx, req, types.AllMask(1), result)
	log.Info("sample read dispatched", logging.Fields{"good": status.Good(), "server_uri": *serverURI})

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := factory.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error during shutdown: %v\n", err)
		os.Exit(1)
	}
}
