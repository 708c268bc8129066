// Package sessionfactory is the public façade over the session factory's
// internal components, composed the way the teacher's pkg/server.MCPServer
// composes its internal builder and tool registry behind one type.
package sessionfactory

import (
	"context"
	"time"

	"github.com/juju/clock"
	jujuworker "github.com/juju/worker/v4"

	"github.com/opcua-go/sessionfactory/internal/callback"
	"github.com/opcua-go/sessionfactory/internal/control"
	"github.com/opcua-go/sessionfactory/internal/dispatcher"
	"github.com/opcua-go/sessionfactory/internal/domain"
	"github.com/opcua-go/sessionfactory/internal/housekeeper"
	"github.com/opcua-go/sessionfactory/internal/invocation"
	"github.com/opcua-go/sessionfactory/internal/logging"
	"github.com/opcua-go/sessionfactory/internal/registry"
	"github.com/opcua-go/sessionfactory/internal/sessiontable"
	"github.com/opcua-go/sessionfactory/pkg/types"
)

// Options configures a Factory.
type Options struct {
	Discoverer        domain.Discoverer
	NewSession        sessiontable.Factory
	ClientInterface   domain.ClientInterface
	Logger            *logging.Logger
	Clock             clock.Clock
	HousekeepingEvery time.Duration
}

// Factory is the assembled session factory: the TransactionRegistry,
// SessionTable, InvocationFactory, Dispatcher, CallbackRouter,
// Housekeeper and ManualControl wired together behind one public type.
type Factory struct {
	registry   *registry.Registry
	table      *sessiontable.Table
	dispatcher *dispatcher.Dispatcher
	router     *callback.Router
	control    *control.Control
	housekeeper jujuworker.Worker
	log        *logging.Logger
}

// New assembles a Factory from Options and, when HousekeepingEvery is
// positive, starts its Housekeeper.
func New(opts Options) (*Factory, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}

	reg := registry.New(log)
	table := sessiontable.New(opts.Discoverer, opts.NewSession, log)
	invFactory := invocation.New()
	d := dispatcher.New(reg, table, invFactory, log)
	router := callback.New(reg, table, opts.ClientInterface, log)
	ctrl := control.New(table, log)

	f := &Factory{
		registry:   reg,
		table:      table,
		dispatcher: d,
		router:     router,
		control:    ctrl,
		log:        log,
	}

	if opts.HousekeepingEvery > 0 {
		clk := opts.Clock
		if clk == nil {
			clk = clock.WallClock
		}
		hk, err := housekeeper.New(housekeeper.Config{
			Table:    table,
			Clock:    clk,
			Interval: opts.HousekeepingEvery,
			Logger:   log,
		})
		if err != nil {
			return nil, err
		}
		f.housekeeper = hk
	}

	return f, nil
}

// InvokeRead dispatches a synchronous read request.
func (f *Factory) InvokeRead(ctx context.Context, req types.Request, mask types.Mask, result *types.Result) types.Status {
	return f.dispatcher.Invoke(ctx, types.ReadService, req, mask, result)
}

// InvokeWrite dispatches a synchronous write request.
func (f *Factory) InvokeWrite(ctx context.Context, req types.Request, mask types.Mask, result *types.Result) types.Status {
	return f.dispatcher.Invoke(ctx, types.WriteService, req, mask, result)
}

// InvokeCall dispatches an asynchronous method-call request. Fan-out
// across more than one server is rejected.
func (f *Factory) InvokeCall(ctx context.Context, req types.Request, mask types.Mask, result *types.Result) types.Status {
	return f.dispatcher.Invoke(ctx, types.CallService, req, mask, result)
}

// Callbacks returns the transport callback surface (component E), for
// wiring directly into a transport's completion delivery path.
func (f *Factory) Callbacks() *callback.Router { return f.router }

// Control returns the manual session-management surface (component G).
func (f *Factory) Control() *control.Control { return f.control }

// DeleteAllSessions disconnects and frees every session, for use at
// shutdown; callers must ensure no dispatcher call is in flight first.
func (f *Factory) DeleteAllSessions(ctx context.Context) error {
	return f.table.DeleteAll(ctx)
}

// Shutdown stops the Housekeeper, if one was started, and tears down
// every session; callers must ensure no dispatcher call is in flight
// first.
func (f *Factory) Shutdown(ctx context.Context) error {
	if f.housekeeper != nil {
		f.housekeeper.Kill()
		if err := f.housekeeper.Wait(); err != nil {
			f.log.Warn("housekeeper stopped with error", logging.Fields{"error": err.Error()})
		}
	}
	return f.DeleteAllSessions(ctx)
}
