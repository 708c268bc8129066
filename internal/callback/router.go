// Package callback implements the CallbackRouter (component E): the
// transport's callback surface, invoked concurrently by transport threads
// to resolve asynchronous completions and connection status changes back
// to the client interface.
package callback

import (
	"context"

	"github.com/opcua-go/sessionfactory/internal/domain"
	"github.com/opcua-go/sessionfactory/internal/logging"
	"github.com/opcua-go/sessionfactory/internal/registry"
	"github.com/opcua-go/sessionfactory/internal/sessiontable"
)

// Router resolves transport callbacks against the TransactionRegistry and
// SessionTable and forwards the outcome to a ClientInterface. A Router has
// no mutable state of its own; the registry and session table are the
// sole coordination primitives shared with the Dispatcher.
type Router struct {
	registry *registry.Registry
	table    *sessiontable.Table
	client   domain.ClientInterface
	log      *logging.Logger
}

// New builds a Router over the given TransactionRegistry, SessionTable and
// ClientInterface sink.
func New(reg *registry.Registry, table *sessiontable.Table, client domain.ClientInterface, log *logging.Logger) *Router {
	if log == nil {
		log = logging.Default()
	}
	return &Router{registry: reg, table: table, client: client, log: log}
}

// ConnectionStatusChanged looks up the session by id, applies the
// transport-reported status to its cached state, and forwards the
// resulting information to the client interface. If the session is
// absent, already destroyed by a concurrent release or deleteAll, the
// event is dropped silently.
func (r *Router) ConnectionStatusChanged(connID domain.ConnectionID, serverStatus bool) {
	handle, err := r.table.AcquireByID(connID)
	if err != nil {
		r.log.Debug("connection status change for unknown session dropped",
			logging.Fields{"connection_id": connID})
		return
	}
	if applyErr := handle.Session().ApplyConnectionStatus(context.Background(), serverStatus); applyErr != nil {
		r.log.Error("failed to apply connection status change",
			logging.Fields{"connection_id": connID, "error": applyErr.Error()})
	}
	info := handle.Session().Information()
	if releaseErr := handle.Release(context.Background()); releaseErr != nil {
		r.log.Error("release failed while forwarding connection status change",
			logging.Fields{"connection_id": connID, "error": releaseErr.Error()})
	}
	r.client.ConnectionStatusChanged(connID, info)
}

// CallComplete resolves an asynchronous method-call completion.
func (r *Router) CallComplete(txID domain.TransactionID, status domain.Status, result *domain.Result) {
	r.complete(txID, func(handle domain.RequestHandle) {
		r.client.CallComplete(handle, status, result)
	})
}

// ReadComplete resolves an asynchronous read completion.
func (r *Router) ReadComplete(txID domain.TransactionID, status domain.Status, result *domain.Result) {
	r.complete(txID, func(handle domain.RequestHandle) {
		r.client.ReadComplete(handle, status, result)
	})
}

// WriteComplete resolves an asynchronous write completion.
func (r *Router) WriteComplete(txID domain.TransactionID, status domain.Status, result *domain.Result) {
	r.complete(txID, func(handle domain.RequestHandle) {
		r.client.WriteComplete(handle, status, result)
	})
}

// complete implements the algorithm common to every *Complete entry
// point: take the transaction binding, and on a miss (the completion
// arrived after the factory rolled back the transaction, or after
// shutdown) log and drop rather than deliver.
func (r *Router) complete(txID domain.TransactionID, deliver func(domain.RequestHandle)) {
	handle, ok := r.registry.Take(txID)
	if !ok {
		r.log.Warn("completion for unknown transaction dropped",
			logging.Fields{"transaction_id": txID})
		return
	}
	deliver(handle)
}
