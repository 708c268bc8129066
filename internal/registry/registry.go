// Package registry implements allocation of unique transaction ids and
// their mapping to caller request handles for asynchronous correlation.
package registry

import (
	"sync"

	"github.com/opcua-go/sessionfactory/internal/domain"
	"github.com/opcua-go/sessionfactory/internal/logging"
)

// Registry maps TransactionId to RequestHandle. A single mutex guards
// both the id counter and the map, so Allocate (newId+bind) cannot race a
// completion arriving for an id not yet bound.
type Registry struct {
	mu      sync.Mutex
	nextID  uint64
	pending map[domain.TransactionID]domain.RequestHandle
	log     *logging.Logger
}

// New creates an empty Registry.
func New(log *logging.Logger) *Registry {
	if log == nil {
		log = logging.Default()
	}
	return &Registry{
		pending: make(map[domain.TransactionID]domain.RequestHandle),
		log:     log,
	}
}

// Allocate returns a transaction id never previously returned and binds
// it to handle in the same critical section, so newId and bind happen
// atomically.
func (r *Registry) Allocate(handle domain.RequestHandle) domain.TransactionID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := domain.TransactionID(r.nextID)
	r.pending[id] = handle
	return id
}

// Take atomically removes and returns the mapping for id. The second
// return value is false if id has no binding (already taken, erased, or
// never allocated), a soft miss rather than an error.
func (r *Registry) Take(id domain.TransactionID) (domain.RequestHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	handle, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	} else {
		r.log.Debug("unknown transaction", logging.Fields{"transaction_id": id})
	}
	return handle, ok
}

// Erase removes the binding for id without returning it, used by the
// Dispatcher to roll back a binding after a failed invocation.
func (r *Registry) Erase(id domain.TransactionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, id)
}

// Len reports the number of outstanding bindings. Exposed for tests
// asserting that no residual entry remains after a rolled-back request.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
