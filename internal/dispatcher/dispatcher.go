// Package dispatcher implements the Dispatcher (component D): for one
// logical request, drive the InvocationFactory, acquire sessions, invoke
// services, and reassemble a single Result.
package dispatcher

import (
	"context"

	"github.com/opcua-go/sessionfactory/internal/domain"
	"github.com/opcua-go/sessionfactory/internal/logging"
	"github.com/opcua-go/sessionfactory/internal/registry"
	"github.com/opcua-go/sessionfactory/internal/sessiontable"
)

// Dispatcher drives one logical request end to end.
type Dispatcher struct {
	registry   *registry.Registry
	table      *sessiontable.Table
	invFactory domain.InvocationFactory
	log        *logging.Logger
}

// New builds a Dispatcher over the given TransactionRegistry, SessionTable
// and InvocationFactory.
func New(reg *registry.Registry, table *sessiontable.Table, invFactory domain.InvocationFactory, log *logging.Logger) *Dispatcher {
	if log == nil {
		log = logging.Default()
	}
	return &Dispatcher{registry: reg, table: table, invFactory: invFactory, log: log}
}

// Invoke acquires a session per target server, invokes the service on
// each, and reassembles the targets' results in their original order.
// The order invocations are iterated and completed in is unspecified.
// The first non-good status encountered terminates the iteration;
// subsequent invocations are never attempted.
func (d *Dispatcher) Invoke(ctx context.Context, svc domain.ServiceDescriptor, req domain.Request, mask domain.Mask, result *domain.Result) domain.Status {
	targets := req.Targets()
	if len(result.Targets) != len(targets) {
		result.Targets = make([]domain.TargetResult, len(targets))
	}

	var txID *domain.TransactionID
	bindsTransaction := svc.Asynchronous && req.Kind() == domain.SessionRequestKind
	if bindsTransaction {
		id := d.registry.Allocate(req.Handle())
		txID = &id
	}

	status := d.run(ctx, svc, req, mask, result, txID)

	if !status.Good() && txID != nil {
		d.registry.Erase(*txID)
		d.log.Debug("rolled back transaction binding after dispatch failure",
			logging.Fields{"transaction_id": *txID, "service": svc.Name})
	}
	return status
}

func (d *Dispatcher) run(ctx context.Context, svc domain.ServiceDescriptor, req domain.Request, mask domain.Mask, result *domain.Result, txID *domain.TransactionID) domain.Status {
	invocations, err := d.invFactory.Create(req, mask)
	if err != nil {
		return domain.StatusFromError(err)
	}

	// The framework implements no cross-session fan-in for asynchronous
	// requests, so a fan-out here is a hard failure rather than a partial
	// dispatch.
	if svc.Asynchronous && req.Kind() == domain.SessionRequestKind && len(invocations) > 1 {
		return domain.StatusFromError(domain.ErrUnsupportedFanOut)
	}

	for _, inv := range invocations {
		if txID != nil {
			inv.TransactionID = txID
		}

		handle, err := d.table.AcquireByMatch(ctx, inv.ServerURI, inv.Settings)
		if err != nil {
			return domain.StatusFromError(err)
		}

		inv.SessionInfo = handle.Session().Information()

		if !handle.Session().IsConnected() {
			_ = handle.Release(ctx)
			return domain.StatusFromError(domain.NewConnectionError(inv.ServerURI))
		}

		invokeErr := d.invokeOnSession(ctx, svc, handle.Session(), inv)
		if invokeErr != nil {
			_ = handle.Release(ctx)
			return domain.StatusFromError(invokeErr)
		}

		if svc.Asynchronous {
			inv.MarkSubmitted()
		}
		inv.CopyInto(result)

		if err := handle.Release(ctx); err != nil {
			d.log.Error("release failed after successful invocation", logging.Fields{"error": err.Error()})
			return domain.StatusFromError(err)
		}
	}

	return domain.GoodStatus
}

func (d *Dispatcher) invokeOnSession(ctx context.Context, svc domain.ServiceDescriptor, session domain.Session, inv *domain.Invocation) error {
	switch svc.Kind {
	case domain.ServiceRead:
		return session.InvokeRead(ctx, inv)
	case domain.ServiceWrite:
		return session.InvokeWrite(ctx, inv)
	case domain.ServiceCall:
		return session.InvokeCall(ctx, inv)
	default:
		return domain.NewError(domain.CodeInternal, "unknown service kind")
	}
}
