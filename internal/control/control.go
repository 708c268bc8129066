// Package control implements the caller-driven surface for pinning a
// session open, tearing it back down, delegating to its subscription
// factory, and taking read-only snapshots of session and subscription
// state.
package control

import (
	"context"

	"github.com/opcua-go/sessionfactory/internal/domain"
	"github.com/opcua-go/sessionfactory/internal/logging"
	"github.com/opcua-go/sessionfactory/internal/sessiontable"
)

// Control exposes the manual session-management operations on top of a
// SessionTable.
type Control struct {
	table *sessiontable.Table
	log   *logging.Logger
}

// New builds a Control over the given SessionTable.
func New(table *sessiontable.Table, log *logging.Logger) *Control {
	if log == nil {
		log = logging.Default()
	}
	return &Control{table: table, log: log}
}

// ManuallyConnect acquires or creates a session exactly as AcquireByMatch
// would, but deliberately does not release it: the activity count remains
// at 1, pinning the session open until ManuallyDisconnect releases it.
func (c *Control) ManuallyConnect(ctx context.Context, serverURI string, settings domain.SessionSettings) (domain.ConnectionID, error) {
	handle, err := c.table.AcquireByMatch(ctx, serverURI, settings)
	if err != nil {
		return 0, err
	}
	return handle.Session().ConnectionID(), nil
}

// ManuallyDisconnect looks up the session by id and releases the manual
// pin with allowCollect=true. If the pin was the only outstanding
// reference, the session is destroyed.
func (c *Control) ManuallyDisconnect(ctx context.Context, id domain.ConnectionID) error {
	handle, err := c.table.AcquireByID(id)
	if err != nil {
		return err
	}
	session := handle.Session()
	// AcquireByID incremented activity to account for this lookup; undo
	// that bookkeeping increment before releasing the manual pin itself,
	// so the caller's one ManuallyConnect/ManuallyDisconnect pair nets to
	// exactly one release.
	if err := c.table.Release(ctx, session, false); err != nil {
		return err
	}
	return c.table.Release(ctx, session, true)
}

// ManuallySubscribe delegates to the subscription factory hanging off the
// session at id, without touching the session's activity count:
// subscriptions hold their own references.
func (c *Control) ManuallySubscribe(ctx context.Context, id domain.ConnectionID, req domain.Request) (domain.Status, error) {
	return c.withSubscriptions(ctx, id, func(sf domain.SubscriptionFactory) (domain.Status, error) {
		return sf.Subscribe(ctx, req)
	})
}

// ManuallyUnsubscribe delegates to the subscription factory hanging off
// the session at id.
func (c *Control) ManuallyUnsubscribe(ctx context.Context, id domain.ConnectionID, req domain.Request) (domain.Status, error) {
	return c.withSubscriptions(ctx, id, func(sf domain.SubscriptionFactory) (domain.Status, error) {
		return sf.Unsubscribe(ctx, req)
	})
}

func (c *Control) withSubscriptions(ctx context.Context, id domain.ConnectionID, fn func(domain.SubscriptionFactory) (domain.Status, error)) (domain.Status, error) {
	handle, err := c.table.AcquireByID(id)
	if err != nil {
		return domain.Status{}, err
	}
	defer func() {
		if releaseErr := c.table.Release(ctx, handle.Session(), false); releaseErr != nil {
			c.log.Error("release failed after subscription delegation", logging.Fields{"error": releaseErr.Error()})
		}
	}()

	sf := handle.Session().Subscriptions()
	if sf == nil {
		return domain.Status{}, domain.NewUnknownConnectionIDError(id)
	}
	return fn(sf)
}

// SessionInformation returns a snapshot of the session at id.
func (c *Control) SessionInformation(ctx context.Context, id domain.ConnectionID) (domain.SessionInformation, error) {
	handle, err := c.table.AcquireByID(id)
	if err != nil {
		return domain.SessionInformation{}, err
	}
	info := handle.Session().Information()
	if releaseErr := c.table.Release(ctx, handle.Session(), false); releaseErr != nil {
		c.log.Error("release failed after session information snapshot", logging.Fields{"error": releaseErr.Error()})
	}
	return info, nil
}

// AllSessionInformations returns a snapshot of every live session.
func (c *Control) AllSessionInformations() []domain.SessionInformation {
	return c.table.Snapshot()
}

// SubscriptionInformation returns the subscription snapshots for the
// session at id.
func (c *Control) SubscriptionInformation(ctx context.Context, id domain.ConnectionID) ([]domain.SubscriptionInformation, error) {
	var infos []domain.SubscriptionInformation
	_, err := c.withSubscriptions(ctx, id, func(sf domain.SubscriptionFactory) (domain.Status, error) {
		infos = sf.Informations()
		return domain.GoodStatus, nil
	})
	return infos, err
}

// AllSubscriptionInformations returns subscription snapshots for every
// live session.
func (c *Control) AllSubscriptionInformations() []domain.SubscriptionInformation {
	var all []domain.SubscriptionInformation
	for _, info := range c.table.Snapshot() {
		subs, err := c.SubscriptionInformation(context.Background(), info.ConnectionID)
		if err != nil {
			continue
		}
		all = append(all, subs...)
	}
	return all
}
