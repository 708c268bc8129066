// Package sessiontable implements session lifecycle under concurrency:
// acquisition by match or by id, activity counting, and destruction when
// idle.
package sessiontable

import (
	"context"
	"sync"

	"go.uber.org/multierr"

	"github.com/opcua-go/sessionfactory/internal/domain"
	"github.com/opcua-go/sessionfactory/internal/logging"
)

// Factory constructs a new Session for a freshly assigned connection id,
// server URI and settings. Supplied by the caller wiring the factory
// together (internal/session provides the default transport-backed
// implementation).
type Factory func(id domain.ConnectionID, serverURI string, settings domain.SessionSettings) domain.Session

// Table holds live sessions keyed by connection id. Two independent
// mutexes guard the session map and the activity map; the lock order is
// always session map before activity map. Every method below follows
// that order, including Release, which must hold the session map lock
// across the activity decrement so a concurrent AcquireByMatch cannot
// observe a session mid-destruction.
type Table struct {
	idGen      domain.IDGenerator
	discoverer domain.Discoverer
	newSession Factory
	log        *logging.Logger

	sessionMu sync.Mutex
	sessions  map[domain.ConnectionID]domain.Session

	activityMu sync.Mutex
	activity   map[domain.ConnectionID]int
}

// New creates an empty Table. discoverer is consulted by AcquireByMatch
// before any session is created or reused (a miss is a hard failure);
// newSession builds the concrete Session for a new connection id.
func New(discoverer domain.Discoverer, newSession Factory, log *logging.Logger) *Table {
	if log == nil {
		log = logging.Default()
	}
	return &Table{
		discoverer: discoverer,
		newSession: newSession,
		log:        log,
		sessions:   make(map[domain.ConnectionID]domain.Session),
		activity:   make(map[domain.ConnectionID]int),
	}
}

// Handle is a scoped, borrowed reference to a Session. It carries the
// allowCollect policy the borrow was acquired with so Release(ctx)
// upholds the activity-count contract without relying on caller
// discipline alone. Calling Release more than once for the same
// acquisition is a programmer error and is reported as
// domain.ErrReleaseUnderflow on the second call.
type Handle struct {
	table        *Table
	session      domain.Session
	allowCollect bool
	released     bool
}

// Session returns the borrowed Session. The reference must not be used
// after Release.
func (h *Handle) Session() domain.Session { return h.session }

// Release decrements the session's activity count, destroying the
// session if it reaches zero and the handle's allowCollect policy
// permits it.
func (h *Handle) Release(ctx context.Context) error {
	if h.released {
		h.table.log.Error("release called twice on the same handle",
			logging.Fields{"connection_id": h.session.ConnectionID()})
		return domain.ErrReleaseUnderflow
	}
	h.released = true
	return h.table.release(ctx, h.session, h.allowCollect)
}

// AcquireByMatch scans existing sessions for one whose ServerURI and
// Settings are structurally equal to the arguments; if none is found it
// constructs, registers and connects a new one. Returns a Handle with its
// activity count already incremented. A disconnected-but-reconnecting
// session is a valid match; the caller (Dispatcher) must check
// IsConnected itself.
func (t *Table) AcquireByMatch(ctx context.Context, serverURI string, settings domain.SessionSettings) (*Handle, error) {
	if _, err := t.discoverer.Resolve(ctx, serverURI); err != nil {
		return nil, domain.NewDiscoveryMissError(serverURI)
	}

	t.sessionMu.Lock()
	var match domain.Session
	for _, s := range t.sessions {
		if s.ServerURI() == serverURI && s.Settings() == settings {
			match = s
			break
		}
	}

	created := false
	if match == nil {
		id := t.idGen.Next()
		match = t.newSession(id, serverURI, settings)
		t.sessions[id] = match
		created = true
	}

	t.activityMu.Lock()
	t.activity[match.ConnectionID()]++
	t.activityMu.Unlock()
	t.sessionMu.Unlock()

	if created {
		if err := match.Connect(ctx); err != nil {
			t.log.Warn("initial connect attempt failed, session remains disconnected",
				logging.Fields{"server_uri": serverURI, "error": err.Error()})
		}
	}

	return &Handle{table: t, session: match, allowCollect: true}, nil
}

// AcquireByID matches strictly by connection id, erroring if absent.
func (t *Table) AcquireByID(id domain.ConnectionID) (*Handle, error) {
	t.sessionMu.Lock()
	sess, ok := t.sessions[id]
	if !ok {
		t.sessionMu.Unlock()
		return nil, domain.NewUnknownConnectionIDError(id)
	}
	t.activityMu.Lock()
	t.activity[id]++
	t.activityMu.Unlock()
	t.sessionMu.Unlock()

	return &Handle{table: t, session: sess, allowCollect: true}, nil
}

// Release decrements session's activity count directly, bypassing a
// Handle. Used by ManualControl, which acquires a session and must later
// release it by Session reference rather than by the original Handle,
// and by callers that need explicit control over allowCollect.
func (t *Table) Release(ctx context.Context, session domain.Session, allowCollect bool) error {
	return t.release(ctx, session, allowCollect)
}

func (t *Table) release(ctx context.Context, session domain.Session, allowCollect bool) error {
	id := session.ConnectionID()

	t.sessionMu.Lock()
	t.activityMu.Lock()
	count, ok := t.activity[id]
	if !ok || count <= 0 {
		t.activityMu.Unlock()
		t.sessionMu.Unlock()
		t.log.Error("release called on a session with zero activity",
			logging.Fields{"connection_id": id})
		return domain.ErrReleaseUnderflow
	}

	count--
	destroy := count == 0 && allowCollect
	if destroy {
		delete(t.activity, id)
	} else {
		t.activity[id] = count
	}
	t.activityMu.Unlock()

	if destroy {
		delete(t.sessions, id)
	}
	t.sessionMu.Unlock()

	if destroy {
		if err := session.Disconnect(ctx); err != nil {
			t.log.Warn("disconnect on collect failed", logging.Fields{"connection_id": id, "error": err.Error()})
		}
	}
	return nil
}

// DeleteAll disconnects and frees every session regardless of activity
// count, used at shutdown. Callers still holding borrows exhibit
// undefined behaviour and must be joined before calling DeleteAll.
func (t *Table) DeleteAll(ctx context.Context) error {
	t.sessionMu.Lock()
	defer t.sessionMu.Unlock()
	t.activityMu.Lock()
	sessions := t.sessions
	t.sessions = make(map[domain.ConnectionID]domain.Session)
	t.activity = make(map[domain.ConnectionID]int)
	t.activityMu.Unlock()

	var errs error
	for _, s := range sessions {
		if err := s.Disconnect(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// ActivityOf returns the current activity count for id, and whether the
// session is known at all. Exposed for tests and housekeeping.
func (t *Table) ActivityOf(id domain.ConnectionID) (int, bool) {
	t.activityMu.Lock()
	defer t.activityMu.Unlock()
	n, ok := t.activity[id]
	return n, ok
}

// Snapshot returns SessionInformation for every live session, copied
// under lock.
func (t *Table) Snapshot() []domain.SessionInformation {
	t.sessionMu.Lock()
	defer t.sessionMu.Unlock()
	out := make([]domain.SessionInformation, 0, len(t.sessions))
	for _, s := range t.sessions {
		out = append(out, s.Information())
	}
	return out
}

// ForEachDisconnected invokes fn for every session currently registered
// whose transport reports it disconnected-but-referenced, or that flags
// a reconnect request. The candidates are collected under the session
// map lock; fn runs after both locks have been released.
func (t *Table) ForEachDisconnected(fn func(domain.Session)) {
	t.sessionMu.Lock()
	candidates := make([]domain.Session, 0)
	for id, s := range t.sessions {
		if s.IsConnected() && !s.NeedsReconnect() {
			continue
		}
		t.activityMu.Lock()
		active := t.activity[id] > 0
		t.activityMu.Unlock()
		if active || s.NeedsReconnect() {
			candidates = append(candidates, s)
		}
	}
	t.sessionMu.Unlock()

	for _, s := range candidates {
		fn(s)
	}
}
