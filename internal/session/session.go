// Package session supplies the default Session implementation: a
// reconnectable per-endpoint handle whose connection state machine is
// grounded on the Status/State/Counters/AddError shape of a NETCONF
// client session, generalized here to OPC-UA-style read/write/call
// service entry points.
package session

import (
	"context"
	"sync"

	"github.com/opcua-go/sessionfactory/internal/domain"
	"github.com/opcua-go/sessionfactory/internal/logging"
	"github.com/opcua-go/sessionfactory/internal/sessiontable"
)

// Status is a Session's present connection state.
type Status int

const (
	// StatusDisconnected is the initial state and the state entered after
	// Disconnect or a transport-reported loss of connection.
	StatusDisconnected Status = iota
	// StatusConnecting is set for the duration of a Connect call.
	StatusConnecting
	// StatusConnected is set once Connect completes without error.
	StatusConnected
	// StatusError is set when a connect attempt fails; NeedsReconnect
	// reports true until the next successful Connect.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "Disconnected"
	case StatusConnecting:
		return "Connecting"
	case StatusConnected:
		return "Connected"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Counters tracks per-session lifetime activity, surfaced through
// Information for observability.
type Counters struct {
	ConnectAttempts int
	Reads           int
	Writes          int
	Calls           int
}

// State holds a Session's mutable runtime state, separated from the
// Session struct itself so it can be copied out under lock for snapshots.
type State struct {
	Status   Status
	Counters Counters
	errs     []error
}

// AddError appends any non-nil errors to the state's error log and
// returns how many were added, mirroring the accumulate-and-count idiom
// used for handshake error reporting in client-session state machines.
func (st *State) AddError(errs ...error) (added int) {
	for _, err := range errs {
		if err != nil {
			st.errs = append(st.errs, err)
			added++
		}
	}
	return added
}

// Errors returns every error recorded against this state so far.
func (st *State) Errors() []error { return st.errs }

// Dialer performs the transport-level connect/disconnect a Session relies
// on. The default Session has no real wire protocol of its own; callers
// supply a Dialer appropriate to their transport, or omit one to get an
// always-succeeds stub suitable for demos and tests.
type Dialer interface {
	Dial(ctx context.Context, endpoint domain.EndpointDescription, settings domain.SessionSettings) error
	Close(ctx context.Context) error
}

type stubDialer struct{}

func (stubDialer) Dial(ctx context.Context, endpoint domain.EndpointDescription, settings domain.SessionSettings) error {
	return nil
}
func (stubDialer) Close(ctx context.Context) error { return nil }

// Session is the default domain.Session implementation.
type Session struct {
	id        domain.ConnectionID
	serverURI string
	settings  domain.SessionSettings
	endpoint  domain.EndpointDescription
	dialer    Dialer
	log       *logging.Logger

	mu             sync.Mutex
	state          State
	needsReconnect bool

	subs *Subscriptions
}

// New builds a Session for a freshly assigned connection id. It is not
// connected until Connect is called.
func New(id domain.ConnectionID, serverURI string, settings domain.SessionSettings, endpoint domain.EndpointDescription, dialer Dialer, log *logging.Logger) *Session {
	if dialer == nil {
		dialer = stubDialer{}
	}
	if log == nil {
		log = logging.Default()
	}
	return &Session{
		id:        id,
		serverURI: serverURI,
		settings:  settings,
		endpoint:  endpoint,
		dialer:    dialer,
		log:       log,
		subs:      NewSubscriptions(),
	}
}

// NewFactory adapts New into a sessiontable.Factory bound to a fixed
// discoverer-resolved endpoint lookup, dialer and logger, for wiring into
// sessiontable.New. If the caller requested the zero-value
// SessionSettings (no explicit security policy, mode, timeout or
// locale), db is consulted for the server's default settings; an
// explicit caller-supplied value always wins.
func NewFactory(resolve func(serverURI string) domain.EndpointDescription, db domain.Database, dialer Dialer, log *logging.Logger) sessiontable.Factory {
	return func(id domain.ConnectionID, serverURI string, settings domain.SessionSettings) domain.Session {
		var endpoint domain.EndpointDescription
		if resolve != nil {
			endpoint = resolve(serverURI)
		}
		if db != nil && settings == (domain.SessionSettings{}) {
			if defaults, err := db.DefaultSessionSettings(context.Background(), serverURI); err == nil {
				settings = defaults
			}
		}
		return New(id, serverURI, settings, endpoint, dialer, log)
	}
}

// ConnectionID implements domain.Session.
func (s *Session) ConnectionID() domain.ConnectionID { return s.id }

// ServerURI implements domain.Session.
func (s *Session) ServerURI() string { return s.serverURI }

// Settings implements domain.Session.
func (s *Session) Settings() domain.SessionSettings { return s.settings }

// Connect implements domain.Session. A single attempt; the Housekeeper
// (internal/housekeeper) owns retrying a failed or lapsed connection.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	s.state.Status = StatusConnecting
	s.state.Counters.ConnectAttempts++
	s.mu.Unlock()

	err := s.dialer.Dial(ctx, s.endpoint, s.settings)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state.AddError(err)
		s.state.Status = StatusError
		s.needsReconnect = true
		return err
	}
	s.state.Status = StatusConnected
	s.needsReconnect = false
	return nil
}

// Disconnect implements domain.Session.
func (s *Session) Disconnect(ctx context.Context) error {
	err := s.dialer.Close(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Status = StatusDisconnected
	s.needsReconnect = false
	return err
}

// IsConnected implements domain.Session.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Status == StatusConnected
}

// NeedsReconnect implements domain.Session: true once a connect attempt
// has failed or the transport has reported the connection lost; cleared
// by a successful Connect, by Disconnect, or by a transport report that
// the connection is up.
func (s *Session) NeedsReconnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.needsReconnect
}

// Information implements domain.Session.
func (s *Session) Information() domain.SessionInformation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SessionInformation{
		ConnectionID: s.id,
		ServerURI:    s.serverURI,
		Settings:     s.settings,
		Connected:    s.state.Status == StatusConnected,
		LastKnown:    s.state.Status.String(),
	}
}

// Subscriptions implements domain.Session.
func (s *Session) Subscriptions() domain.SubscriptionFactory { return s.subs }

// ApplyConnectionStatus implements domain.Session: it records a
// transport-pushed connection status directly, bypassing Connect's
// dial attempt, since the transport is reporting a status change it
// already observed rather than asking the session to establish one.
func (s *Session) ApplyConnectionStatus(ctx context.Context, connected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if connected {
		s.state.Status = StatusConnected
		s.needsReconnect = false
	} else {
		s.state.Status = StatusDisconnected
		s.needsReconnect = true
	}
	return nil
}

// InvokeRead implements domain.Session. The default Session has no real
// wire protocol; it fills each target with an echo of its payload so the
// factory's dispatch machinery is independently testable without a live
// server.
func (s *Session) InvokeRead(ctx context.Context, inv *domain.Invocation) error {
	s.mu.Lock()
	s.state.Counters.Reads++
	s.mu.Unlock()
	return fillEcho(inv)
}

// InvokeWrite implements domain.Session.
func (s *Session) InvokeWrite(ctx context.Context, inv *domain.Invocation) error {
	s.mu.Lock()
	s.state.Counters.Writes++
	s.mu.Unlock()
	return fillEcho(inv)
}

// InvokeCall implements domain.Session. Asynchronous: returns once
// accepted, the real completion arrives later via CallbackRouter.
func (s *Session) InvokeCall(ctx context.Context, inv *domain.Invocation) error {
	s.mu.Lock()
	s.state.Counters.Calls++
	s.mu.Unlock()
	return nil
}

func fillEcho(inv *domain.Invocation) error {
	inv.Results = make([]domain.TargetResult, len(inv.Targets))
	for i, t := range inv.Targets {
		inv.Results[i] = domain.TargetResult{Index: t.Index, Outcome: domain.TargetGood, Data: t.Payload}
	}
	return nil
}
