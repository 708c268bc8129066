package domain

import "context"

// EndpointDescription is what Discovery resolves a server URI to.
type EndpointDescription struct {
	ServerURI      string
	EndpointURL    string
	SecurityPolicy string
}

// Discoverer resolves a server URI to endpoint descriptors. The factory
// treats a miss as a hard failure of AcquireByMatch.
type Discoverer interface {
	Resolve(ctx context.Context, serverURI string) (EndpointDescription, error)
}

// Database is the read-only configuration store consulted when a
// SessionTable creates a new Session: default settings, timeouts and
// security policies.
type Database interface {
	DefaultSessionSettings(ctx context.Context, serverURI string) (SessionSettings, error)
}

// InvocationFactory groups a request's targets by (serverUri, settings)
// into one Invocation per group. The factory depends on this as an
// external collaborator; this module supplies the default implementation
// in internal/invocation.
type InvocationFactory interface {
	Create(req Request, mask Mask) (map[string]*Invocation, error)
}

// Session is the per-instance contract the factory depends on. The
// Session object itself, meaning the transport handle and protocol I/O,
// is out of scope for the factory; this module supplies a default
// implementation in internal/session.
type Session interface {
	ConnectionID() ConnectionID
	ServerURI() string
	Settings() SessionSettings
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
	NeedsReconnect() bool
	Information() SessionInformation

	// ApplyConnectionStatus updates the session's cached connection state
	// from a status the transport pushed unsolicited, as opposed to one
	// observed through Connect/Disconnect. The CallbackRouter calls this
	// before forwarding the notification to the client, so Information
	// reflects the transport's report rather than the session's own last
	// observation.
	ApplyConnectionStatus(ctx context.Context, connected bool) error

	// InvokeRead, InvokeWrite and InvokeCall perform the named service's
	// protocol I/O for the given invocation. InvokeRead and InvokeWrite
	// fill in inv.Results. InvokeCall is asynchronous: it returns once the
	// request has been submitted to the transport, the Dispatcher then
	// marks the targets submitted, and the real outcome is delivered later
	// through CallbackRouter.CallComplete.
	InvokeRead(ctx context.Context, inv *Invocation) error
	InvokeWrite(ctx context.Context, inv *Invocation) error
	InvokeCall(ctx context.Context, inv *Invocation) error

	// Subscriptions returns the session's subscription factory, used by
	// ManualControl to route ManuallySubscribe/ManuallyUnsubscribe
	// without touching the session's activity count.
	Subscriptions() SubscriptionFactory
}

// SubscriptionFactory is the per-session collaborator that owns
// subscription-level requests, out of scope for the factory itself. The
// session factory passes subscription requests through without
// allocating a transaction id; subscription asynchrony is bound one
// level down, here.
type SubscriptionFactory interface {
	Subscribe(ctx context.Context, req Request) (Status, error)
	Unsubscribe(ctx context.Context, req Request) (Status, error)
	Informations() []SubscriptionInformation
}

// SubscriptionInformation is a read-only snapshot of one subscription.
type SubscriptionInformation struct {
	ConnectionID     ConnectionID
	SubscriptionID   uint32
	PublishingEnabled bool
}

// ClientInterface is the asynchronous completion sink: typed completion
// methods per service plus connection status notification.
type ClientInterface interface {
	ConnectionStatusChanged(connID ConnectionID, info SessionInformation)
	CallComplete(handle RequestHandle, status Status, result *Result)
	ReadComplete(handle RequestHandle, status Status, result *Result)
	WriteComplete(handle RequestHandle, status Status, result *Result)
}
