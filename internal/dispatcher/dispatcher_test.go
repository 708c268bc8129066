package dispatcher_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opcua-go/sessionfactory/internal/dispatcher"
	"github.com/opcua-go/sessionfactory/internal/domain"
	"github.com/opcua-go/sessionfactory/internal/invocation"
	"github.com/opcua-go/sessionfactory/internal/registry"
	"github.com/opcua-go/sessionfactory/internal/sessiontable"
)

type fakeSession struct {
	id        domain.ConnectionID
	serverURI string
	settings  domain.SessionSettings
	connected bool
	callErr   error
}

func (f *fakeSession) ConnectionID() domain.ConnectionID      { return f.id }
func (f *fakeSession) ServerURI() string                      { return f.serverURI }
func (f *fakeSession) Settings() domain.SessionSettings       { return f.settings }
func (f *fakeSession) Connect(ctx context.Context) error      { return nil }
func (f *fakeSession) Disconnect(ctx context.Context) error   { return nil }
func (f *fakeSession) IsConnected() bool                      { return f.connected }
func (f *fakeSession) NeedsReconnect() bool                   { return false }
func (f *fakeSession) Subscriptions() domain.SubscriptionFactory { return nil }
func (f *fakeSession) Information() domain.SessionInformation {
	return domain.SessionInformation{ConnectionID: f.id, ServerURI: f.serverURI, Connected: f.connected}
}
func (f *fakeSession) ApplyConnectionStatus(ctx context.Context, connected bool) error {
	f.connected = connected
	return nil
}

func fillGood(inv *domain.Invocation) {
	inv.Results = make([]domain.TargetResult, len(inv.Targets))
	for i, t := range inv.Targets {
		inv.Results[i] = domain.TargetResult{Index: t.Index, Outcome: domain.TargetGood, Data: t.Payload}
	}
}

func (f *fakeSession) InvokeRead(ctx context.Context, inv *domain.Invocation) error {
	fillGood(inv)
	return nil
}
func (f *fakeSession) InvokeWrite(ctx context.Context, inv *domain.Invocation) error {
	fillGood(inv)
	return nil
}
func (f *fakeSession) InvokeCall(ctx context.Context, inv *domain.Invocation) error {
	if f.callErr != nil {
		return f.callErr
	}
	return nil
}

type fakeDiscoverer struct{ known map[string]bool }

func (d *fakeDiscoverer) Resolve(ctx context.Context, serverURI string) (domain.EndpointDescription, error) {
	if !d.known[serverURI] {
		return domain.EndpointDescription{}, domain.NewDiscoveryMissError(serverURI)
	}
	return domain.EndpointDescription{ServerURI: serverURI}, nil
}

type testRequest struct {
	domain.BaseSessionRequest
}

func newHarness(connected map[string]bool, callErr error) (*dispatcher.Dispatcher, *registry.Registry, *sessiontable.Table) {
	known := make(map[string]bool)
	for uri := range connected {
		known[uri] = true
	}
	disc := &fakeDiscoverer{known: known}
	table := sessiontable.New(disc, func(id domain.ConnectionID, serverURI string, settings domain.SessionSettings) domain.Session {
		return &fakeSession{id: id, serverURI: serverURI, settings: settings, connected: connected[serverURI], callErr: callErr}
	}, nil)
	reg := registry.New(nil)
	d := dispatcher.New(reg, table, invocation.New(), nil)
	return d, reg, table
}

func targetsFor(uris ...string) []domain.RequestTarget {
	out := make([]domain.RequestTarget, len(uris))
	for i, u := range uris {
		out[i] = domain.RequestTarget{Index: i, ServerURI: u, Payload: i}
	}
	return out
}

func TestSyncReadSingleServerPopulatesAllTargets(t *testing.T) {
	d, _, _ := newHarness(map[string]bool{"urn:S": true}, nil)
	req := &testRequest{domain.BaseSessionRequest{TargetsValue: targetsFor("urn:S", "urn:S", "urn:S")}}
	result := domain.NewResult(3)

	status := d.Invoke(context.Background(), domain.ReadService, req, domain.AllMask(3), result)

	require.True(t, status.Good())
	require.Len(t, result.Targets, 3)
	for i, tr := range result.Targets {
		assert.Equal(t, domain.TargetGood, tr.Outcome)
		assert.Equal(t, i, tr.Index)
	}
}

func TestSyncReadFansOutAcrossServers(t *testing.T) {
	d, _, _ := newHarness(map[string]bool{"A": true, "B": true, "C": true}, nil)
	req := &testRequest{domain.BaseSessionRequest{TargetsValue: targetsFor("A", "A", "B", "C")}}
	result := domain.NewResult(4)

	status := d.Invoke(context.Background(), domain.ReadService, req, domain.AllMask(4), result)

	require.True(t, status.Good())
	for _, tr := range result.Targets {
		assert.Equal(t, domain.TargetGood, tr.Outcome)
	}
}

func TestAsyncCallAcrossMultipleServersIsRejected(t *testing.T) {
	d, reg, _ := newHarness(map[string]bool{"A": true, "B": true}, nil)
	req := &testRequest{domain.BaseSessionRequest{RequestHandleValue: 42, TargetsValue: targetsFor("A", "B")}}
	result := domain.NewResult(2)

	status := d.Invoke(context.Background(), domain.CallService, req, domain.AllMask(2), result)

	require.False(t, status.Good())
	assert.True(t, domain.IsCode(status.Err, domain.CodeUnsupported))
	assert.Equal(t, 0, reg.Len(), "registry must contain no residual entry after rollback")
	for _, tr := range result.Targets {
		assert.Equal(t, domain.TargetPending, tr.Outcome, "no invocation should be forwarded to any session")
	}
}

func TestAsyncCallSingleServerHappyPath(t *testing.T) {
	d, reg, _ := newHarness(map[string]bool{"A": true}, nil)
	req := &testRequest{domain.BaseSessionRequest{RequestHandleValue: 42, TargetsValue: targetsFor("A", "A", "A")}}
	result := domain.NewResult(3)

	status := d.Invoke(context.Background(), domain.CallService, req, domain.AllMask(3), result)

	require.True(t, status.Good())
	for _, tr := range result.Targets {
		assert.Equal(t, domain.TargetSubmitted, tr.Outcome)
	}
	assert.Equal(t, 1, reg.Len(), "transaction id remains bound until the completion arrives")
}

// A session that rejects the invocation (not connected) after the
// transaction was bound must leave the registry rolled back, so a
// completion the transport later delivers for the never-used id finds
// nothing to deliver to.
func TestAsyncCallRollsBackTransactionWhenSessionNotConnected(t *testing.T) {
	d, reg, _ := newHarness(map[string]bool{"A": false}, nil)
	req := &testRequest{domain.BaseSessionRequest{RequestHandleValue: 42, TargetsValue: targetsFor("A")}}
	result := domain.NewResult(1)

	status := d.Invoke(context.Background(), domain.CallService, req, domain.AllMask(1), result)

	require.False(t, status.Good())
	assert.True(t, domain.IsCode(status.Err, domain.CodeConnectionError))
	assert.Equal(t, 0, reg.Len(), "registry must be rolled back so a synthetic completion finds nothing")

	// Simulate the transport delivering a completion for the id that
	// would have been allocated; since nothing is bound, it is dropped.
	_, ok := reg.Take(domain.TransactionID(1))
	assert.False(t, ok)
}

func TestReleasingAnAlreadyReleasedSessionReturnsUnderflowError(t *testing.T) {
	_, _, table := newHarness(map[string]bool{"urn:S": true}, nil)
	h, err := table.AcquireByMatch(context.Background(), "urn:S", domain.SessionSettings{})
	require.NoError(t, err)

	require.NoError(t, h.Release(context.Background()))
	err = h.Release(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeReleaseUnderflow))

	n, ok := table.ActivityOf(h.Session().ConnectionID())
	assert.False(t, ok || n != 0, "session must not be double-freed or go negative")
}

func TestSyncReadStopsOnFirstFailure(t *testing.T) {
	d, _, table := newHarness(map[string]bool{"A": true, "B": false}, nil)
	req := &testRequest{domain.BaseSessionRequest{TargetsValue: targetsFor("A", "B")}}
	result := domain.NewResult(2)

	status := d.Invoke(context.Background(), domain.ReadService, req, domain.AllMask(2), result)

	require.False(t, status.Good())
	// Leak-check: whichever session(s) were acquired must have been
	// released back to zero activity.
	for _, info := range table.Snapshot() {
		n, _ := table.ActivityOf(info.ConnectionID)
		assert.Equal(t, 0, n)
	}
}
