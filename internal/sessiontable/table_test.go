package sessiontable_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opcua-go/sessionfactory/internal/domain"
	"github.com/opcua-go/sessionfactory/internal/sessiontable"
)

type fakeSession struct {
	id         domain.ConnectionID
	serverURI  string
	settings   domain.SessionSettings
	connected  bool
	reconnect  bool
	connectErr error
}

func (f *fakeSession) ConnectionID() domain.ConnectionID   { return f.id }
func (f *fakeSession) ServerURI() string                   { return f.serverURI }
func (f *fakeSession) Settings() domain.SessionSettings    { return f.settings }
func (f *fakeSession) Connect(ctx context.Context) error   { f.connected = f.connectErr == nil; return f.connectErr }
func (f *fakeSession) Disconnect(ctx context.Context) error { f.connected = false; return nil }
func (f *fakeSession) IsConnected() bool                   { return f.connected }
func (f *fakeSession) NeedsReconnect() bool                { return f.reconnect }
func (f *fakeSession) Information() domain.SessionInformation {
	return domain.SessionInformation{
		ConnectionID: f.id,
		ServerURI:    f.serverURI,
		Settings:     f.settings,
		Connected:    f.connected,
	}
}
func (f *fakeSession) ApplyConnectionStatus(ctx context.Context, connected bool) error {
	f.connected = connected
	return nil
}
func (f *fakeSession) InvokeRead(ctx context.Context, inv *domain.Invocation) error  { return nil }
func (f *fakeSession) InvokeWrite(ctx context.Context, inv *domain.Invocation) error { return nil }
func (f *fakeSession) InvokeCall(ctx context.Context, inv *domain.Invocation) error  { return nil }
func (f *fakeSession) Subscriptions() domain.SubscriptionFactory                    { return nil }

type fakeDiscoverer struct {
	known map[string]bool
}

func (d *fakeDiscoverer) Resolve(ctx context.Context, serverURI string) (domain.EndpointDescription, error) {
	if d.known == nil || !d.known[serverURI] {
		return domain.EndpointDescription{}, domain.NewDiscoveryMissError(serverURI)
	}
	return domain.EndpointDescription{ServerURI: serverURI}, nil
}

func newTestTable(known ...string) *sessiontable.Table {
	seen := map[string]bool{}
	for _, u := range known {
		seen[u] = true
	}
	disc := &fakeDiscoverer{known: seen}
	return sessiontable.New(disc, func(id domain.ConnectionID, serverURI string, settings domain.SessionSettings) domain.Session {
		return &fakeSession{id: id, serverURI: serverURI, settings: settings}
	}, nil)
}

func TestAcquireByMatchCreatesOnFirstCall(t *testing.T) {
	tbl := newTestTable("urn:S")
	ctx := context.Background()

	h, err := tbl.AcquireByMatch(ctx, "urn:S", domain.SessionSettings{})
	require.NoError(t, err)
	require.NotNil(t, h.Session())
	assert.True(t, h.Session().IsConnected())

	n, ok := tbl.ActivityOf(h.Session().ConnectionID())
	assert.True(t, ok)
	assert.Equal(t, 1, n)
}

func TestAcquireByMatchReusesExistingSession(t *testing.T) {
	tbl := newTestTable("urn:S")
	ctx := context.Background()

	h1, err := tbl.AcquireByMatch(ctx, "urn:S", domain.SessionSettings{})
	require.NoError(t, err)
	h2, err := tbl.AcquireByMatch(ctx, "urn:S", domain.SessionSettings{})
	require.NoError(t, err)

	assert.Equal(t, h1.Session().ConnectionID(), h2.Session().ConnectionID())
	n, _ := tbl.ActivityOf(h1.Session().ConnectionID())
	assert.Equal(t, 2, n)
}

func TestAcquireByMatchDifferentSettingsCreateDistinctSessions(t *testing.T) {
	tbl := newTestTable("urn:S")
	ctx := context.Background()

	h1, err := tbl.AcquireByMatch(ctx, "urn:S", domain.SessionSettings{Locale: "en"})
	require.NoError(t, err)
	h2, err := tbl.AcquireByMatch(ctx, "urn:S", domain.SessionSettings{Locale: "de"})
	require.NoError(t, err)

	assert.NotEqual(t, h1.Session().ConnectionID(), h2.Session().ConnectionID())
}

func TestAcquireByMatchDiscoveryMiss(t *testing.T) {
	tbl := newTestTable()
	ctx := context.Background()

	_, err := tbl.AcquireByMatch(ctx, "urn:unknown", domain.SessionSettings{})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeDiscoveryMiss))
}

func TestAcquireByIDUnknown(t *testing.T) {
	tbl := newTestTable("urn:S")
	_, err := tbl.AcquireByID(domain.ConnectionID(999))
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeUnknownConnectionID))
}

func TestReleaseToZeroDestroysSession(t *testing.T) {
	tbl := newTestTable("urn:S")
	ctx := context.Background()

	h, err := tbl.AcquireByMatch(ctx, "urn:S", domain.SessionSettings{})
	require.NoError(t, err)
	id := h.Session().ConnectionID()

	require.NoError(t, h.Release(ctx))

	_, ok := tbl.ActivityOf(id)
	assert.False(t, ok, "session should be collected once activity reaches zero")

	_, err = tbl.AcquireByID(id)
	assert.Error(t, err)
}

func TestReleaseUnderflowOnDoubleRelease(t *testing.T) {
	tbl := newTestTable("urn:S")
	ctx := context.Background()

	h, err := tbl.AcquireByMatch(ctx, "urn:S", domain.SessionSettings{})
	require.NoError(t, err)

	require.NoError(t, h.Release(ctx))
	err = h.Release(ctx)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeReleaseUnderflow))
}

func TestDeleteAllClearsEverySession(t *testing.T) {
	tbl := newTestTable("urn:A", "urn:B")
	ctx := context.Background()

	_, err := tbl.AcquireByMatch(ctx, "urn:A", domain.SessionSettings{})
	require.NoError(t, err)
	_, err = tbl.AcquireByMatch(ctx, "urn:B", domain.SessionSettings{})
	require.NoError(t, err)

	require.NoError(t, tbl.DeleteAll(ctx))
	assert.Empty(t, tbl.Snapshot())
}

func TestSnapshotIsACopy(t *testing.T) {
	tbl := newTestTable("urn:S")
	ctx := context.Background()
	_, err := tbl.AcquireByMatch(ctx, "urn:S", domain.SessionSettings{})
	require.NoError(t, err)

	snap := tbl.Snapshot()
	require.Len(t, snap, 1)
	snap[0].ServerURI = "mutated"

	snap2 := tbl.Snapshot()
	assert.Equal(t, "urn:S", snap2[0].ServerURI)
}
