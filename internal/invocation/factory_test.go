package invocation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opcua-go/sessionfactory/internal/domain"
	"github.com/opcua-go/sessionfactory/internal/invocation"
)

func targetsFor(uris ...string) []domain.RequestTarget {
	out := make([]domain.RequestTarget, len(uris))
	for i, u := range uris {
		out[i] = domain.RequestTarget{Index: i, ServerURI: u}
	}
	return out
}

type testRequest struct {
	domain.BaseSessionRequest
}

func TestCreateSingleServerProducesOneInvocation(t *testing.T) {
	req := &testRequest{domain.BaseSessionRequest{TargetsValue: targetsFor("urn:S", "urn:S", "urn:S")}}
	f := invocation.New()

	groups, err := f.Create(req, domain.AllMask(3))
	require.NoError(t, err)
	require.Len(t, groups, 1)

	for _, inv := range groups {
		assert.Equal(t, "urn:S", inv.ServerURI)
		assert.Len(t, inv.Targets, 3)
	}
}

func TestCreateFanOutGroupsByServerURI(t *testing.T) {
	req := &testRequest{domain.BaseSessionRequest{TargetsValue: targetsFor("A", "A", "B", "C")}}
	f := invocation.New()

	groups, err := f.Create(req, domain.AllMask(4))
	require.NoError(t, err)
	require.Len(t, groups, 3)

	byURI := map[string]int{}
	for _, inv := range groups {
		byURI[inv.ServerURI] = len(inv.Targets)
	}
	assert.Equal(t, 2, byURI["A"])
	assert.Equal(t, 1, byURI["B"])
	assert.Equal(t, 1, byURI["C"])
}

func TestCreateRespectsMask(t *testing.T) {
	req := &testRequest{domain.BaseSessionRequest{TargetsValue: targetsFor("A", "B", "C")}}
	f := invocation.New()

	groups, err := f.Create(req, domain.NewMask(0, 2))
	require.NoError(t, err)
	require.Len(t, groups, 2)

	seen := map[string]bool{}
	for _, inv := range groups {
		seen[inv.ServerURI] = true
	}
	assert.True(t, seen["A"])
	assert.True(t, seen["C"])
	assert.False(t, seen["B"])
}

func TestCreateDistinguishesSettingsForSameServer(t *testing.T) {
	targets := []domain.RequestTarget{
		{Index: 0, ServerURI: "A", Settings: domain.SessionSettings{Locale: "en"}},
		{Index: 1, ServerURI: "A", Settings: domain.SessionSettings{Locale: "de"}},
	}
	req := &testRequest{domain.BaseSessionRequest{TargetsValue: targets}}
	f := invocation.New()

	groups, err := f.Create(req, domain.AllMask(2))
	require.NoError(t, err)
	assert.Len(t, groups, 2)
}
