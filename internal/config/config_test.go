package config_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opcua-go/sessionfactory/internal/config"
	"github.com/opcua-go/sessionfactory/internal/domain"
)

func TestInMemoryDatabaseFallsBackWhenNoOverride(t *testing.T) {
	fallback := domain.SessionSettings{SecurityPolicy: "Basic256Sha256"}
	db := config.NewInMemory(fallback)

	settings, err := db.DefaultSessionSettings(context.Background(), "urn:unknown")
	require.NoError(t, err)
	assert.Equal(t, fallback, settings)
}

func TestInMemoryDatabaseReturnsOverride(t *testing.T) {
	fallback := domain.SessionSettings{SecurityPolicy: "Basic256Sha256"}
	db := config.NewInMemory(fallback)
	db.Set("urn:S", domain.SessionSettings{SecurityPolicy: "None"})

	settings, err := db.DefaultSessionSettings(context.Background(), "urn:S")
	require.NoError(t, err)
	assert.Equal(t, "None", settings.SecurityPolicy)
}
