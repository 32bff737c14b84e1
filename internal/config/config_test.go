package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("PORT", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("LIVE_MAX_VIEWERS", "")
	t.Setenv("LIVE_SEND_BUFFER", "")
	t.Setenv("LIVE_REQUIRE_TOKEN", "")
	t.Setenv("JWT_ISSUER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, []string{"*"}, cfg.CorsOrigins)
	assert.Equal(t, 0, cfg.LiveMaxViewers)
	assert.Equal(t, 32, cfg.LiveSendBuffer)
	assert.False(t, cfg.LiveRequireToken)
	assert.Equal(t, "safeshe", cfg.JWTIssuer)
}

func TestLoad_PostgresRequiresURL(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/safeshe")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("LIVE_MAX_VIEWERS", "4")
	t.Setenv("LIVE_REQUIRE_TOKEN", "true")
	t.Setenv("ACCESS_TTL_SECONDS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CorsOrigins)
	assert.Equal(t, 4, cfg.LiveMaxViewers)
	assert.True(t, cfg.LiveRequireToken)
	assert.Equal(t, int64(86400), cfg.AccessTTLSeconds)
}

func TestLoad_RejectsNegativeViewerCap(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LIVE_MAX_VIEWERS", "-1")

	_, err := Load()
	require.Error(t, err)
}
