package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresSatelliteID(t *testing.T) {
	t.Setenv("WAQF_JWT_SECRET", "secret")
	t.Setenv("WAQF_SATELLITE_ID", "")
	t.Setenv("WAQF_SATELLITE_OPTIONAL", "false")

	_, err := Load()
	require.ErrorIs(t, err, ErrMissingSatelliteID)
}

func TestLoadOptionalSatellite(t *testing.T) {
	t.Setenv("WAQF_JWT_SECRET", "secret")
	t.Setenv("WAQF_SATELLITE_ID", "")
	t.Setenv("WAQF_SATELLITE_OPTIONAL", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.SatelliteOptional)
	require.Empty(t, cfg.SatelliteID)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WAQF_JWT_SECRET", "secret")
	t.Setenv("WAQF_SATELLITE_ID", "sat-1234")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, 30*time.Second, cfg.HealthCheckInterval)
	require.Equal(t, 3, cfg.InitMaxRetries)
	require.Equal(t, 2*time.Second, cfg.InitRetryDelay)
	require.Equal(t, "postgres", cfg.DatabaseDriver)
	require.Equal(t, "*", cfg.CORSAllowOrigins)
	require.True(t, cfg.BootstrapEnabled)
	require.False(t, cfg.CloudinaryEnabled())
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("WAQF_JWT_SECRET", "secret")
	t.Setenv("WAQF_SATELLITE_ID", "sat-1234")
	t.Setenv("WAQF_HEALTH_INTERVAL", "soon")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("WAQF_JWT_SECRET", "")
	t.Setenv("WAQF_SATELLITE_ID", "sat-1234")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadBootstrapCanBeDisabled(t *testing.T) {
	t.Setenv("WAQF_JWT_SECRET", "secret")
	t.Setenv("WAQF_SATELLITE_ID", "sat-1234")
	t.Setenv("WAQF_BOOTSTRAP_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.BootstrapEnabled)
}
