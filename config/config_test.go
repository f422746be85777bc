package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "business:\n  name: Librería Sol\n"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 15, cfg.Session.InactivityMinutes)
	assert.Equal(t, "Librería Sol", cfg.Business.Name)
	assert.Equal(t, 1500, cfg.AI.RetryDelayMs)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DELIVERY_FEE", "950")
	t.Setenv("BUSINESS_OWNER_ID", "5491100000000")
	cfg, err := LoadConfig(writeConfig(t, "delivery:\n  enabled: true\n  fee: 800\nbusiness:\n  owner_id: x\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(950), cfg.Delivery.Fee)
	assert.Equal(t, "5491100000000", cfg.Business.OwnerID)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "database:\n  driver: mysql\n"))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
