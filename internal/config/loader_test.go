// internal/config/loader_test.go
//
// Exercises the three-layer overlay against the repo's own
// conf/global.yaml, discovered by the cwd climb from the package
// directory.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromRepoDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.HTTP.ListenAddr)
	assert.NotEmpty(t, cfg.Database.URL)
	assert.GreaterOrEqual(t, cfg.Database.TenantIdleTTLMinutes, 1)
	assert.NotEmpty(t, cfg.Paths.Root, "root must be discovered")

	assert.Same(t, cfg, Get(), "Load must cache the pointer it returns")
}

func TestEnvOverridesYAML(t *testing.T) {
	t.Setenv("ADMISION_HTTP__LISTEN_ADDR", "127.0.0.1:9999")
	t.Setenv("ADMISION_DATABASE__TENANT_IDLE_TTL_MINUTES", "7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.HTTP.ListenAddr)
	assert.Equal(t, 7, cfg.Database.TenantIdleTTLMinutes)
}

func TestReloadSwapsPointer(t *testing.T) {
	_, err := Load()
	require.NoError(t, err)
	before := Get()

	require.NoError(t, Reload())
	assert.NotSame(t, before, Get())
}
