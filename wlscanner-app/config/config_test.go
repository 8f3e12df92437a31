package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/wlscanner/x/generator"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	d := Default()
	assert.Equal(t, d.Log, cfg.Log)
	assert.Equal(t, d.Generate, cfg.Generate)
	assert.Equal(t, d.API, cfg.API)
	assert.Equal(t, d.Metrics, cfg.Metrics)
	assert.Equal(t, d.Catalog.Manifest, cfg.Catalog.Manifest)
	assert.Empty(t, cfg.Catalog.Collections)
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
log:
  level: debug
catalog:
  manifest: /etc/wlscanner/catalog.yaml
  collections: [core, tools]
  concurrency: 2
generate:
  output: out
  import_path: example.com/gen
  roles: [client]
api:
  listen_addr: 127.0.0.1:9000
  shutdown_timeout: 3s
  cors: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"core", "tools"}, cfg.Catalog.Collections)
	assert.Equal(t, 2, cfg.Catalog.Concurrency)
	assert.Equal(t, "out", cfg.Generate.Output)
	assert.Equal(t, "127.0.0.1:9000", cfg.API.ListenAddr)
	assert.Equal(t, 3*time.Second, cfg.API.ShutdownTimeout)
	assert.True(t, cfg.API.CORS)
	// untouched keys keep their defaults
	assert.Equal(t, Default().API.ReadTimeout, cfg.API.ReadTimeout)

	gen, err := cfg.GeneratorConfig()
	require.NoError(t, err)
	assert.Equal(t, "example.com/gen", gen.ImportPath)
	assert.Equal(t, []generator.Role{generator.RoleClient}, gen.Roles)
	assert.Equal(t, generator.DefaultRuntimePath, gen.RuntimePath)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("WLSCANNER_LOG_LEVEL", "warn")
	t.Setenv("WLSCANNER_API_LISTEN_ADDR", ":7000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, ":7000", cfg.API.ListenAddr)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unknown role":     "generate:\n  roles: [both]\n",
		"empty output":     "generate:\n  output: \"\"\n",
		"no import path":   "generate:\n  import_path: \"\"\n",
		"negative workers": "catalog:\n  concurrency: -1\n",
		"no listen addr":   "api:\n  listen_addr: \"\"\n",
	}
	for name, body := range tests {
		_, err := Load(writeConfig(t, body))
		assert.Error(t, err, name)
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
