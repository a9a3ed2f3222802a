package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvBackendURL, EnvBackendURLLegacy, EnvRoom, EnvIdentity, EnvSystemPrompt} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "http://localhost:8000", cfg.BackendURL)
	require.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "voiceagent.yaml", `
backend_url: https://agent.example.com
room: support
system_prompt: Be brief.
metrics_addr: ":9090"
`)

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "https://agent.example.com", cfg.BackendURL)
	assert.Equal(t, "support", cfg.Room)
	assert.Equal(t, "Be brief.", cfg.SystemPrompt)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, DefaultIdentity, cfg.Identity)
}

func TestLoadMissingYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "bad.yaml", "room: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "voiceagent.yaml", "room: from-file\nidentity: file-user\n")
	t.Setenv(EnvRoom, "from-env")

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Room)
	assert.Equal(t, "file-user", cfg.Identity)
}

func TestLegacyBackendURL(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvBackendURLLegacy, "http://legacy:8000")

	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "http://legacy:8000", cfg.BackendURL)

	t.Setenv(EnvBackendURL, "http://preferred:8000")
	cfg, err = Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "http://preferred:8000", cfg.BackendURL)
}

func TestDotEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv skips keys that are already set, even to ""
	require.NoError(t, os.Unsetenv(EnvIdentity))
	t.Cleanup(func() { os.Unsetenv(EnvIdentity) })
	envFile := writeFile(t, ".env", EnvIdentity+"=dotenv-user\n")

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "dotenv-user", cfg.Identity)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{url: "http://localhost:8000"},
		{url: "https://agent.example.com/base"},
		{url: "localhost:8000", wantErr: true},
		{url: "ws://localhost:8000", wantErr: true},
		{url: "/relative", wantErr: true},
		{url: "", wantErr: true},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.BackendURL = tt.url
		err := cfg.Validate()
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidBackendURL, tt.url)
		} else {
			assert.NoError(t, err, tt.url)
		}
	}
}
