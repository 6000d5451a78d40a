package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "agent-engine", cfg.Engine.Command)
	assert.Equal(t, "cl100k_base", cfg.Tokens.Encoding)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/relay
engine:
  command: my-engine
  args: ["--stream"]
  env:
    ENGINE_MODE: relay
remote:
  base_url: https://sessions.example.com
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/relay", cfg.DataDir)
	assert.Equal(t, "my-engine", cfg.Engine.Command)
	assert.Equal(t, []string{"--stream"}, cfg.Engine.Args)
	assert.Equal(t, "relay", cfg.Engine.Env["ENGINE_MODE"])
	assert.Equal(t, "https://sessions.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverridesRemote(t *testing.T) {
	t.Setenv("AGENTRELAY_REMOTE_URL", "https://override.example.com")
	t.Setenv("AGENTRELAY_REMOTE_TOKEN", "tok")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://override.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, "tok", cfg.Remote.Token)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: [unclosed"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults-valid", mutate: func(*Config) {}},
		{
			name:    "missing-data-dir",
			mutate:  func(c *Config) { c.DataDir = "" },
			wantErr: "data_dir",
		},
		{
			name:    "missing-engine-command",
			mutate:  func(c *Config) { c.Engine.Command = "" },
			wantErr: "engine.command",
		},
		{
			name:    "bad-log-level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "logging.level",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
