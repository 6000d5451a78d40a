// Package config loads the relay configuration from a YAML file with
// environment-variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the full relay configuration.
type Config struct {
	DataDir string        `yaml:"data_dir"`
	Engine  EngineConfig  `yaml:"engine"`
	Remote  RemoteConfig  `yaml:"remote"`
	Tokens  TokensConfig  `yaml:"tokens"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig describes how the agent engine subprocess is launched.
type EngineConfig struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
}

// RemoteConfig configures the optional remote session service.
type RemoteConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

type TokensConfig struct {
	Encoding string `yaml:"encoding"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DataDir: filepath.Join(home, ".agentrelay"),
		Engine: EngineConfig{
			Command: "agent-engine",
		},
		Tokens: TokensConfig{
			Encoding: "cl100k_base",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration at path. A missing file yields the defaults;
// environment variables override file values for the remote credentials.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if baseURL := os.Getenv("AGENTRELAY_REMOTE_URL"); baseURL != "" {
		cfg.Remote.BaseURL = baseURL
	}
	if token := os.Getenv("AGENTRELAY_REMOTE_TOKEN"); token != "" {
		cfg.Remote.Token = token
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the relay cannot run with.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Engine.Command == "" {
		return fmt.Errorf("engine.command is required")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error")
	}
	return nil
}
