// Command agentrelay bridges an agent engine CLI to a host process,
// translating the engine's event stream into persisted, resumable
// conversations.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bazelment/agentrelay/engine"
	"github.com/bazelment/agentrelay/internal/config"
	"github.com/bazelment/agentrelay/internal/tokens"
	"github.com/bazelment/agentrelay/session"
	"github.com/bazelment/agentrelay/store"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "agentrelay",
	Short: "Session bridge for agent engine CLIs",
	Long: `Agentrelay runs an agent engine as a subprocess, accumulates its
streamed events into a stable conversation model, and persists every
session so it can be listed, resumed, and replayed.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: ~/.agentrelay/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, ".agentrelay", "config.yaml")
	}
	return config.Load(path)
}

// newLogger creates a structured logger on stderr; stdout is reserved for
// the host protocol.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildManager wires the engine, stores, and token counter into a session
// manager reporting to sink.
func buildManager(cfg *config.Config, log *slog.Logger, sink session.Sink) (*session.Manager, store.Store) {
	eng := engine.NewCLIEngine(cfg.Engine.Command, cfg.Engine.Args...)
	eng.Env = cfg.Engine.Env
	eng.Log = log

	local := store.NewLocal(cfg.DataDir, log)
	var remote *store.Remote
	if cfg.Remote.BaseURL != "" {
		remote = store.NewRemote(cfg.Remote.BaseURL, cfg.Remote.Token)
	}

	counter, err := tokens.NewCounter(cfg.Tokens.Encoding)
	if err != nil {
		log.Warn("token counter unavailable", "encoding", cfg.Tokens.Encoding, "error", err)
	}

	mgr := session.NewManager(session.Config{
		Engine:  eng,
		Local:   local,
		Remote:  remote,
		Sink:    sink,
		Counter: counter,
		Log:     log,
	})
	return mgr, local
}
