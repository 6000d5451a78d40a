package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bazelment/agentrelay/bridge"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the host protocol over stdin/stdout",
	Long: `Serve reads NDJSON commands on stdin and writes stream items on
stdout. Logs go to stderr. The process exits when stdin closes or on
SIGINT/SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		stream := bridge.NewStream(0, log)
		mgr, local := buildManager(cfg, log, stream)
		srv := bridge.NewServer(mgr, local, stream, log)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Info("serving host protocol", "engine", cfg.Engine.Command, "data_dir", cfg.DataDir)
		return srv.Run(ctx, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
