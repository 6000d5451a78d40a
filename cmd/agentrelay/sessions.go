package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bazelment/agentrelay/store"
)

var sessionsJSON bool

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect persisted sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted sessions, most recently updated first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		local := store.NewLocal(cfg.DataDir, newLogger(cfg))
		recs, err := local.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}

		if sessionsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(recs)
		}

		if len(recs) == 0 {
			fmt.Println("No sessions.")
			return nil
		}
		for _, rec := range recs {
			name := rec.Name
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Printf("%s  %s  %d messages  updated %s\n",
				rec.ID, name, rec.MessageCount, rec.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a persisted session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		local := store.NewLocal(cfg.DataDir, newLogger(cfg))
		if err := local.Delete(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a session's conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		local := store.NewLocal(cfg.DataDir, newLogger(cfg))
		rec, err := local.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}

		if sessionsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		}

		for _, msg := range rec.Conversation {
			text := msg.Text()
			if text == "" {
				continue
			}
			fmt.Printf("[%s] %s\n", msg.Role, text)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.PersistentFlags().BoolVar(&sessionsJSON, "json", false, "Output as JSON")
}
