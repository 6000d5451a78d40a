package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bazelment/agentrelay/bridge"
	"github.com/bazelment/agentrelay/message"
	"github.com/bazelment/agentrelay/session"
)

var (
	chatDir     string
	chatResume  string
	chatBackend string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat against the engine",
	Long: `Chat starts or resumes a session and reads prompts line by line
from stdin, printing committed assistant output as it streams.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		stream := bridge.NewStream(0, log)
		mgr, _ := buildManager(cfg, log, stream)
		defer mgr.Stop()

		backend := session.BackendLocal
		if chatBackend == string(session.BackendRemote) {
			backend = session.BackendRemote
		}

		ctx := cmd.Context()
		if chatResume != "" {
			rec, err := mgr.ResumeSession(ctx, chatResume, backend)
			if err != nil {
				return err
			}
			fmt.Printf("Resumed session %s (%d messages)\n", rec.ID, len(rec.Conversation))
		} else {
			dir := chatDir
			if dir == "" {
				dir, _ = os.Getwd()
			}
			rec, err := mgr.CreateSession(ctx, dir, backend)
			if err != nil {
				return err
			}
			fmt.Printf("Created session %s\n", rec.ID)
		}

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			if err := mgr.Prompt(ctx, text); err != nil {
				fmt.Fprintf(os.Stderr, "prompt failed: %v\n", err)
				continue
			}
			drainCycle(stream)
		}
		return scanner.Err()
	},
}

// drainCycle consumes stream items until the current prompt cycle ends,
// printing committed assistant text and tool activity.
func drainCycle(stream *bridge.Stream) {
	for {
		select {
		case <-stream.Done():
			return
		case item := <-stream.Items():
			switch item.Type {
			case bridge.ItemTypeMessage:
				if item.Final && item.Message.Role == message.RoleAssistant {
					if text := item.Message.Text(); text != "" {
						fmt.Println(text)
					}
				}
			case bridge.ItemTypeNotification:
				n := item.Notification
				if n.Phase == message.PhaseStart {
					fmt.Printf("  [tool] %s\n", n.ToolName)
				}
			case bridge.ItemTypeCompleted:
				return
			case bridge.ItemTypeError:
				fmt.Fprintf(os.Stderr, "stream error: %s\n", item.Error)
				return
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatDir, "dir", "", "Working directory for the session (default: cwd)")
	chatCmd.Flags().StringVar(&chatResume, "resume", "", "Resume an existing session by id")
	chatCmd.Flags().StringVar(&chatBackend, "backend", "local", "Persistence backend: local or remote")
}
