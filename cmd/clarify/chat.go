package main

import (
	"os"
	"strings"

	"github.com/aretw0/clarify/internal/cli"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat [request...]",
	Short: "Start or resume a session in the terminal",
	Long: `Runs the clarification loop interactively. The request can be given as
arguments or typed at the prompt. Type 'exit' or press Ctrl+C to leave; the session
stays saved and can be resumed with --session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		jsonMode, _ := cmd.Flags().GetBool("json")

		app, err := loadApp(cmd, false)
		if err != nil {
			return err
		}
		defer app.Close()

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		return cli.RunChat(sigCtx, app, cli.ChatOptions{
			SessionID:   sessionID,
			Input:       strings.Join(args, " "),
			JSON:        jsonMode,
			Interactive: !jsonMode && term.IsTerminal(int(os.Stdout.Fd())),
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("session", "s", "", "Session ID to create or resume")
	chatCmd.Flags().Bool("json", false, "Exchange JSON Lines on stdin/stdout")
}
