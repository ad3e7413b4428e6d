package main

import (
	"os"
	"strings"

	"github.com/aretw0/clarify/internal/cli"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start <request...>",
	Short: "Start a session and print the first prompt as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")

		app, err := loadApp(cmd, false)
		if err != nil {
			return err
		}
		defer app.Close()

		return cli.StartOnce(cmd.Context(), app, sessionID, strings.Join(args, " "), os.Stdout)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <session-id> <reply...>",
	Short: "Answer a suspended session and print the result as JSON",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		revision, _ := cmd.Flags().GetInt("revision")

		app, err := loadApp(cmd, false)
		if err != nil {
			return err
		}
		defer app.Close()

		return cli.ResumeOnce(cmd.Context(), app, args[0], strings.Join(args[1:], " "), revision, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(resumeCmd)
	startCmd.Flags().StringP("session", "s", "", "Session ID (generated when empty)")
	resumeCmd.Flags().Int("revision", -1, "Revision of the prompt being answered; retries with the same revision are replayed")
}
