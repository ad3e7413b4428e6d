package main

import (
	"fmt"
	"os"

	"github.com/aretw0/clarify/internal/cli"
	"github.com/aretw0/clarify/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "clarify",
	Short: "Clarify turns vague requests into confirmed requirements and a research summary",
	Long: `Clarify interprets a request with a language model, shows its interpretation,
and loops on your corrections until you confirm it. Sessions are persisted at every
pause, so a conversation can be resumed later from any interface.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Path to the YAML config file")
	rootCmd.PersistentFlags().String("store", "", "Session store backend: memory, file, redis or sqlite")
	rootCmd.PersistentFlags().String("prompts", "", "Directory of markdown prompt overrides")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("offline", false, "Run without a language model (placeholder answers, keyword classifier)")
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")

	cfg, err := config.Load(path, flags.Changed("config"))
	if err != nil {
		return cfg, err
	}
	if v, _ := flags.GetString("store"); v != "" {
		cfg.Store.Backend = v
	}
	if v, _ := flags.GetString("prompts"); v != "" {
		cfg.PromptsDir = v
	}
	return cfg, cfg.Validate()
}

// loadApp builds the wired service for a command. Servers log JSON.
func loadApp(cmd *cobra.Command, jsonLogs bool) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	debug, _ := cmd.Flags().GetBool("debug")
	offline, _ := cmd.Flags().GetBool("offline")

	logger, err := cli.NewLogger(cfg.LogLevel, debug, jsonLogs)
	if err != nil {
		return nil, err
	}
	return cli.NewApp(cmd.Context(), cfg, logger, cli.BuildOptions{Offline: offline, Debug: debug})
}
