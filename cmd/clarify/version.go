package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/clarify"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of clarify",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("clarify version %s\n", strings.TrimSpace(clarify.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
