package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/clarify/internal/runtime"
	"github.com/aretw0/clarify/pkg/adapters/loam"
	"github.com/aretw0/clarify/pkg/ports"
	"github.com/spf13/cobra"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect the prompt templates",
	Long: `Shows the prompts the workflow uses. Files in the --prompts directory
(interpret.md, classify.md, finalize.md) override the built-in templates.`,
}

var promptsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List built-in prompts and overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := openPrompts(cmd)
		if err != nil {
			return err
		}
		overrides := map[string]bool{}
		if lib != nil {
			names, err := lib.Names()
			if err != nil {
				return err
			}
			for _, n := range names {
				overrides[n] = true
			}
		}
		for _, tpl := range runtime.BuiltinPrompts() {
			source := "built-in"
			if overrides[tpl.Name] {
				source = "override"
			}
			fmt.Printf("%-10s %s\n", tpl.Name, source)
		}
		return nil
	},
}

var promptsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print the effective template of a prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := openPrompts(cmd)
		if err != nil {
			return err
		}
		var overrides ports.PromptLibrary
		if lib != nil {
			overrides = lib
		}
		tpl, err := runtime.NewPromptLibrary(overrides).Prompt(args[0])
		if err != nil {
			return err
		}
		if tpl.Temperature != nil {
			fmt.Printf("# temperature: %.2f\n", *tpl.Temperature)
		}
		fmt.Println(tpl.Body)
		return nil
	},
}

// openPrompts opens the configured prompt directory, or returns nil when none is set.
func openPrompts(cmd *cobra.Command) (*loam.PromptLibrary, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.PromptsDir == "" {
		return nil, nil
	}
	lib, err := loam.Open(cfg.PromptsDir)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to open %s", cfg.PromptsDir), err)
	}
	return lib, nil
}

func init() {
	rootCmd.AddCommand(promptsCmd)
	promptsCmd.AddCommand(promptsLsCmd)
	promptsCmd.AddCommand(promptsShowCmd)
}
