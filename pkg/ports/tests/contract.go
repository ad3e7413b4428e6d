package tests

import (
	"strings"
	"testing"

	"github.com/aretw0/clarify/pkg/ports"
)

// PromptLibraryContractTest is a reusable test suite that verifies if an adapter complies with ports.PromptLibrary.
// setupData maps prompt names to a fragment expected in their body.
func PromptLibraryContractTest(t *testing.T, lib ports.PromptLibrary, setupData map[string]string) {
	t.Helper()

	// 1. Known prompts resolve
	t.Run("Prompt_Success", func(t *testing.T) {
		for name, fragment := range setupData {
			tpl, err := lib.Prompt(name)
			if err != nil {
				t.Fatalf("unexpected error getting prompt %s: %v", name, err)
			}
			if tpl.Name != name {
				t.Errorf("name mismatch: got %q, want %q", tpl.Name, name)
			}
			if !strings.Contains(tpl.Body, fragment) {
				t.Errorf("body of %s does not contain %q: %q", name, fragment, tpl.Body)
			}
		}
	})

	// 2. Unknown prompts fail
	t.Run("Prompt_NotFound", func(t *testing.T) {
		_, err := lib.Prompt("non-existent-prompt")
		if err == nil {
			t.Error("expected error for non-existent prompt, got nil")
		}
	})
}
