package testutils

import (
	"context"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// PromptRepo initializes a loam repository in a temp dir and saves docs into
// it, keyed by document ID (file name, e.g. "finalize.md").
func PromptRepo(t *testing.T, docs map[string]string) core.Repository {
	t.Helper()

	repo, err := loam.Init(t.TempDir())
	require.NoError(t, err, "init prompt repo")

	for id, content := range docs {
		require.NoError(t, repo.Save(context.Background(), core.Document{ID: id, Content: content}), "save %s", id)
	}
	return repo
}
