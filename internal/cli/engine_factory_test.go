package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/clarify/internal/config"
	"github.com/aretw0/clarify/internal/logging"
	"github.com/aretw0/clarify/pkg/adapters/genai"
	"github.com/aretw0/clarify/pkg/adapters/groq"
	"github.com/aretw0/clarify/pkg/adapters/memory"
	"github.com/aretw0/clarify/pkg/domain"
	"github.com/aretw0/clarify/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offlineConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Backend = config.BackendMemory
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config, opts BuildOptions) *App {
	t.Helper()
	app, err := NewApp(context.Background(), cfg, logging.NewNop(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestNewApp_RequiresAPIKey(t *testing.T) {
	_, err := NewApp(context.Background(), offlineConfig(t), logging.NewNop(), BuildOptions{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewGenerator_Provider(t *testing.T) {
	cfg := config.Default().LLM
	cfg.APIKey = "k"

	gen, err := newGenerator(context.Background(), cfg, false, logging.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &genai.Generator{}, gen)

	cfg.Provider = config.ProviderGroq
	gen, err = newGenerator(context.Background(), cfg, false, logging.NewNop())
	require.NoError(t, err)
	require.IsType(t, &groq.Generator{}, gen)
	assert.Equal(t, groq.DefaultModel, gen.(*groq.Generator).Model())

	gen, err = newGenerator(context.Background(), cfg, true, logging.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &memory.Generator{}, gen, "offline ignores the provider")
}

func TestNewApp_UnknownBackend(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Store.Backend = "etcd"
	_, err := NewApp(context.Background(), cfg, logging.NewNop(), BuildOptions{Offline: true})
	assert.ErrorContains(t, err, "unknown store backend")
}

func TestRunChat_Offline(t *testing.T) {
	app := newTestApp(t, offlineConfig(t), BuildOptions{Offline: true})

	var out bytes.Buffer
	err := RunChat(context.Background(), app, ChatOptions{
		SessionID: "demo",
		Input:     "solar panels",
		In:        strings.NewReader("focus on cost\nyes\n"),
		Out:       &out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Learn about solar panels")
	assert.Contains(t, out.String(), "User said: focus on cost")
	assert.Contains(t, out.String(), "Session demo completed.")

	st, err := app.Service.Get(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseDone, st.Phase)
	assert.Equal(t, 2, st.IterationCount)
}

func TestStartAndResumeOnce(t *testing.T) {
	app := newTestApp(t, offlineConfig(t), BuildOptions{Offline: true})
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, StartOnce(ctx, app, "s1", "drones", &out))
	assert.Contains(t, out.String(), `"status": "suspended"`)
	assert.Contains(t, out.String(), `"revision": 1`)

	out.Reset()
	err := ResumeOnce(ctx, app, "s1", "yes", 7, &out)
	assert.ErrorIs(t, err, domain.ErrRevisionConflict)

	require.NoError(t, ResumeOnce(ctx, app, "s1", "yes", 1, &out))
	assert.Contains(t, out.String(), `"status": "completed"`)
}

func TestNewApp_SQLiteWithEncryption(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Store.Backend = config.BackendSQLite
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "nested", "clarify.db")
	cfg.Store.EncryptionKey = strings.Repeat("ab", middleware.KeySize)

	app := newTestApp(t, cfg, BuildOptions{Offline: true})
	ctx := context.Background()

	_, err := app.Service.Start(ctx, "s1", "secret plans")
	require.NoError(t, err)

	st, err := app.Store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "secret plans", st.RawInput)
	assert.FileExists(t, cfg.Store.SQLitePath)
}

func TestNewApp_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := offlineConfig(t)
	cfg.Store.Backend = config.BackendRedis
	cfg.Store.RedisURL = "redis://" + mr.Addr()

	app := newTestApp(t, cfg, BuildOptions{Offline: true})
	ctx := context.Background()

	res, err := app.Service.Start(ctx, "s1", "solar")
	require.NoError(t, err)
	_, err = app.Service.Resume(ctx, "s1", "yes")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Revision)

	keys := mr.Keys()
	assert.Contains(t, keys, cfg.Store.RedisPrefix+"s1")
}

func TestNewApp_RedisUnreachable(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Store.Backend = config.BackendRedis
	cfg.Store.RedisURL = "redis://127.0.0.1:1"

	_, err := NewApp(context.Background(), cfg, logging.NewNop(), BuildOptions{Offline: true})
	assert.ErrorContains(t, err, "redis unreachable")
}

func TestNewApp_PromptsDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "finalize.md"),
		[]byte("Custom report about \"{{.Goal}}\""), 0o644))

	cfg := offlineConfig(t)
	cfg.PromptsDir = dir
	app := newTestApp(t, cfg, BuildOptions{Offline: true})
	ctx := context.Background()

	_, err := app.Service.Start(ctx, "s1", "drones")
	require.NoError(t, err)
	res, err := app.Service.Resume(ctx, "s1", "yes")
	require.NoError(t, err)
	require.True(t, res.Completed())
	assert.Contains(t, res.Final.Result, "Learn about drones")
}

func TestNewApp_MetricsRegistered(t *testing.T) {
	app := newTestApp(t, offlineConfig(t), BuildOptions{Offline: true})

	_, err := app.Service.Start(context.Background(), "s1", "solar")
	require.NoError(t, err)

	families, err := app.Registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "clarify_suspensions_total")
	assert.Contains(t, names, "clarify_steps_total")
}
