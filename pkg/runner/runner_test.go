package runner_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aretw0/clarify"
	"github.com/aretw0/clarify/internal/testutils"
	"github.com/aretw0/clarify/pkg/adapters/memory"
	"github.com/aretw0/clarify/pkg/domain"
	"github.com/aretw0/clarify/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(gen *testutils.Generator) *clarify.Service {
	return clarify.NewWithGenerator(gen, memory.NewStore(),
		[]clarify.EngineOption{clarify.WithKeywordClassifier()},
		clarify.WithIDGenerator(func() string { return "chat-1" }),
	)
}

func run(t *testing.T, svc *clarify.Service, input string, opts ...runner.Option) (*domain.Result, string) {
	t.Helper()
	out := &bytes.Buffer{}
	handler := runner.NewTextHandler(strings.NewReader(input), out)
	r := runner.NewRunner(svc, append([]runner.Option{runner.WithInputHandler(handler)}, opts...)...)

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	return res, out.String()
}

func TestRunner_ConfirmFlow(t *testing.T) {
	svc := newService(testutils.NewGenerator("# Solar\nPanels turn light into power."))

	res, out := run(t, svc, "Tell me about solar panels\nyes\n")

	require.True(t, res.Completed())
	assert.Contains(t, out, "What would you like to know?")
	assert.Contains(t, out, "Is this correct?")
	assert.Contains(t, out, "Panels turn light into power.")
}

func TestRunner_InitialInputAndRenderer(t *testing.T) {
	svc := newService(testutils.NewGenerator("summary"))
	out := &bytes.Buffer{}
	handler := runner.NewTextHandler(strings.NewReader("yes\n"), out,
		runner.WithTextHandlerRenderer(func(s string) (string, error) { return "Rendered: " + s, nil }))

	r := runner.NewRunner(svc,
		runner.WithInputHandler(handler),
		runner.WithInitialInput("solar"),
	)
	res, err := r.Run(context.Background())
	require.NoError(t, err)

	require.True(t, res.Completed())
	assert.NotContains(t, out.String(), "What would you like to know?")
	assert.Contains(t, out.String(), "Rendered: summary")
}

func TestRunner_ExitKeepsSessionSuspended(t *testing.T) {
	svc := newService(testutils.NewGenerator("summary"))

	res, out := run(t, svc, "solar\nexit\n")

	require.NotNil(t, res)
	assert.False(t, res.Completed())
	assert.Contains(t, out, "Session chat-1 saved")

	st, err := svc.Get(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.True(t, st.Suspended())
}

func TestRunner_EOFBeforeRequest(t *testing.T) {
	svc := newService(testutils.NewGenerator("summary"))

	res, _ := run(t, svc, "")
	assert.Nil(t, res)
}

func TestRunner_ResumesExistingSession(t *testing.T) {
	svc := newService(testutils.NewGenerator("summary"))
	_, err := svc.Start(context.Background(), "s1", "solar")
	require.NoError(t, err)

	res, out := run(t, svc, "yes\n", runner.WithSessionID("s1"))

	require.True(t, res.Completed())
	assert.NotContains(t, out, "What would you like to know?")
	assert.Contains(t, out, "summary")
}

func TestRunner_CompletedSessionPrintsFinal(t *testing.T) {
	svc := newService(testutils.NewGenerator("summary"))
	res, err := svc.Start(context.Background(), "s1", "solar")
	require.NoError(t, err)
	_, err = svc.Resume(context.Background(), "s1", "yes", clarify.WithRevision(res.Revision))
	require.NoError(t, err)

	final, out := run(t, svc, "", runner.WithSessionID("s1"))
	require.True(t, final.Completed())
	assert.Contains(t, out, "summary")
}

func TestRunner_RetryableFailureKeepsPrompting(t *testing.T) {
	gen := &testutils.Generator{
		Records: []map[string]any{testutils.Interpretation("Energy", "Learn about solar")},
	}
	svc := newService(gen)

	res, out := run(t, svc, "solar\nyes\nquit\n")

	require.NotNil(t, res)
	assert.False(t, res.Completed())
	assert.Contains(t, out, "Your reply was not recorded")
	assert.Equal(t, 2, strings.Count(out, "Is this correct?"), "prompt shown again after the failure")
}

func TestRunner_CorrectionLoop(t *testing.T) {
	gen := &testutils.Generator{
		Records: []map[string]any{
			testutils.Interpretation("Energy", "Learn about solar"),
			testutils.Interpretation("Energy", "Compare solar costs"),
		},
		Texts: []string{"costs summary"},
	}
	svc := newService(gen)

	res, out := run(t, svc, "solar\nmostly the costs\nyes\n")

	require.True(t, res.Completed())
	assert.Contains(t, out, "Compare solar costs")
	st, err := svc.Get(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"mostly the costs"}, st.Corrections)
	assert.Equal(t, 2, st.IterationCount)
}
