package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/clarify"
	"github.com/aretw0/clarify/internal/testutils"
	httpadapter "github.com/aretw0/clarify/pkg/adapters/http"
	"github.com/aretw0/clarify/pkg/adapters/memory"
	"github.com/aretw0/clarify/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	handler http.Handler
	gen     *testutils.Generator
	streams *httpadapter.StreamManager
}

func newFixture(t *testing.T, opts ...httpadapter.Option) *fixture {
	t.Helper()
	gen := testutils.NewGenerator("Solar panels convert sunlight into electricity.")
	streams := httpadapter.NewStreamManager(nil)
	svc := clarify.NewWithGenerator(gen, memory.NewStore(),
		[]clarify.EngineOption{clarify.WithKeywordClassifier()},
		clarify.WithChangeListener(streams.Listener()),
	)
	handler, err := httpadapter.NewHandler(svc, append([]httpadapter.Option{httpadapter.WithStreams(streams)}, opts...)...)
	require.NoError(t, err)
	return &fixture{handler: handler, gen: gen, streams: streams}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestChat_StartAndResume(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/chat/start", map[string]any{"session_id": "s1", "input": "Tell me about solar panels"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	started := decode[httpadapter.ChatResponse](t, w)
	assert.Equal(t, "s1", started.SessionID)
	assert.EqualValues(t, "suspended", started.Status)
	assert.EqualValues(t, "confirmation", started.Kind)
	assert.Contains(t, started.Prompt, "Is this correct?")

	w = f.do(t, http.MethodPost, "/chat/resume", map[string]any{"session_id": "s1", "reply": "yes", "revision": started.Revision})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	done := decode[httpadapter.ChatResponse](t, w)
	assert.EqualValues(t, "completed", done.Status)
	assert.Equal(t, "Solar panels convert sunlight into electricity.", done.Result)

	// Retrying the same call replays the result.
	w = f.do(t, http.MethodPost, "/chat/resume", map[string]any{"session_id": "s1", "reply": "yes", "revision": started.Revision})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, done, decode[httpadapter.ChatResponse](t, w))

	// Without a revision the repeated reply is still recognized.
	w = f.do(t, http.MethodPost, "/chat/resume", map[string]any{"session_id": "s1", "reply": "yes"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, done, decode[httpadapter.ChatResponse](t, w))

	// A new reply to a completed session is a conflict.
	w = f.do(t, http.MethodPost, "/chat/resume", map[string]any{"session_id": "s1", "reply": "one more thing"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestChat_ErrorMapping(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"missing input", "/chat/start", map[string]any{"session_id": "x"}, http.StatusBadRequest},
		{"blank input", "/chat/start", map[string]any{"input": ""}, http.StatusBadRequest},
		{"unknown session", "/chat/resume", map[string]any{"session_id": "nope", "reply": "yes"}, http.StatusNotFound},
		{"missing reply", "/chat/resume", map[string]any{"session_id": "nope"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			resp := decode[httpadapter.ErrorResponse](t, w)
			assert.NotEmpty(t, resp.Error)
			assert.False(t, resp.Retryable)
		})
	}
}

func TestChat_StartConflict(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/chat/start", map[string]any{"session_id": "s1", "input": "solar"}).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/chat/start", map[string]any{"session_id": "s1", "input": "solar"}).Code, "same input replays")
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/chat/start", map[string]any{"session_id": "s1", "input": "wind"}).Code)
}

func TestChat_UpstreamFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	f.gen.Fail(errors.New("model overloaded"))

	w := f.do(t, http.MethodPost, "/chat/start", map[string]any{"input": "solar"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decode[httpadapter.ErrorResponse](t, w)
	assert.True(t, resp.Retryable)
	assert.Contains(t, resp.Error, "model overloaded")
}

func TestSessions_ListGetDelete(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/chat/start", map[string]any{"session_id": "s1", "input": "solar"}).Code)

	w := f.do(t, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]clarify.Summary](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "s1", list[0].SessionID)
	assert.Equal(t, domain.PhasePresenting, list[0].Phase)

	w = f.do(t, http.MethodGet, "/sessions/s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[domain.State](t, w)
	assert.Equal(t, "solar", st.RawInput)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/sessions/s1", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/sessions/s1", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/sessions/s1", nil).Code)
}

func TestMeta_HealthInfoSpec(t *testing.T) {
	f := newFixture(t, httpadapter.WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "clarify_steps_total 1")
	})))

	w := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	info := decode[map[string]string](t, f.do(t, http.MethodGet, "/info", nil))
	assert.Equal(t, "clarify-http", info["app"])
	assert.Equal(t, "1.0.0", info["api_version"])
	assert.Equal(t, strings.TrimSpace(clarify.Version), info["version"])

	w = f.do(t, http.MethodGet, "/openapi.yaml", nil)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")

	w = f.do(t, http.MethodGet, "/metrics", nil)
	assert.Contains(t, w.Body.String(), "clarify_steps_total")

	w = f.do(t, http.MethodOptions, "/chat/start", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubscribeEvents_Session(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?session_id=s1&watch=phase,final_output", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	lines := make(chan string, 32)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if l := sc.Text(); strings.HasPrefix(l, "data: ") {
				lines <- strings.TrimPrefix(l, "data: ")
			}
		}
	}()

	require.Equal(t, "connected", <-lines)
	require.Eventually(t, func() bool { return f.streams.Subscribers("s1") == 1 }, time.Second, 10*time.Millisecond)

	w := f.do(t, http.MethodPost, "/chat/start", map[string]any{"session_id": "s1", "input": "solar"})
	require.Equal(t, http.StatusOK, w.Code)

	var diff domain.StateDiff
	require.NoError(t, json.Unmarshal([]byte(<-lines), &diff))
	require.NotNil(t, diff.Phase)
	assert.Equal(t, domain.PhasePresenting, *diff.Phase)

	started := decode[httpadapter.ChatResponse](t, w)
	w = f.do(t, http.MethodPost, "/chat/resume", map[string]any{"session_id": "s1", "reply": "yes", "revision": started.Revision})
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.Unmarshal([]byte(<-lines), &diff))
	assert.Equal(t, []string{"Solar panels convert sunlight into electricity."}, diff.FinalOutput)
}

func TestSubscribeEvents_RequiresSession(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/events", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
