package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/clarify"
	"github.com/aretw0/clarify/internal/testutils"
	"github.com/aretw0/clarify/pkg/adapters/memory"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(gen *testutils.Generator) *Server {
	svc := clarify.NewWithGenerator(gen, memory.NewStore(),
		[]clarify.EngineOption{clarify.WithKeywordClassifier()})
	return NewServer(svc)
}

func TestServer_StartResume(t *testing.T) {
	s := newTestServer(testutils.NewGenerator("final summary"))
	ctx := context.Background()

	started, err := s.handleStart(ctx, mcp.CallToolRequest{}, map[string]any{"session_id": "s1", "input": "solar panels"})
	require.NoError(t, err)
	assert.Equal(t, "suspended", started.Status)
	assert.Equal(t, "confirmation", started.Kind)
	assert.Contains(t, started.Prompt, "Is this correct?")

	// JSON numbers arrive as float64.
	args := map[string]any{"session_id": "s1", "reply": "yes", "revision": float64(started.Revision)}
	done, err := s.handleResume(ctx, mcp.CallToolRequest{}, args)
	require.NoError(t, err)
	assert.Equal(t, "completed", done.Status)
	assert.Equal(t, "final summary", done.Result)

	again, err := s.handleResume(ctx, mcp.CallToolRequest{}, args)
	require.NoError(t, err)
	assert.Equal(t, done, again)
}

func TestServer_Errors(t *testing.T) {
	s := newTestServer(testutils.NewGenerator("final"))
	ctx := context.Background()

	_, err := s.handleResume(ctx, mcp.CallToolRequest{}, map[string]any{"session_id": "missing", "reply": "yes"})
	assert.ErrorContains(t, err, "session not found")

	_, err = s.handleStart(ctx, mcp.CallToolRequest{}, map[string]any{"input": "   "})
	assert.Error(t, err)
}

func TestServer_GetSession(t *testing.T) {
	s := newTestServer(testutils.NewGenerator("final"))
	ctx := context.Background()
	_, err := s.handleStart(ctx, mcp.CallToolRequest{}, map[string]any{"session_id": "s1", "input": "solar"})
	require.NoError(t, err)

	req := mcp.CallToolRequest{}
	req.Params.Name = "get_session"
	req.Params.Arguments = map[string]any{"session_id": "s1"}
	res, err := s.handleGet(ctx, req)
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)

	var st map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &st))
	assert.Equal(t, "presenting", st["phase"])

	req.Params.Arguments = map[string]any{"session_id": "nope"}
	res, err = s.handleGet(ctx, req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestServer_ToolsRegistered(t *testing.T) {
	s := newTestServer(testutils.NewGenerator("final"))

	msg := s.MCPServer().HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	for _, name := range []string{"start_session", "resume_session", "get_session"} {
		assert.Contains(t, string(raw), `"`+name+`"`)
	}
}

func TestRevisionArg(t *testing.T) {
	rev, ok := revisionArg(float64(3))
	assert.True(t, ok)
	assert.Equal(t, 3, rev)

	_, ok = revisionArg(nil)
	assert.False(t, ok)

	rev, ok = revisionArg(json.Number("7"))
	assert.True(t, ok)
	assert.Equal(t, 7, rev)
}
