package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/clarify/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONHandler_Output(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewJSONHandler(strings.NewReader(""), out)
	ctx := context.Background()

	require.NoError(t, h.Prompt(ctx, &domain.SuspendedPrompt{SessionID: "s1", PromptText: "Is this correct?", Kind: domain.PromptConfirmation, Revision: 1}))
	require.NoError(t, h.Final(ctx, &domain.FinalOutput{SessionID: "s1", Result: "done"}))
	require.NoError(t, h.SystemOutput(ctx, "bye"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &ev))
	assert.Equal(t, EventPrompt, ev.Type)
	assert.Equal(t, 1, ev.Prompt.Revision)

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &ev))
	assert.Equal(t, EventFinal, ev.Type)
	assert.Equal(t, "done", ev.Final.Result)

	assert.JSONEq(t, `{"type":"system","message":"bye"}`, lines[2])
}

func TestJSONHandler_Input(t *testing.T) {
	in := strings.Join([]string{
		`"quoted reply"`,
		`{"reply":"object reply"}`,
		`plain reply`,
		`last line without newline`,
	}, "\n")
	h := NewJSONHandler(strings.NewReader(in), &bytes.Buffer{})
	ctx := context.Background()

	for _, want := range []string{"quoted reply", "object reply", "plain reply", "last line without newline"} {
		got, err := h.Input(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := h.Input(ctx)
	assert.Error(t, err)
}
