package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/aretw0/clarify/pkg/domain"
)

// Event types emitted by the JSONHandler.
const (
	EventPrompt = "prompt"
	EventFinal  = "final"
	EventSystem = "system"
)

// Event is one line of JSONHandler output.
type Event struct {
	Type    string                  `json:"type"`
	Prompt  *domain.SuspendedPrompt `json:"prompt,omitempty"`
	Final   *domain.FinalOutput     `json:"final,omitempty"`
	Message string                  `json:"message,omitempty"`
}

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Prompt(_ context.Context, prompt *domain.SuspendedPrompt) error {
	return h.Encoder.Encode(Event{Type: EventPrompt, Prompt: prompt})
}

func (h *JSONHandler) Final(_ context.Context, final *domain.FinalOutput) error {
	return h.Encoder.Encode(Event{Type: EventFinal, Final: final})
}

// Input reads one line. A JSON string, or an object with a "reply" field, is
// decoded; anything else is taken verbatim.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || strings.TrimSpace(text) == "") {
		return "", err
	}
	text = strings.TrimSpace(text)

	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		return SanitizeInput(val)
	}
	var obj struct {
		Reply *string `json:"reply"`
	}
	if err := json.Unmarshal([]byte(text), &obj); err == nil && obj.Reply != nil {
		return SanitizeInput(*obj.Reply)
	}
	return SanitizeInput(text)
}

func (h *JSONHandler) SystemOutput(_ context.Context, msg string) error {
	return h.Encoder.Encode(Event{Type: EventSystem, Message: msg})
}
