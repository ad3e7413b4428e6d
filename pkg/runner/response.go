package runner

import "github.com/aretw0/clarify/pkg/domain"

// Status is the coarse state reported to structured clients.
type Status string

const (
	StatusSuspended Status = "suspended"
	StatusCompleted Status = "completed"
)

// Response flattens a domain.Result for rich clients (Web, MCP, scripts).
type Response struct {
	SessionID string            `json:"session_id"`
	Status    Status            `json:"status"`
	Prompt    string            `json:"prompt,omitempty"`
	Kind      domain.PromptKind `json:"kind,omitempty"`
	Revision  int               `json:"revision"`
	Result    string            `json:"result,omitempty"`
}

// NewResponse converts a result. A nil result yields the zero Response.
func NewResponse(res *domain.Result) Response {
	if res == nil {
		return Response{}
	}
	out := Response{SessionID: res.SessionID, Revision: res.Revision}
	switch {
	case res.Final != nil:
		out.Status = StatusCompleted
		out.Result = res.Final.Result
	case res.Prompt != nil:
		out.Status = StatusSuspended
		out.Prompt = res.Prompt.PromptText
		out.Kind = res.Prompt.Kind
	}
	return out
}
