package domain

// Prompt names used by the workflow steps.
const (
	PromptInterpret = "interpret"
	PromptClassify  = "classify"
	PromptFinalize  = "finalize"
)

// PromptTemplate is a named text/template body plus its generation settings.
type PromptTemplate struct {
	Name        string   `json:"name" mapstructure:"name"`
	Body        string   `json:"body" mapstructure:"-"`
	Temperature *float32 `json:"temperature,omitempty" mapstructure:"temperature"`
}
