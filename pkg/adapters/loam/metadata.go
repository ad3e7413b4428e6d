package loam

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// PromptMetadata is the frontmatter of a prompt document.
type PromptMetadata struct {
	// Name overrides the document ID as the prompt name.
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description" mapstructure:"description"`

	// Temperature is kept loose: strict mode hands numbers over as json.Number.
	Temperature any `json:"temperature" mapstructure:"temperature"`
}

func parseTemperature(v any) (*float32, error) {
	var f float64
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("temperature: %w", err)
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(t, 32)
		if err != nil {
			return nil, fmt.Errorf("temperature: %w", err)
		}
		f = n
	default:
		return nil, fmt.Errorf("temperature: unsupported type %T", v)
	}
	if f < 0 || f > 2 {
		return nil, fmt.Errorf("temperature %.2f out of range [0, 2]", f)
	}
	out := float32(f)
	return &out, nil
}
