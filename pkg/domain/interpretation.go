package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Confidence is the interpreter's self-assessed certainty.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Valid reports whether c is one of high, medium or low.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// Interpretation is the structured reading of a request.
type Interpretation struct {
	Domain      string     `json:"domain" mapstructure:"domain"`
	Goal        string     `json:"goal" mapstructure:"goal"`
	Assumptions []string   `json:"assumptions" mapstructure:"assumptions"`
	Confidence  Confidence `json:"confidence" mapstructure:"confidence"`
}

// Clone returns a deep copy.
func (i Interpretation) Clone() Interpretation {
	i.Assumptions = slices.Clone(i.Assumptions)
	return i
}

// Validate checks that every field carries a usable value.
func (i Interpretation) Validate() error {
	if strings.TrimSpace(i.Domain) == "" {
		return fmt.Errorf("%w: domain is empty", ErrInvalidInterpretation)
	}
	if strings.TrimSpace(i.Goal) == "" {
		return fmt.Errorf("%w: goal is empty", ErrInvalidInterpretation)
	}
	if i.Assumptions == nil {
		return fmt.Errorf("%w: assumptions missing", ErrInvalidInterpretation)
	}
	if !i.Confidence.Valid() {
		return fmt.Errorf("%w: confidence %q is not one of high, medium, low", ErrInvalidInterpretation, i.Confidence)
	}
	return nil
}

// InterpretationSchema describes the record the Interpretation step asks for.
var InterpretationSchema = &Schema{
	Type: SchemaObject,
	Properties: map[string]*Schema{
		"domain": {Type: SchemaString, Description: "The subject area, e.g. \"Agricultural Drone Technology\""},
		"goal":   {Type: SchemaString, Description: "One sentence describing what the user wants"},
		"assumptions": {
			Type:        SchemaArray,
			Description: "Reasonable assumptions made to fill in gaps",
			Items:       &Schema{Type: SchemaString},
		},
		"confidence": {
			Type:        SchemaString,
			Description: "Confidence level of the interpretation",
			Enum:        []string{string(ConfidenceHigh), string(ConfidenceMedium), string(ConfidenceLow)},
		},
	},
	Required: []string{"domain", "goal", "assumptions", "confidence"},
}
