package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/clarify/pkg/domain"
)

// Overlay carries a session's position to highlight on the diagram.
type Overlay struct {
	Visited   []domain.Phase
	Current   domain.Phase
	Iteration int
}

// OverlayFor derives the overlay of a stored session.
func OverlayFor(s *domain.State) *Overlay {
	if s == nil {
		return nil
	}
	o := &Overlay{Current: s.Phase, Iteration: s.IterationCount}
	if s.IterationCount > 0 || s.Phase != domain.PhaseInterpreting {
		for _, p := range domain.Phases {
			if p == s.Phase {
				break
			}
			o.Visited = append(o.Visited, p)
		}
		// Looping back to interpreting means the previous round reached classifying.
		if s.Phase == domain.PhaseInterpreting && s.IterationCount > 0 {
			o.Visited = []domain.Phase{domain.PhaseInterpreting, domain.PhasePresenting, domain.PhaseClassifying}
		}
	}
	return o
}

type edge struct {
	from, to domain.Phase
	label    string
}

var edges = []edge{
	{domain.PhaseInterpreting, domain.PhasePresenting, ""},
	{domain.PhasePresenting, domain.PhaseClassifying, "reply"},
	{domain.PhaseClassifying, domain.PhaseFinalizing, "confirmed"},
	{domain.PhaseClassifying, domain.PhaseInterpreting, "corrected"},
	{domain.PhaseClassifying, domain.PhaseInterpreting, "rejected"},
	{domain.PhaseFinalizing, domain.PhaseDone, ""},
}

// GenerateMermaid renders the clarification state machine as a Mermaid flowchart.
// Shapes:
//   - interpreting: ((Circle)), the entry point
//   - presenting: [/Parallelogram/], waits for the user
//   - done: [[Subroutine]]
//   - others: [Rectangle]
func GenerateMermaid(overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, p := range domain.Phases {
		opener, closer := "[", "]"
		switch p {
		case domain.PhaseInterpreting:
			opener, closer = "((", "))"
		case domain.PhasePresenting:
			opener, closer = "[/", "/]"
		case domain.PhaseDone:
			opener, closer = "[[", "]]"
		}
		label := string(p)
		if overlay != nil && overlay.Current == p && overlay.Iteration > 0 {
			label = fmt.Sprintf("%s <br/> round %d", p, overlay.Iteration)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", p, opener, label, closer)
	}

	for _, e := range edges {
		switch {
		case e.label == "":
			fmt.Fprintf(&sb, "    %s --> %s\n", e.from, e.to)
		case e.to == domain.PhaseInterpreting:
			// loops back
			fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", e.from, e.label, e.to)
		default:
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", e.from, e.label, e.to)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[domain.Phase]bool)
		for _, p := range overlay.Visited {
			if !seen[p] && p.Valid() && p != overlay.Current {
				seen[p] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", p)
			}
		}
		if overlay.Current.Valid() {
			fmt.Fprintf(&sb, "    class %s current;\n", overlay.Current)
		}
	}

	return sb.String()
}
