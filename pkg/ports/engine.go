package ports

import (
	"context"

	"github.com/aretw0/clarify/pkg/domain"
)

// Workflow is the stateless core driving a session between suspension points.
// Implementations never persist: they work on a copy and hand the new state back.
type Workflow interface {
	// Advance runs steps from state.Phase until the session suspends or completes.
	// reply is required when state is suspended and ignored otherwise.
	Advance(ctx context.Context, state *domain.State, reply *string) (*domain.State, error)
}
