package applications

import (
	"context"

	"github.com/google/uuid"
)

// System defines the application boundary consumed by the workflow core.
type System interface {
	Find(ctx context.Context, id uuid.UUID) (*LoanApplication, error)

	// Source loads the full read model for the snapshot builder.
	Source(ctx context.Context, id uuid.UUID) (*Source, error)

	// SetStatus advances or reverts the application's status in lockstep
	// with its workflow. The status must be in the fixed vocabulary.
	SetStatus(ctx context.Context, id uuid.UUID, status string) error

	// RecordDecision copies AI decision fields onto the application and,
	// when cmd.Status is set, closes it out with a decision timestamp.
	RecordDecision(ctx context.Context, id uuid.UUID, cmd DecisionUpdate) error
}
