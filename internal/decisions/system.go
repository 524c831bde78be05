package decisions

import (
	"context"

	"github.com/google/uuid"

	"github.com/meridian-lending/underwriter/pkg/repository"
)

// txExecutor is satisfied by *sql.DB and *sql.Tx.
type txExecutor interface {
	repository.Querier
	repository.Executor
}

// System is the underwriting decision service contract. Workflow
// orchestration calls the Tx methods; the rest serve the HTTP API.
type System interface {
	Handler() *Handler

	// CreateTx records the automated decision for a workflow inside the
	// caller's transaction. At most one decision per workflow; a second
	// create returns ErrDuplicate.
	CreateTx(ctx context.Context, ex txExecutor, workflowID uuid.UUID, cmd CreateCommand) (*Decision, error)

	// ExistsTx reports whether the workflow already has a decision, using
	// the caller's transaction.
	ExistsTx(ctx context.Context, ex txExecutor, workflowID uuid.UUID) (bool, error)

	// Finalize applies a human review verdict to the workflow's decision,
	// recomputes the final decision, and creates any supplied conditions.
	Finalize(ctx context.Context, workflowID uuid.UUID, cmd ReviewCommand) (*Decision, error)

	// FinalizeTx is Finalize inside the caller's transaction, so the
	// review commits atomically with the workflow state change.
	FinalizeTx(ctx context.Context, ex txExecutor, workflowID uuid.UUID, cmd ReviewCommand) (*Decision, error)

	// Override corrects a decision after the fact without driving workflow
	// state. The final decision is recomputed under the override flag.
	Override(ctx context.Context, id uuid.UUID, cmd OverrideCommand) (*Decision, error)

	Find(ctx context.Context, id uuid.UUID) (*Decision, error)
	FindByWorkflow(ctx context.Context, workflowID uuid.UUID) (*Decision, error)
	Conditions(ctx context.Context, decisionID uuid.UUID) ([]Condition, error)

	// Satisfy marks a condition satisfied and stamps who cleared it.
	Satisfy(ctx context.Context, conditionID uuid.UUID, clearedBy, notes string) (*Condition, error)

	// Waive marks a condition waived. Notes are mandatory for waivers.
	Waive(ctx context.Context, conditionID uuid.UUID, clearedBy, notes string) (*Condition, error)
}
