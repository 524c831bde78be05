package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/meridian-lending/underwriter/pkg/pagination"
	"github.com/meridian-lending/underwriter/pkg/repository"
)

// Log is the append-only audit collaborator injected into every component
// that records workflow events.
type Log interface {
	// Append inserts an entry using the log's own connection.
	Append(ctx context.Context, rec Record) error
	// AppendTx inserts an entry through the caller's transaction so the
	// audit write commits atomically with the state change it describes.
	AppendTx(ctx context.Context, ex txExecutor, rec Record) error
}

// txExecutor is satisfied by *sql.DB and *sql.Tx.
type txExecutor interface {
	repository.Querier
	repository.Executor
}

// System extends Log with the read-only query surface.
type System interface {
	Log

	Handler() *Handler

	// ForWorkflow returns all entries for a workflow in insertion order.
	ForWorkflow(ctx context.Context, workflowID uuid.UUID) ([]Entry, error)
	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Entry], error)
}
