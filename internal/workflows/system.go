package workflows

import (
	"context"
	"encoding/json"
	"io"

	"github.com/google/uuid"

	"github.com/meridian-lending/underwriter/internal/decisions"
	"github.com/meridian-lending/underwriter/pkg/pagination"
)

// CallbackEvent is an inbound notification from the external worker.
// Data is interpreted per event type; unknown fields are ignored.
type CallbackEvent struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

// ReasoningStep is one entry in a workflow's reconstructed reasoning chain.
type ReasoningStep struct {
	Timestamp   string          `json:"timestamp"`
	Event       string          `json:"event"`
	Agent       string          `json:"agent,omitempty"`
	Description string          `json:"description"`
	Details     json.RawMessage `json:"details"`
}

// System is the workflow controller contract: the state machine's public
// operations plus the read surface.
type System interface {
	Handler() *Handler

	// Start creates or reuses the workflow for an application, accounts
	// for retries, and dispatches to the external worker asynchronously.
	Start(ctx context.Context, applicationID uuid.UUID) (*Workflow, error)

	// Cancel marks a non-terminal workflow cancelled. The external worker
	// is not stopped; late callbacks are audited but ignored.
	Cancel(ctx context.Context, id uuid.UUID, user *string) (*Workflow, error)

	// ApplyCallback validates and applies one worker event. This is the
	// only path by which status advances past initializing.
	ApplyCallback(ctx context.Context, id uuid.UUID, event CallbackEvent) error

	// SubmitHumanReview finalizes the decision with a reviewer verdict and
	// closes the workflow.
	SubmitHumanReview(ctx context.Context, id uuid.UUID, cmd decisions.ReviewCommand) (*decisions.Decision, error)

	Find(ctx context.Context, id uuid.UUID) (*Workflow, error)
	FindByApplication(ctx context.Context, applicationID uuid.UUID) (*Workflow, error)
	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Workflow], error)

	Analyses(ctx context.Context, workflowID uuid.UUID) ([]AgentAnalysis, error)
	ListAnalyses(
		ctx context.Context,
		page pagination.PageRequest,
		filters AnalysisFilters,
	) (*pagination.PageResult[AgentAnalysis], error)
	RiskFactors(ctx context.Context, workflowID uuid.UUID) ([]RiskFactor, error)

	// Reasoning projects the audit trail into the ordered reasoning chain.
	Reasoning(ctx context.Context, workflowID uuid.UUID) ([]ReasoningStep, error)

	// Metrics aggregates workflow and decision statistics.
	Metrics(ctx context.Context) (*Metrics, error)

	// Snapshot streams the archived sanitized snapshot that was handed to
	// the external worker for this workflow.
	Snapshot(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
}
