package decisions

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-lending/underwriter/internal/audit"
	"github.com/meridian-lending/underwriter/pkg/pagination"
	"github.com/meridian-lending/underwriter/pkg/query"
	"github.com/meridian-lending/underwriter/pkg/repository"
)

const insertDecision = `
	INSERT INTO underwriting_decisions(
		id, workflow_id, ai_decision, ai_risk_score, ai_confidence,
		decision_memo, executive_summary, proposed_conditions, final_decision)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const decisionExists = `
	SELECT EXISTS(SELECT 1 FROM underwriting_decisions WHERE workflow_id = $1)`

const applyReview = `
	UPDATE underwriting_decisions
	SET human_override = $2,
		human_decision = $3,
		human_reviewer = $4,
		human_notes = $5,
		human_review_at = now(),
		final_decision = $6,
		updated_at = now()
	WHERE id = $1`

const insertCondition = `
	INSERT INTO conditions(id, decision_id, condition_type, status, description, added_by)
	VALUES ($1, $2, $3, $4, $5, $6)`

const clearCondition = `
	UPDATE conditions
	SET status = $2,
		cleared_by = $3,
		cleared_at = now(),
		notes = $4,
		updated_at = now()
	WHERE id = $1`

type repo struct {
	db         *sql.DB
	log        audit.Log
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a decision repository implementing the System interface.
func New(db *sql.DB, log audit.Log, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		log:        log,
		logger:     logger.With("system", "decisions"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) CreateTx(
	ctx context.Context,
	ex txExecutor,
	workflowID uuid.UUID,
	cmd CreateCommand,
) (*Decision, error) {
	proposed := cmd.ProposedConditions
	if len(proposed) == 0 {
		proposed = []byte(`[]`)
	}

	d := Decision{
		ID:                 uuid.New(),
		WorkflowID:         workflowID,
		AIDecision:         cmd.AIDecision,
		AIRiskScore:        cmd.AIRiskScore,
		AIConfidence:       cmd.AIConfidence,
		DecisionMemo:       cmd.DecisionMemo,
		ExecutiveSummary:   cmd.ExecutiveSummary,
		ProposedConditions: proposed,
		FinalDecision:      finalFor(false, "", cmd.AIDecision),
	}

	_, err := ex.ExecContext(
		ctx, insertDecision,
		d.ID,
		d.WorkflowID,
		d.AIDecision,
		d.AIRiskScore,
		d.AIConfidence,
		d.DecisionMemo,
		d.ExecutiveSummary,
		[]byte(proposed),
		d.FinalDecision,
	)
	if err != nil {
		return nil, repository.MapError(
			fmt.Errorf("insert decision: %w", err),
			ErrNotFound,
			ErrDuplicate,
		)
	}

	return &d, nil
}

func (r *repo) ExistsTx(ctx context.Context, ex txExecutor, workflowID uuid.UUID) (bool, error) {
	var exists bool
	if err := ex.QueryRowContext(ctx, decisionExists, workflowID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check decision existence: %w", err)
	}
	return exists, nil
}

func (r *repo) Finalize(
	ctx context.Context,
	workflowID uuid.UUID,
	cmd ReviewCommand,
) (*Decision, error) {
	if err := validateReview(cmd); err != nil {
		return nil, err
	}

	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Decision, error) {
		return r.FinalizeTx(ctx, tx, workflowID, cmd)
	})
}

func validateReview(cmd ReviewCommand) error {
	if !ValidDecision(cmd.Decision) {
		return fmt.Errorf("%w: %q", ErrInvalidDecision, cmd.Decision)
	}

	for _, c := range cmd.Conditions {
		if !validConditionTypes[c.Type] {
			return fmt.Errorf("%w: unknown type %q", ErrInvalidCondition, c.Type)
		}
		if strings.TrimSpace(c.Description) == "" {
			return fmt.Errorf("%w: description is required", ErrInvalidCondition)
		}
	}

	return nil
}

func (r *repo) FinalizeTx(
	ctx context.Context,
	ex txExecutor,
	workflowID uuid.UUID,
	cmd ReviewCommand,
) (*Decision, error) {
	if err := validateReview(cmd); err != nil {
		return nil, err
	}

	d, err := r.findByWorkflow(ctx, ex, workflowID)
	if err != nil {
		return nil, err
	}

	d.HumanOverride = true
	d.HumanDecision = cmd.Decision
	d.HumanReviewer = &cmd.Reviewer
	d.HumanNotes = cmd.Notes
	d.FinalDecision = finalFor(true, cmd.Decision, d.AIDecision)

	if err := repository.ExecExpectOne(
		ctx, ex, applyReview,
		d.ID, d.HumanOverride, d.HumanDecision, cmd.Reviewer, d.HumanNotes, d.FinalDecision,
	); err != nil {
		return nil, fmt.Errorf("apply human review: %w", err)
	}

	for _, c := range cmd.Conditions {
		if _, err := ex.ExecContext(
			ctx, insertCondition,
			uuid.New(), d.ID, c.Type, ConditionPending, c.Description, cmd.Reviewer,
		); err != nil {
			return nil, fmt.Errorf("insert condition: %w", err)
		}
	}

	err = r.log.AppendTx(ctx, ex, audit.Record{
		WorkflowID:  workflowID,
		EventType:   audit.EventHumanReview,
		Description: fmt.Sprintf("Human review: %s", cmd.Decision),
		Details: map[string]any{
			"decision":   cmd.Decision,
			"notes":      cmd.Notes,
			"conditions": len(cmd.Conditions),
		},
		User: &cmd.Reviewer,
	})
	if err != nil {
		return nil, err
	}

	return d, nil
}

func (r *repo) Override(
	ctx context.Context,
	id uuid.UUID,
	cmd OverrideCommand,
) (*Decision, error) {
	if !ValidDecision(cmd.Decision) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, cmd.Decision)
	}

	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Decision, error) {
		d, err := r.find(ctx, tx, id)
		if err != nil {
			return nil, err
		}

		previous := d.FinalDecision
		d.HumanOverride = true
		d.HumanDecision = cmd.Decision
		d.HumanReviewer = &cmd.Reviewer
		d.HumanNotes = cmd.Notes
		d.FinalDecision = finalFor(true, cmd.Decision, d.AIDecision)

		if err := repository.ExecExpectOne(
			ctx, tx, applyReview,
			d.ID, d.HumanOverride, d.HumanDecision, cmd.Reviewer, d.HumanNotes, d.FinalDecision,
		); err != nil {
			return nil, fmt.Errorf("apply override: %w", err)
		}

		err = r.log.AppendTx(ctx, tx, audit.Record{
			WorkflowID:  d.WorkflowID,
			EventType:   audit.EventOverride,
			Description: fmt.Sprintf("Decision overridden: %s -> %s", previous, cmd.Decision),
			Details: map[string]any{
				"previous": previous,
				"decision": cmd.Decision,
				"notes":    cmd.Notes,
			},
			User: &cmd.Reviewer,
		})
		if err != nil {
			return nil, err
		}

		return d, nil
	})
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Decision, error) {
	return r.find(ctx, r.db, id)
}

func (r *repo) FindByWorkflow(ctx context.Context, workflowID uuid.UUID) (*Decision, error) {
	return r.findByWorkflow(ctx, r.db, workflowID)
}

func (r *repo) Conditions(ctx context.Context, decisionID uuid.UUID) ([]Condition, error) {
	qb := query.NewBuilder(conditionProjection, conditionSort)
	qb.WhereEquals("DecisionID", decisionID)

	q, args := qb.Build()
	conditions, err := repository.QueryMany(ctx, r.db, q, args, scanCondition)
	if err != nil {
		return nil, fmt.Errorf("query conditions: %w", err)
	}

	return conditions, nil
}

func (r *repo) Satisfy(
	ctx context.Context,
	conditionID uuid.UUID,
	clearedBy, notes string,
) (*Condition, error) {
	return r.clear(ctx, conditionID, ConditionSatisfied, clearedBy, notes)
}

func (r *repo) Waive(
	ctx context.Context,
	conditionID uuid.UUID,
	clearedBy, notes string,
) (*Condition, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, ErrNotesRequired
	}
	return r.clear(ctx, conditionID, ConditionWaived, clearedBy, notes)
}

func (r *repo) clear(
	ctx context.Context,
	conditionID uuid.UUID,
	status, clearedBy, notes string,
) (*Condition, error) {
	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Condition, error) {
		qb := query.NewBuilder(conditionProjection)
		q, args := qb.BuildSingle("ID", conditionID)

		c, err := repository.QueryOne(ctx, tx, q, args, scanCondition)
		if err != nil {
			return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
		}

		if c.Status == ConditionSatisfied || c.Status == ConditionWaived {
			return nil, fmt.Errorf("%w: %s", ErrConditionClosed, c.Status)
		}

		if err := repository.ExecExpectOne(
			ctx, tx, clearCondition,
			c.ID, status, clearedBy, notes,
		); err != nil {
			return nil, fmt.Errorf("clear condition: %w", err)
		}

		now := time.Now().UTC()
		c.Status = status
		c.ClearedBy = &clearedBy
		c.ClearedAt = &now
		c.Notes = notes
		return &c, nil
	})
}

func (r *repo) find(ctx context.Context, q repository.Querier, id uuid.UUID) (*Decision, error) {
	qb := query.NewBuilder(projection, defaultSort)
	sqlQ, args := qb.BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, q, sqlQ, args, scanDecision)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &d, nil
}

func (r *repo) findByWorkflow(
	ctx context.Context,
	q repository.Querier,
	workflowID uuid.UUID,
) (*Decision, error) {
	qb := query.NewBuilder(projection, defaultSort)
	sqlQ, args := qb.BuildSingle("WorkflowID", workflowID)

	d, err := repository.QueryOne(ctx, q, sqlQ, args, scanDecision)
	if err != nil {
		return nil, repository.MapError(err, ErrNoDecision, ErrDuplicate)
	}

	return &d, nil
}
