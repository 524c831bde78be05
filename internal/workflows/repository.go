package workflows

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-lending/underwriter/internal/applications"
	"github.com/meridian-lending/underwriter/internal/audit"
	"github.com/meridian-lending/underwriter/internal/decisions"
	"github.com/meridian-lending/underwriter/internal/dispatch"
	"github.com/meridian-lending/underwriter/pkg/pagination"
	"github.com/meridian-lending/underwriter/pkg/query"
	"github.com/meridian-lending/underwriter/pkg/repository"
	"github.com/meridian-lending/underwriter/pkg/storage"
)

const workflowColumns = `
	id, application_id, status, current_agent, progress_percent, state_data,
	started_at, completed_at, total_duration_seconds, error_message,
	retry_count, max_retries, created_at, updated_at`

// Row locks serialize all state changes for one workflow; callbacks and
// control operations for the same workflow never interleave.
const lockByID = `
	SELECT` + workflowColumns + `
	FROM underwriting_workflows
	WHERE id = $1
	FOR UPDATE`

const lockByApplication = `
	SELECT` + workflowColumns + `
	FROM underwriting_workflows
	WHERE application_id = $1
	FOR UPDATE`

const insertWorkflow = `
	INSERT INTO underwriting_workflows(id, application_id, status, state_data)
	VALUES ($1, $2, $3, '{}')`

const markStarted = `
	UPDATE underwriting_workflows
	SET status = $2,
		started_at = now(),
		error_message = '',
		retry_count = $3,
		updated_at = now()
	WHERE id = $1`

const markTerminal = `
	UPDATE underwriting_workflows
	SET status = $2,
		error_message = $3,
		completed_at = now(),
		total_duration_seconds = CASE
			WHEN started_at IS NOT NULL
			THEN CAST(EXTRACT(EPOCH FROM now() - started_at) AS integer)
			ELSE total_duration_seconds
		END,
		updated_at = now()
	WHERE id = $1`

type repo struct {
	db         *sql.DB
	apps       applications.System
	dispatcher dispatch.Dispatcher
	decisions  decisions.System
	log        audit.System
	archive    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a workflow repository implementing the System interface.
func New(
	db *sql.DB,
	apps applications.System,
	dispatcher dispatch.Dispatcher,
	dec decisions.System,
	log audit.System,
	archive storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		apps:       apps,
		dispatcher: dispatcher,
		decisions:  dec,
		log:        log,
		archive:    archive,
		logger:     logger.With("system", "workflows"),
		pagination: pagination,
	}
}

// Snapshot streams the archived sanitized snapshot handed to the worker.
func (r *repo) Snapshot(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	if _, err := r.Find(ctx, id); err != nil {
		return nil, err
	}
	return r.archive.Download(ctx, dispatch.ArchiveKey(id))
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Start(ctx context.Context, applicationID uuid.UUID) (*Workflow, error) {
	app, err := r.apps.Find(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("find application: %w", err)
	}

	wf, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Workflow, error) {
		wf, err := lockWorkflow(ctx, tx, lockByApplication, applicationID)
		switch {
		case err == nil:
			if !Startable(wf.Status) {
				return nil, fmt.Errorf(
					"%w: cannot start from %s", ErrInvalidTransition, wf.Status,
				)
			}
			if wf.Status == StatusFailed {
				wf.RetryCount++
			}
			if wf.RetryCount > wf.MaxRetries {
				return nil, ErrRetryLimitExceeded
			}
		case errors.Is(err, sql.ErrNoRows):
			wf = &Workflow{
				ID:            uuid.New(),
				ApplicationID: applicationID,
				Status:        StatusPending,
				MaxRetries:    3,
			}
			if _, err := tx.ExecContext(
				ctx, insertWorkflow, wf.ID, wf.ApplicationID, wf.Status,
			); err != nil {
				return nil, repository.MapError(
					fmt.Errorf("insert workflow: %w", err), ErrNotFound, ErrDuplicate,
				)
			}
		default:
			return nil, fmt.Errorf("lock workflow: %w", err)
		}

		if err := repository.ExecExpectOne(
			ctx, tx, markStarted, wf.ID, StatusInitializing, wf.RetryCount,
		); err != nil {
			return nil, fmt.Errorf("mark workflow started: %w", err)
		}

		wf.Status = StatusInitializing
		now := time.Now().UTC()
		wf.StartedAt = &now
		wf.ErrorMessage = ""

		err = r.log.AppendTx(ctx, tx, audit.Record{
			WorkflowID:  wf.ID,
			EventType:   audit.EventWorkflowStarted,
			Description: fmt.Sprintf("Underwriting workflow started for %s", app.CaseID),
			Details:     map[string]any{"retry_count": wf.RetryCount},
		})
		if err != nil {
			return nil, err
		}

		return wf, nil
	})
	if err != nil {
		return nil, err
	}

	if err := r.apps.SetStatus(ctx, applicationID, applications.StatusUnderwriting); err != nil {
		r.logger.Error("advance application status",
			"application_id", applicationID, "error", err)
	}

	// Fire-and-forget: the worker call can take minutes and must not hold
	// the caller or any workflow lock.
	go r.dispatchStart(context.WithoutCancel(ctx), wf, app)

	return wf, nil
}

func (r *repo) dispatchStart(
	ctx context.Context,
	wf *Workflow,
	app *applications.LoanApplication,
) {
	src, err := r.apps.Source(ctx, app.ID)
	if err != nil {
		r.failWorkflow(ctx, wf.ID, app.ID, fmt.Errorf("load application source: %w", err))
		return
	}

	_, err = r.dispatcher.Dispatch(ctx, dispatch.StartRequest{
		WorkflowID:      wf.ID,
		ApplicationID:   app.ID,
		CaseID:          app.CaseID,
		ApplicationData: dispatch.BuildSnapshot(src),
	})
	if err != nil {
		r.failWorkflow(ctx, wf.ID, app.ID, err)
		return
	}

	r.logger.Info("workflow dispatched", "workflow_id", wf.ID, "case_id", app.CaseID)
}

// failWorkflow marks a workflow failed and reverts the application to
// submitted so it can be resubmitted. Terminal workflows are left alone.
func (r *repo) failWorkflow(ctx context.Context, id, applicationID uuid.UUID, cause error) {
	r.logger.Error("workflow failed", "workflow_id", id, "error", cause)

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Workflow, error) {
		wf, err := lockWorkflow(ctx, tx, lockByID, id)
		if err != nil {
			return nil, fmt.Errorf("lock workflow: %w", err)
		}

		if IsTerminal(wf.Status) {
			return wf, nil
		}

		if err := repository.ExecExpectOne(
			ctx, tx, markTerminal, wf.ID, StatusFailed, cause.Error(),
		); err != nil {
			return nil, fmt.Errorf("mark workflow failed: %w", err)
		}

		err = r.log.AppendTx(ctx, tx, audit.Record{
			WorkflowID:  wf.ID,
			EventType:   audit.EventError,
			Description: fmt.Sprintf("Workflow failed: %s", cause.Error()),
			Details:     map[string]any{"error": cause.Error()},
		})
		if err != nil {
			return nil, err
		}

		return wf, nil
	})
	if err != nil {
		r.logger.Error("record workflow failure", "workflow_id", id, "error", err)
		return
	}

	if err := r.apps.SetStatus(ctx, applicationID, applications.StatusSubmitted); err != nil {
		r.logger.Error("revert application status",
			"application_id", applicationID, "error", err)
	}
}

func (r *repo) Cancel(ctx context.Context, id uuid.UUID, user *string) (*Workflow, error) {
	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Workflow, error) {
		wf, err := lockWorkflow(ctx, tx, lockByID, id)
		if err != nil {
			return nil, repository.MapError(
				fmt.Errorf("lock workflow: %w", err), ErrNotFound, ErrDuplicate,
			)
		}

		if IsTerminal(wf.Status) {
			return nil, fmt.Errorf(
				"%w: cannot cancel from %s", ErrInvalidTransition, wf.Status,
			)
		}

		if err := repository.ExecExpectOne(
			ctx, tx, markTerminal, wf.ID, StatusCancelled, wf.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("mark workflow cancelled: %w", err)
		}

		previous := wf.Status
		wf.Status = StatusCancelled
		now := time.Now().UTC()
		wf.CompletedAt = &now

		err = r.log.AppendTx(ctx, tx, audit.Record{
			WorkflowID:  wf.ID,
			EventType:   audit.EventError,
			Description: "Workflow cancelled by user",
			Details:     map[string]any{"cancelled_at_status": previous},
			User:        user,
		})
		if err != nil {
			return nil, err
		}

		return wf, nil
	})
}

func (r *repo) SubmitHumanReview(
	ctx context.Context,
	id uuid.UUID,
	cmd decisions.ReviewCommand,
) (*decisions.Decision, error) {
	var applicationID uuid.UUID

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*decisions.Decision, error) {
		wf, err := lockWorkflow(ctx, tx, lockByID, id)
		if err != nil {
			return nil, fmt.Errorf("lock workflow: %w", err)
		}
		applicationID = wf.ApplicationID

		if IsTerminal(wf.Status) {
			return nil, fmt.Errorf("%w: cannot review from %s", ErrInvalidTransition, wf.Status)
		}

		d, err := r.decisions.FinalizeTx(ctx, tx, id, cmd)
		if err != nil {
			return nil, err
		}

		if err := repository.ExecExpectOne(
			ctx, tx, markTerminal, wf.ID, StatusCompleted, wf.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("complete workflow: %w", err)
		}

		return d, nil
	})
	if err != nil {
		return nil, err
	}

	status := decisions.ApplicationStatus(d.FinalDecision)
	err = r.apps.RecordDecision(ctx, applicationID, applications.DecisionUpdate{
		Recommendation:       d.AIDecision,
		RiskScore:            d.AIRiskScore,
		Confidence:           d.AIConfidence,
		RequiresHumanReview:  true,
		HumanReviewCompleted: true,
		Status:               &status,
	})
	if err != nil {
		r.logger.Error("record application decision",
			"application_id", applicationID, "error", err)
	}

	return d, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Workflow, error) {
	qb := query.NewBuilder(projection, defaultSort)
	q, args := qb.BuildSingle("ID", id)

	wf, err := repository.QueryOne(ctx, r.db, q, args, scanWorkflow)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &wf, nil
}

func (r *repo) FindByApplication(
	ctx context.Context,
	applicationID uuid.UUID,
) (*Workflow, error) {
	qb := query.NewBuilder(projection, defaultSort)
	q, args := qb.BuildSingle("ApplicationID", applicationID)

	wf, err := repository.QueryOne(ctx, r.db, q, args, scanWorkflow)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &wf, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Workflow], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Status", "CurrentAgent")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count workflows: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanWorkflow)
	if err != nil {
		return nil, fmt.Errorf("query workflows: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Analyses(ctx context.Context, workflowID uuid.UUID) ([]AgentAnalysis, error) {
	qb := query.NewBuilder(analysisProjection, analysisSort)
	qb.WhereEquals("WorkflowID", workflowID)

	q, args := qb.Build()
	analyses, err := repository.QueryMany(ctx, r.db, q, args, scanAnalysis)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}

	return analyses, nil
}

func (r *repo) ListAnalyses(
	ctx context.Context,
	page pagination.PageRequest,
	filters AnalysisFilters,
) (*pagination.PageResult[AgentAnalysis], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(analysisProjection, analysisSort)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count analyses: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanAnalysis)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) RiskFactors(ctx context.Context, workflowID uuid.UUID) ([]RiskFactor, error) {
	qb := query.NewBuilder(riskFactorProjection, riskFactorSort)
	qb.WhereEquals("WorkflowID", workflowID)

	q, args := qb.Build()
	factors, err := repository.QueryMany(ctx, r.db, q, args, scanRiskFactor)
	if err != nil {
		return nil, fmt.Errorf("query risk factors: %w", err)
	}

	return factors, nil
}

func (r *repo) Reasoning(ctx context.Context, workflowID uuid.UUID) ([]ReasoningStep, error) {
	entries, err := r.log.ForWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	chain := make([]ReasoningStep, 0, len(entries))
	for _, e := range entries {
		chain = append(chain, ReasoningStep{
			Timestamp:   e.Timestamp.Format(time.RFC3339),
			Event:       e.EventType,
			Agent:       e.AgentName,
			Description: e.Description,
			Details:     e.Details,
		})
	}

	return chain, nil
}

func lockWorkflow(
	ctx context.Context,
	tx *sql.Tx,
	stmt string,
	key uuid.UUID,
) (*Workflow, error) {
	wf, err := scanWorkflow(tx.QueryRowContext(ctx, stmt, key))
	if err != nil {
		return nil, err
	}
	return &wf, nil
}
