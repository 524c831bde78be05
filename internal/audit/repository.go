package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/meridian-lending/underwriter/pkg/pagination"
	"github.com/meridian-lending/underwriter/pkg/query"
	"github.com/meridian-lending/underwriter/pkg/repository"
)

const insertEntry = `
	INSERT INTO audit_trail(id, workflow_id, event_type, agent_name, description, details, user_name)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an audit repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "audit"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Append(ctx context.Context, rec Record) error {
	return r.AppendTx(ctx, r.db, rec)
}

func (r *repo) AppendTx(ctx context.Context, ex txExecutor, rec Record) error {
	details, err := rec.detailsJSON()
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	_, err = ex.ExecContext(
		ctx, insertEntry,
		uuid.New(),
		rec.WorkflowID,
		rec.EventType,
		rec.AgentName,
		rec.Description,
		details,
		rec.User,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	return nil
}

func (r *repo) ForWorkflow(ctx context.Context, workflowID uuid.UUID) ([]Entry, error) {
	qb := query.NewBuilder(projection, defaultSort)
	qb.WhereEquals("WorkflowID", workflowID)

	q, args := qb.Build()
	entries, err := repository.QueryMany(ctx, r.db, q, args, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("query audit trail: %w", err)
	}

	return entries, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Entry], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Description", "AgentName")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count audit entries: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	entries, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}

	result := pagination.NewPageResult(entries, total, page.Page, page.PageSize)
	return &result, nil
}
