package workflows

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Metrics is the aggregate operational view over workflows and decisions.
type Metrics struct {
	TotalWorkflows         int     `json:"total_workflows"`
	Completed              int     `json:"completed"`
	InProgress             int     `json:"in_progress"`
	Failed                 int     `json:"failed"`
	AverageDurationSeconds float64 `json:"average_duration_seconds"`
	ApprovalRate           float64 `json:"approval_rate"`
	HumanOverrideRate      float64 `json:"human_override_rate"`
}

const countWorkflows = `
	SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE status = 'completed'),
		COUNT(*) FILTER (WHERE status NOT IN ('pending', 'completed', 'failed', 'cancelled')),
		COUNT(*) FILTER (WHERE status = 'failed')
	FROM underwriting_workflows`

const averageDuration = `
	SELECT COALESCE(AVG(total_duration_seconds), 0)
	FROM underwriting_workflows
	WHERE status = 'completed' AND total_duration_seconds IS NOT NULL`

const decisionRates = `
	SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE final_decision IN ('approved', 'conditional')),
		COUNT(*) FILTER (WHERE human_override)
	FROM underwriting_decisions`

// Metrics computes the aggregates concurrently; each query is independent
// and runs on its own connection.
func (r *repo) Metrics(ctx context.Context) (*Metrics, error) {
	var m Metrics

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := r.db.QueryRowContext(ctx, countWorkflows).Scan(
			&m.TotalWorkflows, &m.Completed, &m.InProgress, &m.Failed,
		)
		if err != nil {
			return fmt.Errorf("count workflows: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := r.db.QueryRowContext(ctx, averageDuration).Scan(&m.AverageDurationSeconds)
		if err != nil {
			return fmt.Errorf("average duration: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var total, approved, overridden int
		err := r.db.QueryRowContext(ctx, decisionRates).Scan(&total, &approved, &overridden)
		if err != nil {
			return fmt.Errorf("decision rates: %w", err)
		}
		if total > 0 {
			m.ApprovalRate = float64(approved) / float64(total) * 100
			m.HumanOverrideRate = float64(overridden) / float64(total) * 100
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &m, nil
}
