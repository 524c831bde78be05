package workflows_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestMetricsAggregates(t *testing.T) {
	f := newFixture(t)

	// The three aggregate queries run concurrently.
	f.mock.MatchExpectationsInOrder(false)

	f.mock.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(\*\) FILTER`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"total", "completed", "in_progress", "failed"},
		).AddRow(12, 7, 3, 2))
	f.mock.ExpectQuery(`SELECT COALESCE\(AVG\(total_duration_seconds\), 0\)`).
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(245.5))
	f.mock.ExpectQuery("SELECT(.+)FROM underwriting_decisions").
		WillReturnRows(sqlmock.NewRows(
			[]string{"total", "approved", "overridden"},
		).AddRow(8, 6, 1))

	m, err := f.sys.Metrics(context.Background())
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}

	if m.TotalWorkflows != 12 || m.Completed != 7 || m.InProgress != 3 || m.Failed != 2 {
		t.Errorf("counts = %+v", m)
	}
	if m.AverageDurationSeconds != 245.5 {
		t.Errorf("average duration = %v, want 245.5", m.AverageDurationSeconds)
	}
	if m.ApprovalRate != 75 {
		t.Errorf("approval rate = %v, want 75", m.ApprovalRate)
	}
	if m.HumanOverrideRate != 12.5 {
		t.Errorf("override rate = %v, want 12.5", m.HumanOverrideRate)
	}
}
