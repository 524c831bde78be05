package workflows

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/meridian-lending/underwriter/pkg/query"
	"github.com/meridian-lending/underwriter/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "underwriting_workflows", "w").
	Project("id", "ID").
	Project("application_id", "ApplicationID").
	Project("status", "Status").
	Project("current_agent", "CurrentAgent").
	Project("progress_percent", "ProgressPercent").
	Project("state_data", "StateData").
	Project("started_at", "StartedAt").
	Project("completed_at", "CompletedAt").
	Project("total_duration_seconds", "DurationSeconds").
	Project("error_message", "ErrorMessage").
	Project("retry_count", "RetryCount").
	Project("max_retries", "MaxRetries").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "CreatedAt", Descending: true}

var analysisProjection = query.
	NewProjectionMap("public", "agent_analyses", "aa").
	Project("id", "ID").
	Project("workflow_id", "WorkflowID").
	Project("agent_type", "AgentType").
	Project("analysis_text", "AnalysisText").
	Project("structured_data", "StructuredData").
	Project("recommendation", "Recommendation").
	Project("risk_factors", "RiskFactors").
	Project("conditions", "Conditions").
	Project("confidence_score", "ConfidenceScore").
	Project("processing_time_ms", "ProcessingTimeMS").
	Project("tokens_used", "TokensUsed").
	Project("created_at", "CreatedAt")

var analysisSort = query.SortField{Field: "CreatedAt"}

var riskFactorProjection = query.
	NewProjectionMap("public", "risk_factors", "rf").
	Project("id", "ID").
	Project("workflow_id", "WorkflowID").
	Project("category", "Category").
	Project("severity", "Severity").
	Project("description", "Description").
	Project("mitigation", "Mitigation").
	Project("identified_by", "IdentifiedBy").
	Project("created_at", "CreatedAt")

var riskFactorSort = query.SortField{Field: "CreatedAt"}

// Filters contains optional criteria for workflow listing queries.
// Nil fields are ignored.
type Filters struct {
	Status        *string    `json:"status,omitempty"`
	ApplicationID *uuid.UUID `json:"application_id,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("ApplicationID", f.ApplicationID)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if a := values.Get("application_id"); a != "" {
		if id, err := uuid.Parse(a); err == nil {
			f.ApplicationID = &id
		}
	}

	return f
}

// AnalysisFilters contains optional criteria for analysis listing.
type AnalysisFilters struct {
	WorkflowID *uuid.UUID `json:"workflow_id,omitempty"`
	AgentType  *string    `json:"agent_type,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f AnalysisFilters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("WorkflowID", f.WorkflowID).
		WhereEquals("AgentType", f.AgentType)
}

// AnalysisFiltersFromQuery extracts filter values from URL query parameters.
func AnalysisFiltersFromQuery(values url.Values) AnalysisFilters {
	var f AnalysisFilters

	if w := values.Get("workflow_id"); w != "" {
		if id, err := uuid.Parse(w); err == nil {
			f.WorkflowID = &id
		}
	}

	if a := values.Get("agent_type"); a != "" {
		f.AgentType = &a
	}

	return f
}

func scanWorkflow(s repository.Scanner) (Workflow, error) {
	var w Workflow

	err := s.Scan(
		&w.ID,
		&w.ApplicationID,
		&w.Status,
		&w.CurrentAgent,
		&w.ProgressPercent,
		&w.StateData,
		&w.StartedAt,
		&w.CompletedAt,
		&w.DurationSeconds,
		&w.ErrorMessage,
		&w.RetryCount,
		&w.MaxRetries,
		&w.CreatedAt,
		&w.UpdatedAt,
	)

	return w, err
}

func scanAnalysis(s repository.Scanner) (AgentAnalysis, error) {
	var a AgentAnalysis

	err := s.Scan(
		&a.ID,
		&a.WorkflowID,
		&a.AgentType,
		&a.AnalysisText,
		&a.StructuredData,
		&a.Recommendation,
		&a.RiskFactors,
		&a.Conditions,
		&a.ConfidenceScore,
		&a.ProcessingTimeMS,
		&a.TokensUsed,
		&a.CreatedAt,
	)

	return a, err
}

func scanRiskFactor(s repository.Scanner) (RiskFactor, error) {
	var rf RiskFactor

	err := s.Scan(
		&rf.ID,
		&rf.WorkflowID,
		&rf.Category,
		&rf.Severity,
		&rf.Description,
		&rf.Mitigation,
		&rf.IdentifiedBy,
		&rf.CreatedAt,
	)

	return rf, err
}
