package decisions

import (
	"github.com/meridian-lending/underwriter/pkg/query"
	"github.com/meridian-lending/underwriter/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "underwriting_decisions", "d").
	Project("id", "ID").
	Project("workflow_id", "WorkflowID").
	Project("ai_decision", "AIDecision").
	Project("ai_risk_score", "AIRiskScore").
	Project("ai_confidence", "AIConfidence").
	Project("decision_memo", "DecisionMemo").
	Project("executive_summary", "ExecutiveSummary").
	Project("proposed_conditions", "ProposedConditions").
	Project("human_override", "HumanOverride").
	Project("human_decision", "HumanDecision").
	Project("human_reviewer", "HumanReviewer").
	Project("human_notes", "HumanNotes").
	Project("human_review_at", "HumanReviewAt").
	Project("final_decision", "FinalDecision").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "CreatedAt", Descending: true}

var conditionProjection = query.
	NewProjectionMap("public", "conditions", "c").
	Project("id", "ID").
	Project("decision_id", "DecisionID").
	Project("condition_type", "Type").
	Project("status", "Status").
	Project("description", "Description").
	Project("required_document_type", "RequiredDocumentType").
	Project("added_by", "AddedBy").
	Project("cleared_by", "ClearedBy").
	Project("cleared_at", "ClearedAt").
	Project("notes", "Notes").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var conditionSort = query.SortField{Field: "CreatedAt"}

func scanDecision(s repository.Scanner) (Decision, error) {
	var d Decision

	err := s.Scan(
		&d.ID,
		&d.WorkflowID,
		&d.AIDecision,
		&d.AIRiskScore,
		&d.AIConfidence,
		&d.DecisionMemo,
		&d.ExecutiveSummary,
		&d.ProposedConditions,
		&d.HumanOverride,
		&d.HumanDecision,
		&d.HumanReviewer,
		&d.HumanNotes,
		&d.HumanReviewAt,
		&d.FinalDecision,
		&d.CreatedAt,
		&d.UpdatedAt,
	)

	return d, err
}

func scanCondition(s repository.Scanner) (Condition, error) {
	var c Condition

	err := s.Scan(
		&c.ID,
		&c.DecisionID,
		&c.Type,
		&c.Status,
		&c.Description,
		&c.RequiredDocumentType,
		&c.AddedBy,
		&c.ClearedBy,
		&c.ClearedAt,
		&c.Notes,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	return c, err
}
