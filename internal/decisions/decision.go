// Package decisions implements the underwriting decision domain: the 1:1
// decision record produced by the workflow's decision stage, human review
// and override on top of the automated result, and the condition lifecycle
// attached to conditional approvals.
package decisions

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Decision vocabulary shared by the automated and human paths.
const (
	DecisionApproved    = "approved"
	DecisionDenied      = "denied"
	DecisionConditional = "conditional"
	DecisionSuspended   = "suspended"
	DecisionRefer       = "refer"
)

// Condition type vocabulary.
const (
	ConditionPriorToDocs    = "prior_to_docs"
	ConditionPriorToFunding = "prior_to_funding"
	ConditionPriorToClosing = "prior_to_closing"
)

// Condition status vocabulary.
const (
	ConditionPending   = "pending"
	ConditionReceived  = "received"
	ConditionReviewed  = "reviewed"
	ConditionSatisfied = "satisfied"
	ConditionWaived    = "waived"
)

// Decision is the authoritative underwriting decision for one workflow.
// FinalDecision is recomputed on every write: the human decision wins
// whenever the override flag is set, otherwise the AI decision stands.
type Decision struct {
	ID                 uuid.UUID       `json:"id"`
	WorkflowID         uuid.UUID       `json:"workflow_id"`
	AIDecision         string          `json:"ai_decision"`
	AIRiskScore        int             `json:"ai_risk_score"`
	AIConfidence       float64         `json:"ai_confidence"`
	DecisionMemo       string          `json:"decision_memo"`
	ExecutiveSummary   string          `json:"executive_summary"`
	ProposedConditions json.RawMessage `json:"proposed_conditions"`
	HumanOverride      bool            `json:"human_override"`
	HumanDecision      string          `json:"human_decision"`
	HumanReviewer      *string         `json:"human_reviewer"`
	HumanNotes         string          `json:"human_notes"`
	HumanReviewAt      *time.Time      `json:"human_review_at"`
	FinalDecision      string          `json:"final_decision"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Condition is one requirement attached to a decision. Status transitions
// happen through the satisfy/waive operations after creation.
type Condition struct {
	ID                   uuid.UUID  `json:"id"`
	DecisionID           uuid.UUID  `json:"decision_id"`
	Type                 string     `json:"condition_type"`
	Status               string     `json:"status"`
	Description          string     `json:"description"`
	RequiredDocumentType string     `json:"required_document_type,omitempty"`
	AddedBy              *string    `json:"added_by"`
	ClearedBy            *string    `json:"cleared_by"`
	ClearedAt            *time.Time `json:"cleared_at"`
	Notes                string     `json:"notes"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// CreateCommand carries the automated decision output from the worker's
// decision stage. Values are already normalized by callback ingestion.
type CreateCommand struct {
	AIDecision         string
	AIRiskScore        int
	AIConfidence       float64
	DecisionMemo       string
	ExecutiveSummary   string
	ProposedConditions json.RawMessage
}

// ConditionInput describes a condition supplied alongside a human review.
type ConditionInput struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ReviewCommand carries a human reviewer's authoritative decision.
type ReviewCommand struct {
	Decision   string           `json:"decision"`
	Notes      string           `json:"notes"`
	Conditions []ConditionInput `json:"conditions"`
	Reviewer   string           `json:"reviewer"`
}

// OverrideCommand flips the override fields on an existing decision without
// touching workflow state; used for post-completion corrections.
type OverrideCommand struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
	Reviewer string `json:"reviewer"`
}

var validDecisions = map[string]bool{
	DecisionApproved:    true,
	DecisionDenied:      true,
	DecisionConditional: true,
	DecisionSuspended:   true,
	DecisionRefer:       true,
}

var validConditionTypes = map[string]bool{
	ConditionPriorToDocs:    true,
	ConditionPriorToFunding: true,
	ConditionPriorToClosing: true,
}

// ValidDecision reports whether value is in the decision vocabulary.
func ValidDecision(value string) bool {
	return validDecisions[value]
}

// finalFor computes the authoritative final decision from its inputs.
func finalFor(override bool, human, ai string) string {
	if override && human != "" {
		return human
	}
	return ai
}

// ApplicationStatus maps a final decision to the externally visible loan
// application status. Unknown values fall back to in_review, keeping the
// application with a human rather than auto-closing it.
func ApplicationStatus(decision string) string {
	switch decision {
	case DecisionApproved:
		return "approved"
	case DecisionDenied:
		return "denied"
	case DecisionConditional:
		return "conditional"
	default:
		return "in_review"
	}
}
