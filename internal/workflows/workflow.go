// Package workflows implements the underwriting workflow orchestration
// core: a durable state machine driving each loan application through
// asynchronous analysis stages executed by an external worker. The
// controller reacts to inbound calls only; all long-running work happens
// in the worker and arrives back as callbacks.
package workflows

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Agent type vocabulary for analysis stages.
const (
	AgentCredit     = "credit"
	AgentIncome     = "income"
	AgentAsset      = "asset"
	AgentCollateral = "collateral"
	AgentCritic     = "critic"
	AgentDecision   = "decision"
)

// Risk factor category vocabulary.
const (
	RiskCredit     = "credit"
	RiskIncome     = "income"
	RiskAsset      = "asset"
	RiskCollateral = "collateral"
	RiskCompliance = "compliance"
	RiskFraud      = "fraud"
)

// Risk factor severity vocabulary.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// totalStages is the number of analysis stages the external worker runs.
// Progress is computed against this constant; if the stage set ever
// becomes configurable this moves onto the workflow record.
const totalStages = 6

// Workflow is the per-application underwriting orchestration record.
// Exactly one non-terminal workflow exists per application; CompletedAt
// is set if and only if the status is terminal.
type Workflow struct {
	ID              uuid.UUID       `json:"id"`
	ApplicationID   uuid.UUID       `json:"application_id"`
	Status          string          `json:"status"`
	CurrentAgent    string          `json:"current_agent"`
	ProgressPercent int             `json:"progress_percent"`
	StateData       json.RawMessage `json:"state_data"`
	StartedAt       *time.Time      `json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at"`
	DurationSeconds *int            `json:"total_duration_seconds"`
	ErrorMessage    string          `json:"error_message"`
	RetryCount      int             `json:"retry_count"`
	MaxRetries      int             `json:"max_retries"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// AgentAnalysis is one completed analysis stage. Rows are append-only,
// ordered by creation, and never updated.
type AgentAnalysis struct {
	ID               uuid.UUID       `json:"id"`
	WorkflowID       uuid.UUID       `json:"workflow_id"`
	AgentType        string          `json:"agent_type"`
	AnalysisText     string          `json:"analysis_text"`
	StructuredData   json.RawMessage `json:"structured_data"`
	Recommendation   string          `json:"recommendation"`
	RiskFactors      json.RawMessage `json:"risk_factors"`
	Conditions       json.RawMessage `json:"conditions"`
	ConfidenceScore  *float64        `json:"confidence_score"`
	ProcessingTimeMS *int            `json:"processing_time_ms"`
	TokensUsed       *int            `json:"tokens_used"`
	CreatedAt        time.Time       `json:"created_at"`
}

// RiskFactor is an identified risk attached to a workflow, immutable
// once created.
type RiskFactor struct {
	ID           uuid.UUID `json:"id"`
	WorkflowID   uuid.UUID `json:"workflow_id"`
	Category     string    `json:"category"`
	Severity     string    `json:"severity"`
	Description  string    `json:"description"`
	Mitigation   string    `json:"mitigation"`
	IdentifiedBy string    `json:"identified_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// progressFor computes the percentage for n completed analysis stages.
// Capped at 99 while active; only a decision settles the workflow at 100.
func progressFor(completed int) int {
	p := completed * 100 / totalStages
	if p > 99 {
		p = 99
	}
	return p
}
