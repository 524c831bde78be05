// Package applications implements the loan application boundary for the
// underwriter service: the read model consumed by the dispatcher's snapshot
// builder, and the status collaborator that keeps the application's own
// status in lockstep with its underwriting workflow. Application CRUD and
// borrower intake live outside this service.
package applications

import (
	"time"

	"github.com/google/uuid"
)

// Application status vocabulary. Only the transitions driven by
// underwriting pass through this service; the rest belong to intake.
const (
	StatusDraft        = "draft"
	StatusSubmitted    = "submitted"
	StatusInReview     = "in_review"
	StatusProcessing   = "processing"
	StatusUnderwriting = "underwriting"
	StatusApproved     = "approved"
	StatusConditional  = "conditional"
	StatusDenied       = "denied"
	StatusSuspended    = "suspended"
	StatusWithdrawn    = "withdrawn"
	StatusClosed       = "closed"
)

// LoanApplication is the application record as this service sees it.
type LoanApplication struct {
	ID                    uuid.UUID  `json:"id"`
	CaseID                string     `json:"case_id"`
	Status                string     `json:"status"`
	LoanType              string     `json:"loan_type"`
	LoanPurpose           string     `json:"loan_purpose"`
	LoanAmount            float64    `json:"loan_amount"`
	DownPayment           float64    `json:"down_payment"`
	LoanTermMonths        int        `json:"loan_term_months"`
	EstimatedPayment      float64    `json:"estimated_monthly_payment"`
	OccupancyType         string     `json:"occupancy_type"`
	AIRecommendation      string     `json:"ai_recommendation"`
	AIRiskScore           *int       `json:"ai_risk_score"`
	AIConfidence          *float64   `json:"ai_confidence_score"`
	RequiresHumanReview   bool       `json:"requires_human_review"`
	HumanReviewCompleted  bool       `json:"human_review_completed"`
	DecisionAt            *time.Time `json:"decision_at"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// DecisionUpdate carries the AI decision fields copied onto the application
// when a workflow reaches its decision stage or completes human review.
// Status is applied only when non-nil; DecisionAt is stamped alongside it.
type DecisionUpdate struct {
	Recommendation       string
	RiskScore            int
	Confidence           float64
	RequiresHumanReview  bool
	HumanReviewCompleted bool
	Status               *string
}
