package applications

import (
	"github.com/meridian-lending/underwriter/pkg/query"
	"github.com/meridian-lending/underwriter/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "loan_applications", "la").
	Project("id", "ID").
	Project("case_id", "CaseID").
	Project("status", "Status").
	Project("loan_type", "LoanType").
	Project("loan_purpose", "LoanPurpose").
	Project("loan_amount", "LoanAmount").
	Project("down_payment", "DownPayment").
	Project("loan_term_months", "LoanTermMonths").
	Project("estimated_monthly_payment", "EstimatedPayment").
	Project("occupancy_type", "OccupancyType").
	Project("ai_recommendation", "AIRecommendation").
	Project("ai_risk_score", "AIRiskScore").
	Project("ai_confidence_score", "AIConfidence").
	Project("requires_human_review", "RequiresHumanReview").
	Project("human_review_completed", "HumanReviewCompleted").
	Project("decision_at", "DecisionAt").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var validStatuses = map[string]bool{
	StatusDraft:        true,
	StatusSubmitted:    true,
	StatusInReview:     true,
	StatusProcessing:   true,
	StatusUnderwriting: true,
	StatusApproved:     true,
	StatusConditional:  true,
	StatusDenied:       true,
	StatusSuspended:    true,
	StatusWithdrawn:    true,
	StatusClosed:       true,
}

func scanApplication(s repository.Scanner) (LoanApplication, error) {
	var a LoanApplication

	err := s.Scan(
		&a.ID,
		&a.CaseID,
		&a.Status,
		&a.LoanType,
		&a.LoanPurpose,
		&a.LoanAmount,
		&a.DownPayment,
		&a.LoanTermMonths,
		&a.EstimatedPayment,
		&a.OccupancyType,
		&a.AIRecommendation,
		&a.AIRiskScore,
		&a.AIConfidence,
		&a.RequiresHumanReview,
		&a.HumanReviewCompleted,
		&a.DecisionAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}
