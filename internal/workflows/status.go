package workflows

// Workflow status vocabulary. pending and initializing are entered by the
// controller; every analysis status is entered only through callback
// ingestion. completed, failed, and cancelled are terminal.
const (
	StatusPending            = "pending"
	StatusInitializing       = "initializing"
	StatusCreditAnalysis     = "credit_analysis"
	StatusIncomeAnalysis     = "income_analysis"
	StatusAssetAnalysis      = "asset_analysis"
	StatusCollateralAnalysis = "collateral_analysis"
	StatusCriticReview       = "critic_review"
	StatusDecision           = "decision"
	StatusHumanReview        = "human_review"
	StatusCompleted          = "completed"
	StatusFailed             = "failed"
	StatusCancelled          = "cancelled"
)

var validStatuses = map[string]bool{
	StatusPending:            true,
	StatusInitializing:       true,
	StatusCreditAnalysis:     true,
	StatusIncomeAnalysis:     true,
	StatusAssetAnalysis:      true,
	StatusCollateralAnalysis: true,
	StatusCriticReview:       true,
	StatusDecision:           true,
	StatusHumanReview:        true,
	StatusCompleted:          true,
	StatusFailed:             true,
	StatusCancelled:          true,
}

// IsTerminal reports whether status admits no further transitions.
func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ValidStatus reports whether status is in the workflow vocabulary.
func ValidStatus(status string) bool {
	return validStatuses[status]
}

// Startable reports whether the workflow may be (re)started from status.
func Startable(status string) bool {
	return status == StatusPending || status == StatusFailed
}

// agentStatus maps a normalized agent type to the workflow status that
// represents that stage being in flight.
var agentStatus = map[string]string{
	AgentCredit:     StatusCreditAnalysis,
	AgentIncome:     StatusIncomeAnalysis,
	AgentAsset:      StatusAssetAnalysis,
	AgentCollateral: StatusCollateralAnalysis,
	AgentCritic:     StatusCriticReview,
	AgentDecision:   StatusDecision,
}

// statusForAgent returns the in-flight status for an agent type, falling
// back to the current status for unknown agents.
func statusForAgent(agentType, current string) string {
	if s, ok := agentStatus[agentType]; ok {
		return s
	}
	return current
}
