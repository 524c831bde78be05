package workflows

import "strings"

// agentTypeMap translates the external worker's agent naming to the
// internal agent vocabulary. Unknown values pass through unchanged so a
// worker upgrade cannot silently drop analyses.
var agentTypeMap = map[string]string{
	"credit":           AgentCredit,
	"credit_agent":     AgentCredit,
	"credit_analyst":   AgentCredit,
	"income":           AgentIncome,
	"income_agent":     AgentIncome,
	"income_analyst":   AgentIncome,
	"asset":            AgentAsset,
	"asset_agent":      AgentAsset,
	"asset_analyst":    AgentAsset,
	"collateral":       AgentCollateral,
	"collateral_agent": AgentCollateral,
	"critic":           AgentCritic,
	"critic_agent":     AgentCritic,
	"decision":         AgentDecision,
	"decision_agent":   AgentDecision,
}

// decisionMap translates worker decision labels, case-insensitively, to
// the decision vocabulary. Unknown values are lower-cased and passed
// through.
var decisionMap = map[string]string{
	"approve":              "approved",
	"approved":             "approved",
	"deny":                 "denied",
	"denied":               "denied",
	"decline":              "denied",
	"declined":             "denied",
	"conditional":          "conditional",
	"conditional_approval": "conditional",
	"suspend":              "suspended",
	"suspended":            "suspended",
	"refer":                "refer",
	"referred":             "refer",
}

var riskCategories = map[string]bool{
	RiskCredit:     true,
	RiskIncome:     true,
	RiskAsset:      true,
	RiskCollateral: true,
	RiskCompliance: true,
	RiskFraud:      true,
}

var riskSeverities = map[string]bool{
	SeverityLow:      true,
	SeverityMedium:   true,
	SeverityHigh:     true,
	SeverityCritical: true,
}

// normalizeAgentType maps a worker agent label to the internal vocabulary.
func normalizeAgentType(agentType string) string {
	key := strings.ToLower(strings.TrimSpace(agentType))
	if mapped, ok := agentTypeMap[key]; ok {
		return mapped
	}
	return agentType
}

// normalizeDecision maps a worker decision label to the decision
// vocabulary.
func normalizeDecision(decision string) string {
	key := strings.ToLower(strings.TrimSpace(decision))
	if mapped, ok := decisionMap[key]; ok {
		return mapped
	}
	return key
}

// normalizeCategory validates a risk factor category, defaulting to credit.
func normalizeCategory(category string) string {
	key := strings.ToLower(strings.TrimSpace(category))
	if riskCategories[key] {
		return key
	}
	return RiskCredit
}

// normalizeSeverity validates a risk factor severity, defaulting to low.
func normalizeSeverity(severity string) string {
	key := strings.ToLower(strings.TrimSpace(severity))
	if riskSeverities[key] {
		return key
	}
	return SeverityLow
}
