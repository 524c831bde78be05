package workflows

import "testing"

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{StatusPending, false},
		{StatusInitializing, false},
		{StatusCreditAnalysis, false},
		{StatusHumanReview, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := IsTerminal(tt.status); got != tt.want {
				t.Errorf("IsTerminal(%s) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestStartable(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{StatusPending, true},
		{StatusFailed, true},
		{StatusInitializing, false},
		{StatusCreditAnalysis, false},
		{StatusCompleted, false},
		{StatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := Startable(tt.status); got != tt.want {
				t.Errorf("Startable(%s) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestStatusForAgent(t *testing.T) {
	tests := []struct {
		agent string
		want  string
	}{
		{AgentCredit, StatusCreditAnalysis},
		{AgentIncome, StatusIncomeAnalysis},
		{AgentAsset, StatusAssetAnalysis},
		{AgentCollateral, StatusCollateralAnalysis},
		{AgentCritic, StatusCriticReview},
		{AgentDecision, StatusDecision},
	}

	for _, tt := range tests {
		t.Run(tt.agent, func(t *testing.T) {
			if got := statusForAgent(tt.agent, StatusInitializing); got != tt.want {
				t.Errorf("statusForAgent(%s) = %s, want %s", tt.agent, got, tt.want)
			}
		})
	}

	t.Run("unknown agent keeps current status", func(t *testing.T) {
		if got := statusForAgent("fraud_screener", StatusCriticReview); got != StatusCriticReview {
			t.Errorf("statusForAgent(unknown) = %s, want %s", got, StatusCriticReview)
		}
	})
}

func TestProgressFor(t *testing.T) {
	// One value per completed stage; the cap keeps active workflows below 100.
	want := []int{0, 16, 33, 50, 66, 83, 99}

	for completed, expected := range want {
		if got := progressFor(completed); got != expected {
			t.Errorf("progressFor(%d) = %d, want %d", completed, got, expected)
		}
	}

	if got := progressFor(12); got != 99 {
		t.Errorf("progressFor(12) = %d, want 99", got)
	}
}
