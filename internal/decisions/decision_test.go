package decisions

import "testing"

func TestFinalFor(t *testing.T) {
	tests := []struct {
		name     string
		override bool
		human    string
		ai       string
		want     string
	}{
		{"no override keeps ai", false, "", "approved", "approved"},
		{"override wins", true, "denied", "approved", "denied"},
		{"override without decision falls back", true, "", "conditional", "conditional"},
		{"cleared override restores ai", false, "denied", "approved", "approved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := finalFor(tt.override, tt.human, tt.ai); got != tt.want {
				t.Errorf("finalFor(%v, %q, %q) = %q, want %q",
					tt.override, tt.human, tt.ai, got, tt.want)
			}
		})
	}
}

func TestApplicationStatus(t *testing.T) {
	tests := map[string]string{
		DecisionApproved:    "approved",
		DecisionDenied:      "denied",
		DecisionConditional: "conditional",
		DecisionSuspended:   "in_review",
		DecisionRefer:       "in_review",
		"":                  "in_review",
	}

	for decision, want := range tests {
		if got := ApplicationStatus(decision); got != want {
			t.Errorf("ApplicationStatus(%q) = %q, want %q", decision, got, want)
		}
	}
}

func TestValidDecision(t *testing.T) {
	for _, d := range []string{
		DecisionApproved, DecisionDenied, DecisionConditional,
		DecisionSuspended, DecisionRefer,
	} {
		if !ValidDecision(d) {
			t.Errorf("ValidDecision(%q) = false, want true", d)
		}
	}

	for _, d := range []string{"", "APPROVED", "maybe"} {
		if ValidDecision(d) {
			t.Errorf("ValidDecision(%q) = true, want false", d)
		}
	}
}
