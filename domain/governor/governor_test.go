package governor

import "testing"

func TestLimitsOverride_Apply(t *testing.T) {
	base := DefaultLimits()
	concurrent := 8

	o := &LimitsOverride{MaxConcurrent: &concurrent}
	got := o.Apply(base)

	if got.MaxConcurrent != 8 {
		t.Errorf("MaxConcurrent = %d, want 8", got.MaxConcurrent)
	}
	if got.MaxRequestsPerMinute != base.MaxRequestsPerMinute {
		t.Error("omitted field did not fall back to base")
	}

	var nilOverride *LimitsOverride
	if nilOverride.Apply(base) != base {
		t.Error("nil override must return base unchanged")
	}
}

func TestBudgetOverride_Merge(t *testing.T) {
	daily := 50.0
	threshold := 0.9

	o := &BudgetOverride{Daily: &daily}
	o.Merge(BudgetOverride{AlertThreshold: &threshold})

	if o.Daily == nil || *o.Daily != 50.0 {
		t.Error("earlier field lost in merge")
	}
	if o.AlertThreshold == nil || *o.AlertThreshold != 0.9 {
		t.Error("later field not merged")
	}
}

func TestDecision_Allowed(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    bool
	}{
		{OutcomeAllowed, true},
		{OutcomeRateLimited, false},
		{OutcomeBudgetExceeded, false},
	}

	for _, tt := range tests {
		d := Decision{Outcome: tt.outcome}
		if got := d.Allowed(); got != tt.want {
			t.Errorf("Decision{%s}.Allowed() = %v, want %v", tt.outcome, got, tt.want)
		}
	}
}
