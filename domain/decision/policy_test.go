package decision

import "testing"

func TestPolicy_RequiresApproval(t *testing.T) {
	p := Policy{
		ConfidenceThreshold: 0.7,
		RequireApproval:     []string{"billing.refund"},
		AutoApprove:         []string{"crm.tag_customer"},
	}

	tests := []struct {
		name       string
		actionType string
		confidence float64
		want       bool
	}{
		{"high confidence auto-executes", "crm.flag_churn_risk", 0.9, false},
		{"low confidence gates", "crm.flag_churn_risk", 0.5, true},
		{"at threshold auto-executes", "crm.flag_churn_risk", 0.7, false},
		{"listed type gates despite confidence", "billing.refund", 0.99, true},
		{"auto-approve bypasses threshold", "crm.tag_customer", 0.1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.RequiresApproval(tt.actionType, tt.confidence); got != tt.want {
				t.Errorf("RequiresApproval(%q, %v) = %v, want %v",
					tt.actionType, tt.confidence, got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	d := New("agent-1", Command{Type: "crm.follow_up"}, 0.8, "three tickets in a week")
	if d.DecisionID == "" {
		t.Error("decision ID not generated")
	}
	if d.AgentID != "agent-1" || d.Command.Type != "crm.follow_up" {
		t.Error("decision fields not set")
	}
}
