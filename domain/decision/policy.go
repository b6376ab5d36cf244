package decision

// Policy decides whether a decision may auto-execute or must pass the
// human approval gate.
type Policy struct {
	// ConfidenceThreshold is the minimum confidence for auto-execution.
	ConfidenceThreshold float64

	// RequireApproval lists action types that always need approval.
	RequireApproval []string

	// AutoApprove lists action types that bypass the threshold entirely.
	AutoApprove []string
}

// RequiresApproval applies the gate: auto-approve listed types bypass
// the threshold; require-approval listed types always gate; otherwise
// the confidence threshold decides.
func (p Policy) RequiresApproval(actionType string, confidence float64) bool {
	for _, t := range p.AutoApprove {
		if t == actionType {
			return false
		}
	}
	for _, t := range p.RequireApproval {
		if t == actionType {
			return true
		}
	}
	return confidence < p.ConfidenceThreshold
}
