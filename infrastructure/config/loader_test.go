package config

import (
	"errors"
	"testing"
	"time"
)

const sampleYAML = `
log_level: debug
log_format: json
agents:
  incident-responder:
    confidence_threshold: 0.85
    auto_approve:
      - annotate_incident
    approval_ttl: 2h
    max_attempts: 5
    rate_limits:
      max_requests_per_minute: 30
      max_concurrent: 2
    cost_budget:
      daily: 12.5
      alert_threshold: 0.75
`

func TestLoaderParsesYAML(t *testing.T) {
	loader := NewLoader()

	cfg, err := loader.LoadString(sampleYAML, FormatYAML)
	if err != nil {
		t.Fatalf("LoadString: %v", err)
	}

	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Errorf("logging config = %s/%s", cfg.LogLevel, cfg.LogFormat)
	}

	o, ok := cfg.OverridesFor("incident-responder")
	if !ok {
		t.Fatal("incident-responder overrides missing")
	}
	if o.ConfidenceThreshold == nil || *o.ConfidenceThreshold != 0.85 {
		t.Errorf("confidence_threshold = %v", o.ConfidenceThreshold)
	}
	if o.ApprovalTTL == nil || *o.ApprovalTTL != 2*time.Hour {
		t.Errorf("approval_ttl = %v, want 2h", o.ApprovalTTL)
	}
	if o.RateLimits == nil || o.RateLimits.MaxRequestsPerMinute == nil || *o.RateLimits.MaxRequestsPerMinute != 30 {
		t.Errorf("rate_limits = %+v", o.RateLimits)
	}
	if o.RateLimits.QueueDepth != nil {
		t.Error("queue_depth should stay nil when unset")
	}
	if o.CostBudget == nil || o.CostBudget.Daily == nil || *o.CostBudget.Daily != 12.5 {
		t.Errorf("cost_budget = %+v", o.CostBudget)
	}

	if _, ok := cfg.OverridesFor("unknown-agent"); ok {
		t.Error("unknown agent reported overrides")
	}
}

func TestLoaderExpandsEnv(t *testing.T) {
	t.Setenv("REACTOR_THRESHOLD", "0.9")

	cfg, err := NewLoader().LoadString(`
agents:
  a:
    confidence_threshold: ${REACTOR_THRESHOLD}
`, FormatYAML)
	if err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	o, _ := cfg.OverridesFor("a")
	if o.ConfidenceThreshold == nil || *o.ConfidenceThreshold != 0.9 {
		t.Errorf("confidence_threshold = %v, want 0.9", o.ConfidenceThreshold)
	}
}

func TestLoaderEnvDefault(t *testing.T) {
	cfg, err := NewLoader().LoadString(`log_level: ${REACTOR_UNSET_LEVEL:-warn}`, FormatYAML)
	if err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log_level = %q, want warn", cfg.LogLevel)
	}
}

func TestLoaderValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"threshold above one", "agents:\n  a:\n    confidence_threshold: 1.5\n"},
		{"zero max_attempts", "agents:\n  a:\n    max_attempts: 0\n"},
		{"negative daily budget", "agents:\n  a:\n    cost_budget:\n      daily: -1\n"},
		{"alert threshold above one", "agents:\n  a:\n    cost_budget:\n      alert_threshold: 1.2\n"},
		{"zero max_concurrent", "agents:\n  a:\n    rate_limits:\n      max_concurrent: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().LoadString(tt.body, FormatYAML)
			if !errors.Is(err, ErrValidationFailed) {
				t.Errorf("err = %v, want ErrValidationFailed", err)
			}
		})
	}
}

func TestLoaderRejectsMalformedYAML(t *testing.T) {
	_, err := NewLoader().LoadString("agents: [not a map", FormatYAML)
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("err = %v, want ErrInvalidFormat", err)
	}
}

func TestLoaderStrictEnv(t *testing.T) {
	_, err := NewLoaderWithOptions(WithStrictEnv(true)).
		LoadString("log_level: ${REACTOR_DEFINITELY_UNSET}", FormatYAML)
	if !errors.Is(err, ErrMissingEnvVar) {
		t.Errorf("err = %v, want ErrMissingEnvVar", err)
	}
}
