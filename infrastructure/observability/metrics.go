// Package observability provides OpenTelemetry metrics for the reactor
// runtime.
package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsProvider provides access to metrics instruments.
type MetricsProvider struct {
	meter metric.Meter

	// Counters
	eventsProcessed  metric.Int64Counter
	decisions        metric.Int64Counter
	approvals        metric.Int64Counter
	commandsRouted   metric.Int64Counter
	deadLetters      metric.Int64Counter
	rateLimitHits    metric.Int64Counter
	budgetSpend      metric.Float64Counter
	lifecycleChanges metric.Int64Counter
	errors           metric.Int64Counter

	// Histograms
	processingDuration metric.Float64Histogram
	routingDuration    metric.Float64Histogram

	// Gauges (UpDownCounters)
	activeAgents    metric.Int64UpDownCounter
	pendingApproval metric.Int64UpDownCounter

	initOnce sync.Once
	initErr  error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter (default: "github.com/felixgeelhaar/reactor-go").
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// Attributes are default attributes to attach to all metrics.
	Attributes []attribute.KeyValue
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/reactor-go",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider bound to the
// globally registered meter provider.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		config = DefaultMetricsConfig()
	}

	provider := otel.GetMeterProvider()
	meter := provider.Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
	)

	mp := &MetricsProvider{meter: meter}

	mp.initOnce.Do(func() {
		mp.initErr = mp.initInstruments()
	})

	return mp
}

func (mp *MetricsProvider) initInstruments() error {
	var err error

	mp.eventsProcessed, err = mp.meter.Int64Counter(
		"reactor.events.processed",
		metric.WithDescription("Number of events evaluated by the processor"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	mp.decisions, err = mp.meter.Int64Counter(
		"reactor.decisions",
		metric.WithDescription("Number of pattern decisions emitted"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return err
	}

	mp.approvals, err = mp.meter.Int64Counter(
		"reactor.approvals",
		metric.WithDescription("Number of approval resolutions"),
		metric.WithUnit("{approval}"),
	)
	if err != nil {
		return err
	}

	mp.commandsRouted, err = mp.meter.Int64Counter(
		"reactor.commands.routed",
		metric.WithDescription("Number of command routing attempts"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return err
	}

	mp.deadLetters, err = mp.meter.Int64Counter(
		"reactor.deadletters",
		metric.WithDescription("Number of events dead-lettered"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	mp.rateLimitHits, err = mp.meter.Int64Counter(
		"reactor.ratelimit.hits",
		metric.WithDescription("Number of rate limit rejections"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	mp.budgetSpend, err = mp.meter.Float64Counter(
		"reactor.budget.spend",
		metric.WithDescription("Cost recorded against agent daily budgets"),
		metric.WithUnit("{unit}"),
	)
	if err != nil {
		return err
	}

	mp.lifecycleChanges, err = mp.meter.Int64Counter(
		"reactor.lifecycle.transitions",
		metric.WithDescription("Number of agent lifecycle transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return err
	}

	mp.errors, err = mp.meter.Int64Counter(
		"reactor.errors",
		metric.WithDescription("Number of errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	mp.processingDuration, err = mp.meter.Float64Histogram(
		"reactor.processing.duration",
		metric.WithDescription("Duration of event processing"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.routingDuration, err = mp.meter.Float64Histogram(
		"reactor.routing.duration",
		metric.WithDescription("Duration of command routing"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.activeAgents, err = mp.meter.Int64UpDownCounter(
		"reactor.agents.active",
		metric.WithDescription("Number of agents in the active lifecycle state"),
		metric.WithUnit("{agent}"),
	)
	if err != nil {
		return err
	}

	mp.pendingApproval, err = mp.meter.Int64UpDownCounter(
		"reactor.approvals.pending",
		metric.WithDescription("Number of approvals awaiting review"),
		metric.WithUnit("{approval}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

// RecordEventProcessed records one processed event and its duration.
func (mp *MetricsProvider) RecordEventProcessed(ctx context.Context, agentID, outcome string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("agent.id", agentID),
		attribute.String("outcome", outcome),
	}

	mp.eventsProcessed.Add(ctx, 1, metric.WithAttributes(attrs...))
	mp.processingDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordDecision records a pattern decision.
func (mp *MetricsProvider) RecordDecision(ctx context.Context, agentID, patternID, action string, autoExecute bool) {
	attrs := []attribute.KeyValue{
		attribute.String("agent.id", agentID),
		attribute.String("pattern.id", patternID),
		attribute.String("action", action),
		attribute.Bool("auto_execute", autoExecute),
	}

	mp.decisions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordApprovalResolved records an approval leaving the pending state.
func (mp *MetricsProvider) RecordApprovalResolved(ctx context.Context, agentID, status string) {
	attrs := []attribute.KeyValue{
		attribute.String("agent.id", agentID),
		attribute.String("status", status),
	}

	mp.approvals.Add(ctx, 1, metric.WithAttributes(attrs...))
	mp.pendingApproval.Add(ctx, -1, metric.WithAttributes(
		attribute.String("agent.id", agentID),
	))
}

// RecordApprovalRequested records a new pending approval.
func (mp *MetricsProvider) RecordApprovalRequested(ctx context.Context, agentID string) {
	mp.pendingApproval.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent.id", agentID),
	))
}

// RecordCommandRouted records a routing attempt and its duration.
func (mp *MetricsProvider) RecordCommandRouted(ctx context.Context, commandType, target string, success bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("command.type", commandType),
		attribute.String("target", target),
		attribute.Bool("success", success),
	}

	mp.commandsRouted.Add(ctx, 1, metric.WithAttributes(attrs...))
	mp.routingDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if !success {
		mp.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("error.type", "command_routing"),
			attribute.String("command.type", commandType),
		))
	}
}

// RecordDeadLetter records an event moved to the dead-letter store.
func (mp *MetricsProvider) RecordDeadLetter(ctx context.Context, agentID string) {
	mp.deadLetters.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent.id", agentID),
	))
}

// RecordRateLimitHit records a governor rejection.
func (mp *MetricsProvider) RecordRateLimitHit(ctx context.Context, agentID string) {
	mp.rateLimitHits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent.id", agentID),
	))
}

// RecordBudgetSpend records cost charged against an agent budget.
func (mp *MetricsProvider) RecordBudgetSpend(ctx context.Context, agentID string, amount float64) {
	mp.budgetSpend.Add(ctx, amount, metric.WithAttributes(
		attribute.String("agent.id", agentID),
	))
}

// RecordLifecycleTransition records an agent lifecycle transition.
func (mp *MetricsProvider) RecordLifecycleTransition(ctx context.Context, agentID, fromState, toState string) {
	attrs := []attribute.KeyValue{
		attribute.String("agent.id", agentID),
		attribute.String("state.from", fromState),
		attribute.String("state.to", toState),
	}

	mp.lifecycleChanges.Add(ctx, 1, metric.WithAttributes(attrs...))

	switch {
	case toState == "active" && fromState != "active":
		mp.activeAgents.Add(ctx, 1)
	case fromState == "active" && toState != "active":
		mp.activeAgents.Add(ctx, -1)
	}
}

// RecordError records an error.
func (mp *MetricsProvider) RecordError(ctx context.Context, errorType string, details map[string]string) {
	attrs := []attribute.KeyValue{
		attribute.String("error.type", errorType),
	}
	for k, v := range details {
		attrs = append(attrs, attribute.String(k, v))
	}

	mp.errors.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// NoopMetricsProvider is a no-op metrics provider for testing or when
// metrics are disabled.
type NoopMetricsProvider struct{}

// RecordEventProcessed is a no-op.
func (n *NoopMetricsProvider) RecordEventProcessed(ctx context.Context, agentID, outcome string, duration time.Duration) {
}

// RecordDecision is a no-op.
func (n *NoopMetricsProvider) RecordDecision(ctx context.Context, agentID, patternID, action string, autoExecute bool) {
}

// RecordApprovalResolved is a no-op.
func (n *NoopMetricsProvider) RecordApprovalResolved(ctx context.Context, agentID, status string) {
}

// RecordApprovalRequested is a no-op.
func (n *NoopMetricsProvider) RecordApprovalRequested(ctx context.Context, agentID string) {}

// RecordCommandRouted is a no-op.
func (n *NoopMetricsProvider) RecordCommandRouted(ctx context.Context, commandType, target string, success bool, duration time.Duration) {
}

// RecordDeadLetter is a no-op.
func (n *NoopMetricsProvider) RecordDeadLetter(ctx context.Context, agentID string) {}

// RecordRateLimitHit is a no-op.
func (n *NoopMetricsProvider) RecordRateLimitHit(ctx context.Context, agentID string) {}

// RecordBudgetSpend is a no-op.
func (n *NoopMetricsProvider) RecordBudgetSpend(ctx context.Context, agentID string, amount float64) {
}

// RecordLifecycleTransition is a no-op.
func (n *NoopMetricsProvider) RecordLifecycleTransition(ctx context.Context, agentID, fromState, toState string) {
}

// RecordError is a no-op.
func (n *NoopMetricsProvider) RecordError(ctx context.Context, errorType string, details map[string]string) {
}

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordEventProcessed(ctx context.Context, agentID, outcome string, duration time.Duration)
	RecordDecision(ctx context.Context, agentID, patternID, action string, autoExecute bool)
	RecordApprovalResolved(ctx context.Context, agentID, status string)
	RecordApprovalRequested(ctx context.Context, agentID string)
	RecordCommandRouted(ctx context.Context, commandType, target string, success bool, duration time.Duration)
	RecordDeadLetter(ctx context.Context, agentID string)
	RecordRateLimitHit(ctx context.Context, agentID string)
	RecordBudgetSpend(ctx context.Context, agentID string, amount float64)
	RecordLifecycleTransition(ctx context.Context, agentID, fromState, toState string)
	RecordError(ctx context.Context, errorType string, details map[string]string)
}

// Ensure implementations satisfy the interface.
var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = (*NoopMetricsProvider)(nil)
)
