package observability

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMetrics(t *testing.T) (*metric.ManualReader, *MetricsProvider) {
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)

	mp := NewMetricsProvider(DefaultMetricsConfig())
	if mp.Error() != nil {
		t.Fatalf("failed to create metrics provider: %v", mp.Error())
	}

	return reader, mp
}

func collectSum(t *testing.T, reader *metric.ManualReader, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s: expected Sum[int64], got %T", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestNewMetricsProvider(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer func() { _ = reader.Shutdown(context.Background()) }()

	if mp == nil {
		t.Fatal("NewMetricsProvider returned nil")
	}
}

func TestRecordEventProcessed(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer func() { _ = reader.Shutdown(context.Background()) }()

	ctx := context.Background()
	mp.RecordEventProcessed(ctx, "incident-responder", "processed", 12*time.Millisecond)
	mp.RecordEventProcessed(ctx, "incident-responder", "skipped", 1*time.Millisecond)

	if got := collectSum(t, reader, "reactor.events.processed"); got != 2 {
		t.Errorf("events processed = %d, want 2", got)
	}
}

func TestRecordCommandRoutedFailureCountsError(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer func() { _ = reader.Shutdown(context.Background()) }()

	ctx := context.Background()
	mp.RecordCommandRouted(ctx, "restart_service", "ops", false, 5*time.Millisecond)

	if got := collectSum(t, reader, "reactor.commands.routed"); got != 1 {
		t.Errorf("commands routed = %d, want 1", got)
	}
	if got := collectSum(t, reader, "reactor.errors"); got != 1 {
		t.Errorf("errors = %d, want 1", got)
	}
}

func TestLifecycleTransitionTracksActiveAgents(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer func() { _ = reader.Shutdown(context.Background()) }()

	ctx := context.Background()
	mp.RecordLifecycleTransition(ctx, "a", "registered", "active")
	mp.RecordLifecycleTransition(ctx, "b", "registered", "active")
	mp.RecordLifecycleTransition(ctx, "a", "active", "paused")

	if got := collectSum(t, reader, "reactor.agents.active"); got != 1 {
		t.Errorf("active agents = %d, want 1", got)
	}
	if got := collectSum(t, reader, "reactor.lifecycle.transitions"); got != 3 {
		t.Errorf("lifecycle transitions = %d, want 3", got)
	}
}

func TestPendingApprovalGauge(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer func() { _ = reader.Shutdown(context.Background()) }()

	ctx := context.Background()
	mp.RecordApprovalRequested(ctx, "a")
	mp.RecordApprovalRequested(ctx, "a")
	mp.RecordApprovalResolved(ctx, "a", "approved")

	if got := collectSum(t, reader, "reactor.approvals.pending"); got != 1 {
		t.Errorf("pending approvals = %d, want 1", got)
	}
}
