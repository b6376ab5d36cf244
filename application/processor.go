package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/reactor-go/domain/agent"
	"github.com/felixgeelhaar/reactor-go/domain/approval"
	"github.com/felixgeelhaar/reactor-go/domain/audit"
	"github.com/felixgeelhaar/reactor-go/domain/command"
	"github.com/felixgeelhaar/reactor-go/domain/deadletter"
	"github.com/felixgeelhaar/reactor-go/domain/decision"
	"github.com/felixgeelhaar/reactor-go/domain/event"
	domaingov "github.com/felixgeelhaar/reactor-go/domain/governor"
	"github.com/felixgeelhaar/reactor-go/domain/pattern"
	"github.com/felixgeelhaar/reactor-go/infrastructure/logging"
	"github.com/felixgeelhaar/reactor-go/infrastructure/queue"
)

// commandArgs is the payload of commands emitted from pattern matches.
type commandArgs struct {
	Pattern            string   `json:"pattern"`
	TriggeringEventIDs []string `json:"triggering_event_ids"`
	SuggestedAction    string   `json:"suggested_action,omitempty"`
	Reasoning          string   `json:"reasoning,omitempty"`
}

// handleEvent is the subscription handler for one agent. The checkpoint
// is the idempotency gate: seen events are no-ops, non-active states
// skip but still advance, and only a transient failure leaves the
// position untouched for redelivery.
func (s *Service) handleEvent(ctx context.Context, rt *runtime, e event.Event) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	cp := rt.cp
	if cp.Seen(e) {
		return nil
	}

	// A tripped agent probes the recovery policy on each delivery and
	// resumes processing once the policy allows it.
	if cp.Status == agent.StatusErrorRecovery && s.recovery != nil && s.recovery.RecordSuccess(cp.AgentID) {
		if err := s.applyLifecycleLocked(ctx, rt, agent.EventRecover); err != nil {
			logging.Warn().
				Add(logging.AgentID(cp.AgentID)).
				Add(logging.ErrorField(err)).
				Msg("automatic recovery failed")
		}
	}

	if !cp.Status.ProcessesEvents() {
		cp.Advance(e)
		if err := s.checkpoints.Save(ctx, cp); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}
		logging.Debug().
			Add(logging.AgentID(cp.AgentID)).
			Add(logging.EventID(e.ID)).
			Add(logging.Status(cp.Status)).
			Msg("event skipped")
		return nil
	}

	start := s.now()
	eff := rt.effective()

	err := rt.executor.Do(ctx, func(ctx context.Context) error {
		return s.process(ctx, rt, eff, e)
	})
	if err != nil {
		s.deadLetterEvent(ctx, eff, e, err)
		cp.Advance(e)
		if saveErr := s.checkpoints.Save(ctx, cp); saveErr != nil {
			logging.Error().
				Add(logging.AgentID(cp.AgentID)).
				Add(logging.ErrorField(saveErr)).
				Msg("checkpoint save failed after dead-letter")
		}
		if s.recovery != nil && s.recovery.RecordFailure(cp.AgentID) && cp.Status == agent.StatusActive {
			if trErr := s.applyLifecycleLocked(ctx, rt, agent.EventEnterErrorRecovery); trErr != nil {
				logging.Warn().
					Add(logging.AgentID(cp.AgentID)).
					Add(logging.ErrorField(trErr)).
					Msg("error recovery entry failed")
			}
		}
		s.metrics.RecordEventProcessed(ctx, cp.AgentID, "dead_lettered", s.now().Sub(start))
		return nil
	}

	cp.Advance(e)
	if err := s.checkpoints.Save(ctx, cp); err != nil {
		// The position did not persist; redelivery retries the event,
		// which the in-memory checkpoint then treats as seen. Surface
		// the error so the source's retry policy applies.
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	if s.recovery != nil {
		s.recovery.RecordSuccess(cp.AgentID)
	}
	s.metrics.RecordEventProcessed(ctx, cp.AgentID, "processed", s.now().Sub(start))
	return nil
}

// process evaluates one event under the effective config. Errors are
// transient unless marked permanent; the executor retries them up to
// the agent's attempt budget.
func (s *Service) process(ctx context.Context, rt *runtime, eff agent.Config, e event.Event) error {
	switch eff.Handler.Kind() {
	case agent.HandlerKindOnEvent:
		return eff.Handler.OnEvent(ctx, e)
	case agent.HandlerKindPatterns:
		return s.evaluatePatterns(ctx, rt, eff, e)
	default:
		// Unreachable for validated configs.
		return fmt.Errorf("%w: agent %s", agent.ErrHandlerVariant, eff.AgentID)
	}
}

func (s *Service) evaluatePatterns(ctx context.Context, rt *runtime, eff agent.Config, e event.Event) error {
	window, err := s.reader.Recent(ctx, e.StreamID, loadBatchSize(eff.Handler.Patterns))
	if err != nil {
		return fmt.Errorf("failed to load event window: %w", err)
	}

	match, ok := s.engine.Evaluate(window, eff.Handler.Patterns, e.Timestamp)
	if !ok {
		return nil
	}

	confidence, reasoning, suggested, err := s.score(ctx, rt, eff, match, e)
	if err != nil {
		return err
	}

	args, err := json.Marshal(commandArgs{
		Pattern:            match.Pattern.Name,
		TriggeringEventIDs: match.EventIDs(),
		SuggestedAction:    suggested,
		Reasoning:          reasoning,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal command args: %w", err)
	}

	d := decision.New(eff.AgentID, decision.Command{
		Type:    match.Pattern.CommandType,
		Payload: args,
	}, confidence, reasoning)
	d.PatternID = match.Pattern.Name
	d.TriggeringEventIDs = match.EventIDs()
	d.CorrelationID = e.CorrelationID

	policy := decision.Policy{
		ConfidenceThreshold: eff.ConfidenceThreshold,
		RequireApproval:     eff.RequireApproval,
		AutoApprove:         eff.AutoApprove,
	}
	d.RequiresApproval = policy.RequiresApproval(d.Command.Type, d.Confidence)

	s.metrics.RecordDecision(ctx, d.AgentID, d.PatternID, d.Command.Type, !d.RequiresApproval)

	if d.RequiresApproval {
		return s.requestApproval(ctx, eff, d)
	}
	return s.emitCommand(ctx, d)
}

// score deepens the match through the governed analyzer. Budget
// exhaustion and analyzer failures degrade to the rule-based fallback;
// only rate limiting is surfaced as a retryable error.
func (s *Service) score(ctx context.Context, rt *runtime, eff agent.Config, match pattern.Match, e event.Event) (confidence float64, reasoning, suggested string, err error) {
	fallbackReason := fmt.Sprintf("pattern %s matched %d events", match.Pattern.Name, len(match.Events))

	if match.Pattern.Analyze == nil {
		return s.engine.FallbackConfidence(match, e.Timestamp), fallbackReason, "", nil
	}

	auth := rt.governor.Authorize(ctx, eff.AgentID)
	switch auth.Outcome {
	case domaingov.OutcomeRateLimited:
		s.metrics.RecordRateLimitHit(ctx, eff.AgentID)
		return 0, "", "", fmt.Errorf("%w: agent %s, retry after %s",
			domaingov.ErrRateLimited, eff.AgentID, auth.RetryAfter)
	case domaingov.OutcomeBudgetExceeded:
		// Permanent for the window; the governor audited the crossing.
		return s.engine.FallbackConfidence(match, e.Timestamp), fallbackReason + " (budget exceeded, fallback score)", "", nil
	}

	analysis, analyzeErr := rt.governor.Analyze(ctx, eff.AgentID, match.Pattern.Analyze, match.Events)
	if analyzeErr != nil {
		logging.Warn().
			Add(logging.AgentID(eff.AgentID)).
			Add(logging.Pattern(match.Pattern.Name)).
			Add(logging.ErrorField(analyzeErr)).
			Msg("analysis failed, using fallback confidence")
		return s.engine.FallbackConfidence(match, e.Timestamp), fallbackReason + " (analysis failed, fallback score)", "", nil
	}

	rt.governor.RecordSpend(ctx, eff.AgentID, s.cost)
	s.metrics.RecordBudgetSpend(ctx, eff.AgentID, s.cost)

	return pattern.Clamp(analysis.Confidence), analysis.Reasoning, analysis.SuggestedAction, nil
}

// requestApproval creates the pending approval idempotently. The
// approval ID derives from the agent, pattern, and triggering events so
// a redelivered decision collapses onto the existing record; the
// duplicate path writes no audit entry.
func (s *Service) requestApproval(ctx context.Context, eff agent.Config, d decision.Decision) error {
	now := s.now()
	a := &approval.PendingApproval{
		ApprovalID: approvalID(d),
		AgentID:    d.AgentID,
		DecisionID: d.DecisionID,
		Action: approval.Action{
			Type:    d.Command.Type,
			Payload: d.Command.Payload,
		},
		Confidence:         d.Confidence,
		Reason:             d.Reason,
		Status:             approval.StatusPending,
		TriggeringEventIDs: d.TriggeringEventIDs,
		ExpiresAt:          now.Add(eff.ApprovalTTL),
		CreatedAt:          now,
	}

	created, err := s.approvals.Create(ctx, a)
	if err != nil {
		return fmt.Errorf("failed to create approval: %w", err)
	}
	if !created {
		logging.Debug().
			Add(logging.AgentID(d.AgentID)).
			Add(logging.ApprovalID(a.ApprovalID)).
			Msg("approval already pending")
		return nil
	}

	s.auditDecision(ctx, d)
	s.metrics.RecordApprovalRequested(ctx, d.AgentID)

	logging.Info().
		Add(logging.AgentID(d.AgentID)).
		Add(logging.DecisionID(d.DecisionID)).
		Add(logging.ApprovalID(a.ApprovalID)).
		Add(logging.Confidence(d.Confidence)).
		Msg("approval requested")
	return nil
}

// emitCommand records the command and schedules routing. Enqueue
// failure leaves the command pending rather than failing the event;
// routing is fire-and-forget by contract.
func (s *Service) emitCommand(ctx context.Context, d decision.Decision) error {
	rec := command.NewRecorded(d.AgentID, d.DecisionID, d.Command.Type, d.Command.Payload)
	rec.Confidence = d.Confidence
	rec.Reason = d.Reason
	rec.TriggeringEventIDs = d.TriggeringEventIDs
	rec.PatternID = d.PatternID
	rec.CorrelationID = d.CorrelationID

	if err := s.commands.Record(ctx, rec); err != nil {
		return fmt.Errorf("failed to record command: %w", err)
	}

	s.auditDecision(ctx, d)
	s.enqueueRouting(ctx, rec)

	logging.Info().
		Add(logging.AgentID(d.AgentID)).
		Add(logging.DecisionID(d.DecisionID)).
		Add(logging.CommandType(d.Command.Type)).
		Add(logging.Confidence(d.Confidence)).
		Msg("command emitted")
	return nil
}

// enqueueRouting schedules the bridge hand-off, best-effort.
func (s *Service) enqueueRouting(ctx context.Context, rec *command.Recorded) {
	task, err := queue.NewRouteCommandTask(queue.RouteCommandPayload{
		DecisionID:    rec.DecisionID,
		CommandType:   rec.Type,
		AgentID:       rec.AgentID,
		CorrelationID: rec.CorrelationID,
		PatternID:     rec.PatternID,
	})
	if err == nil {
		err = s.tasks.Enqueue(ctx, task)
	}
	if err != nil {
		logging.Error().
			Add(logging.AgentID(rec.AgentID)).
			Add(logging.DecisionID(rec.DecisionID)).
			Add(logging.ErrorField(err)).
			Msg("routing task enqueue failed, command left pending")
	}
}

// auditDecision appends the decision-made entry, best-effort.
func (s *Service) auditDecision(ctx context.Context, d decision.Decision) {
	entry := audit.NewEntry(audit.EntryDecisionMade, d.AgentID, d.DecisionID, audit.DecisionMadeDetails{
		PatternID:          d.PatternID,
		CommandType:        d.Command.Type,
		Confidence:         d.Confidence,
		Reason:             d.Reason,
		RequiresApproval:   d.RequiresApproval,
		TriggeringEventIDs: d.TriggeringEventIDs,
	})
	if err := s.trail.Append(ctx, entry); err != nil {
		logging.Warn().
			Add(logging.AgentID(d.AgentID)).
			Add(logging.DecisionID(d.DecisionID)).
			Add(logging.ErrorField(err)).
			Msg("decision audit append failed")
	}
}

// deadLetterEvent records an exhausted event, best-effort.
func (s *Service) deadLetterEvent(ctx context.Context, eff agent.Config, e event.Event, cause error) {
	dl := &deadletter.DeadLetter{
		AgentID:        eff.AgentID,
		EventID:        e.ID,
		SubscriptionID: eff.SubscriptionID,
		GlobalPosition: e.GlobalPosition,
		Error:          cause.Error(),
		FailedAt:       s.now(),
	}
	if e.CorrelationID != "" {
		dl.Context = &deadletter.Context{CorrelationID: e.CorrelationID}
	}

	if err := s.deadletters.Record(ctx, dl); err != nil {
		logging.Error().
			Add(logging.AgentID(eff.AgentID)).
			Add(logging.EventID(e.ID)).
			Add(logging.ErrorField(err)).
			Msg("dead-letter record failed")
	}

	entry := audit.NewEntry(audit.EntryEventDeadLettered, eff.AgentID, "", audit.DeadLetterDetails{
		EventID:  e.ID,
		Error:    cause.Error(),
		Attempts: eff.MaxAttempts,
	})
	if err := s.trail.Append(ctx, entry); err != nil {
		logging.Warn().
			Add(logging.AgentID(eff.AgentID)).
			Add(logging.EventID(e.ID)).
			Add(logging.ErrorField(err)).
			Msg("dead-letter audit append failed")
	}

	s.metrics.RecordDeadLetter(ctx, eff.AgentID)

	logging.Error().
		Add(logging.AgentID(eff.AgentID)).
		Add(logging.EventID(e.ID)).
		Add(logging.Position(e.GlobalPosition)).
		Add(logging.ErrorField(cause)).
		Msg("event dead-lettered")
}

// approvalID derives the idempotency key from the decision's stable
// inputs so the same detection never creates two approvals.
func approvalID(d decision.Decision) string {
	key := d.AgentID + "/" + d.PatternID + "/" + d.Command.Type + "/" + strings.Join(d.TriggeringEventIDs, ",")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// loadBatchSize returns the largest batch any pattern needs.
func loadBatchSize(patterns []pattern.Definition) int {
	size := 0
	for _, def := range patterns {
		if def.Window.LoadBatchSize > size {
			size = def.Window.LoadBatchSize
		}
	}
	if size == 0 {
		size = pattern.DefaultWindow().LoadBatchSize
	}
	return size
}
