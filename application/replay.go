package application

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/reactor-go/domain/deadletter"
	"github.com/felixgeelhaar/reactor-go/domain/event"
	"github.com/felixgeelhaar/reactor-go/infrastructure/logging"
)

// replayScanLimit bounds how far back the replayer searches the event
// log for a dead-lettered event.
const replayScanLimit = 1000

// DeadLetterStats aggregates dead-letter counts per agent.
func (s *Service) DeadLetterStats(ctx context.Context) ([]deadletter.Stats, error) {
	return s.deadletters.StatsByAgent(ctx)
}

// PendingDeadLetters returns an agent's pending dead letters, oldest first.
func (s *Service) PendingDeadLetters(ctx context.Context, agentID string, limit int) ([]*deadletter.DeadLetter, error) {
	return s.deadletters.ListPending(ctx, agentID, limit)
}

// IgnoreDeadLetter writes a pending dead letter off.
func (s *Service) IgnoreDeadLetter(ctx context.Context, agentID, eventID string) error {
	return s.deadletters.UpdateStatus(ctx, agentID, eventID, deadletter.StatusIgnored)
}

// ReplayDeadLetter re-runs a dead-lettered event through the agent's
// processing path. The checkpoint gate is bypassed deliberately: the
// position already advanced past the event when it was dead-lettered.
// Success marks the record replayed; failure updates it in place.
func (s *Service) ReplayDeadLetter(ctx context.Context, agentID, eventID string) error {
	rt, err := s.runtimeFor(agentID)
	if err != nil {
		return err
	}

	dl, err := s.deadletters.Get(ctx, agentID, eventID)
	if err != nil {
		return err
	}
	if dl.Status != deadletter.StatusPending {
		return fmt.Errorf("%w: dead letter is %s", deadletter.ErrInvalidStatusTransition, dl.Status)
	}

	e, err := s.findEvent(ctx, eventID)
	if err != nil {
		return err
	}

	rt.mu.Lock()
	eff := rt.effective()
	processErr := s.process(ctx, rt, eff, e)
	rt.mu.Unlock()

	if processErr != nil {
		dl.Error = processErr.Error()
		dl.FailedAt = s.now()
		if recErr := s.deadletters.Record(ctx, dl); recErr != nil {
			logging.Warn().
				Add(logging.AgentID(agentID)).
				Add(logging.EventID(eventID)).
				Add(logging.ErrorField(recErr)).
				Msg("replay failure record update failed")
		}
		return fmt.Errorf("replay failed: %w", processErr)
	}

	if err := s.deadletters.UpdateStatus(ctx, agentID, eventID, deadletter.StatusReplayed); err != nil {
		return fmt.Errorf("replay succeeded but status update failed: %w", err)
	}

	logging.Info().
		Add(logging.AgentID(agentID)).
		Add(logging.EventID(eventID)).
		Msg("dead letter replayed")
	return nil
}

// findEvent looks the event up in the recent log.
func (s *Service) findEvent(ctx context.Context, eventID string) (event.Event, error) {
	events, err := s.reader.Recent(ctx, "", replayScanLimit)
	if err != nil {
		return event.Event{}, fmt.Errorf("failed to read event log: %w", err)
	}
	for _, e := range events {
		if e.ID == eventID {
			return e, nil
		}
	}
	return event.Event{}, fmt.Errorf("%w: event %s no longer in the recent log", event.ErrInvalidEvent, eventID)
}
