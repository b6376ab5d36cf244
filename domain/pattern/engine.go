package pattern

import (
	"time"

	"github.com/felixgeelhaar/reactor-go/domain/event"
)

// FallbackConfig tunes the rule-based confidence used when a pattern
// has no analyzer or its analysis call fails.
type FallbackConfig struct {
	// Base is the confidence for a minimal match.
	Base float64

	// PerEvent is added for every matching event beyond the first.
	PerEvent float64

	// Ceiling caps the count-derived confidence before the recency
	// boost is applied.
	Ceiling float64

	// RecencyWindow is how fresh the newest matching event must be to
	// earn the recency boost.
	RecencyWindow time.Duration

	// RecencyBoost is added when the newest matching event falls
	// within RecencyWindow of the reference time.
	RecencyBoost float64
}

// DefaultFallbackConfig returns the standard fallback scoring.
func DefaultFallbackConfig() FallbackConfig {
	return FallbackConfig{
		Base:          0.3,
		PerEvent:      0.1,
		Ceiling:       0.8,
		RecencyWindow: time.Hour,
		RecencyBoost:  0.1,
	}
}

// Engine evaluates pattern definitions over event windows.
type Engine struct {
	fallback FallbackConfig
}

// NewEngine creates an engine with the given fallback scoring.
func NewEngine(fallback FallbackConfig) *Engine {
	return &Engine{fallback: fallback}
}

// NewDefaultEngine creates an engine with default fallback scoring.
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultFallbackConfig())
}

// Evaluate runs the patterns against the events in registration order
// and returns the first match. The window is filtered to events within
// the pattern's duration of the reference time and capped at
// EventLimit. A pattern with fewer than MinEvents in-window events
// never fires, regardless of its predicate.
func (eng *Engine) Evaluate(events []event.Event, patterns []Definition, reference time.Time) (Match, bool) {
	for _, def := range patterns {
		window := filterWindow(events, def.Window, reference)
		if len(window) < def.Window.MinEvents {
			continue
		}
		if def.Trigger == nil || !def.Trigger(window) {
			continue
		}
		return Match{Pattern: def, Events: window}, true
	}
	return Match{}, false
}

// FallbackConfidence computes the deterministic rule-based confidence
// for a match: monotonic in matching-event count, boosted when the
// newest event is recent, clamped to [0,1].
func (eng *Engine) FallbackConfidence(m Match, reference time.Time) float64 {
	if len(m.Events) == 0 {
		return 0
	}

	cfg := eng.fallback
	score := cfg.Base + cfg.PerEvent*float64(len(m.Events)-1)
	if score > cfg.Ceiling {
		score = cfg.Ceiling
	}

	newest := m.Events[0].Timestamp
	for _, e := range m.Events[1:] {
		if e.Timestamp.After(newest) {
			newest = e.Timestamp
		}
	}
	if cfg.RecencyWindow > 0 && reference.Sub(newest) <= cfg.RecencyWindow {
		score += cfg.RecencyBoost
	}

	return Clamp(score)
}

// Clamp bounds a confidence score to [0,1].
func Clamp(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// filterWindow keeps events within duration of the reference time,
// newest last, capped at the event limit (newest retained).
func filterWindow(events []event.Event, w Window, reference time.Time) []event.Event {
	cutoff := reference.Add(-w.Duration)

	var window []event.Event
	for _, e := range events {
		if w.Duration > 0 && e.Timestamp.Before(cutoff) {
			continue
		}
		if e.Timestamp.After(reference) {
			continue
		}
		window = append(window, e)
	}

	if w.EventLimit > 0 && len(window) > w.EventLimit {
		window = window[len(window)-w.EventLimit:]
	}
	return window
}
