package pattern

import "github.com/felixgeelhaar/reactor-go/domain/event"

// All combines triggers with AND semantics. An empty argument list
// never fires.
func All(triggers ...Trigger) Trigger {
	return func(events []event.Event) bool {
		if len(triggers) == 0 {
			return false
		}
		for _, t := range triggers {
			if !t(events) {
				return false
			}
		}
		return true
	}
}

// Any combines triggers with OR semantics.
func Any(triggers ...Trigger) Trigger {
	return func(events []event.Event) bool {
		for _, t := range triggers {
			if t(events) {
				return true
			}
		}
		return false
	}
}

// EventTypePresent fires when at least minCount events of any of the
// given types are in the window. A minCount below one is treated as one.
func EventTypePresent(types []string, minCount int) Trigger {
	if minCount < 1 {
		minCount = 1
	}
	wanted := make(map[string]struct{}, len(types))
	for _, t := range types {
		wanted[t] = struct{}{}
	}

	return func(events []event.Event) bool {
		count := 0
		for _, e := range events {
			if _, ok := wanted[e.Type]; ok {
				count++
				if count >= minCount {
					return true
				}
			}
		}
		return false
	}
}

// Not inverts a trigger.
func Not(t Trigger) Trigger {
	return func(events []event.Event) bool {
		return !t(events)
	}
}
