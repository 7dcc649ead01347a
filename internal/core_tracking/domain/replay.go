package domain

import "fmt"

// Applier is satisfied by aggregates that can fold one event into their state.
type Applier[E any] interface {
	Apply(event E) error
}

// Replay folds an ordered event history into agg, starting from its current
// state. The same fold is used to rehydrate an aggregate from storage and to
// apply newly emitted events to a live instance, so a rebuilt aggregate is
// indistinguishable from one that applied its events as they happened.
func Replay[E any, A Applier[E]](agg A, history []E) error {
	for i, event := range history {
		if err := agg.Apply(event); err != nil {
			return fmt.Errorf("replaying event %d: %w", i, err)
		}
	}
	return nil
}
