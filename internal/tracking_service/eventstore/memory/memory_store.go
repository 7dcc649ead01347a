package memory

import (
	"context"
	"sync"

	"github.com/arkosms/message-tracking/internal/core_tracking/domain"
	"github.com/arkosms/message-tracking/internal/tracking_service/eventstore"
)

// Store is an in-memory event store with the same contract as the PostgreSQL
// implementation. Used in tests and local runs without a database.
type Store struct {
	mu      sync.Mutex
	streams map[string][]domain.Event
}

// NewStore creates an empty in-memory event store.
func NewStore() *Store {
	return &Store{streams: make(map[string][]domain.Event)}
}

func (s *Store) Load(_ context.Context, messageID string) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream, ok := s.streams[messageID]
	if !ok || len(stream) == 0 {
		return nil, eventstore.ErrMessageNotFound
	}
	history := make([]domain.Event, len(stream))
	copy(history, stream)
	return history, nil
}

func (s *Store) Append(_ context.Context, messageID string, expectedVersion int, events []domain.Event) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[messageID]
	if len(stream) != expectedVersion {
		return 0, eventstore.ErrConcurrencyConflict
	}
	s.streams[messageID] = append(stream, events...)
	return len(s.streams[messageID]), nil
}

func (s *Store) ListInFlight(_ context.Context, limit int) ([]eventstore.InFlightMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []eventstore.InFlightMessage
	for id, stream := range s.streams {
		if len(result) >= limit {
			break
		}
		if len(stream) == 0 {
			continue
		}
		last, ok := stream[len(stream)-1].(domain.ResponseReceivedFromProvider)
		if !ok {
			continue
		}
		first, ok := stream[0].(domain.RequestSentToProvider)
		if !ok {
			continue
		}
		result = append(result, eventstore.InFlightMessage{
			MessageID:         id,
			Channel:           first.Channel,
			ProviderReference: last.ProviderReference,
		})
	}
	return result, nil
}

func (s *Store) FindByProviderReference(_ context.Context, providerReference string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, stream := range s.streams {
		for _, event := range stream {
			if resp, ok := event.(domain.ResponseReceivedFromProvider); ok && resp.ProviderReference == providerReference {
				return id, nil
			}
		}
	}
	return "", eventstore.ErrMessageNotFound
}
