package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkosms/message-tracking/internal/core_tracking/domain"
	"github.com/arkosms/message-tracking/internal/tracking_service/eventstore"
)

func TestLoadMissingStream(t *testing.T) {
	store := NewStore()
	_, err := store.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, eventstore.ErrMessageNotFound)
}

func TestAppendAndLoad(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	events := []domain.Event{
		domain.RequestSentToProvider{ID: "m-1", Channel: domain.ChannelSMS, Sender: "A", Destination: "B", Body: "hi"},
		domain.ResponseReceivedFromProvider{ID: "m-1", ProviderReference: "ref-1"},
	}

	version, err := store.Append(ctx, "m-1", 0, events)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	history, err := store.Load(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, events, history)
}

func TestAppendVersionConflict(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	first := []domain.Event{domain.RequestSentToProvider{ID: "m-1", Channel: domain.ChannelSMS}}
	_, err := store.Append(ctx, "m-1", 0, first)
	require.NoError(t, err)

	// A stale writer appending at version 0 again must be refused.
	_, err = store.Append(ctx, "m-1", 0, first)
	assert.ErrorIs(t, err, eventstore.ErrConcurrencyConflict)

	// And the stream must be unchanged.
	history, err := store.Load(ctx, "m-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestListInFlight(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	// Sent, awaiting outcome: in flight.
	_, err := store.Append(ctx, "sent-1", 0, []domain.Event{
		domain.RequestSentToProvider{ID: "sent-1", Channel: domain.ChannelSMS},
		domain.ResponseReceivedFromProvider{ID: "sent-1", ProviderReference: "ref-1"},
	})
	require.NoError(t, err)

	// Delivered: not in flight.
	_, err = store.Append(ctx, "done-1", 0, []domain.Event{
		domain.RequestSentToProvider{ID: "done-1", Channel: domain.ChannelSMS},
		domain.ResponseReceivedFromProvider{ID: "done-1", ProviderReference: "ref-2"},
		domain.MessageDelivered{ID: "done-1", ProviderStatus: "1"},
	})
	require.NoError(t, err)

	// Still in progress: not in flight.
	_, err = store.Append(ctx, "fresh-1", 0, []domain.Event{
		domain.RequestSentToProvider{ID: "fresh-1", Channel: domain.ChannelEmail},
	})
	require.NoError(t, err)

	inFlight, err := store.ListInFlight(ctx, 10)
	require.NoError(t, err)
	require.Len(t, inFlight, 1)
	assert.Equal(t, "sent-1", inFlight[0].MessageID)
	assert.Equal(t, domain.ChannelSMS, inFlight[0].Channel)
	assert.Equal(t, "ref-1", inFlight[0].ProviderReference)
}

func TestFindByProviderReference(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.Append(ctx, "m-1", 0, []domain.Event{
		domain.RequestSentToProvider{ID: "m-1", Channel: domain.ChannelSMS},
		domain.ResponseReceivedFromProvider{ID: "m-1", ProviderReference: "ref-42"},
	})
	require.NoError(t, err)

	id, err := store.FindByProviderReference(ctx, "ref-42")
	require.NoError(t, err)
	assert.Equal(t, "m-1", id)

	_, err = store.FindByProviderReference(ctx, "ref-missing")
	assert.ErrorIs(t, err, eventstore.ErrMessageNotFound)
}
