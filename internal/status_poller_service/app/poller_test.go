package app

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arkosms/message-tracking/internal/core_tracking/domain"
	"github.com/arkosms/message-tracking/internal/tracking_service/app"
	"github.com/arkosms/message-tracking/internal/tracking_service/eventstore/memory"
)

type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) RefreshStatus(ctx context.Context, messageID string) (*app.MessageView, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*app.MessageView), args.Error(1)
}

func seedInFlight(t *testing.T, store *memory.Store, id, ref string) {
	t.Helper()
	_, err := store.Append(context.Background(), id, 0, []domain.Event{
		domain.RequestSentToProvider{ID: id, Channel: domain.ChannelSMS, Sender: "A", Destination: "B", Body: "hi"},
		domain.ResponseReceivedFromProvider{ID: id, ProviderReference: ref},
	})
	require.NoError(t, err)
}

func TestPollOnceRefreshesInFlightMessages(t *testing.T) {
	store := memory.NewStore()
	seedInFlight(t, store, "m-1", "ref-1")
	seedInFlight(t, store, "m-2", "ref-2")

	refresher := new(MockRefresher)
	refresher.On("RefreshStatus", mock.Anything, "m-1").
		Return(&app.MessageView{ID: "m-1", Status: domain.StatusDelivered}, nil)
	refresher.On("RefreshStatus", mock.Anything, "m-2").
		Return(&app.MessageView{ID: "m-2", Status: domain.StatusSent}, nil)

	poller := NewStatusPoller(store, refresher, 10, slog.Default())
	require.NoError(t, poller.PollOnce(context.Background()))
	refresher.AssertExpectations(t)
}

func TestPollOnceContinuesPastFailures(t *testing.T) {
	store := memory.NewStore()
	seedInFlight(t, store, "m-1", "ref-1")
	seedInFlight(t, store, "m-2", "ref-2")

	refresher := new(MockRefresher)
	refresher.On("RefreshStatus", mock.Anything, mock.Anything).
		Return(nil, errors.New("provider timeout"))

	poller := NewStatusPoller(store, refresher, 10, slog.Default())
	// Per-message failures are logged, not propagated.
	require.NoError(t, poller.PollOnce(context.Background()))
	refresher.AssertNumberOfCalls(t, "RefreshStatus", 2)
}

func TestPollOnceEmptyBatch(t *testing.T) {
	refresher := new(MockRefresher)
	poller := NewStatusPoller(memory.NewStore(), refresher, 10, slog.Default())

	require.NoError(t, poller.PollOnce(context.Background()))
	refresher.AssertNumberOfCalls(t, "RefreshStatus", 0)
}

func TestPollOnceHonorsBatchSize(t *testing.T) {
	store := memory.NewStore()
	for _, id := range []string{"m-1", "m-2", "m-3"} {
		seedInFlight(t, store, id, "ref-"+id)
	}

	refresher := new(MockRefresher)
	refresher.On("RefreshStatus", mock.Anything, mock.Anything).
		Return(&app.MessageView{Status: domain.StatusSent}, nil)

	poller := NewStatusPoller(store, refresher, 2, slog.Default())
	require.NoError(t, poller.PollOnce(context.Background()))
	refresher.AssertNumberOfCalls(t, "RefreshStatus", 2)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	poller := NewStatusPoller(memory.NewStore(), new(MockRefresher), 10, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := poller.Run(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
