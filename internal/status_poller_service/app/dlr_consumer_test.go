package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/mock"

	"github.com/arkosms/message-tracking/internal/core_tracking/domain"
	"github.com/arkosms/message-tracking/internal/tracking_service/eventstore/memory"
	"github.com/arkosms/message-tracking/internal/tracking_service/provider"
)

type MockReporter struct {
	mock.Mock
}

func (m *MockReporter) ApplyDeliveryReport(ctx context.Context, messageID string, status domain.MessageStatus, providerStatus string) (bool, error) {
	args := m.Called(ctx, messageID, status, providerStatus)
	return args.Bool(0), args.Error(1)
}

func newDLRConsumer(t *testing.T, store *memory.Store, reporter DeliveryReporter) *DLRConsumer {
	t.Helper()
	mockProv := provider.NewMockProvider(slog.Default())
	providers := map[string]provider.MessageProvider{
		mockProv.Name(): mockProv,
	}
	return NewDLRConsumer(nil, store, providers, reporter, slog.Default())
}

func TestHandleMessageAppliesTranslatedReport(t *testing.T) {
	store := memory.NewStore()
	seedInFlight(t, store, "m-1", "ref-1")

	reporter := new(MockReporter)
	reporter.On("ApplyDeliveryReport", mock.Anything, "m-1", domain.StatusDelivered, "1").
		Return(true, nil)

	consumer := newDLRConsumer(t, store, reporter)
	consumer.handleMessage(context.Background(), "dlr", &nats.Msg{
		Subject: "dlr.mock",
		Data:    []byte(`{"provider_message_id":"ref-1","status":"1"}`),
	})
	reporter.AssertExpectations(t)
}

func TestHandleMessageUnknownProvider(t *testing.T) {
	reporter := new(MockReporter)
	consumer := newDLRConsumer(t, memory.NewStore(), reporter)

	consumer.handleMessage(context.Background(), "dlr", &nats.Msg{
		Subject: "dlr.someoneelse",
		Data:    []byte(`{"provider_message_id":"ref-1","status":"1"}`),
	})
	reporter.AssertNumberOfCalls(t, "ApplyDeliveryReport", 0)
}

func TestHandleMessageMalformedPayload(t *testing.T) {
	reporter := new(MockReporter)
	consumer := newDLRConsumer(t, memory.NewStore(), reporter)

	consumer.handleMessage(context.Background(), "dlr", &nats.Msg{
		Subject: "dlr.mock",
		Data:    []byte(`not-json`),
	})
	reporter.AssertNumberOfCalls(t, "ApplyDeliveryReport", 0)
}

func TestHandleMessageUnknownReference(t *testing.T) {
	reporter := new(MockReporter)
	consumer := newDLRConsumer(t, memory.NewStore(), reporter)

	consumer.handleMessage(context.Background(), "dlr", &nats.Msg{
		Subject: "dlr.mock",
		Data:    []byte(`{"provider_message_id":"ref-unknown","status":"1"}`),
	})
	reporter.AssertNumberOfCalls(t, "ApplyDeliveryReport", 0)
}

func TestHandleMessageBadSubject(t *testing.T) {
	reporter := new(MockReporter)
	consumer := newDLRConsumer(t, memory.NewStore(), reporter)

	for _, subject := range []string{"dlr", "dlr.", "dlr.mock.extra"} {
		consumer.handleMessage(context.Background(), "dlr", &nats.Msg{
			Subject: subject,
			Data:    []byte(`{"provider_message_id":"ref-1","status":"1"}`),
		})
	}
	reporter.AssertNumberOfCalls(t, "ApplyDeliveryReport", 0)
}

func TestHandleMessageTranslationOnlyStatusStillReported(t *testing.T) {
	// Translation happens in the consumer; the decision whether a status is
	// actionable belongs to the reporter.
	store := memory.NewStore()
	seedInFlight(t, store, "m-1", "ref-1")

	reporter := new(MockReporter)
	reporter.On("ApplyDeliveryReport", mock.Anything, "m-1", domain.StatusFailed, "30").
		Return(false, nil)

	consumer := newDLRConsumer(t, store, reporter)
	consumer.handleMessage(context.Background(), "dlr", &nats.Msg{
		Subject: "dlr.mock",
		Data:    []byte(`{"provider_message_id":"ref-1","status":"30"}`),
	})
	reporter.AssertExpectations(t)
	reporter.AssertNumberOfCalls(t, "ApplyDeliveryReport", 1)
}
