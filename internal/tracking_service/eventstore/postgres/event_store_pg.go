package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arkosms/message-tracking/internal/core_tracking/domain"
	"github.com/arkosms/message-tracking/internal/tracking_service/eventstore"
)

const uniqueViolationCode = "23505"

// PgEventStore stores message event streams in the message_events table:
// (stream_id, version, event_type, payload jsonb, recorded_at) with
// PRIMARY KEY (stream_id, version). The primary key makes the conditional
// append race-safe: two writers appending at the same version collide on it.
type PgEventStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPgEventStore creates a PostgreSQL-backed event store.
func NewPgEventStore(db *pgxpool.Pool, logger *slog.Logger) *PgEventStore {
	return &PgEventStore{db: db, logger: logger.With("component", "pg_event_store")}
}

func (s *PgEventStore) Load(ctx context.Context, messageID string) ([]domain.Event, error) {
	query := `
		SELECT event_type, payload
		FROM message_events
		WHERE stream_id = $1
		ORDER BY version ASC
	`
	rows, err := s.db.Query(ctx, query, messageID)
	if err != nil {
		return nil, fmt.Errorf("querying event stream %s: %w", messageID, err)
	}
	defer rows.Close()

	var history []domain.Event
	for rows.Next() {
		var eventType string
		var payload []byte
		if err := rows.Scan(&eventType, &payload); err != nil {
			return nil, fmt.Errorf("scanning event row for %s: %w", messageID, err)
		}
		event, err := eventstore.UnmarshalEvent(domain.EventType(eventType), payload)
		if err != nil {
			return nil, err
		}
		history = append(history, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading event stream %s: %w", messageID, err)
	}
	if len(history) == 0 {
		return nil, eventstore.ErrMessageNotFound
	}
	return history, nil
}

func (s *PgEventStore) Append(ctx context.Context, messageID string, expectedVersion int, events []domain.Event) (int, error) {
	if len(events) == 0 {
		return expectedVersion, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning append transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var currentVersion int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM message_events WHERE stream_id = $1`,
		messageID,
	).Scan(&currentVersion)
	if err != nil {
		return 0, fmt.Errorf("reading stream version for %s: %w", messageID, err)
	}
	if currentVersion != expectedVersion {
		return 0, eventstore.ErrConcurrencyConflict
	}

	now := time.Now().UTC()
	version := expectedVersion
	for _, event := range events {
		eventType, payload, err := eventstore.MarshalEvent(event)
		if err != nil {
			return 0, err
		}
		version++
		_, err = tx.Exec(ctx,
			`INSERT INTO message_events (stream_id, version, event_type, payload, recorded_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			messageID, version, string(eventType), payload, now,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
				return 0, eventstore.ErrConcurrencyConflict
			}
			return 0, fmt.Errorf("appending event %s to stream %s: %w", eventType, messageID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing append for %s: %w", messageID, err)
	}
	return version, nil
}

func (s *PgEventStore) ListInFlight(ctx context.Context, limit int) ([]eventstore.InFlightMessage, error) {
	// Latest event per stream; in-flight means the provider response is the
	// most recent thing recorded.
	query := `
		SELECT latest.stream_id, latest.payload->>'provider_reference', first.payload->>'channel'
		FROM (
			SELECT DISTINCT ON (stream_id) stream_id, event_type, payload
			FROM message_events
			ORDER BY stream_id, version DESC
		) latest
		JOIN message_events first ON first.stream_id = latest.stream_id AND first.version = 1
		WHERE latest.event_type = $1
		LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, string(domain.EventTypeResponseReceived), limit)
	if err != nil {
		return nil, fmt.Errorf("querying in-flight messages: %w", err)
	}
	defer rows.Close()

	var result []eventstore.InFlightMessage
	for rows.Next() {
		var msg eventstore.InFlightMessage
		var channel string
		if err := rows.Scan(&msg.MessageID, &msg.ProviderReference, &channel); err != nil {
			return nil, fmt.Errorf("scanning in-flight row: %w", err)
		}
		msg.Channel = domain.Channel(channel)
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading in-flight messages: %w", err)
	}
	return result, nil
}

func (s *PgEventStore) FindByProviderReference(ctx context.Context, providerReference string) (string, error) {
	var messageID string
	err := s.db.QueryRow(ctx,
		`SELECT stream_id FROM message_events
		 WHERE event_type = $1 AND payload->>'provider_reference' = $2
		 LIMIT 1`,
		string(domain.EventTypeResponseReceived), providerReference,
	).Scan(&messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", eventstore.ErrMessageNotFound
		}
		return "", fmt.Errorf("resolving provider reference %s: %w", providerReference, err)
	}
	return messageID, nil
}
