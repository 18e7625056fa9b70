package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types written to the outbox
const (
	EventOrderPlaced = "order.placed"
)

type OutboxEvent struct {
	ID          int
	EventID     string
	AggregateID string // order id, used as the message key
	EventType   string
	Payload     []byte
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// Outbox is the durable queue of pending order notifications.
type Outbox struct {
	db  *sql.DB
	now func() time.Time
}

func newOutbox(db *sql.DB) *Outbox {
	return &Outbox{db: db, now: time.Now}
}

func (o *Outbox) Enqueue(ctx context.Context, aggregateID, eventType string, payload []byte) (*OutboxEvent, error) {
	ev := &OutboxEvent{
		EventID:     uuid.NewString(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     payload,
		CreatedAt:   o.now(),
	}

	query := `
		INSERT INTO outbox_events (event_id, aggregate_id, event_type, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	res, err := o.db.ExecContext(ctx, query, ev.EventID, ev.AggregateID, ev.EventType, ev.Payload, ev.CreatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue outbox event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read outbox event id: %w", err)
	}
	ev.ID = int(id)
	return ev, nil
}

// GetUnprocessedEvents returns up to limit undelivered events, oldest first, skipping
// events that already failed maxAttempts times.
func (o *Outbox) GetUnprocessedEvents(ctx context.Context, limit, maxAttempts int) ([]*OutboxEvent, error) {
	query := `
		SELECT id, event_id, aggregate_id, event_type, payload, attempts, last_error, created_at
		FROM outbox_events
		WHERE processed_at IS NULL AND attempts < ?
		ORDER BY id
		LIMIT ?
	`
	rows, err := o.db.QueryContext(ctx, query, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		ev := &OutboxEvent{}
		var createdAt int64
		if err := rows.Scan(&ev.ID, &ev.EventID, &ev.AggregateID, &ev.EventType, &ev.Payload,
			&ev.Attempts, &ev.LastError, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		ev.CreatedAt = time.UnixMilli(createdAt)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outbox events: %w", err)
	}
	return events, nil
}

func (o *Outbox) MarkEventAsProcessed(ctx context.Context, id int) error {
	_, err := o.db.ExecContext(ctx, `UPDATE outbox_events SET processed_at = ? WHERE id = ?`, o.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %d as processed: %w", id, err)
	}
	return nil
}

// MarkEventFailed records a failed delivery and returns the new attempt count.
func (o *Outbox) MarkEventFailed(ctx context.Context, id int, cause error) (int, error) {
	var attempts int
	err := o.db.QueryRowContext(ctx,
		`UPDATE outbox_events SET attempts = attempts + 1, last_error = ? WHERE id = ? RETURNING attempts`,
		cause.Error(), id).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("failed to mark outbox event %d as failed: %w", id, err)
	}
	return attempts, nil
}

// PurgeProcessed deletes delivered events processed before the given time.
func (o *Outbox) PurgeProcessed(ctx context.Context, before time.Time) (int64, error) {
	res, err := o.db.ExecContext(ctx,
		`DELETE FROM outbox_events WHERE processed_at IS NOT NULL AND processed_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge outbox events: %w", err)
	}
	return res.RowsAffected()
}

// PendingCount reports how many events still wait for delivery.
func (o *Outbox) PendingCount(ctx context.Context) (int, error) {
	var n int
	if err := o.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox_events WHERE processed_at IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count outbox events: %w", err)
	}
	return n, nil
}
