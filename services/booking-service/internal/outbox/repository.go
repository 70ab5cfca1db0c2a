package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	otelx "github.com/md-rashed-zaman/pharmavisit/libs/otel"
)

const (
	insertSQL = `
		INSERT INTO outbox_events (aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))`

	// Columns follow Record field order for RowToStructByPos.
	claimSQL = `
		SELECT id, event_id::text, aggregate_type, aggregate_id, event_type, payload,
			COALESCE(traceparent, ''), COALESCE(tracestate, ''), created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`

	ackSQL = `UPDATE outbox_events SET published_at = now() WHERE id = ANY($1)`
)

// Repository reads and writes outbox rows inside caller-owned transactions.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Insert stores evt inside tx together with the caller's trace context.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, evt Event) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	if _, err := tx.Exec(ctx, insertSQL,
		evt.AggregateType, evt.AggregateID, evt.EventType, evt.Payload, traceparent, tracestate); err != nil {
		return fmt.Errorf("insert outbox %s: %w", evt.EventType, err)
	}
	return nil
}

// Record is an unpublished outbox row.
type Record struct {
	ID            int64
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Traceparent   string
	Tracestate    string
	CreatedAt     time.Time
}

// Claim locks up to limit unpublished rows in id order. Rows locked by
// another publisher are skipped.
func (r *Repository) Claim(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error) {
	rows, err := tx.Query(ctx, claimSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("claim outbox: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Record])
}

// Ack marks the claimed rows as published.
func (r *Repository) Ack(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, ackSQL, ids)
	return err
}
