// Package inbox deduplicates consumed Kafka events by event id.
package inbox

import (
	"context"
	"fmt"

	"github.com/md-rashed-zaman/pharmavisit/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record claims eventID. It reports false when the id was already seen.
func (r *Repository) Record(ctx context.Context, eventID, eventType string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO inbox_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING`,
		eventID, eventType)
	if err != nil {
		return false, fmt.Errorf("record inbox %s: %w", eventID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Forget releases eventID so a redelivery is processed again.
func (r *Repository) Forget(ctx context.Context, eventID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM inbox_events WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("forget inbox %s: %w", eventID, err)
	}
	return nil
}
