package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cimillas/hut-booking/internal/domain"
)

// OutboxRepository exposes committed timeline events that have not been
// handed to a publisher yet.
type OutboxRepository struct {
	db
}

func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{db: db{pool: pool}}
}

func (r *OutboxRepository) ListUnpublished(ctx context.Context, limit int) ([]domain.TimelineEvent, error) {
	rows, err := r.query(ctx, `
SELECT id, booking_id, kind, actor, actor_name, note, occurred_at
FROM timeline_events
WHERE published_at IS NULL
ORDER BY seq
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unpublished: %w", err)
	}
	events, err := collectEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("list unpublished: %w", err)
	}
	return events, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.exec(ctx, `
UPDATE timeline_events
SET published_at = NOW()
WHERE id = ANY($1::uuid[]) AND published_at IS NULL`, ids); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	return nil
}
