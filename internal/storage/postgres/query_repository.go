package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cimillas/hut-booking/internal/domain"
)

type QueryRepository struct {
	db
}

func NewQueryRepository(pool *pgxpool.Pool) *QueryRepository {
	return &QueryRepository{db: db{pool: pool}}
}

func (r *QueryRepository) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	b, err := scanBooking(r.queryRow(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id = $1`, id))
	if err != nil {
		return domain.Booking{}, mapBookingErr(err)
	}
	bookings := []domain.Booking{b}
	if err := r.loadApprovals(ctx, bookings); err != nil {
		return domain.Booking{}, err
	}
	return bookings[0], nil
}

func (r *QueryRepository) ListBlocking(ctx context.Context, window domain.DateRange) ([]domain.Booking, error) {
	bookings, err := r.listBookings(ctx, `
SELECT `+bookingColumns+`
FROM bookings b
WHERE b.status IN ('Pending', 'Confirmed')
  AND daterange(b.start_date, b.end_date, '[]') && daterange($1::date, $2::date, '[]')
ORDER BY b.start_date, b.id`, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("list blocking: %w", err)
	}
	return bookings, nil
}

func (r *QueryRepository) ListOutstanding(ctx context.Context, rv domain.Reviewer, limit int) ([]domain.Booking, error) {
	bookings, err := r.listBookings(ctx, `
SELECT `+bookingColumns+`
FROM bookings b
JOIN approvals a ON a.booking_id = b.id
WHERE a.reviewer = $1 AND a.decision = 'NoResponse' AND b.status = 'Pending'
ORDER BY b.last_activity_at DESC, b.id
LIMIT $2`, rv.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("list outstanding: %w", err)
	}
	return bookings, nil
}

func (r *QueryRepository) ListHistory(ctx context.Context, rv domain.Reviewer, limit int) ([]domain.Booking, error) {
	bookings, err := r.listBookings(ctx, `
SELECT `+bookingColumns+`
FROM bookings b
JOIN approvals a ON a.booking_id = b.id
WHERE a.reviewer = $1
ORDER BY b.last_activity_at DESC, b.id
LIMIT $2`, rv.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return bookings, nil
}

func (r *QueryRepository) ListByRequester(ctx context.Context, email string, limit int) ([]domain.Booking, error) {
	bookings, err := r.listBookings(ctx, `
SELECT `+bookingColumns+`
FROM bookings b
WHERE lower(b.requester_email) = lower($1)
ORDER BY b.last_activity_at DESC, b.id
LIMIT $2`, email, limit)
	if err != nil {
		return nil, fmt.Errorf("list by requester: %w", err)
	}
	return bookings, nil
}

func (r *QueryRepository) ListEvents(ctx context.Context, bookingID string) ([]domain.TimelineEvent, error) {
	rows, err := r.query(ctx, `
SELECT id, booking_id, kind, actor, actor_name, note, occurred_at
FROM timeline_events
WHERE booking_id = $1
ORDER BY seq`, bookingID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list events: %w", err)
	}
	events, err := collectEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}
