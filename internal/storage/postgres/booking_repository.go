package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cimillas/hut-booking/internal/domain"
)

// BookingRepository serves the mutating booking operations. Every method
// joins the transaction carried by ctx.
type BookingRepository struct {
	db
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{db: db{pool: pool}}
}

func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// LockCalendar takes a transaction-scoped advisory lock shared by all
// operations that may occupy new dates. It is released on commit or rollback.
func (r *BookingRepository) LockCalendar(ctx context.Context) error {
	if err := lockCalendar(ctx); err != nil {
		return fmt.Errorf("lock calendar: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetBookingForUpdate(ctx context.Context, id string) (domain.Booking, error) {
	b, err := scanBooking(r.queryRow(ctx, `
SELECT `+bookingColumns+`
FROM bookings b
WHERE b.id = $1
FOR UPDATE`, id))
	if err != nil {
		return domain.Booking{}, mapBookingErr(err)
	}
	bookings := []domain.Booking{b}
	if err := r.loadApprovals(ctx, bookings); err != nil {
		return domain.Booking{}, err
	}
	return bookings[0], nil
}

func (r *BookingRepository) FindBookingByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error) {
	bookings, err := r.listBookings(ctx, `
SELECT `+bookingColumns+`
FROM bookings b
WHERE b.idempotency_key = $1`, key)
	if err != nil {
		return nil, fmt.Errorf("find booking by idempotency key: %w", err)
	}
	if len(bookings) == 0 {
		return nil, nil
	}
	return &bookings[0], nil
}

// FindConflicts returns the pending and confirmed bookings whose inclusive
// range intersects rng, ordered by start date.
func (r *BookingRepository) FindConflicts(ctx context.Context, rng domain.DateRange, excludeID string) ([]domain.Booking, error) {
	bookings, err := r.listBookings(ctx, `
SELECT `+bookingColumns+`
FROM bookings b
WHERE b.status IN ('Pending', 'Confirmed')
  AND daterange(b.start_date, b.end_date, '[]') && daterange($1::date, $2::date, '[]')
  AND b.id::text <> $3
ORDER BY b.start_date, b.id`, rng.Start, rng.End, excludeID)
	if err != nil {
		return nil, fmt.Errorf("find conflicts: %w", err)
	}
	return bookings, nil
}

func (r *BookingRepository) CreateBooking(ctx context.Context, b domain.Booking) error {
	const stmt = `
INSERT INTO bookings (id, start_date, end_date, party_size, requester_name, requester_email,
	affiliation, status, note, idempotency_key, created_at, updated_at, last_activity_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12, $13)`

	err := withSavepoint(ctx, func(ctx context.Context) error {
		_, err := r.exec(ctx, stmt,
			b.ID, b.Range.Start, b.Range.End, b.PartySize, b.Requester.Name, b.Requester.Email,
			b.Affiliation.String(), string(b.Status), b.Note, b.IdempotencyKey,
			b.CreatedAt, b.UpdatedAt, b.LastActivityAt,
		)
		return err
	})
	if err != nil {
		if isExclusionViolation(err) {
			return r.conflictWith(ctx, b)
		}
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyConflict
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return r.writeApprovals(ctx, b, `
INSERT INTO approvals (booking_id, reviewer, decision, decided_at, comment)
VALUES ($1, $2, $3, $4, $5)`)
}

func (r *BookingRepository) UpdateBooking(ctx context.Context, b domain.Booking) error {
	const stmt = `
UPDATE bookings
SET start_date = $2, end_date = $3, party_size = $4, requester_name = $5, affiliation = $6,
	status = $7, note = $8, updated_at = $9, last_activity_at = $10
WHERE id = $1`

	var rows int64
	err := withSavepoint(ctx, func(ctx context.Context) error {
		tag, err := r.exec(ctx, stmt,
			b.ID, b.Range.Start, b.Range.End, b.PartySize, b.Requester.Name, b.Affiliation.String(),
			string(b.Status), b.Note, b.UpdatedAt, b.LastActivityAt,
		)
		rows = tag.RowsAffected()
		return err
	})
	if err != nil {
		if isExclusionViolation(err) {
			return r.conflictWith(ctx, b)
		}
		return fmt.Errorf("update booking: %w", err)
	}
	if rows == 0 {
		return domain.ErrBookingNotFound
	}
	return r.writeApprovals(ctx, b, `
UPDATE approvals
SET decision = $3, decided_at = $4, comment = $5
WHERE booking_id = $1 AND reviewer = $2`)
}

func (r *BookingRepository) AppendEvents(ctx context.Context, events []domain.TimelineEvent) error {
	const stmt = `
INSERT INTO timeline_events (id, booking_id, kind, actor, actor_name, note, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, e := range events {
		if _, err := r.exec(ctx, stmt,
			e.ID, e.BookingID, string(e.Kind), string(e.Actor), e.ActorName, e.Note, e.At,
		); err != nil {
			return fmt.Errorf("append %s event: %w", e.Kind, err)
		}
	}
	return nil
}

func (r *BookingRepository) writeApprovals(ctx context.Context, b domain.Booking, stmt string) error {
	for _, a := range b.Approvals {
		if _, err := r.exec(ctx, stmt, b.ID, a.Reviewer.String(), string(a.Decision), a.DecidedAt, a.Comment); err != nil {
			return fmt.Errorf("write approval %s: %w", a.Reviewer, err)
		}
	}
	return nil
}

// conflictWith reports the booking that made the overlap constraint reject b.
func (r *BookingRepository) conflictWith(ctx context.Context, b domain.Booking) error {
	holders, err := r.FindConflicts(ctx, b.Range, b.ID)
	if err != nil {
		return err
	}
	if len(holders) == 0 {
		return &domain.ConflictError{}
	}
	h := holders[0]
	return &domain.ConflictError{BookingID: h.ID, RequesterName: h.Requester.Name, Status: h.Status}
}

func mapBookingErr(err error) error {
	if isInvalidUUID(err) {
		return domain.ErrInvalidID
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrBookingNotFound
	}
	return fmt.Errorf("get booking: %w", err)
}
