package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cimillas/hut-booking/internal/domain"
)

const bookingColumns = `b.id, b.start_date, b.end_date, b.party_size, b.requester_name, b.requester_email,
	b.affiliation, b.status, b.note, COALESCE(b.idempotency_key, ''), b.created_at, b.updated_at, b.last_activity_at`

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var (
		b           domain.Booking
		affiliation string
		status      string
	)
	err := row.Scan(
		&b.ID, &b.Range.Start, &b.Range.End, &b.PartySize, &b.Requester.Name, &b.Requester.Email,
		&affiliation, &status, &b.Note, &b.IdempotencyKey, &b.CreatedAt, &b.UpdatedAt, &b.LastActivityAt,
	)
	if err != nil {
		return domain.Booking{}, err
	}
	if b.Affiliation, err = domain.ParseReviewer(affiliation); err != nil {
		return domain.Booking{}, fmt.Errorf("booking %s affiliation %q: %w", b.ID, affiliation, err)
	}
	b.Status = domain.Status(status)
	b.Range.Start = b.Range.Start.UTC()
	b.Range.End = b.Range.End.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	b.LastActivityAt = b.LastActivityAt.UTC()
	b.Approvals = domain.NewApprovalSet()
	return b, nil
}

// listBookings runs a booking query and loads the approvals of every row.
func (d db) listBookings(ctx context.Context, sql string, args ...any) ([]domain.Booking, error) {
	rows, err := d.query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	bookings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Booking, error) {
		return scanBooking(row)
	})
	if err != nil {
		return nil, err
	}
	if err := d.loadApprovals(ctx, bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (d db) loadApprovals(ctx context.Context, bookings []domain.Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	ids := make([]string, len(bookings))
	pos := make(map[string]int, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
		pos[b.ID] = i
	}

	rows, err := d.query(ctx, `
SELECT booking_id, reviewer, decision, decided_at, comment
FROM approvals
WHERE booking_id = ANY($1::uuid[])`, ids)
	if err != nil {
		return fmt.Errorf("load approvals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			bookingID, reviewer, decision, comment string
			decidedAt                              *time.Time
		)
		if err := rows.Scan(&bookingID, &reviewer, &decision, &decidedAt, &comment); err != nil {
			return fmt.Errorf("scan approval: %w", err)
		}
		r, err := domain.ParseReviewer(reviewer)
		if err != nil {
			return fmt.Errorf("approval reviewer %q: %w", reviewer, err)
		}
		dec, err := domain.ParseDecision(decision)
		if err != nil {
			return err
		}
		if decidedAt != nil {
			utc := decidedAt.UTC()
			decidedAt = &utc
		}
		bookings[pos[bookingID]].Approvals[r-1] = domain.Approval{
			Reviewer:  r,
			Decision:  dec,
			DecidedAt: decidedAt,
			Comment:   comment,
		}
	}
	return rows.Err()
}

func scanEvent(row pgx.Row) (domain.TimelineEvent, error) {
	var (
		e     domain.TimelineEvent
		kind  string
		actor string
	)
	if err := row.Scan(&e.ID, &e.BookingID, &kind, &actor, &e.ActorName, &e.Note, &e.At); err != nil {
		return domain.TimelineEvent{}, err
	}
	e.Kind = domain.EventKind(kind)
	e.Actor = domain.ActorRole(actor)
	e.At = e.At.UTC()
	return e, nil
}

func collectEvents(rows pgx.Rows) ([]domain.TimelineEvent, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TimelineEvent, error) {
		return scanEvent(row)
	})
}
