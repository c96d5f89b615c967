package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cimillas/hut-booking/internal/app"
	"github.com/cimillas/hut-booking/internal/clock"
	"github.com/cimillas/hut-booking/internal/domain"
	"github.com/cimillas/hut-booking/internal/testutil"
)

var testNow = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

func newBooking(name string, start, end time.Time) domain.Booking {
	b, _ := domain.NewBooking(uuid.NewString(), domain.BookingDraft{
		Range:       domain.MustDateRange(start, end),
		PartySize:   3,
		Requester:   domain.Requester{Name: name, Email: name + "@example.com"},
		Affiliation: domain.ReviewerAngelika,
	}, domain.NoReviewer, testNow)
	return b
}

func TestBookingRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewBookingRepository(pool)
	queries := NewQueryRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("CreateBooking stores booking with three approvals", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		b := newBooking("anna", domain.NewDate(2025, 8, 1), domain.NewDate(2025, 8, 5))
		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			return repo.CreateBooking(txCtx, b)
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		got, err := queries.GetBooking(ctx, b.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !got.Range.Equal(b.Range) || got.TotalDays() != 5 || got.Status != domain.StatusPending {
			t.Fatalf("unexpected booking: %+v", got)
		}
		for _, r := range domain.Reviewers {
			if a := got.Approvals.Get(r); a.Reviewer != r || a.Decision != domain.DecisionNoResponse || a.DecidedAt != nil {
				t.Fatalf("unexpected approval for %s: %+v", r, a)
			}
		}

		var stored int
		if err := pool.QueryRow(ctx, `SELECT total_days FROM bookings WHERE id = $1`, b.ID).Scan(&stored); err != nil {
			t.Fatalf("read total_days: %v", err)
		}
		if stored != 5 {
			t.Fatalf("expected total_days 5, got %d", stored)
		}
	})

	t.Run("GetBookingForUpdate maps missing and malformed IDs", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			_, err := repo.GetBookingForUpdate(txCtx, "00000000-0000-0000-0000-000000000001")
			if err != domain.ErrBookingNotFound {
				t.Fatalf("expected ErrBookingNotFound, got %v", err)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}

		_, err = queries.GetBooking(ctx, "not-a-uuid")
		if err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("UpdateBooking persists decisions", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		b := newBooking("anna", domain.NewDate(2025, 8, 1), domain.NewDate(2025, 8, 5))
		if err := repo.WithTx(ctx, func(txCtx context.Context) error { return repo.CreateBooking(txCtx, b) }); err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, _, err := b.Decide(domain.ReviewerCornelia, domain.DecisionDenied, "family visit", testNow); err != nil {
			t.Fatalf("decide: %v", err)
		}
		if err := repo.WithTx(ctx, func(txCtx context.Context) error { return repo.UpdateBooking(txCtx, b) }); err != nil {
			t.Fatalf("update: %v", err)
		}

		got, err := queries.GetBooking(ctx, b.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		a := got.Approvals.Get(domain.ReviewerCornelia)
		if got.Status != domain.StatusDenied || a.Decision != domain.DecisionDenied || a.Comment != "family visit" || a.DecidedAt == nil {
			t.Fatalf("unexpected state: %+v / %+v", got.Status, a)
		}
	})

	t.Run("FindConflicts finds multi-month booking and skips inactive ones", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		long := newBooking("anna", domain.NewDate(2025, 1, 15), domain.NewDate(2025, 3, 15))
		gone := newBooking("bert", domain.NewDate(2025, 4, 1), domain.NewDate(2025, 4, 3))
		if _, _, err := gone.Cancel("", testNow); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			if err := repo.CreateBooking(txCtx, long); err != nil {
				return err
			}
			return repo.CreateBooking(txCtx, gone)
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		feb := domain.MustDateRange(domain.NewDate(2025, 2, 1), domain.NewDate(2025, 2, 28))
		found, err := repo.FindConflicts(ctx, feb, "")
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if len(found) != 1 || found[0].ID != long.ID {
			t.Fatalf("expected long booking, got %+v", found)
		}

		found, err = repo.FindConflicts(ctx, long.Range, long.ID)
		if err != nil {
			t.Fatalf("find excluding self: %v", err)
		}
		if len(found) != 0 {
			t.Fatalf("expected no conflicts, got %+v", found)
		}

		found, err = repo.FindConflicts(ctx, gone.Range, "")
		if err != nil {
			t.Fatalf("find canceled: %v", err)
		}
		if len(found) != 0 {
			t.Fatalf("canceled booking must not block, got %+v", found)
		}
	})

	t.Run("overlap constraint surfaces as ConflictError", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		a := newBooking("anna", domain.NewDate(2025, 8, 1), domain.NewDate(2025, 8, 5))
		b := newBooking("bert", domain.NewDate(2025, 8, 5), domain.NewDate(2025, 8, 9))

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			if err := repo.CreateBooking(txCtx, a); err != nil {
				return err
			}
			return repo.CreateBooking(txCtx, b)
		})
		var cerr *domain.ConflictError
		if !errors.As(err, &cerr) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if cerr.BookingID != a.ID || cerr.RequesterName != "anna" || cerr.Status != domain.StatusPending {
			t.Fatalf("unexpected conflict: %+v", cerr)
		}
	})

	t.Run("LockCalendar needs a transaction", func(t *testing.T) {
		if err := repo.LockCalendar(context.Background()); !errors.Is(err, errNoTx) {
			t.Fatalf("expected errNoTx, got %v", err)
		}
	})

	t.Run("AppendEvents keeps append order", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		b := newBooking("anna", domain.NewDate(2025, 8, 1), domain.NewDate(2025, 8, 5))
		events := []domain.TimelineEvent{
			{ID: uuid.NewString(), BookingID: b.ID, Kind: domain.EventSubmitted, Actor: domain.ActorRequester, ActorName: "anna", At: testNow},
			{ID: uuid.NewString(), BookingID: b.ID, Kind: domain.EventApproved, Actor: domain.ActorReviewer, ActorName: "Ingeborg", At: testNow},
		}
		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			if err := repo.CreateBooking(txCtx, b); err != nil {
				return err
			}
			return repo.AppendEvents(txCtx, events)
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}

		got, err := queries.ListEvents(ctx, b.ID)
		if err != nil {
			t.Fatalf("list events: %v", err)
		}
		if len(got) != 2 || got[0].ID != events[0].ID || got[1].Kind != domain.EventApproved {
			t.Fatalf("unexpected events: %+v", got)
		}
	})
}

func TestBookingServices_Postgres(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)

	repo := NewBookingRepository(pool)
	queries := app.NewQueryService(NewQueryRepository(pool), clock.NewFixed(testNow))
	bookings := app.NewBookingService(repo, clock.NewFixed(testNow))
	decisions := app.NewDecisionService(repo, clock.NewFixed(testNow))

	input := func(name string, start, end time.Time) app.CreateBookingInput {
		return app.CreateBookingInput{
			Range:          domain.MustDateRange(start, end),
			PartySize:      4,
			RequesterName:  name,
			RequesterEmail: name + "@example.com",
			Affiliation:    domain.ReviewerIngeborg,
		}
	}

	t.Run("concurrent overlapping creates have one winner", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		const n = 6
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners []string
			losers  []*domain.ConflictError
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res, err := bookings.CreateBooking(ctx, input("Guest", domain.NewDate(2025, 8, 1+i%2), domain.NewDate(2025, 8, 5)))
				mu.Lock()
				defer mu.Unlock()
				var cerr *domain.ConflictError
				switch {
				case err == nil:
					winners = append(winners, res.Booking.ID)
				case errors.As(err, &cerr):
					losers = append(losers, cerr)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()

		if len(winners) != 1 || len(losers) != n-1 {
			t.Fatalf("expected 1 winner and %d losers, got %d and %d", n-1, len(winners), len(losers))
		}
		for _, l := range losers {
			if l.BookingID != winners[0] {
				t.Fatalf("loser references %s, winner is %s", l.BookingID, winners[0])
			}
		}
	})

	t.Run("deny then reopen on occupied dates", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		a, err := bookings.CreateBooking(ctx, input("Anna", domain.NewDate(2025, 8, 1), domain.NewDate(2025, 8, 5)))
		if err != nil {
			t.Fatalf("create A: %v", err)
		}
		if _, err := decisions.RecordDecision(ctx, app.RecordDecisionInput{
			BookingID: a.Booking.ID, Reviewer: domain.ReviewerAngelika, Decision: domain.DecisionDenied, Comment: "conflict",
		}); err != nil {
			t.Fatalf("deny: %v", err)
		}

		blocking, err := queries.ListBlockingRanges(ctx, domain.NewDate(2025, 8, 1), domain.NewDate(2025, 8, 5))
		if err != nil {
			t.Fatalf("list blocking: %v", err)
		}
		if len(blocking) != 0 {
			t.Fatalf("denied booking still blocks: %+v", blocking)
		}

		if _, err := bookings.CreateBooking(ctx, input("Carla", domain.NewDate(2025, 8, 1), domain.NewDate(2025, 8, 5))); err != nil {
			t.Fatalf("create C: %v", err)
		}

		_, err = bookings.ReopenBooking(ctx, app.ReopenBookingInput{BookingID: a.Booking.ID, ActorEmail: "anna@example.com"})
		var cerr *domain.ConflictError
		if !errors.As(err, &cerr) || cerr.RequesterName != "Carla" {
			t.Fatalf("expected conflict with Carla, got %v", err)
		}

		got, err := queries.GetBooking(ctx, a.Booking.ID)
		if err != nil {
			t.Fatalf("get A: %v", err)
		}
		if got.Status != domain.StatusDenied {
			t.Fatalf("expected A to stay Denied, got %s", got.Status)
		}
		if n := testutil.CountEvents(t, ctx, pool, a.Booking.ID, string(domain.EventReopened)); n != 0 {
			t.Fatalf("expected no reopened event, got %d", n)
		}
	})

	t.Run("repeated decision writes one event", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		a, err := bookings.CreateBooking(ctx, input("Anna", domain.NewDate(2025, 8, 1), domain.NewDate(2025, 8, 5)))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		for i := 0; i < 2; i++ {
			if _, err := decisions.RecordDecision(ctx, app.RecordDecisionInput{
				BookingID: a.Booking.ID, Reviewer: domain.ReviewerIngeborg, Decision: domain.DecisionApproved,
			}); err != nil {
				t.Fatalf("approve #%d: %v", i+1, err)
			}
		}
		if n := testutil.CountEvents(t, ctx, pool, a.Booking.ID, string(domain.EventApproved)); n != 1 {
			t.Fatalf("expected 1 approved event, got %d", n)
		}
	})
}
