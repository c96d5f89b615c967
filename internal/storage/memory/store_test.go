package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimillas/hut-booking/internal/domain"
)

var now = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

func newBooking(t *testing.T, name string, start, end time.Time) domain.Booking {
	t.Helper()
	b, _ := domain.NewBooking(uuid.NewString(), domain.BookingDraft{
		Range:       domain.MustDateRange(start, end),
		PartySize:   2,
		Requester:   domain.Requester{Name: name, Email: name + "@example.com"},
		Affiliation: domain.ReviewerIngeborg,
	}, domain.NoReviewer, now)
	return b
}

func TestStore_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	a := newBooking(t, "anna", domain.NewDate(2025, 8, 1), domain.NewDate(2025, 8, 5))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, s.CreateBooking(txCtx, a))
		require.NoError(t, s.AppendEvents(txCtx, []domain.TimelineEvent{{ID: "e1", BookingID: a.ID, Kind: domain.EventSubmitted}}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetBooking(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
	blocking, err := s.ListBlocking(ctx, a.Range)
	require.NoError(t, err)
	assert.Empty(t, blocking)
	pending, err := s.ListUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestStore_RefusesOverlapWithoutCheck(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	a := newBooking(t, "anna", domain.NewDate(2025, 8, 1), domain.NewDate(2025, 8, 5))
	b := newBooking(t, "bert", domain.NewDate(2025, 8, 5), domain.NewDate(2025, 8, 8))

	require.NoError(t, s.CreateBooking(ctx, a))
	err := s.CreateBooking(ctx, b)

	var cerr *domain.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, a.ID, cerr.BookingID)
	assert.Equal(t, "anna", cerr.RequesterName)
	assert.Equal(t, domain.StatusPending, cerr.Status)
}

func TestStore_StatusChangeFreesRange(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	a := newBooking(t, "anna", domain.NewDate(2025, 8, 1), domain.NewDate(2025, 8, 5))
	require.NoError(t, s.CreateBooking(ctx, a))

	_, _, err := a.Cancel("", now)
	require.NoError(t, err)
	require.NoError(t, s.UpdateBooking(ctx, a))

	conflicts, err := s.FindConflicts(ctx, a.Range, "")
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	got, err := s.GetBooking(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, got.Status)
}

func TestStore_GetBookingRejectsMalformedID(t *testing.T) {
	_, err := NewStore().GetBookingForUpdate(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestStore_ListsOrderByActivity(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	older := newBooking(t, "anna", domain.NewDate(2025, 8, 1), domain.NewDate(2025, 8, 2))
	newer := newBooking(t, "bert", domain.NewDate(2025, 9, 1), domain.NewDate(2025, 9, 2))
	newer.LastActivityAt = now.Add(time.Hour)
	decided := newBooking(t, "carla", domain.NewDate(2025, 10, 1), domain.NewDate(2025, 10, 2))
	_, _, err := decided.Decide(domain.ReviewerCornelia, domain.DecisionApproved, "", now.Add(2*time.Hour))
	require.NoError(t, err)

	for _, b := range []domain.Booking{older, newer, decided} {
		require.NoError(t, s.CreateBooking(ctx, b))
	}

	outstanding, err := s.ListOutstanding(ctx, domain.ReviewerCornelia, 10)
	require.NoError(t, err)
	require.Len(t, outstanding, 2)
	assert.Equal(t, newer.ID, outstanding[0].ID)
	assert.Equal(t, older.ID, outstanding[1].ID)

	history, err := s.ListHistory(ctx, domain.ReviewerCornelia, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, decided.ID, history[0].ID)

	mine, err := s.ListByRequester(ctx, "BERT@example.com", 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, newer.ID, mine[0].ID)
}

func TestStore_Outbox(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.AppendEvents(ctx, []domain.TimelineEvent{
		{ID: "e1", BookingID: "b"}, {ID: "e2", BookingID: "b"}, {ID: "e3", BookingID: "b"},
	}))

	batch, err := s.ListUnpublished(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "e1", batch[0].ID)

	require.NoError(t, s.MarkPublished(ctx, []string{"e1", "e2"}))
	batch, err = s.ListUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "e3", batch[0].ID)
}
