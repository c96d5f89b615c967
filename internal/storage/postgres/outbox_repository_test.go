package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/cimillas/hut-booking/internal/domain"
	"github.com/cimillas/hut-booking/internal/testutil"
)

func TestOutboxRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewBookingRepository(pool)
	outbox := NewOutboxRepository(pool)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	b := newBooking("anna", domain.NewDate(2025, 8, 1), domain.NewDate(2025, 8, 5))
	var ids []string
	var events []domain.TimelineEvent
	for i := 0; i < 3; i++ {
		id := uuid.NewString()
		ids = append(ids, id)
		events = append(events, domain.TimelineEvent{ID: id, BookingID: b.ID, Kind: domain.EventSubmitted, Actor: domain.ActorRequester, At: testNow})
	}
	err := repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := repo.CreateBooking(txCtx, b); err != nil {
			return err
		}
		return repo.AppendEvents(txCtx, events)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	batch, err := outbox.ListUnpublished(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(batch) != 2 || batch[0].ID != ids[0] || batch[1].ID != ids[1] {
		t.Fatalf("unexpected batch: %+v", batch)
	}

	if err := outbox.MarkPublished(ctx, []string{ids[0], ids[1]}); err != nil {
		t.Fatalf("mark: %v", err)
	}
	batch, err = outbox.ListUnpublished(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(batch) != 1 || batch[0].ID != ids[2] {
		t.Fatalf("expected only the third event, got %+v", batch)
	}

	if err := outbox.MarkPublished(ctx, nil); err != nil {
		t.Fatalf("mark empty: %v", err)
	}
}
