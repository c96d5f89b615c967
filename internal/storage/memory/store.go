// Package memory is a process-local store with the same transactional and
// locking guarantees as the Postgres store. Transactions are serialized by a
// single mutex and rolled back from a snapshot when they fail.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cimillas/hut-booking/internal/conflict"
	"github.com/cimillas/hut-booking/internal/domain"
)

type txKey struct{}

type storedEvent struct {
	event     domain.TimelineEvent
	published bool
}

type Store struct {
	mu       sync.Mutex
	bookings map[string]domain.Booking
	keys     map[string]string
	events   []storedEvent
	index    *conflict.Index
}

func NewStore() *Store {
	return &Store{
		bookings: make(map[string]domain.Booking),
		keys:     make(map[string]string),
		index:    conflict.NewIndex(),
	}
}

type snapshot struct {
	bookings map[string]domain.Booking
	keys     map[string]string
	events   []storedEvent
}

// WithTx runs fn while holding the store lock. Nested calls join the outer
// transaction. Any error restores the state from before fn ran.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// LockCalendar is a no-op: the store lock already serializes every
// transaction.
func (s *Store) LockCalendar(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) GetBookingForUpdate(ctx context.Context, id string) (domain.Booking, error) {
	defer s.lock(ctx)()
	return s.get(id)
}

func (s *Store) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	defer s.lock(ctx)()
	return s.get(id)
}

func (s *Store) FindBookingByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error) {
	defer s.lock(ctx)()
	id, ok := s.keys[key]
	if !ok {
		return nil, nil
	}
	b := s.bookings[id]
	return &b, nil
}

func (s *Store) FindConflicts(ctx context.Context, r domain.DateRange, excludeID string) ([]domain.Booking, error) {
	defer s.lock(ctx)()
	return s.overlapping(r, excludeID), nil
}

func (s *Store) CreateBooking(ctx context.Context, b domain.Booking) error {
	defer s.lock(ctx)()
	if _, ok := s.bookings[b.ID]; ok {
		return domain.ErrIdempotencyConflict
	}
	if b.IdempotencyKey != "" {
		if _, ok := s.keys[b.IdempotencyKey]; ok {
			return domain.ErrIdempotencyConflict
		}
	}
	if err := s.occupy(b); err != nil {
		return err
	}
	s.bookings[b.ID] = b
	if b.IdempotencyKey != "" {
		s.keys[b.IdempotencyKey] = b.ID
	}
	return nil
}

func (s *Store) UpdateBooking(ctx context.Context, b domain.Booking) error {
	defer s.lock(ctx)()
	if _, ok := s.bookings[b.ID]; !ok {
		return domain.ErrBookingNotFound
	}
	if err := s.occupy(b); err != nil {
		return err
	}
	s.bookings[b.ID] = b
	return nil
}

func (s *Store) AppendEvents(ctx context.Context, events []domain.TimelineEvent) error {
	defer s.lock(ctx)()
	for _, e := range events {
		s.events = append(s.events, storedEvent{event: e})
	}
	return nil
}

func (s *Store) ListBlocking(ctx context.Context, window domain.DateRange) ([]domain.Booking, error) {
	defer s.lock(ctx)()
	return s.overlapping(window, ""), nil
}

func (s *Store) ListOutstanding(ctx context.Context, r domain.Reviewer, limit int) ([]domain.Booking, error) {
	defer s.lock(ctx)()
	return s.byActivity(limit, func(b domain.Booking) bool {
		return b.Status == domain.StatusPending && b.Approvals.Get(r).Decision == domain.DecisionNoResponse
	}), nil
}

// ListHistory returns every booking: each one carries a slot for every
// reviewer.
func (s *Store) ListHistory(ctx context.Context, r domain.Reviewer, limit int) ([]domain.Booking, error) {
	defer s.lock(ctx)()
	return s.byActivity(limit, func(b domain.Booking) bool {
		return b.Approvals.Get(r).Reviewer == r
	}), nil
}

func (s *Store) ListByRequester(ctx context.Context, email string, limit int) ([]domain.Booking, error) {
	defer s.lock(ctx)()
	return s.byActivity(limit, func(b domain.Booking) bool {
		return b.Requester.Is(email)
	}), nil
}

func (s *Store) ListEvents(ctx context.Context, bookingID string) ([]domain.TimelineEvent, error) {
	defer s.lock(ctx)()
	var out []domain.TimelineEvent
	for _, e := range s.events {
		if e.event.BookingID == bookingID {
			out = append(out, e.event)
		}
	}
	return out, nil
}

// ListUnpublished returns committed events not yet handed to a publisher, in
// append order.
func (s *Store) ListUnpublished(ctx context.Context, limit int) ([]domain.TimelineEvent, error) {
	defer s.lock(ctx)()
	var out []domain.TimelineEvent
	for _, e := range s.events {
		if e.published {
			continue
		}
		out = append(out, e.event)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkPublished(ctx context.Context, ids []string) error {
	defer s.lock(ctx)()
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for i := range s.events {
		if _, ok := want[s.events[i].event.ID]; ok {
			s.events[i].published = true
		}
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock takes the store lock unless ctx already runs inside one of its
// transactions, and returns the matching unlock.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) get(id string) (domain.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Booking{}, domain.ErrInvalidID
	}
	b, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return b, nil
}

// occupy keeps the index in step with b's status and refuses an overlap the
// caller failed to check for.
func (s *Store) occupy(b domain.Booking) error {
	if !b.Blocking() {
		s.index.Remove(b.ID)
		return nil
	}
	if ids := s.index.Overlapping(b.Range, b.ID); len(ids) > 0 {
		holder := s.bookings[ids[0]]
		return &domain.ConflictError{BookingID: holder.ID, RequesterName: holder.Requester.Name, Status: holder.Status}
	}
	s.index.Put(b.ID, b.Range)
	return nil
}

func (s *Store) overlapping(r domain.DateRange, excludeID string) []domain.Booking {
	ids := s.index.Overlapping(r, excludeID)
	out := make([]domain.Booking, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.bookings[id])
	}
	return out
}

func (s *Store) byActivity(limit int, keep func(domain.Booking) bool) []domain.Booking {
	var out []domain.Booking
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivityAt.Equal(out[j].LastActivityAt) {
			return out[i].LastActivityAt.After(out[j].LastActivityAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		bookings: make(map[string]domain.Booking, len(s.bookings)),
		keys:     make(map[string]string, len(s.keys)),
		events:   append([]storedEvent(nil), s.events...),
	}
	for id, b := range s.bookings {
		snap.bookings[id] = b
	}
	for k, id := range s.keys {
		snap.keys[k] = id
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.bookings = snap.bookings
	s.keys = snap.keys
	s.events = snap.events
	s.index = conflict.NewIndex()
	for id, b := range s.bookings {
		if b.Blocking() {
			s.index.Put(id, b.Range)
		}
	}
}
