package app

import (
	"context"
	"strings"
	"time"

	"github.com/cimillas/hut-booking/internal/clock"
	"github.com/cimillas/hut-booking/internal/domain"
)

// BookingRepository is the transactional store behind requester operations.
// LockCalendar serializes every transaction that may occupy new dates and
// must be taken before any booking row lock.
type BookingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockCalendar(ctx context.Context) error
	GetBookingForUpdate(ctx context.Context, id string) (domain.Booking, error)
	FindBookingByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error)
	FindConflicts(ctx context.Context, r domain.DateRange, excludeID string) ([]domain.Booking, error)
	CreateBooking(ctx context.Context, b domain.Booking) error
	UpdateBooking(ctx context.Context, b domain.Booking) error
	AppendEvents(ctx context.Context, events []domain.TimelineEvent) error
}

type BookingService struct {
	repo      BookingRepository
	clock     clock.Clock
	loc       *time.Location
	policy    domain.Policy
	reviewers ReviewerDirectory
}

func NewBookingService(repo BookingRepository, clk clock.Clock, opts ...BookingServiceOption) *BookingService {
	svc := &BookingService{
		repo:   repo,
		clock:  clk,
		loc:    time.UTC,
		policy: domain.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type BookingServiceOption func(*BookingService)

// WithLocation sets the zone that decides which civil date is today.
func WithLocation(loc *time.Location) BookingServiceOption {
	return func(s *BookingService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithPolicy(p domain.Policy) BookingServiceOption {
	return func(s *BookingService) {
		s.policy = p
	}
}

// WithReviewerDirectory enables self-review for requesters whose e-mail
// belongs to a reviewer.
func WithReviewerDirectory(d ReviewerDirectory) BookingServiceOption {
	return func(s *BookingService) {
		s.reviewers = d
	}
}

type CreateBookingInput struct {
	Range             domain.DateRange
	PartySize         int
	RequesterName     string
	RequesterEmail    string
	Affiliation       domain.Reviewer
	Note              string
	LongStayConfirmed bool
	IdempotencyKey    string
}

type CreateBookingResult struct {
	Booking domain.Booking
	Created bool
}

// CreateBooking submits a new pending booking. Overlapping a pending or
// confirmed booking fails with a *domain.ConflictError naming the holder.
// A retried submission carrying the same idempotency key returns the booking
// created by the first attempt.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (CreateBookingResult, error) {
	draft := domain.BookingDraft{
		Range:     in.Range,
		PartySize: in.PartySize,
		Requester: domain.Requester{
			Name:  strings.TrimSpace(in.RequesterName),
			Email: strings.TrimSpace(in.RequesterEmail),
		},
		Affiliation: in.Affiliation,
		Note:        strings.TrimSpace(in.Note),
	}
	today := clock.Today(s.clock, s.loc)
	if err := s.policy.ValidateDraft(draft, in.LongStayConfirmed, today); err != nil {
		return CreateBookingResult{}, err
	}

	now := s.clock.Now()
	self := s.reviewers.Lookup(draft.Requester.Email)
	var result CreateBookingResult

	replay := func(txCtx context.Context) (bool, error) {
		if in.IdempotencyKey == "" {
			return false, nil
		}
		existing, err := s.repo.FindBookingByIdempotencyKey(txCtx, in.IdempotencyKey)
		if err != nil || existing == nil {
			return false, err
		}
		if !existing.Range.Equal(draft.Range) || !existing.Requester.Is(draft.Requester.Email) {
			return false, domain.ErrIdempotencyConflict
		}
		result = CreateBookingResult{Booking: *existing, Created: false}
		return true, nil
	}

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockCalendar(txCtx); err != nil {
			return err
		}
		if done, err := replay(txCtx); err != nil || done {
			return err
		}
		if err := s.checkConflicts(txCtx, draft.Range, ""); err != nil {
			return err
		}

		b, events := domain.NewBooking(newUUID(), draft, self, now)
		b.IdempotencyKey = in.IdempotencyKey
		if err := s.repo.CreateBooking(txCtx, b); err != nil {
			return err
		}
		if err := s.repo.AppendEvents(txCtx, stampEvents(events)); err != nil {
			return err
		}
		result = CreateBookingResult{Booking: b, Created: true}
		return nil
	})
	if err != nil {
		return CreateBookingResult{}, err
	}
	return result, nil
}

type EditBookingInput struct {
	BookingID  string
	ActorEmail string
	Changes    domain.BookingChanges
}

type EditResult struct {
	Booking domain.Booking
	Impact  domain.EditImpact
	Changed bool
}

// EditBooking applies a requester's changes. Extending the stay resets every
// approval; shortening it or changing other fields keeps them.
func (s *BookingService) EditBooking(ctx context.Context, in EditBookingInput) (EditResult, error) {
	today := clock.Today(s.clock, s.loc)
	changes := in.Changes
	if changes.RequesterName != nil {
		name := strings.TrimSpace(*changes.RequesterName)
		changes.RequesterName = &name
	}
	if changes.Note != nil {
		note := strings.TrimSpace(*changes.Note)
		changes.Note = &note
	}

	now := s.clock.Now()
	var result EditResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if changes.Range != nil {
			if err := s.repo.LockCalendar(txCtx); err != nil {
				return err
			}
		}
		b, err := s.loadOwned(txCtx, in.BookingID, in.ActorEmail, today)
		if err != nil {
			return err
		}
		if err := s.policy.ValidateChanges(changes, today); err != nil {
			return err
		}

		out, events, err := b.ApplyChanges(changes, now)
		if err != nil {
			return err
		}
		if !out.Changed {
			result = EditResult{Booking: b, Impact: out.Impact}
			return nil
		}
		if out.Impact != domain.ImpactNone {
			if err := s.checkConflicts(txCtx, b.Range, b.ID); err != nil {
				return err
			}
		}
		if err := s.persist(txCtx, b, events); err != nil {
			return err
		}
		result = EditResult{Booking: b, Impact: out.Impact, Changed: true}
		return nil
	})
	if err != nil {
		return EditResult{}, err
	}
	return result, nil
}

type ReopenBookingInput struct {
	BookingID  string
	ActorEmail string
	NewRange   *domain.DateRange
}

type ReopenResult struct {
	Booking domain.Booking
	Changed bool
}

// ReopenBooking moves a denied booking back to pending with fresh approvals.
// The reopened range must be free; on conflict the booking stays denied.
func (s *BookingService) ReopenBooking(ctx context.Context, in ReopenBookingInput) (ReopenResult, error) {
	today := clock.Today(s.clock, s.loc)
	now := s.clock.Now()
	var result ReopenResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockCalendar(txCtx); err != nil {
			return err
		}
		b, err := s.loadOwned(txCtx, in.BookingID, in.ActorEmail, today)
		if err != nil {
			return err
		}
		if in.NewRange != nil {
			if err := s.policy.ValidateRange(*in.NewRange, today); err != nil {
				return err
			}
		}

		self := s.reviewers.Lookup(b.Requester.Email)
		changed, events, err := b.Reopen(in.NewRange, self, now)
		if err != nil {
			return err
		}
		if !changed {
			result = ReopenResult{Booking: b}
			return nil
		}
		if err := s.checkConflicts(txCtx, b.Range, b.ID); err != nil {
			return err
		}
		if err := s.persist(txCtx, b, events); err != nil {
			return err
		}
		result = ReopenResult{Booking: b, Changed: true}
		return nil
	})
	if err != nil {
		return ReopenResult{}, err
	}
	return result, nil
}

type CancelBookingInput struct {
	BookingID  string
	ActorEmail string
	Comment    string
}

type CancelResult struct {
	Booking domain.Booking
	Changed bool
}

// CancelBooking withdraws a pending or confirmed booking and frees its dates.
func (s *BookingService) CancelBooking(ctx context.Context, in CancelBookingInput) (CancelResult, error) {
	comment := strings.TrimSpace(in.Comment)
	if err := s.policy.ValidateComment(comment); err != nil {
		return CancelResult{}, err
	}

	today := clock.Today(s.clock, s.loc)
	now := s.clock.Now()
	var result CancelResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.loadOwned(txCtx, in.BookingID, in.ActorEmail, today)
		if err != nil {
			return err
		}
		changed, events, err := b.Cancel(comment, now)
		if err != nil {
			return err
		}
		if changed {
			if err := s.persist(txCtx, b, events); err != nil {
				return err
			}
		}
		result = CancelResult{Booking: b, Changed: changed}
		return nil
	})
	if err != nil {
		return CancelResult{}, err
	}
	return result, nil
}

// loadOwned locks the booking row and applies the guards shared by every
// requester operation: the past-item guard, then ownership.
func (s *BookingService) loadOwned(ctx context.Context, id, actorEmail string, today time.Time) (domain.Booking, error) {
	b, err := s.repo.GetBookingForUpdate(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if b.IsPast(today) {
		return domain.Booking{}, domain.ErrPastItem
	}
	if !b.Requester.Is(actorEmail) {
		return domain.Booking{}, domain.ErrForbidden
	}
	return b, nil
}

func (s *BookingService) checkConflicts(ctx context.Context, r domain.DateRange, excludeID string) error {
	conflicts, err := s.repo.FindConflicts(ctx, r, excludeID)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		return nil
	}
	winner := conflicts[0]
	return &domain.ConflictError{
		BookingID:     winner.ID,
		RequesterName: winner.Requester.Name,
		Status:        winner.Status,
	}
}

func (s *BookingService) persist(ctx context.Context, b domain.Booking, events []domain.TimelineEvent) error {
	if err := s.repo.UpdateBooking(ctx, b); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	return s.repo.AppendEvents(ctx, stampEvents(events))
}
