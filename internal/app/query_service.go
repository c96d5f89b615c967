package app

import (
	"context"
	"strings"
	"time"

	"github.com/cimillas/hut-booking/internal/clock"
	"github.com/cimillas/hut-booking/internal/domain"
)

// QueryRepository serves read-only views. Lists ordered by activity use
// LastActivityAt descending.
type QueryRepository interface {
	GetBooking(ctx context.Context, id string) (domain.Booking, error)
	ListBlocking(ctx context.Context, window domain.DateRange) ([]domain.Booking, error)
	ListOutstanding(ctx context.Context, r domain.Reviewer, limit int) ([]domain.Booking, error)
	ListHistory(ctx context.Context, r domain.Reviewer, limit int) ([]domain.Booking, error)
	ListByRequester(ctx context.Context, email string, limit int) ([]domain.Booking, error)
	ListEvents(ctx context.Context, bookingID string) ([]domain.TimelineEvent, error)
}

const (
	defaultOutstandingLimit = 50
	defaultHistoryLimit     = 100
)

type QueryService struct {
	repo             QueryRepository
	clock            clock.Clock
	loc              *time.Location
	outstandingLimit int
	historyLimit     int
}

func NewQueryService(repo QueryRepository, clk clock.Clock, opts ...QueryServiceOption) *QueryService {
	svc := &QueryService{
		repo:             repo,
		clock:            clk,
		loc:              time.UTC,
		outstandingLimit: defaultOutstandingLimit,
		historyLimit:     defaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type QueryServiceOption func(*QueryService)

func WithQueryLocation(loc *time.Location) QueryServiceOption {
	return func(s *QueryService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithListLimits caps the reviewer and requester lists. Non-positive values
// keep the defaults.
func WithListLimits(outstanding, history int) QueryServiceOption {
	return func(s *QueryService) {
		if outstanding > 0 {
			s.outstandingLimit = outstanding
		}
		if history > 0 {
			s.historyLimit = history
		}
	}
}

func (s *QueryService) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

// ListBlockingRanges returns pending and confirmed bookings intersecting the
// inclusive window, ordered by start date. A booking that starts before the
// window and ends inside or after it is included.
func (s *QueryService) ListBlockingRanges(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	window, err := domain.NewDateRange(windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	return s.repo.ListBlocking(ctx, window)
}

// ListCalendarMonth is ListBlockingRanges over one calendar month.
func (s *QueryService) ListCalendarMonth(ctx context.Context, year int, month time.Month) ([]domain.Booking, error) {
	if month < time.January || month > time.December {
		return nil, &domain.ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	}
	first := domain.NewDate(year, month, 1)
	last := first.AddDate(0, 1, -1)
	return s.ListBlockingRanges(ctx, first, last)
}

// ListOutstandingForReviewer returns pending bookings still waiting for r.
func (s *QueryService) ListOutstandingForReviewer(ctx context.Context, r domain.Reviewer) ([]domain.Booking, error) {
	if !r.Valid() {
		return nil, domain.ErrUnknownReviewer
	}
	return s.repo.ListOutstanding(ctx, r, s.outstandingLimit)
}

// ListHistoryForReviewer returns every booking r holds a slot in, in any
// status.
func (s *QueryService) ListHistoryForReviewer(ctx context.Context, r domain.Reviewer) ([]domain.Booking, error) {
	if !r.Valid() {
		return nil, domain.ErrUnknownReviewer
	}
	return s.repo.ListHistory(ctx, r, s.historyLimit)
}

func (s *QueryService) ListForRequester(ctx context.Context, email string) ([]domain.Booking, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, &domain.ValidationError{Field: "email", Reason: "required"}
	}
	return s.repo.ListByRequester(ctx, email, s.outstandingLimit)
}

func (s *QueryService) Timeline(ctx context.Context, bookingID string) ([]domain.TimelineEvent, error) {
	if _, err := s.repo.GetBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, bookingID)
}

// IsPast reports whether b can no longer be changed.
func (s *QueryService) IsPast(b domain.Booking) bool {
	return b.IsPast(clock.Today(s.clock, s.loc))
}
