package app

import (
	"context"
	"strings"
	"time"

	"github.com/cimillas/hut-booking/internal/clock"
	"github.com/cimillas/hut-booking/internal/domain"
)

type DecisionRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetBookingForUpdate(ctx context.Context, id string) (domain.Booking, error)
	UpdateBooking(ctx context.Context, b domain.Booking) error
	AppendEvents(ctx context.Context, events []domain.TimelineEvent) error
}

type DecisionService struct {
	repo   DecisionRepository
	clock  clock.Clock
	loc    *time.Location
	policy domain.Policy
}

func NewDecisionService(repo DecisionRepository, clk clock.Clock, opts ...DecisionServiceOption) *DecisionService {
	svc := &DecisionService{
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

type DecisionServiceOption func(*DecisionService)

func WithDecisionLocation(loc *time.Location) DecisionServiceOption {
	return func(s *DecisionService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithDecisionPolicy(p domain.Policy) DecisionServiceOption {
	return func(s *DecisionService) {
		s.policy = p
	}
}

type RecordDecisionInput struct {
	BookingID string
	Reviewer  domain.Reviewer
	Decision  domain.Decision
	Comment   string
}

// DecisionResult reports the booking after the decision. When Outcome is
// OutcomeAlreadyDenied, DeniedBy names the reviewer whose denial came first.
type DecisionResult struct {
	Booking  domain.Booking
	Outcome  domain.DecisionOutcome
	DeniedBy domain.Reviewer
}

// RecordDecision applies a reviewer's approval or denial. The booking row is
// locked for the whole transaction, so of two racing decisions the second
// one sees the state left by the first.
func (s *DecisionService) RecordDecision(ctx context.Context, in RecordDecisionInput) (DecisionResult, error) {
	if !in.Reviewer.Valid() {
		return DecisionResult{}, domain.ErrUnknownReviewer
	}
	comment := strings.TrimSpace(in.Comment)
	if err := s.policy.ValidateComment(comment); err != nil {
		return DecisionResult{}, err
	}

	today := clock.Today(s.clock, s.loc)
	now := s.clock.Now()
	var result DecisionResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.repo.GetBookingForUpdate(txCtx, in.BookingID)
		if err != nil {
			return err
		}
		if b.IsPast(today) {
			return domain.ErrPastItem
		}

		outcome, events, err := b.Decide(in.Reviewer, in.Decision, comment, now)
		if err != nil {
			return err
		}
		if outcome == domain.OutcomeRecorded {
			if err := s.repo.UpdateBooking(txCtx, b); err != nil {
				return err
			}
			if err := s.repo.AppendEvents(txCtx, stampEvents(events)); err != nil {
				return err
			}
		}

		result = DecisionResult{Booking: b, Outcome: outcome}
		if by, ok := b.Approvals.DeniedBy(); ok {
			result.DeniedBy = by
		}
		return nil
	})
	if err != nil {
		return DecisionResult{}, err
	}
	return result, nil
}
