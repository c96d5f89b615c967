package http

import (
	"context"
	"net/http"

	"github.com/cimillas/hut-booking/internal/auth"
	"github.com/cimillas/hut-booking/internal/domain"
)

// ReviewerLists serves a reviewer's work queues.
type ReviewerLists interface {
	ListOutstandingForReviewer(ctx context.Context, r domain.Reviewer) ([]domain.Booking, error)
	ListHistoryForReviewer(ctx context.Context, r domain.Reviewer) ([]domain.Booking, error)
}

// HandleReviewerOutstanding lists pending bookings awaiting the caller.
func HandleReviewerOutstanding(svc ReviewerLists) http.HandlerFunc {
	return reviewerList(svc.ListOutstandingForReviewer)
}

// HandleReviewerHistory lists every booking the caller holds a slot in.
func HandleReviewerHistory(svc ReviewerLists) http.HandlerFunc {
	return reviewerList(svc.ListHistoryForReviewer)
}

func reviewerList(list func(context.Context, domain.Reviewer) ([]domain.Booking, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requireRole(w, r, auth.RoleReviewer)
		if !ok {
			return
		}
		bookings, err := list(r.Context(), p.Reviewer)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toBookingList(bookings))
	}
}
