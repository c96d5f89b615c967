package http

import (
	"context"
	"net/http"

	"github.com/cimillas/hut-booking/internal/app"
	"github.com/cimillas/hut-booking/internal/auth"
	"github.com/cimillas/hut-booking/internal/domain"
)

// DecisionRecorder is the minimal interface needed to approve or deny.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, in app.RecordDecisionInput) (app.DecisionResult, error)
}

type decisionResponse struct {
	Booking  bookingResponse `json:"booking"`
	Outcome  string          `json:"outcome"`
	DeniedBy string          `json:"denied_by,omitempty"`
}

// HandleRecordDecision records the token holder's decision. A decision that
// changes nothing still answers 200 and reports why through outcome.
func HandleRecordDecision(svc DecisionRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requireRole(w, r, auth.RoleReviewer)
		if !ok {
			return
		}
		var req decisionRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		decision, err := req.parse()
		if err != nil {
			writeServiceError(w, err)
			return
		}

		res, err := svc.RecordDecision(r.Context(), app.RecordDecisionInput{
			BookingID: r.PathValue("id"),
			Reviewer:  p.Reviewer,
			Decision:  decision,
			Comment:   req.Comment,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := decisionResponse{
			Booking: toBookingResponse(res.Booking),
			Outcome: string(res.Outcome),
		}
		if res.Outcome == domain.OutcomeAlreadyDenied {
			resp.DeniedBy = res.DeniedBy.String()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
