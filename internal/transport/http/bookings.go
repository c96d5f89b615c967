package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/cimillas/hut-booking/internal/app"
	"github.com/cimillas/hut-booking/internal/auth"
	"github.com/cimillas/hut-booking/internal/domain"
)

// BookingCreator is the minimal interface needed to submit bookings.
type BookingCreator interface {
	CreateBooking(ctx context.Context, in app.CreateBookingInput) (app.CreateBookingResult, error)
}

// BookingReader loads a single booking.
type BookingReader interface {
	GetBooking(ctx context.Context, id string) (domain.Booking, error)
	IsPast(b domain.Booking) bool
}

type BookingEditor interface {
	EditBooking(ctx context.Context, in app.EditBookingInput) (app.EditResult, error)
}

type BookingCanceler interface {
	CancelBooking(ctx context.Context, in app.CancelBookingInput) (app.CancelResult, error)
}

type BookingReopener interface {
	ReopenBooking(ctx context.Context, in app.ReopenBookingInput) (app.ReopenResult, error)
}

type TimelineReader interface {
	Timeline(ctx context.Context, bookingID string) ([]domain.TimelineEvent, error)
}

type RequesterBookings interface {
	ListForRequester(ctx context.Context, email string) ([]domain.Booking, error)
}

type createBookingResponse struct {
	Booking     bookingResponse `json:"booking"`
	ManageToken string          `json:"manage_token,omitempty"`
}

// HandleCreateBooking returns an HTTP handler for submitting bookings. The
// response carries a requester token scoped to the new booking when tokens
// is non-nil.
func HandleCreateBooking(svc BookingCreator, tokens TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createBookingRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		rng, err := parseRange(req.StartDate, req.EndDate)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		affiliation, err := domain.ParseReviewer(req.Affiliation)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, errorResponse{
				Error: err.Error(),
				Code:  codeUnknownReviewer,
				Field: "affiliation",
			})
			return
		}

		res, err := svc.CreateBooking(r.Context(), app.CreateBookingInput{
			Range:             rng,
			PartySize:         req.PartySize,
			RequesterName:     req.RequesterName,
			RequesterEmail:    req.RequesterEmail,
			Affiliation:       affiliation,
			Note:              req.Note,
			LongStayConfirmed: req.LongStayConfirmed,
			IdempotencyKey:    strings.TrimSpace(r.Header.Get(idempotencyHeader)),
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		// A replayed key does not prove the caller owns the booking, so only
		// the request that created it receives a manage token.
		resp := createBookingResponse{Booking: toBookingResponse(res.Booking)}
		if tokens != nil && res.Created {
			token, err := tokens.Issue(auth.Principal{
				Role:      auth.RoleRequester,
				Email:     res.Booking.Requester.Email,
				BookingID: res.Booking.ID,
			})
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			resp.ManageToken = token
		}

		status := http.StatusOK
		if res.Created {
			status = http.StatusCreated
		}
		writeJSON(w, status, resp)
	}
}

// HandleGetBooking returns the full booking to its requester and to
// reviewers, and the public view to everyone else. Denied and canceled
// bookings have no public view.
func HandleGetBooking(svc BookingReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := svc.GetBooking(r.Context(), r.PathValue("id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if !canSeeDetails(r, b) {
			if !b.Blocking() {
				writeError(w, http.StatusNotFound, codeBookingNotFound, "booking not found")
				return
			}
			writeJSON(w, http.StatusOK, toPublicBookingResponse(b))
			return
		}
		resp := toBookingResponse(b)
		past := svc.IsPast(b)
		resp.IsPast = &past
		writeJSON(w, http.StatusOK, resp)
	}
}

func canSeeDetails(r *http.Request, b domain.Booking) bool {
	p, ok := principalFrom(r.Context())
	if !ok {
		return false
	}
	switch p.Role {
	case auth.RoleReviewer:
		return true
	case auth.RoleRequester:
		return p.CanAccess(b.ID) && b.Requester.Is(p.Email)
	}
	return false
}

type editBookingResponse struct {
	Booking bookingResponse `json:"booking"`
	Impact  string          `json:"impact"`
	Changed bool            `json:"changed"`
}

// HandleEditBooking applies a requester's partial update.
func HandleEditBooking(svc BookingEditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		p, ok := requireRequesterFor(w, r, id)
		if !ok {
			return
		}
		var req editBookingRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		changes, err := req.changes()
		if err != nil {
			writeServiceError(w, err)
			return
		}

		res, err := svc.EditBooking(r.Context(), app.EditBookingInput{
			BookingID:  id,
			ActorEmail: p.Email,
			Changes:    changes,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, editBookingResponse{
			Booking: toBookingResponse(res.Booking),
			Impact:  res.Impact.String(),
			Changed: res.Changed,
		})
	}
}

func (req editBookingRequest) changes() (domain.BookingChanges, error) {
	rng, err := optionalRange(req.StartDate, req.EndDate)
	if err != nil {
		return domain.BookingChanges{}, err
	}
	changes := domain.BookingChanges{
		Range:         rng,
		PartySize:     req.PartySize,
		RequesterName: req.RequesterName,
		Note:          req.Note,
	}
	if req.Affiliation != nil {
		a, err := domain.ParseReviewer(*req.Affiliation)
		if err != nil {
			return domain.BookingChanges{}, &domain.ValidationError{Field: "affiliation", Reason: err.Error()}
		}
		changes.Affiliation = &a
	}
	return changes, nil
}

type changedBookingResponse struct {
	Booking bookingResponse `json:"booking"`
	Changed bool            `json:"changed"`
}

// HandleCancelBooking withdraws a booking on behalf of its requester.
func HandleCancelBooking(svc BookingCanceler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		p, ok := requireRequesterFor(w, r, id)
		if !ok {
			return
		}
		var req cancelBookingRequest
		if !decodeJSON(w, r, &req, true) {
			return
		}

		res, err := svc.CancelBooking(r.Context(), app.CancelBookingInput{
			BookingID:  id,
			ActorEmail: p.Email,
			Comment:    req.Comment,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, changedBookingResponse{Booking: toBookingResponse(res.Booking), Changed: res.Changed})
	}
}

// HandleReopenBooking moves a denied booking back to pending, optionally
// with new dates.
func HandleReopenBooking(svc BookingReopener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		p, ok := requireRequesterFor(w, r, id)
		if !ok {
			return
		}
		var req reopenBookingRequest
		if !decodeJSON(w, r, &req, true) {
			return
		}
		rng, err := optionalRange(req.StartDate, req.EndDate)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		res, err := svc.ReopenBooking(r.Context(), app.ReopenBookingInput{
			BookingID:  id,
			ActorEmail: p.Email,
			NewRange:   rng,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, changedBookingResponse{Booking: toBookingResponse(res.Booking), Changed: res.Changed})
	}
}

// HandleTimeline lists a booking's events oldest first. Reviewers see every
// timeline; requesters only their own.
func HandleTimeline(bookings BookingReader, svc TimelineReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		p, ok := principalFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "token required")
			return
		}
		if p.Role == auth.RoleRequester {
			b, err := bookings.GetBooking(r.Context(), id)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			if !canSeeDetails(r, b) {
				writeError(w, http.StatusForbidden, codeForbidden, "not permitted for this identity")
				return
			}
		}

		events, err := svc.Timeline(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		resp := make([]timelineEventResponse, 0, len(events))
		for _, e := range events {
			resp = append(resp, timelineEventResponse{
				ID:        e.ID,
				Kind:      string(e.Kind),
				Actor:     string(e.Actor),
				ActorName: e.ActorName,
				Note:      e.Note,
				At:        e.At,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleMyBookings lists the bookings of the requester an unscoped token
// belongs to.
func HandleMyBookings(svc RequesterBookings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requireRole(w, r, auth.RoleRequester)
		if !ok {
			return
		}
		if p.BookingID != "" {
			writeError(w, http.StatusForbidden, codeForbidden, "token is limited to a single booking")
			return
		}
		bookings, err := svc.ListForRequester(r.Context(), p.Email)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toBookingList(bookings))
	}
}
