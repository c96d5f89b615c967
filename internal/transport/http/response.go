package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cimillas/hut-booking/internal/domain"
)

type approvalResponse struct {
	Reviewer  string     `json:"reviewer"`
	Decision  string     `json:"decision"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
	Comment   string     `json:"comment,omitempty"`
}

type bookingResponse struct {
	ID             string             `json:"id"`
	StartDate      string             `json:"start_date"`
	EndDate        string             `json:"end_date"`
	TotalDays      int                `json:"total_days"`
	PartySize      int                `json:"party_size"`
	RequesterName  string             `json:"requester_name"`
	RequesterEmail string             `json:"requester_email"`
	Affiliation    string             `json:"affiliation"`
	Status         string             `json:"status"`
	Note           string             `json:"note,omitempty"`
	Approvals      []approvalResponse `json:"approvals"`
	IsPast         *bool              `json:"is_past,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	LastActivityAt time.Time          `json:"last_activity_at"`
}

// publicBookingResponse is what anonymous callers see. It never carries
// the requester's e-mail address.
type publicBookingResponse struct {
	ID            string `json:"id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	TotalDays     int    `json:"total_days"`
	RequesterName string `json:"requester_name"`
	Status        string `json:"status"`
}

type timelineEventResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Actor     string    `json:"actor"`
	ActorName string    `json:"actor_name,omitempty"`
	Note      string    `json:"note,omitempty"`
	At        time.Time `json:"at"`
}

func toBookingResponse(b domain.Booking) bookingResponse {
	approvals := make([]approvalResponse, 0, len(b.Approvals))
	for _, a := range b.Approvals {
		approvals = append(approvals, approvalResponse{
			Reviewer:  a.Reviewer.String(),
			Decision:  string(a.Decision),
			DecidedAt: a.DecidedAt,
			Comment:   a.Comment,
		})
	}
	return bookingResponse{
		ID:             b.ID,
		StartDate:      b.Range.Start.Format(dateLayout),
		EndDate:        b.Range.End.Format(dateLayout),
		TotalDays:      b.TotalDays(),
		PartySize:      b.PartySize,
		RequesterName:  b.Requester.Name,
		RequesterEmail: b.Requester.Email,
		Affiliation:    b.Affiliation.String(),
		Status:         string(b.Status),
		Note:           b.Note,
		Approvals:      approvals,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
		LastActivityAt: b.LastActivityAt,
	}
}

func toPublicBookingResponse(b domain.Booking) publicBookingResponse {
	return publicBookingResponse{
		ID:            b.ID,
		StartDate:     b.Range.Start.Format(dateLayout),
		EndDate:       b.Range.End.Format(dateLayout),
		TotalDays:     b.TotalDays(),
		RequesterName: b.Requester.Name,
		Status:        string(b.Status),
	}
}

func toBookingList(bookings []domain.Booking) []bookingResponse {
	resp := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		resp = append(resp, toBookingResponse(b))
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
