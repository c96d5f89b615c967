package http

import "net/http"

// BookingCommands groups the requester-side write operations.
type BookingCommands interface {
	BookingCreator
	BookingEditor
	BookingCanceler
	BookingReopener
}

// BookingQueries groups the read operations.
type BookingQueries interface {
	BookingReader
	TimelineReader
	RequesterBookings
	CalendarReader
	ReviewerLists
}

type Tokens interface {
	TokenParser
	TokenIssuer
}

// Services are the handlers' dependencies.
type Services struct {
	Bookings  BookingCommands
	Decisions DecisionRecorder
	Queries   BookingQueries
	Tokens    Tokens
}

// NewRouter registers every route on a fresh mux. Unknown paths get the
// JSON 404 and all routes see the principal of a valid token.
func NewRouter(s Services) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", HealthHandler)

	mux.Handle("POST /bookings", HandleCreateBooking(s.Bookings, s.Tokens))
	mux.Handle("GET /bookings/{id}", HandleGetBooking(s.Queries))
	mux.Handle("PATCH /bookings/{id}", HandleEditBooking(s.Bookings))
	mux.Handle("POST /bookings/{id}/cancel", HandleCancelBooking(s.Bookings))
	mux.Handle("POST /bookings/{id}/reopen", HandleReopenBooking(s.Bookings))
	mux.Handle("POST /bookings/{id}/decisions", HandleRecordDecision(s.Decisions))
	mux.Handle("GET /bookings/{id}/timeline", HandleTimeline(s.Queries, s.Queries))

	mux.Handle("GET /calendar", HandleCalendar(s.Queries))
	mux.Handle("GET /requesters/me/bookings", HandleMyBookings(s.Queries))
	mux.Handle("GET /reviewers/me/outstanding", HandleReviewerOutstanding(s.Queries))
	mux.Handle("GET /reviewers/me/history", HandleReviewerHistory(s.Queries))

	mux.Handle("/", NotFoundHandler())

	return Authenticate(s.Tokens, mux)
}
