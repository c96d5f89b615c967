package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cimillas/hut-booking/internal/domain"
)

const maxCalendarDays = 400

// CalendarReader lists the bookings that occupy dates.
type CalendarReader interface {
	ListBlockingRanges(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Booking, error)
	ListCalendarMonth(ctx context.Context, year int, month time.Month) ([]domain.Booking, error)
}

// HandleCalendar serves the public occupancy view, either for
// ?from=YYYY-MM-DD&to=YYYY-MM-DD or for ?year=&month=.
func HandleCalendar(svc CalendarReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var (
			bookings []domain.Booking
			err      error
		)
		switch {
		case q.Get("year") != "" || q.Get("month") != "":
			year, yerr := strconv.Atoi(q.Get("year"))
			month, merr := strconv.Atoi(q.Get("month"))
			if yerr != nil || merr != nil {
				writeErrorResponse(w, http.StatusBadRequest, errorResponse{
					Error: "year and month must be numbers",
					Code:  codeValidationFailed,
					Field: "month",
				})
				return
			}
			bookings, err = svc.ListCalendarMonth(r.Context(), year, time.Month(month))
		default:
			if q.Get("from") == "" || q.Get("to") == "" {
				writeErrorResponse(w, http.StatusBadRequest, errorResponse{
					Error: "from and to are required",
					Code:  codeValidationFailed,
					Field: "from",
				})
				return
			}
			window, perr := parseRange(q.Get("from"), q.Get("to"))
			if perr != nil {
				writeServiceError(w, perr)
				return
			}
			if window.Days() > maxCalendarDays {
				writeErrorResponse(w, http.StatusBadRequest, errorResponse{
					Error: "window must not exceed " + strconv.Itoa(maxCalendarDays) + " days",
					Code:  codeValidationFailed,
					Field: "to",
				})
				return
			}
			bookings, err = svc.ListBlockingRanges(r.Context(), window.Start, window.End)
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := make([]publicBookingResponse, 0, len(bookings))
		for _, b := range bookings {
			resp = append(resp, toPublicBookingResponse(b))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
