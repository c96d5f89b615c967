package domain

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusDenied    Status = "Denied"
	StatusCanceled  Status = "Canceled"
)

// Blocking reports whether a booking in this status occupies its dates.
func (s Status) Blocking() bool {
	return s == StatusPending || s == StatusConfirmed
}

// BlockingStatuses are the statuses that take part in conflict detection.
var BlockingStatuses = []Status{StatusPending, StatusConfirmed}

// Requester identifies the person who submitted a booking. Email is private
// and must not leave the service in public views.
type Requester struct {
	Name  string
	Email string
}

// Is reports whether email belongs to this requester.
func (r Requester) Is(email string) bool {
	return email != "" && strings.EqualFold(strings.TrimSpace(email), r.Email)
}

// BookingDraft is the requester-supplied content of a new booking.
type BookingDraft struct {
	Range       DateRange
	PartySize   int
	Requester   Requester
	Affiliation Reviewer
	Note        string
}

// Booking is one reservation request for the property.
type Booking struct {
	ID             string
	Range          DateRange
	PartySize      int
	Requester      Requester
	Affiliation    Reviewer
	Status         Status
	Note           string
	Approvals      ApprovalSet
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastActivityAt time.Time
	IdempotencyKey string
}

// TotalDays is derived from the range on every call.
func (b Booking) TotalDays() int {
	return b.Range.Days()
}

// IsPast reports whether the booking ended before today.
func (b Booking) IsPast(today time.Time) bool {
	return b.Range.EndsBefore(today)
}

func (b Booking) Blocking() bool {
	return b.Status.Blocking()
}

// BookingChanges carries the fields of an edit; nil means unchanged.
type BookingChanges struct {
	Range         *DateRange
	PartySize     *int
	RequesterName *string
	Affiliation   *Reviewer
	Note          *string
}

func (c BookingChanges) Empty() bool {
	return c.Range == nil && c.PartySize == nil && c.RequesterName == nil && c.Affiliation == nil && c.Note == nil
}
