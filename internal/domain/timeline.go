package domain

import "time"

type EventKind string

const (
	EventSubmitted          EventKind = "submitted"
	EventSelfApproved       EventKind = "self_approved"
	EventApproved           EventKind = "approved"
	EventDenied             EventKind = "denied"
	EventEditedWithReset    EventKind = "edited_with_reset"
	EventEditedWithoutReset EventKind = "edited_without_reset"
	EventConfirmed          EventKind = "confirmed"
	EventCanceled           EventKind = "canceled"
	EventReopened           EventKind = "reopened"
)

type ActorRole string

const (
	ActorRequester ActorRole = "requester"
	ActorReviewer  ActorRole = "reviewer"
	ActorSystem    ActorRole = "system"
)

// TimelineEvent is an append-only record of one accepted state change.
type TimelineEvent struct {
	ID        string
	BookingID string
	Kind      EventKind
	Actor     ActorRole
	ActorName string
	Note      string
	At        time.Time
}
