package domain

import (
	"strings"
	"time"
)

// DecisionOutcome describes what RecordDecision did to a booking.
type DecisionOutcome string

const (
	OutcomeRecorded         DecisionOutcome = "recorded"
	OutcomeUnchanged        DecisionOutcome = "unchanged"
	OutcomeAlreadyDenied    DecisionOutcome = "already_denied"
	OutcomeAlreadyConfirmed DecisionOutcome = "already_confirmed"
)

// EditOutcome describes what an edit did to a booking.
type EditOutcome struct {
	Impact  EditImpact
	Changed bool
}

// NewBooking builds a pending booking with three fresh approval slots. When
// self is a valid reviewer the requester is that reviewer and their slot is
// approved as part of the submission.
func NewBooking(id string, d BookingDraft, self Reviewer, now time.Time) (Booking, []TimelineEvent) {
	b := Booking{
		ID:             id,
		Range:          d.Range,
		PartySize:      d.PartySize,
		Requester:      d.Requester,
		Affiliation:    d.Affiliation,
		Status:         StatusPending,
		Note:           d.Note,
		Approvals:      NewApprovalSet(),
		CreatedAt:      now,
		UpdatedAt:      now,
		LastActivityAt: now,
	}
	events := []TimelineEvent{b.event(EventSubmitted, ActorRequester, b.Requester.Name, b.Range.String(), now)}
	events = append(events, b.selfApprove(self, now)...)
	return b, events
}

// Decide records a reviewer's decision. Repeating a decision, or deciding on
// a booking another reviewer already denied, leaves the booking untouched and
// reports the current state through the outcome.
func (b *Booking) Decide(r Reviewer, d Decision, comment string, now time.Time) (DecisionOutcome, []TimelineEvent, error) {
	if !r.Valid() {
		return "", nil, ErrUnknownReviewer
	}
	action := ActionApprove
	switch d {
	case DecisionApproved:
	case DecisionDenied:
		action = ActionDeny
	default:
		return "", nil, &ValidationError{Field: "decision", Reason: "decision must be Approved or Denied"}
	}
	comment = strings.TrimSpace(comment)
	slot := b.Approvals.Get(r)

	switch b.Status {
	case StatusCanceled:
		return "", nil, &InvalidTransitionError{From: b.Status, Action: action}
	case StatusDenied:
		if d == DecisionDenied && slot.Decision == DecisionDenied {
			return OutcomeUnchanged, nil, nil
		}
		return OutcomeAlreadyDenied, nil, nil
	case StatusConfirmed:
		if d == DecisionApproved {
			return OutcomeAlreadyConfirmed, nil, nil
		}
	case StatusPending:
		if slot.Decision == d {
			return OutcomeUnchanged, nil, nil
		}
	}

	if d == DecisionDenied && comment == "" {
		return "", nil, &ValidationError{Field: "comment", Reason: "a comment is required when denying"}
	}

	b.Approvals.record(r, d, comment, now)
	b.touch(now)

	var events []TimelineEvent
	if d == DecisionDenied {
		b.Status = StatusDenied
		events = append(events, b.event(EventDenied, ActorReviewer, r.String(), comment, now))
		return OutcomeRecorded, events, nil
	}

	events = append(events, b.event(EventApproved, ActorReviewer, r.String(), comment, now))
	if b.Approvals.AllApproved() {
		b.Status = StatusConfirmed
		events = append(events, b.event(EventConfirmed, ActorSystem, "system", "", now))
	}
	return OutcomeRecorded, events, nil
}

// Cancel withdraws a pending or confirmed booking. A confirmed booking needs
// a reason. Canceling twice is a no-op.
func (b *Booking) Cancel(comment string, now time.Time) (bool, []TimelineEvent, error) {
	comment = strings.TrimSpace(comment)
	switch b.Status {
	case StatusCanceled:
		return false, nil, nil
	case StatusDenied:
		return false, nil, &InvalidTransitionError{From: b.Status, Action: ActionCancel}
	case StatusConfirmed:
		if comment == "" {
			return false, nil, &ValidationError{Field: "comment", Reason: "a reason is required to cancel a confirmed booking"}
		}
	}

	b.Status = StatusCanceled
	b.touch(now)
	return true, []TimelineEvent{b.event(EventCanceled, ActorRequester, b.Requester.Name, comment, now)}, nil
}

// ReopenRange is the range a reopen with newRange would occupy.
func (b Booking) ReopenRange(newRange *DateRange) DateRange {
	if newRange != nil {
		return *newRange
	}
	return b.Range
}

// Reopen moves a denied booking back to pending, optionally on new dates.
// Approvals are always reset, even if the dates stay the same. Reopening a
// booking that is already open without asking for new dates is a no-op.
func (b *Booking) Reopen(newRange *DateRange, self Reviewer, now time.Time) (bool, []TimelineEvent, error) {
	switch b.Status {
	case StatusPending, StatusConfirmed:
		if newRange == nil || newRange.Equal(b.Range) {
			return false, nil, nil
		}
		return false, nil, &InvalidTransitionError{From: b.Status, Action: ActionReopen}
	case StatusCanceled:
		return false, nil, &InvalidTransitionError{From: b.Status, Action: ActionReopen}
	}

	note := b.Range.String()
	if newRange != nil && !newRange.Equal(b.Range) {
		note = b.Range.String() + " → " + newRange.String()
		b.Range = *newRange
	}
	b.Approvals.Reset()
	b.Status = StatusPending
	b.touch(now)

	events := []TimelineEvent{b.event(EventReopened, ActorRequester, b.Requester.Name, note, now)}
	events = append(events, b.selfApprove(self, now)...)
	return true, events, nil
}

// ApplyChanges edits a pending or confirmed booking. Field values must have
// been validated by the caller. Only date edits are recorded in the timeline;
// an extended stay resets every approval and drops a confirmed booking back
// to pending.
func (b *Booking) ApplyChanges(c BookingChanges, now time.Time) (EditOutcome, []TimelineEvent, error) {
	if !b.Status.Blocking() {
		return EditOutcome{}, nil, &InvalidTransitionError{From: b.Status, Action: ActionEdit}
	}

	var out EditOutcome
	var events []TimelineEvent

	if c.Range != nil {
		out.Impact = ResolveEditImpact(b.Range, *c.Range)
		if out.Impact != ImpactNone {
			note := b.Range.String() + " → " + c.Range.String()
			b.Range = *c.Range
			out.Changed = true

			kind := EventEditedWithoutReset
			if out.Impact == ImpactReset {
				kind = EventEditedWithReset
				b.Approvals.Reset()
				if b.Status == StatusConfirmed {
					b.Status = StatusPending
				}
			}
			events = append(events, b.event(kind, ActorRequester, b.Requester.Name, note, now))
		}
	}
	if c.PartySize != nil && *c.PartySize != b.PartySize {
		b.PartySize = *c.PartySize
		out.Changed = true
	}
	if c.RequesterName != nil && *c.RequesterName != b.Requester.Name {
		b.Requester.Name = *c.RequesterName
		out.Changed = true
	}
	if c.Affiliation != nil && *c.Affiliation != b.Affiliation {
		b.Affiliation = *c.Affiliation
		out.Changed = true
	}
	if c.Note != nil && *c.Note != b.Note {
		b.Note = *c.Note
		out.Changed = true
	}

	if out.Changed {
		b.touch(now)
	}
	return out, events, nil
}

func (b *Booking) selfApprove(self Reviewer, now time.Time) []TimelineEvent {
	if !self.Valid() {
		return nil
	}
	b.Approvals.record(self, DecisionApproved, "", now)
	return []TimelineEvent{b.event(EventSelfApproved, ActorSystem, self.String(), "", now)}
}

func (b *Booking) touch(now time.Time) {
	b.UpdatedAt = now
	b.LastActivityAt = now
}

func (b *Booking) event(kind EventKind, actor ActorRole, actorName, note string, at time.Time) TimelineEvent {
	return TimelineEvent{
		BookingID: b.ID,
		Kind:      kind,
		Actor:     actor,
		ActorName: actorName,
		Note:      note,
		At:        at,
	}
}
