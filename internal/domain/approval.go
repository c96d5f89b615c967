package domain

import (
	"strings"
	"time"
)

// Reviewer is one of the three fixed principals that sign off bookings.
// The zero value is NoReviewer.
type Reviewer int

const (
	NoReviewer Reviewer = iota
	ReviewerIngeborg
	ReviewerCornelia
	ReviewerAngelika
)

// Reviewers lists every reviewer in approval-slot order.
var Reviewers = [3]Reviewer{ReviewerIngeborg, ReviewerCornelia, ReviewerAngelika}

var reviewerNames = map[Reviewer]string{
	ReviewerIngeborg: "Ingeborg",
	ReviewerCornelia: "Cornelia",
	ReviewerAngelika: "Angelika",
}

func (r Reviewer) String() string {
	if name, ok := reviewerNames[r]; ok {
		return name
	}
	return "none"
}

func (r Reviewer) Valid() bool {
	return r >= ReviewerIngeborg && r <= ReviewerAngelika
}

// ParseReviewer matches a reviewer name case-insensitively.
func ParseReviewer(s string) (Reviewer, error) {
	for r, name := range reviewerNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return r, nil
		}
	}
	return NoReviewer, ErrUnknownReviewer
}

type Decision string

const (
	DecisionNoResponse Decision = "NoResponse"
	DecisionApproved   Decision = "Approved"
	DecisionDenied     Decision = "Denied"
)

func ParseDecision(s string) (Decision, error) {
	switch d := Decision(s); d {
	case DecisionNoResponse, DecisionApproved, DecisionDenied:
		return d, nil
	}
	return "", &ValidationError{Field: "decision", Reason: "unknown decision " + s}
}

// Approval is one reviewer's decision slot on a booking.
type Approval struct {
	Reviewer  Reviewer
	Decision  Decision
	DecidedAt *time.Time
	Comment   string
}

// ApprovalSet holds exactly one slot per reviewer, indexed by Reviewer-1.
type ApprovalSet [len(Reviewers)]Approval

// NewApprovalSet returns three NoResponse slots.
func NewApprovalSet() ApprovalSet {
	var s ApprovalSet
	for i, r := range Reviewers {
		s[i] = Approval{Reviewer: r, Decision: DecisionNoResponse}
	}
	return s
}

// Get returns the slot of r. r must be valid.
func (s ApprovalSet) Get(r Reviewer) Approval {
	return s[r-1]
}

func (s ApprovalSet) AllApproved() bool {
	for _, a := range s {
		if a.Decision != DecisionApproved {
			return false
		}
	}
	return true
}

// DeniedBy returns the first reviewer whose slot is Denied.
func (s ApprovalSet) DeniedBy() (Reviewer, bool) {
	for _, a := range s {
		if a.Decision == DecisionDenied {
			return a.Reviewer, true
		}
	}
	return NoReviewer, false
}

// Reset reverts every slot to NoResponse.
func (s *ApprovalSet) Reset() {
	*s = NewApprovalSet()
}

func (s *ApprovalSet) record(r Reviewer, d Decision, comment string, at time.Time) {
	decidedAt := at
	s[r-1] = Approval{Reviewer: r, Decision: d, DecidedAt: &decidedAt, Comment: comment}
}
