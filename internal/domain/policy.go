package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Policy holds the input limits applied to requester and reviewer input.
type Policy struct {
	MaxPartySize        int
	NameMaxLength       int
	NoteMaxLength       int
	FutureHorizonMonths int
	LongStayDays        int
}

func DefaultPolicy() Policy {
	return Policy{
		MaxPartySize:        10,
		NameMaxLength:       40,
		NoteMaxLength:       500,
		FutureHorizonMonths: 18,
		LongStayDays:        7,
	}
}

var (
	linkPattern = regexp.MustCompile(`(?i)(https?://|www\.|mailto:)`)
	namePattern = regexp.MustCompile(`^[\p{L} '\-]+$`)
)

// ContainsLink reports whether s holds a link-like substring.
func ContainsLink(s string) bool {
	return linkPattern.MatchString(s)
}

// ValidateDraft checks a new booking against the policy. today is the
// current civil date in the reference time zone.
func (p Policy) ValidateDraft(d BookingDraft, longStayConfirmed bool, today time.Time) error {
	if err := p.validateRange(d.Range, today); err != nil {
		return err
	}
	if d.Range.Days() > p.LongStayDays && !longStayConfirmed {
		return &ValidationError{
			Field:  "long_stay_confirmed",
			Reason: "stays longer than " + strconv.Itoa(p.LongStayDays) + " days must be confirmed",
		}
	}
	if err := p.validatePartySize(d.PartySize); err != nil {
		return err
	}
	if err := p.validateName(d.Requester.Name); err != nil {
		return err
	}
	if strings.TrimSpace(d.Requester.Email) == "" {
		return &ValidationError{Field: "requester_email", Reason: "required"}
	}
	if !d.Affiliation.Valid() {
		return &ValidationError{Field: "affiliation", Reason: "must be one of the reviewers"}
	}
	return p.validateText("note", d.Note)
}

// ValidateChanges checks the fields present in an edit.
func (p Policy) ValidateChanges(c BookingChanges, today time.Time) error {
	if c.Range != nil {
		if err := p.validateRange(*c.Range, today); err != nil {
			return err
		}
	}
	if c.PartySize != nil {
		if err := p.validatePartySize(*c.PartySize); err != nil {
			return err
		}
	}
	if c.RequesterName != nil {
		if err := p.validateName(*c.RequesterName); err != nil {
			return err
		}
	}
	if c.Affiliation != nil && !c.Affiliation.Valid() {
		return &ValidationError{Field: "affiliation", Reason: "must be one of the reviewers"}
	}
	if c.Note != nil {
		return p.validateText("note", *c.Note)
	}
	return nil
}

// ValidateComment applies the note rules to decision and cancel comments.
func (p Policy) ValidateComment(comment string) error {
	return p.validateText("comment", comment)
}

// ValidateRange checks a range proposed on reopen.
func (p Policy) ValidateRange(r DateRange, today time.Time) error {
	return p.validateRange(r, today)
}

func (p Policy) validateRange(r DateRange, today time.Time) error {
	if r.End.Before(r.Start) {
		return &ValidationError{Field: "end_date", Reason: "end date must not be before start date"}
	}
	if r.EndsBefore(today) {
		return &ValidationError{Field: "end_date", Reason: "end date lies in the past"}
	}
	if p.FutureHorizonMonths > 0 && r.Start.After(today.AddDate(0, p.FutureHorizonMonths, 0)) {
		return &ValidationError{
			Field:  "start_date",
			Reason: "requests may be made at most " + strconv.Itoa(p.FutureHorizonMonths) + " months ahead",
		}
	}
	return nil
}

func (p Policy) validatePartySize(n int) error {
	if n < 1 || n > p.MaxPartySize {
		return &ValidationError{Field: "party_size", Reason: "must be between 1 and " + strconv.Itoa(p.MaxPartySize)}
	}
	return nil
}

func (p Policy) validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > p.NameMaxLength || !namePattern.MatchString(name) {
		return &ValidationError{
			Field:  "requester_name",
			Reason: "letters, spaces, hyphens and apostrophes only, at most " + strconv.Itoa(p.NameMaxLength) + " characters",
		}
	}
	return nil
}

func (p Policy) validateText(field, s string) error {
	if utf8.RuneCountInString(s) > p.NoteMaxLength {
		return &ValidationError{Field: field, Reason: "at most " + strconv.Itoa(p.NoteMaxLength) + " characters"}
	}
	if ContainsLink(s) {
		return &ValidationError{Field: field, Reason: "links are not allowed"}
	}
	return nil
}
