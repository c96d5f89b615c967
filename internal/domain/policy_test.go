package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsLink(t *testing.T) {
	for _, s := range []string{"see https://x.io", "HTTP://A", "www.example.org", "MailTo:me"} {
		assert.True(t, ContainsLink(s), s)
	}
	for _, s := range []string{"", "we bring the www", "http:/ nope", "Grillabend"} {
		assert.False(t, ContainsLink(s), s)
	}
}

func TestPolicy_ValidateDraft(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	today := NewDate(2025, 7, 1)
	valid := BookingDraft{
		Range:       MustDateRange(NewDate(2025, 8, 1), NewDate(2025, 8, 5)),
		PartySize:   4,
		Requester:   Requester{Name: "Zoë O'Neill-Brandt", Email: "zoe@example.com"},
		Affiliation: ReviewerIngeborg,
		Note:        "Family weekend",
	}

	tests := []struct {
		name      string
		mutate    func(d *BookingDraft)
		longStay  bool
		wantField string
	}{
		{name: "valid", mutate: func(*BookingDraft) {}},
		{name: "ends before today", mutate: func(d *BookingDraft) {
			d.Range = MustDateRange(NewDate(2025, 6, 1), NewDate(2025, 6, 30))
		}, wantField: "end_date"},
		{name: "ends today is fine", mutate: func(d *BookingDraft) {
			d.Range = MustDateRange(NewDate(2025, 6, 30), NewDate(2025, 7, 1))
		}},
		{name: "beyond horizon", mutate: func(d *BookingDraft) {
			d.Range = MustDateRange(NewDate(2027, 1, 2), NewDate(2027, 1, 3))
		}, wantField: "start_date"},
		{name: "long stay unconfirmed", mutate: func(d *BookingDraft) {
			d.Range = MustDateRange(NewDate(2025, 8, 1), NewDate(2025, 8, 8))
		}, wantField: "long_stay_confirmed"},
		{name: "long stay confirmed", mutate: func(d *BookingDraft) {
			d.Range = MustDateRange(NewDate(2025, 8, 1), NewDate(2025, 8, 8))
		}, longStay: true},
		{name: "party too large", mutate: func(d *BookingDraft) { d.PartySize = 11 }, wantField: "party_size"},
		{name: "party empty", mutate: func(d *BookingDraft) { d.PartySize = 0 }, wantField: "party_size"},
		{name: "name with digits", mutate: func(d *BookingDraft) { d.Requester.Name = "R2D2" }, wantField: "requester_name"},
		{name: "missing email", mutate: func(d *BookingDraft) { d.Requester.Email = "" }, wantField: "requester_email"},
		{name: "no affiliation", mutate: func(d *BookingDraft) { d.Affiliation = NoReviewer }, wantField: "affiliation"},
		{name: "note with link", mutate: func(d *BookingDraft) { d.Note = "photos at www.example.org" }, wantField: "note"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			err := p.ValidateDraft(d, tt.longStay, today)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			if assert.ErrorAs(t, err, &verr) {
				assert.Equal(t, tt.wantField, verr.Field)
			}
		})
	}
}

func TestPolicy_ValidateChanges(t *testing.T) {
	p := DefaultPolicy()
	today := NewDate(2025, 7, 1)

	assert.NoError(t, p.ValidateChanges(BookingChanges{}, today))

	size := 12
	assert.ErrorIs(t, p.ValidateChanges(BookingChanges{PartySize: &size}, today), ErrValidation)

	past := MustDateRange(NewDate(2025, 6, 1), NewDate(2025, 6, 2))
	assert.ErrorIs(t, p.ValidateChanges(BookingChanges{Range: &past}, today), ErrValidation)

	note := "mailto:someone"
	assert.ErrorIs(t, p.ValidateChanges(BookingChanges{Note: &note}, today), ErrValidation)
}

func TestParseReviewer(t *testing.T) {
	r, err := ParseReviewer(" cornelia ")
	assert.NoError(t, err)
	assert.Equal(t, ReviewerCornelia, r)

	_, err = ParseReviewer("Bernd")
	assert.ErrorIs(t, err, ErrUnknownReviewer)
}
