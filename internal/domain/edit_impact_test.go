package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEditImpact(t *testing.T) {
	t.Parallel()

	old := MustDateRange(NewDate(2025, 8, 10), NewDate(2025, 8, 15))
	tests := []struct {
		name     string
		proposed DateRange
		want     EditImpact
	}{
		{"unchanged", old, ImpactNone},
		{"shorten end", MustDateRange(NewDate(2025, 8, 10), NewDate(2025, 8, 13)), ImpactPreserve},
		{"shorten start", MustDateRange(NewDate(2025, 8, 12), NewDate(2025, 8, 15)), ImpactPreserve},
		{"shrink both", MustDateRange(NewDate(2025, 8, 11), NewDate(2025, 8, 14)), ImpactPreserve},
		{"extend end", MustDateRange(NewDate(2025, 8, 10), NewDate(2025, 8, 16)), ImpactReset},
		{"extend start", MustDateRange(NewDate(2025, 8, 9), NewDate(2025, 8, 15)), ImpactReset},
		{"shift later", MustDateRange(NewDate(2025, 8, 12), NewDate(2025, 8, 17)), ImpactReset},
		{"shift earlier", MustDateRange(NewDate(2025, 8, 5), NewDate(2025, 8, 11)), ImpactReset},
		{"disjoint", MustDateRange(NewDate(2025, 9, 1), NewDate(2025, 9, 2)), ImpactReset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveEditImpact(old, tt.proposed))
		})
	}
}

func TestApplyChanges_ResetLaw(t *testing.T) {
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)

	confirmed := func() Booking {
		b := newTestBooking(t, now)
		for _, r := range Reviewers {
			_, _, err := b.Decide(r, DecisionApproved, "", now)
			require.NoError(t, err)
		}
		require.Equal(t, StatusConfirmed, b.Status)
		return b
	}

	t.Run("shorten keeps approvals and status", func(t *testing.T) {
		b := confirmed()
		shorter := MustDateRange(b.Range.Start, b.Range.End.AddDate(0, 0, -1))

		out, events, err := b.ApplyChanges(BookingChanges{Range: &shorter}, later)
		require.NoError(t, err)
		assert.Equal(t, ImpactPreserve, out.Impact)
		assert.Equal(t, StatusConfirmed, b.Status)
		assert.True(t, b.Approvals.AllApproved())
		require.Len(t, events, 1)
		assert.Equal(t, EventEditedWithoutReset, events[0].Kind)
		assert.Equal(t, 4, b.TotalDays())
		assert.Equal(t, later, b.LastActivityAt)
	})

	t.Run("extend resets approvals and reverts confirmed", func(t *testing.T) {
		b := confirmed()
		longer := MustDateRange(b.Range.Start, b.Range.End.AddDate(0, 0, 2))

		out, events, err := b.ApplyChanges(BookingChanges{Range: &longer}, later)
		require.NoError(t, err)
		assert.Equal(t, ImpactReset, out.Impact)
		assert.Equal(t, StatusPending, b.Status)
		for _, r := range Reviewers {
			a := b.Approvals.Get(r)
			assert.Equal(t, DecisionNoResponse, a.Decision)
			assert.Nil(t, a.DecidedAt)
		}
		require.Len(t, events, 1)
		assert.Equal(t, EventEditedWithReset, events[0].Kind)
		assert.Equal(t, 7, b.TotalDays())
	})

	t.Run("non-date edits never reset and never log", func(t *testing.T) {
		b := confirmed()
		size := 9
		name := "Brigitte"
		aff := ReviewerAngelika
		note := "Two dogs this time"

		out, events, err := b.ApplyChanges(BookingChanges{
			PartySize:     &size,
			RequesterName: &name,
			Affiliation:   &aff,
			Note:          &note,
		}, later)
		require.NoError(t, err)
		assert.Equal(t, ImpactNone, out.Impact)
		assert.True(t, out.Changed)
		assert.Empty(t, events)
		assert.Equal(t, StatusConfirmed, b.Status)
		assert.True(t, b.Approvals.AllApproved())
		assert.Equal(t, 9, b.PartySize)
	})

	t.Run("same dates is not a date edit", func(t *testing.T) {
		b := confirmed()
		same := b.Range

		out, events, err := b.ApplyChanges(BookingChanges{Range: &same}, later)
		require.NoError(t, err)
		assert.False(t, out.Changed)
		assert.Empty(t, events)
		assert.Equal(t, now, b.LastActivityAt)
	})

	t.Run("denied booking cannot be edited", func(t *testing.T) {
		b := newTestBooking(t, now)
		_, _, err := b.Decide(ReviewerCornelia, DecisionDenied, "no", now)
		require.NoError(t, err)

		size := 2
		_, _, err = b.ApplyChanges(BookingChanges{PartySize: &size}, later)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}
