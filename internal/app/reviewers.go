package app

import (
	"strings"

	"github.com/cimillas/hut-booking/internal/domain"
)

// ReviewerDirectory maps each reviewer to the e-mail address they book with.
type ReviewerDirectory map[domain.Reviewer]string

// Lookup returns the reviewer owning email, or NoReviewer.
func (d ReviewerDirectory) Lookup(email string) domain.Reviewer {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.NoReviewer
	}
	for _, r := range domain.Reviewers {
		if addr, ok := d[r]; ok && strings.EqualFold(addr, email) {
			return r
		}
	}
	return domain.NoReviewer
}
