package app

import (
	"github.com/google/uuid"

	"github.com/cimillas/hut-booking/internal/domain"
)

func newUUID() string {
	return uuid.NewString()
}

// stampEvents gives every event its own ID before it is persisted.
func stampEvents(events []domain.TimelineEvent) []domain.TimelineEvent {
	for i := range events {
		if events[i].ID == "" {
			events[i].ID = newUUID()
		}
	}
	return events
}
