// Package notify hands committed timeline events to a message broker. Events
// are read from the timeline table, so a broker outage delays notifications
// but never loses them.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cimillas/hut-booking/internal/domain"
)

// Publisher delivers one event. Implementations must be safe to retry: the
// relay republishes an event whose delivery could not be confirmed.
type Publisher interface {
	Publish(ctx context.Context, e domain.TimelineEvent) error
	Close() error
}

// Message is the wire form of a timeline event.
type Message struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	Kind      string    `json:"kind"`
	Actor     string    `json:"actor"`
	ActorName string    `json:"actor_name,omitempty"`
	Note      string    `json:"note,omitempty"`
	At        time.Time `json:"at"`
}

func NewMessage(e domain.TimelineEvent) Message {
	return Message{
		ID:        e.ID,
		BookingID: e.BookingID,
		Kind:      string(e.Kind),
		Actor:     string(e.Actor),
		ActorName: e.ActorName,
		Note:      e.Note,
		At:        e.At.UTC(),
	}
}

func encode(e domain.TimelineEvent) ([]byte, error) {
	body, err := json.Marshal(NewMessage(e))
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.ID, err)
	}
	return body, nil
}

// RoutingKey is the topic an event is published under, e.g. booking.denied.
func RoutingKey(e domain.TimelineEvent) string {
	return "booking." + string(e.Kind)
}
