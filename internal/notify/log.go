package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/cimillas/hut-booking/internal/domain"
)

// LogPublisher writes events to the process log. It is the default when no
// broker is configured.
type LogPublisher struct {
	logger logrus.FieldLogger
}

func NewLogPublisher(logger logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, e domain.TimelineEvent) error {
	p.logger.WithFields(logrus.Fields{
		"event_id":   e.ID,
		"booking_id": e.BookingID,
		"kind":       e.Kind,
		"actor":      e.Actor,
		"actor_name": e.ActorName,
	}).Info("booking event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
