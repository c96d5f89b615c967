package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cimillas/hut-booking/internal/domain"
)

// Outbox is the store of timeline events not yet handed to a publisher.
type Outbox interface {
	ListUnpublished(ctx context.Context, limit int) ([]domain.TimelineEvent, error)
	MarkPublished(ctx context.Context, ids []string) error
}

// Relay polls the outbox and publishes events in commit order. A failed
// publish ends the current batch; the event is retried on the next tick.
type Relay struct {
	outbox    Outbox
	publisher Publisher
	logger    logrus.FieldLogger
	interval  time.Duration
	batchSize int
}

type RelayOption func(*Relay)

func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func NewRelay(outbox Outbox, publisher Publisher, logger logrus.FieldLogger, opts ...RelayOption) *Relay {
	r := &Relay{
		outbox:    outbox,
		publisher: publisher,
		logger:    logger,
		interval:  2 * time.Second,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run flushes until ctx is done. It returns nil on cancellation.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			r.logger.WithError(err).Warn("outbox flush failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Flush publishes one batch and reports how many events were marked.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	events, err := r.outbox.ListUnpublished(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list unpublished: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	published := make([]string, 0, len(events))
	var pubErr error
	for _, e := range events {
		if err := r.publisher.Publish(ctx, e); err != nil {
			pubErr = fmt.Errorf("publish %s for booking %s: %w", e.Kind, e.BookingID, err)
			break
		}
		published = append(published, e.ID)
	}

	if len(published) > 0 {
		if err := r.outbox.MarkPublished(ctx, published); err != nil {
			return 0, errors.Join(pubErr, fmt.Errorf("mark published: %w", err))
		}
		r.logger.WithField("count", len(published)).Debug("published booking events")
	}
	return len(published), pubErr
}
