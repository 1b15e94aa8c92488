package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uspace/uatrack/pkg/eventbus"
	"github.com/uspace/uatrack/pkg/metrics"
	"github.com/uspace/uatrack/pkg/model"
)

type Repository interface {
	ListPending(ctx context.Context, limit int) ([]model.DomainEvent, error)
	MarkPublished(ctx context.Context, eventID uuid.UUID, publishedAt time.Time) error
	MarkFailed(ctx context.Context, eventID uuid.UUID) error
}

// Publisher is satisfied by *eventbus.Bus.
type Publisher interface {
	Publish(ctx context.Context, channel string, event eventbus.Event) error
}

// Relay moves pending domain events from the outbox table to the event bus.
// An event that cannot be published is marked failed and not retried.
type Relay struct {
	repo         Repository
	publisher    Publisher
	logger       *zap.Logger
	pollInterval time.Duration
	batchSize    int
}

func NewRelay(repo Repository, publisher Publisher, logger *zap.Logger, pollInterval time.Duration, batchSize int) *Relay {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		repo:         repo,
		publisher:    publisher,
		logger:       logger,
		pollInterval: pollInterval,
		batchSize:    batchSize,
	}
}

func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("outbox relay starting",
		zap.Duration("poll_interval", r.pollInterval),
		zap.Int("batch_size", r.batchSize),
	)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	r.ProcessPending(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay shutting down")
			return ctx.Err()
		case <-ticker.C:
			r.ProcessPending(ctx)
		}
	}
}

// ProcessPending publishes one batch and returns how many events were
// delivered.
func (r *Relay) ProcessPending(ctx context.Context) int {
	events, err := r.repo.ListPending(ctx, r.batchSize)
	if err != nil {
		r.logger.Warn("failed to list pending outbox events", zap.Error(err))
		return 0
	}

	var published int
	for _, event := range events {
		if err := r.publishEvent(ctx, event); err != nil {
			r.logger.Warn("failed to publish outbox event", zap.Error(err), zap.String("event_id", event.EventID.String()))
			continue
		}
		published++
	}
	return published
}

func (r *Relay) publishEvent(ctx context.Context, event model.DomainEvent) error {
	message, err := eventbus.NewEvent(event.EventType, event.Payload)
	if err != nil {
		return err
	}
	message.ID = event.EventID.String()
	message.Timestamp = event.CreatedAt.Unix()

	if err := r.publisher.Publish(ctx, eventbus.ChannelFor(event.EventType), message); err != nil {
		metrics.OutboxPublished.WithLabelValues(event.EventType, metrics.ResultError).Inc()
		if markErr := r.repo.MarkFailed(ctx, event.EventID); markErr != nil {
			r.logger.Warn("failed to mark event failed", zap.Error(markErr), zap.String("event_id", event.EventID.String()))
		}
		return err
	}

	metrics.OutboxPublished.WithLabelValues(event.EventType, metrics.ResultOK).Inc()
	if err := r.repo.MarkPublished(ctx, event.EventID, time.Now()); err != nil {
		r.logger.Warn("failed to mark event published", zap.Error(err), zap.String("event_id", event.EventID.String()))
		return err
	}
	return nil
}
