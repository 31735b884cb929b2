package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	domain "github.com/catalix/pim-api/internal/domain"
	"github.com/catalix/pim-api/internal/platform/jobs"
)

// ProductEventSink is the transport the event publisher hands lifecycle
// events to.
type ProductEventSink interface {
	PublishProductEvent(ctx context.Context, event jobs.ProductEvent) (string, error)
}

// ProductEventPublisherDeps bundles collaborators required to construct an
// event publisher.
type ProductEventPublisherDeps struct {
	Sink   ProductEventSink
	Logger *zap.Logger
	Clock  func() time.Time
}

type productEventPublisher struct {
	sink   ProductEventSink
	logger *zap.Logger
	clock  func() time.Time
}

// NewProductEventPublisher wraps the Pub/Sub sink behind the service-facing
// contract. Publish failures are logged and swallowed so catalog mutations
// never fail on event delivery.
func NewProductEventPublisher(deps ProductEventPublisherDeps) (EventPublisher, error) {
	if deps.Sink == nil {
		return nil, errors.New("event publisher: sink is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &productEventPublisher{
		sink:   deps.Sink,
		logger: logger,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

func (p *productEventPublisher) PublishProductCreated(ctx context.Context, product domain.Product, actorID int64) {
	p.publish(ctx, jobs.ProductEvent{
		Event:     jobs.EventProductCreated,
		ProductID: product.ID,
		ParentID:  product.ParentID,
		StatusID:  product.StatusID,
		TypeID:    int64(product.TypeID),
		ActorID:   actorID,
	})
}

func (p *productEventPublisher) PublishProductUpdated(ctx context.Context, product domain.Product, actorID int64) {
	p.publish(ctx, jobs.ProductEvent{
		Event:     jobs.EventProductUpdated,
		ProductID: product.ID,
		ParentID:  product.ParentID,
		StatusID:  product.StatusID,
		TypeID:    int64(product.TypeID),
		ActorID:   actorID,
	})
}

func (p *productEventPublisher) PublishProductDeleted(ctx context.Context, productID int64, actorID int64) {
	p.publish(ctx, jobs.ProductEvent{
		Event:     jobs.EventProductDeleted,
		ProductID: productID,
		ActorID:   actorID,
	})
}

func (p *productEventPublisher) publish(ctx context.Context, event jobs.ProductEvent) {
	event.OccurredAt = p.clock()
	event.Labels = map[string]string{"source": "pim-api"}
	if _, err := p.sink.PublishProductEvent(ctx, event); err != nil {
		p.logger.Warn("product event publish failed",
			zap.String("event", event.Event),
			zap.Int64("productId", event.ProductID),
			zap.Error(err))
	}
}
