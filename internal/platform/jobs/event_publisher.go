package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"

	"github.com/catalix/pim-api/internal/platform/textutil"
)

// Product lifecycle event names.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// ProductEvent is the payload published for a product lifecycle change.
// Labels travel as message attributes only, so subscribers can filter
// without decoding the payload.
type ProductEvent struct {
	Event      string            `json:"event"`
	ProductID  int64             `json:"productId"`
	ParentID   *int64            `json:"parentId,omitempty"`
	StatusID   int64             `json:"statusId,omitempty"`
	TypeID     int64             `json:"typeId,omitempty"`
	ActorID    int64             `json:"actorId,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
	Labels     map[string]string `json:"-"`
}

// PubSubEventPublisher publishes product lifecycle events to a Pub/Sub topic,
// retrying transient publish failures with backoff.
type PubSubEventPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
	retry   gax.Retryer
	sleep   func(context.Context, time.Duration) error
}

// NewPubSubEventPublisher constructs a Pub/Sub backed event publisher.
func NewPubSubEventPublisher(topic *pubsub.Topic) (*PubSubEventPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub event publisher: topic is required")
	}
	return &PubSubEventPublisher{
		topic:   topic,
		marshal: json.Marshal,
		retry: gax.OnCodes([]codes.Code{
			codes.Unavailable,
			codes.ResourceExhausted,
			codes.DeadlineExceeded,
		}, gax.Backoff{
			Initial:    100 * time.Millisecond,
			Max:        2 * time.Second,
			Multiplier: 2,
		}),
		sleep: gax.Sleep,
	}, nil
}

// PublishProductEvent enqueues a lifecycle event on the configured topic and
// returns the server-assigned message id.
func (p *PubSubEventPublisher) PublishProductEvent(ctx context.Context, event ProductEvent) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub event publisher: not initialised")
	}
	if strings.TrimSpace(event.Event) == "" {
		return "", errors.New("pubsub event publisher: event name is required")
	}
	if event.ProductID <= 0 {
		return "", errors.New("pubsub event publisher: product id is required")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal product event: %w", err)
	}

	attrs := map[string]string{
		"event":     event.Event,
		"productId": strconv.FormatInt(event.ProductID, 10),
	}
	if event.ParentID != nil {
		attrs["parentId"] = strconv.FormatInt(*event.ParentID, 10)
	}
	for key, value := range textutil.NormalizeStringMap(event.Labels) {
		if _, reserved := attrs[key]; !reserved {
			attrs[key] = value
		}
	}

	var lastErr error
	for {
		result := p.topic.Publish(ctx, &pubsub.Message{
			Data:       data,
			Attributes: attrs,
		})
		id, err := result.Get(ctx)
		if err == nil {
			return id, nil
		}
		lastErr = err

		pause, retry := p.retry.Retry(err)
		if !retry {
			break
		}
		if err := p.sleep(ctx, pause); err != nil {
			return "", fmt.Errorf("publish %s: %w", event.Event, lastErr)
		}
	}
	return "", fmt.Errorf("publish %s: %w", event.Event, lastErr)
}
