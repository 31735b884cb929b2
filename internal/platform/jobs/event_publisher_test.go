package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestPubSubEventPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "catalog-events")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubEventPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubEventPublisher: %v", err)
	}

	parentID := int64(17)
	event := ProductEvent{
		Event:      EventProductCreated,
		ProductID:  42,
		ParentID:   &parentID,
		StatusID:   1,
		TypeID:     5,
		ActorID:    9,
		OccurredAt: time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC),
		Labels: map[string]string{
			" source ":  " pim-api ",
			"":          "dropped",
			"productId": "cannot-override",
		},
	}

	if _, err := publisher.PublishProductEvent(ctx, event); err != nil {
		t.Fatalf("PublishProductEvent: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload ProductEvent
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Event != EventProductCreated || payload.ProductID != 42 {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if got := messages[0].Attributes["productId"]; got != "42" {
		t.Fatalf("expected productId attribute, got %q", got)
	}
	if got := messages[0].Attributes["parentId"]; got != "17" {
		t.Fatalf("expected parentId attribute, got %q", got)
	}
	if got := messages[0].Attributes["source"]; got != "pim-api" {
		t.Fatalf("expected trimmed source label, got %q", got)
	}
	if got := messages[0].Attributes["productId"]; got != "42" {
		t.Fatalf("label must not override reserved attribute, got %q", got)
	}
}

func TestPubSubEventPublisherValidatesInput(t *testing.T) {
	if _, err := NewPubSubEventPublisher(nil); err == nil {
		t.Fatal("expected error for nil topic")
	}

	publisher := &PubSubEventPublisher{topic: &pubsub.Topic{}, marshal: json.Marshal}
	if _, err := publisher.PublishProductEvent(context.Background(), ProductEvent{ProductID: 1}); err == nil {
		t.Fatal("expected error for missing event name")
	}
	if _, err := publisher.PublishProductEvent(context.Background(), ProductEvent{Event: EventProductDeleted}); err == nil {
		t.Fatal("expected error for missing product id")
	}
}
