package starboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/hazelline/communitybot-backend/pkg/enums"
	"github.com/hazelline/communitybot-backend/pkg/idempotency"
	"github.com/hazelline/communitybot-backend/pkg/logger"
	"github.com/hazelline/communitybot-backend/pkg/metrics"
	"github.com/google/uuid"
)

const starboardConsumerName = "starboard"

// eventEnvelope is the wire frame the gateway shard publishes per event.
type eventEnvelope struct {
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Consumer drains gateway reaction events into the starboard service while
// honoring Redis idempotency.
type Consumer struct {
	service      Service
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	metrics      *metrics.ConsumerMetrics
	logg         *logger.Logger
}

// NewConsumer builds a gateway reaction consumer.
func NewConsumer(service Service, subscription *pubsub.Subscriber, manager *idempotency.Manager, consumerMetrics *metrics.ConsumerMetrics, logg *logger.Logger) (*Consumer, error) {
	if service == nil {
		return nil, fmt.Errorf("starboard service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("gateway subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		service:      service,
		subscription: subscription,
		idempotency:  manager,
		metrics:      consumerMetrics,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	typed := enums.GatewayEventType(eventType)
	if typed != enums.EventReactionAdd && typed != enums.EventReactionRemove {
		c.logg.Info(logCtx, "skipping non-reaction event")
		c.metrics.IncSkipped(eventType)
		return processResult{ack: true}
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		c.metrics.IncFailed(eventType)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		c.metrics.IncFailed(eventType)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, starboardConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		c.metrics.IncSkipped(eventType)
		return processResult{ack: true}
	}

	var event ReactionEvent
	if err := json.Unmarshal(envelope.Data, &event); err != nil {
		c.logg.Error(logCtx, "failed to parse reaction payload", err)
		_ = c.idempotency.Delete(ctx, starboardConsumerName, eventID)
		return processResult{ack: true}
	}

	started := time.Now()
	if err := c.dispatch(ctx, typed, event); err != nil {
		c.logg.Error(logCtx, "reaction handling failed", err)
		_ = c.idempotency.Delete(ctx, starboardConsumerName, eventID)
		c.metrics.IncFailed(eventType)
		return processResult{nack: true}
	}

	c.metrics.ObserveDuration(eventType, time.Since(started))
	c.metrics.IncHandled(eventType)
	return processResult{ack: true}
}

func (c *Consumer) dispatch(ctx context.Context, eventType enums.GatewayEventType, event ReactionEvent) error {
	switch eventType {
	case enums.EventReactionAdd:
		return c.service.OnReactionAdd(ctx, event)
	case enums.EventReactionRemove:
		return c.service.OnReactionRemove(ctx, event)
	default:
		return nil
	}
}
