package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"meetrix/internal/core/domain"
)

// Envelope wraps a room event for cross-instance fanout.
type Envelope struct {
	InstanceID string           `json:"instance_id"`
	Timestamp  time.Time        `json:"timestamp"`
	MeetingID  domain.MeetingID `json:"meeting_id"`
	Event      domain.Event     `json:"event"`
}

// EventBus mirrors room events over redis pub/sub so that signal
// instances sharing a deployment see producer announcements from
// meetings hosted on their siblings.
type EventBus struct {
	client     *redis.Client
	instanceID string
	logger     *zap.SugaredLogger
	pubsub     *redis.PubSub
	channel    string
}

func NewEventBus(client *redis.Client, instanceID string, logger *zap.SugaredLogger) *EventBus {
	return &EventBus{
		client:     client,
		instanceID: instanceID,
		logger:     logger,
		channel:    "meetrix:rooms",
	}
}

// PublishRoomEvent publishes an event for a meeting to the shared channel.
func (eb *EventBus) PublishRoomEvent(ctx context.Context, meetingID domain.MeetingID, event domain.Event) error {
	env := Envelope{
		InstanceID: eb.instanceID,
		Timestamp:  time.Now(),
		MeetingID:  meetingID,
		Event:      event,
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := eb.client.Publish(ctx, eb.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	eb.logger.Debugw("published room event",
		"type", event.Type,
		"meeting_id", meetingID,
	)

	return nil
}

// Subscribe blocks delivering envelopes from other instances until ctx is done.
func (eb *EventBus) Subscribe(ctx context.Context, handler func(Envelope) error) error {
	if eb.pubsub != nil {
		return fmt.Errorf("already subscribed")
	}

	eb.pubsub = eb.client.Subscribe(ctx, eb.channel)
	defer eb.pubsub.Close()

	ch := eb.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-ch:
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				eb.logger.Warnw("failed to unmarshal room event",
					"error", err,
					"payload", msg.Payload,
				)
				continue
			}

			// Skip events published by this instance.
			if env.InstanceID == eb.instanceID {
				continue
			}

			if err := handler(env); err != nil {
				eb.logger.Warnw("error handling room event",
					"type", env.Event.Type,
					"meeting_id", env.MeetingID,
					"error", err,
				)
			}
		}
	}
}

func (eb *EventBus) Close() error {
	if eb.pubsub != nil {
		return eb.pubsub.Close()
	}
	return nil
}
