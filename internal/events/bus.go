package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// channel is the Redis pub/sub channel carrying payment events from the
// worker process to the API process.
const channel = "gateway:events"

// Message is one payment lifecycle event. MerchantID routes the message to
// the owning merchant's dashboard streams.
type Message struct {
	MerchantID string          `json:"merchant_id"`
	Event      string          `json:"event"`
	Data       json.RawMessage `json:"data"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Publisher emits events over Redis pub/sub. Delivery is fire-and-forget:
// dashboards reconcile via the REST API, so a dropped event is not a loss.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a Publisher on an existing Redis connection.
func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// Publish serializes and broadcasts one event. Errors are logged, never
// propagated.
func (p *Publisher) Publish(ctx context.Context, merchantID, event string, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to marshal event data")
		return
	}
	msg := Message{
		MerchantID: merchantID,
		Event:      event,
		Data:       body,
		Timestamp:  time.Now().UTC(),
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to marshal event message")
		return
	}
	if err := p.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to publish event")
	}
}

// Subscriber consumes the event channel and forwards each message to a sink.
type Subscriber struct {
	rdb *redis.Client
}

// NewSubscriber creates a Subscriber on an existing Redis connection.
func NewSubscriber(rdb *redis.Client) *Subscriber {
	return &Subscriber{rdb: rdb}
}

// Run subscribes and dispatches messages until ctx is canceled. Malformed
// messages are dropped with a log line.
func (s *Subscriber) Run(ctx context.Context, sink func(*Message)) {
	sub := s.rdb.Subscribe(ctx, channel)
	defer sub.Close()

	log.Info().Str("channel", channel).Msg("Event subscriber started")
	ch := sub.Channel()
	for {
		select {
		case m, ok := <-ch:
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				log.Error().Err(err).Msg("Dropping malformed event message")
				continue
			}
			sink(&msg)
		case <-ctx.Done():
			return
		}
	}
}
