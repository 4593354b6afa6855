package services

import (
	"context"
	"fmt"

	"bookreview_server/logging"
	"bookreview_server/metrics"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
)

// NotificationQueue makes notification fan-out asynchronous: Notify
// publishes to an in-process watermill topic and Serve feeds each message to
// the wrapped Notifier. Serve is a suture.Service.
type NotificationQueue struct {
	pubSub   *gochannel.GoChannel
	topic    string
	target   Notifier
	messages <-chan *message.Message
	cancel   context.CancelFunc
}

// NewNotificationQueue subscribes immediately so nothing published before
// the consumer starts is dropped.
func NewNotificationQueue(target Notifier, topic string, buffer int64) (*NotificationQueue, error) {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: buffer},
		watermill.NewSlogLogger(logging.NewSlogLogger()),
	)

	subCtx, cancel := context.WithCancel(context.Background())
	messages, err := pubSub.Subscribe(subCtx, topic)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	return &NotificationQueue{
		pubSub:   pubSub,
		topic:    topic,
		target:   target,
		messages: messages,
		cancel:   cancel,
	}, nil
}

// Notify enqueues req. Self-notifications are dropped here already.
func (q *NotificationQueue) Notify(ctx context.Context, req NotifyRequest) error {
	if req.RecipientID == req.ActorID {
		return nil
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return internal("enqueue notification", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if id := logging.RequestIDFromContext(ctx); id != "" {
		msg.Metadata.Set("request_id", id)
	}
	if err := q.pubSub.Publish(q.topic, msg); err != nil {
		return internal("enqueue notification", err)
	}
	return nil
}

// Serve consumes queued requests until ctx is done.
func (q *NotificationQueue) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-q.messages:
			if !ok {
				return nil
			}
			q.handle(ctx, msg)
		}
	}
}

// handle always acks: a notification that cannot be stored is logged, not
// redelivered in a hot loop.
func (q *NotificationQueue) handle(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	if id := msg.Metadata.Get("request_id"); id != "" {
		ctx = logging.ContextWithRequestID(ctx, id)
	}

	var req NotifyRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("message_uuid", msg.UUID).Msg("dropping malformed notification message")
		return
	}
	if err := q.target.Notify(ctx, req); err != nil {
		metrics.SideEffectFailuresTotal.WithLabelValues("notify_async").Inc()
		logging.Ctx(ctx).Error().Err(err).
			Str("recipient_id", req.RecipientID).
			Str("kind", string(req.Kind)).
			Msg("async notification failed")
	}
}

// Close stops the subscription and the pub/sub.
func (q *NotificationQueue) Close() error {
	q.cancel()
	return q.pubSub.Close()
}

// String implements fmt.Stringer for suture logs.
func (q *NotificationQueue) String() string {
	return "notification-queue"
}
