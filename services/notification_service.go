package services

import (
	"context"
	"time"

	"bookreview_server/logging"
	"bookreview_server/metrics"
	"bookreview_server/models"

	"github.com/google/uuid"
)

// NotifyRequest describes one notification to deliver.
type NotifyRequest struct {
	RecipientID string                  `json:"recipientId"`
	ActorID     string                  `json:"actorId"`
	Kind        models.NotificationKind `json:"kind"`
	Message     string                  `json:"message"`
	Link        string                  `json:"link"`
	RelatedType string                  `json:"relatedType"`
	RelatedID   string                  `json:"relatedId"`
}

// Notifier accepts notification requests. NotificationService delivers
// inline; NotificationQueue hands them to a background consumer.
type Notifier interface {
	Notify(ctx context.Context, req NotifyRequest) error
}

// LiveChannel pushes an event to every live connection of a user and reports
// whether any connection took it. Having no connection is not an error.
type LiveChannel interface {
	EmitToUser(userID, event string, payload interface{}) bool
}

// NotificationService persists notifications and then pushes them live.
type NotificationService struct {
	Store InteractionStore
	Live  LiveChannel
	Now   func() time.Time
}

// Notify stores the notification and attempts a live push. A recipient
// equal to the actor is a silent no-op. Only the persistence step can fail
// the call; live delivery problems are logged.
func (s *NotificationService) Notify(ctx context.Context, req NotifyRequest) error {
	const op = "notify"
	if req.RecipientID == "" {
		return invalid(op, "recipient is required")
	}
	if req.RecipientID == req.ActorID {
		return nil
	}

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now()
	}
	n := &models.Notification{
		NotificationID: uuid.New().String(),
		RecipientID:    req.RecipientID,
		ActorID:        req.ActorID,
		Kind:           req.Kind,
		Message:        req.Message,
		Link:           req.Link,
		RelatedType:    req.RelatedType,
		RelatedID:      req.RelatedID,
		CreatedAt:      now,
	}
	if err := s.Store.PutNotification(ctx, n); err != nil {
		return internal(op, err)
	}

	live := s.push(ctx, n)
	metrics.RecordNotification(string(n.Kind), live)
	logging.Ctx(ctx).Debug().
		Str("notification_id", n.NotificationID).
		Str("recipient_id", n.RecipientID).
		Str("kind", string(n.Kind)).
		Bool("live", live).
		Msg("notification stored")
	return nil
}

// push never lets a transport problem escape; the stored record is the
// fallback delivery.
func (s *NotificationService) push(ctx context.Context, n *models.Notification) (delivered bool) {
	if s.Live == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			metrics.SideEffectFailuresTotal.WithLabelValues("live_push").Inc()
			logging.Ctx(ctx).Error().
				Interface("panic", r).
				Str("notification_id", n.NotificationID).
				Msg("live notification push panicked")
			delivered = false
		}
	}()
	return s.Live.EmitToUser(n.RecipientID, models.EventNewNotification, n)
}
