package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"bookreview_server/logging"
	"bookreview_server/metrics"
	"bookreview_server/models"
)

// RoomBroadcaster delivers an event to every subscriber of a book's room and
// returns how many subscribers it was queued for.
type RoomBroadcaster interface {
	Broadcast(bookID, event string, payload interface{}) int
}

// EventType names an interaction accepted by InteractionCoordinator.Apply.
type EventType string

const (
	EventLike          EventType = "like"
	EventUnlike        EventType = "unlike"
	EventDislike       EventType = "dislike"
	EventRemoveDislike EventType = "remove-dislike"
	EventCreateComment EventType = "comment.create"
	EventEditComment   EventType = "comment.edit"
	EventDeleteComment EventType = "comment.delete"
)

// InteractionEvent is one user interaction. Which fields matter depends on
// Type: reactions use BookID, comment.create uses BookID and Text,
// comment.edit uses CommentID and Text, comment.delete uses CommentID.
type InteractionEvent struct {
	Type      EventType `json:"type" validate:"required"`
	BookID    string    `json:"bookId,omitempty"`
	CommentID string    `json:"commentId,omitempty"`
	ActorID   string    `json:"-"`
	Text      string    `json:"text,omitempty"`
}

// InteractionResult is the public view returned for an interaction.
type InteractionResult struct {
	Entry   *models.Entry          `json:"entry,omitempty"`
	Changed bool                   `json:"changed"`
	Comment *models.CommentView    `json:"comment,omitempty"`
	Deleted *models.CommentDeleted `json:"deleted,omitempty"`
}

const lockStripes = 256

// InteractionCoordinator runs an interaction's mutation, then broadcasts it
// to the book's room, then notifies the affected user. Later steps never
// undo or fail an earlier committed mutation.
type InteractionCoordinator struct {
	Reactions   *ReactionService
	Comments    *CommentService
	Entries     *EntryService
	Broadcaster RoomBroadcaster
	Notifier    Notifier
	Profiles    ProfileResolver

	// Mutation and broadcast for one book happen under the same stripe so
	// room events go out in commit order.
	locks [lockStripes]sync.Mutex
}

func (c *InteractionCoordinator) lockBook(bookID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(bookID))
	m := &c.locks[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

// Apply dispatches event to the matching operation.
func (c *InteractionCoordinator) Apply(ctx context.Context, event InteractionEvent) (*InteractionResult, error) {
	switch event.Type {
	case EventLike, EventUnlike, EventDislike, EventRemoveDislike:
		entry, changed, err := c.React(ctx, event.BookID, event.ActorID, models.ReactionAction(event.Type))
		if err != nil {
			return nil, err
		}
		return &InteractionResult{Entry: entry, Changed: changed}, nil
	case EventCreateComment:
		view, err := c.CreateComment(ctx, event.BookID, event.ActorID, event.Text)
		if err != nil {
			return nil, err
		}
		return &InteractionResult{Comment: view, Changed: true}, nil
	case EventEditComment:
		view, err := c.EditComment(ctx, event.CommentID, event.ActorID, event.Text)
		if err != nil {
			return nil, err
		}
		return &InteractionResult{Comment: view, Changed: true}, nil
	case EventDeleteComment:
		deleted, err := c.DeleteComment(ctx, event.CommentID, event.ActorID)
		if err != nil {
			return nil, err
		}
		return &InteractionResult{Deleted: deleted, Changed: true}, nil
	}
	return nil, invalid("apply", fmt.Sprintf("unknown interaction type %q", event.Type))
}

// React applies a reaction. Only a real change is broadcast, and only a new
// like on someone else's book notifies its owner.
func (c *InteractionCoordinator) React(ctx context.Context, bookID, actorID string, action models.ReactionAction) (*models.Entry, bool, error) {
	unlock := c.lockBook(bookID)
	entry, changed, err := c.Reactions.Apply(ctx, bookID, actorID, action)
	if err != nil {
		unlock()
		return nil, false, err
	}
	if changed {
		c.broadcast(ctx, bookID, models.EventBookInteractionUpdate, models.InteractionUpdateOf(entry))
	}
	unlock()

	if changed && action == models.ReactionLike {
		c.notify(ctx, NotifyRequest{
			RecipientID: entry.OwnerID,
			ActorID:     actorID,
			Kind:        models.NotificationNewLikeOnBook,
			Message:     fmt.Sprintf("%s liked your book %q", c.displayName(ctx, actorID), entry.Title),
			Link:        "/books/" + bookID,
			RelatedType: models.RelatedTypeBook,
			RelatedID:   bookID,
		})
	}
	return entry, changed, nil
}

// CreateComment adds a comment, broadcasts newComment and notifies the
// book's owner.
func (c *InteractionCoordinator) CreateComment(ctx context.Context, bookID, authorID, text string) (*models.CommentView, error) {
	unlock := c.lockBook(bookID)
	view, err := c.Comments.Create(ctx, bookID, authorID, text)
	if err != nil {
		unlock()
		return nil, err
	}
	c.broadcast(ctx, bookID, models.EventNewComment, view)
	unlock()

	entry, err := c.Comments.Store.GetEntry(ctx, bookID)
	if err != nil {
		// The comment is committed; the owner lookup only feeds the
		// notification.
		metrics.SideEffectFailuresTotal.WithLabelValues("notify").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("book_id", bookID).Msg("cannot resolve book owner for comment notification")
		return view, nil
	}
	c.notify(ctx, NotifyRequest{
		RecipientID: entry.OwnerID,
		ActorID:     authorID,
		Kind:        models.NotificationNewComment,
		Message:     fmt.Sprintf("%s commented on your book %q", view.AuthorName, entry.Title),
		Link:        fmt.Sprintf("/books/%s#comment-%s", bookID, view.CommentID),
		RelatedType: models.RelatedTypeComment,
		RelatedID:   view.CommentID,
	})
	return view, nil
}

// EditComment changes a comment's text and broadcasts commentUpdated.
func (c *InteractionCoordinator) EditComment(ctx context.Context, commentID, editorID, text string) (*models.CommentView, error) {
	existing, err := c.Comments.Store.GetComment(ctx, commentID)
	if err != nil {
		return nil, internal("edit comment", err)
	}

	unlock := c.lockBook(existing.BookID)
	defer unlock()
	view, err := c.Comments.Edit(ctx, commentID, editorID, text)
	if err != nil {
		return nil, err
	}
	c.broadcast(ctx, view.BookID, models.EventCommentUpdated, view)
	return view, nil
}

// DeleteComment removes a comment and broadcasts commentDeleted.
func (c *InteractionCoordinator) DeleteComment(ctx context.Context, commentID, requesterID string) (*models.CommentDeleted, error) {
	existing, err := c.Comments.Store.GetComment(ctx, commentID)
	if err != nil {
		return nil, internal("delete comment", err)
	}

	unlock := c.lockBook(existing.BookID)
	defer unlock()
	deleted, err := c.Comments.Delete(ctx, commentID, requesterID)
	if err != nil {
		return nil, err
	}
	payload := &models.CommentDeleted{CommentID: deleted.CommentID, EntryID: deleted.BookID}
	c.broadcast(ctx, deleted.BookID, models.EventCommentDeleted, payload)
	return payload, nil
}

// DeleteEntry removes a book, its comments and its cover asset. Only the
// owner may do this.
func (c *InteractionCoordinator) DeleteEntry(ctx context.Context, bookID, requesterID string) error {
	unlock := c.lockBook(bookID)
	defer unlock()
	return c.Entries.Delete(ctx, bookID, requesterID)
}

func (c *InteractionCoordinator) broadcast(ctx context.Context, bookID, event string, payload interface{}) {
	if c.Broadcaster == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			metrics.SideEffectFailuresTotal.WithLabelValues("broadcast").Inc()
			logging.Ctx(ctx).Error().Interface("panic", r).Str("book_id", bookID).Str("event", event).Msg("room broadcast panicked")
		}
	}()
	n := c.Broadcaster.Broadcast(bookID, event, payload)
	metrics.BroadcastsTotal.WithLabelValues(event).Inc()
	logging.Ctx(ctx).Debug().Str("book_id", bookID).Str("event", event).Int("subscribers", n).Msg("room broadcast")
}

func (c *InteractionCoordinator) notify(ctx context.Context, req NotifyRequest) {
	if c.Notifier == nil || req.RecipientID == req.ActorID {
		return
	}
	if err := c.Notifier.Notify(ctx, req); err != nil {
		metrics.SideEffectFailuresTotal.WithLabelValues("notify").Inc()
		logging.Ctx(ctx).Error().Err(err).
			Str("recipient_id", req.RecipientID).
			Str("kind", string(req.Kind)).
			Msg("notification failed")
	}
}

func (c *InteractionCoordinator) displayName(ctx context.Context, userID string) string {
	if c.Profiles == nil {
		return userID
	}
	p, err := c.Profiles.GetUserProfile(ctx, userID)
	if err != nil || p.UserName == "" {
		return userID
	}
	return p.UserName
}
