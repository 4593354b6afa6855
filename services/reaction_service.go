package services

import (
	"context"
	"strings"

	"bookreview_server/logging"
	"bookreview_server/metrics"
	"bookreview_server/models"
)

// ReactionService applies like/dislike transitions. A user is never in both
// likedBy and dislikedBy; the store enforces this atomically.
type ReactionService struct {
	Store InteractionStore
}

// Like adds userID to likedBy, clearing a dislike in the same write.
func (s *ReactionService) Like(ctx context.Context, bookID, userID string) (*models.Entry, bool, error) {
	return s.Apply(ctx, bookID, userID, models.ReactionLike)
}

// Unlike removes userID from likedBy if present.
func (s *ReactionService) Unlike(ctx context.Context, bookID, userID string) (*models.Entry, bool, error) {
	return s.Apply(ctx, bookID, userID, models.ReactionUnlike)
}

// Dislike adds userID to dislikedBy, clearing a like in the same write.
func (s *ReactionService) Dislike(ctx context.Context, bookID, userID string) (*models.Entry, bool, error) {
	return s.Apply(ctx, bookID, userID, models.ReactionDislike)
}

// RemoveDislike removes userID from dislikedBy if present.
func (s *ReactionService) RemoveDislike(ctx context.Context, bookID, userID string) (*models.Entry, bool, error) {
	return s.Apply(ctx, bookID, userID, models.ReactionRemoveDislike)
}

// Apply runs action for userID on bookID. changed is false when the call was
// a no-op (e.g. a retried like).
func (s *ReactionService) Apply(ctx context.Context, bookID, userID string, action models.ReactionAction) (*models.Entry, bool, error) {
	op := string(action)
	if !action.Valid() {
		return nil, false, invalid(op, "unknown reaction "+string(action))
	}
	if strings.TrimSpace(bookID) == "" {
		return nil, false, invalid(op, "book id is required")
	}
	if userID == "" {
		return nil, false, &Error{Kind: KindUnauthorized, Op: op, Msg: "authentication required"}
	}

	entry, changed, err := s.Store.ApplyReaction(ctx, bookID, userID, action)
	if err != nil {
		return nil, false, internal(op, err)
	}

	metrics.RecordReaction(op, changed)
	logging.Ctx(ctx).Debug().
		Str("book_id", bookID).
		Str("user_id", userID).
		Str("action", op).
		Bool("changed", changed).
		Int("like_count", entry.LikeCount).
		Int("dislike_count", entry.DislikeCount).
		Msg("reaction applied")
	return entry, changed, nil
}
