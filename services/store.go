package services

import (
	"context"
	"time"

	"bookreview_server/models"
)

// InteractionStore is the persistence contract the engines depend on.
//
// Lookups of missing records return an error satisfying
// errors.Is(err, ErrNotFound). ApplyReaction must apply the membership
// change and both counts as one atomic write relative to other writers of
// the same entry.
type InteractionStore interface {
	PutEntry(ctx context.Context, entry *models.Entry) error
	GetEntry(ctx context.Context, bookID string) (*models.Entry, error)
	// ApplyReaction returns the entry after the transition and whether
	// anything changed.
	ApplyReaction(ctx context.Context, bookID, userID string, action models.ReactionAction) (*models.Entry, bool, error)
	// DeleteEntry removes the entry and all of its comments as one operation.
	DeleteEntry(ctx context.Context, bookID string) error

	PutComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, commentID string) (*models.Comment, error)
	// ListComments returns a book's comments oldest first.
	ListComments(ctx context.Context, bookID string) ([]models.Comment, error)
	// UpdateCommentText replaces the text only if authorID still owns the
	// comment.
	UpdateCommentText(ctx context.Context, commentID, authorID, text string, at time.Time) (*models.Comment, error)
	// DeleteComment removes the comment only if authorID owns it.
	DeleteComment(ctx context.Context, commentID, authorID string) error

	PutNotification(ctx context.Context, n *models.Notification) error
}

// ProfileResolver looks up display fields for a user.
type ProfileResolver interface {
	GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}
