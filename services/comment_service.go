package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"bookreview_server/logging"
	"bookreview_server/metrics"
	"bookreview_server/models"

	"github.com/google/uuid"
)

// MaxCommentLength caps comment text, in runes.
const MaxCommentLength = 2000

// CommentService creates, edits and deletes comments. Only a comment's
// author may change it.
type CommentService struct {
	Store    InteractionStore
	Profiles ProfileResolver
	// Now is overridable in tests.
	Now func() time.Time
}

func (s *CommentService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Create stores a new comment by authorID on bookID.
func (s *CommentService) Create(ctx context.Context, bookID, authorID, text string) (*models.CommentView, error) {
	const op = "create comment"
	text, err := cleanText(op, text)
	if err != nil {
		return nil, err
	}
	if _, err := s.Store.GetEntry(ctx, bookID); err != nil {
		return nil, internal(op, err)
	}

	now := s.now()
	comment := &models.Comment{
		CommentID: uuid.New().String(),
		BookID:    bookID,
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.PutComment(ctx, comment); err != nil {
		return nil, internal(op, err)
	}

	metrics.CommentOperationsTotal.WithLabelValues("create").Inc()
	logging.Ctx(ctx).Info().
		Str("comment_id", comment.CommentID).
		Str("book_id", bookID).
		Str("author_id", authorID).
		Msg("comment created")
	return s.view(ctx, comment), nil
}

// Edit replaces the text of commentID. editorID must be the author.
func (s *CommentService) Edit(ctx context.Context, commentID, editorID, text string) (*models.CommentView, error) {
	const op = "edit comment"
	existing, err := s.Store.GetComment(ctx, commentID)
	if err != nil {
		return nil, internal(op, err)
	}
	if existing.AuthorID != editorID {
		return nil, forbidden(op, "only the author can edit this comment")
	}
	text, err = cleanText(op, text)
	if err != nil {
		return nil, err
	}

	updated, err := s.Store.UpdateCommentText(ctx, commentID, editorID, text, s.now())
	if err != nil {
		return nil, internal(op, err)
	}

	metrics.CommentOperationsTotal.WithLabelValues("edit").Inc()
	logging.Ctx(ctx).Info().Str("comment_id", commentID).Msg("comment edited")
	return s.view(ctx, updated), nil
}

// Delete removes commentID permanently. requesterID must be the author. The
// deleted comment is returned so callers know which room to notify.
func (s *CommentService) Delete(ctx context.Context, commentID, requesterID string) (*models.Comment, error) {
	const op = "delete comment"
	existing, err := s.Store.GetComment(ctx, commentID)
	if err != nil {
		return nil, internal(op, err)
	}
	if existing.AuthorID != requesterID {
		return nil, forbidden(op, "only the author can delete this comment")
	}
	if err := s.Store.DeleteComment(ctx, commentID, requesterID); err != nil {
		return nil, internal(op, err)
	}

	metrics.CommentOperationsTotal.WithLabelValues("delete").Inc()
	logging.Ctx(ctx).Info().Str("comment_id", commentID).Str("book_id", existing.BookID).Msg("comment deleted")
	return existing, nil
}

// List returns the comments of bookID oldest first.
func (s *CommentService) List(ctx context.Context, bookID string) ([]models.CommentView, error) {
	const op = "list comments"
	if _, err := s.Store.GetEntry(ctx, bookID); err != nil {
		return nil, internal(op, err)
	}
	comments, err := s.Store.ListComments(ctx, bookID)
	if err != nil {
		return nil, internal(op, err)
	}

	views := make([]models.CommentView, 0, len(comments))
	profiles := map[string]*models.CommentView{}
	for i := range comments {
		c := &comments[i]
		// Resolve each author once per listing.
		if cached, ok := profiles[c.AuthorID]; ok {
			views = append(views, models.CommentView{Comment: *c, AuthorName: cached.AuthorName, AuthorAvatar: cached.AuthorAvatar})
			continue
		}
		v := s.view(ctx, c)
		profiles[c.AuthorID] = v
		views = append(views, *v)
	}
	return views, nil
}

// view attaches author display fields. A missing profile is not an error;
// the author id is shown instead.
func (s *CommentService) view(ctx context.Context, c *models.Comment) *models.CommentView {
	v := &models.CommentView{Comment: *c, AuthorName: c.AuthorID}
	if s.Profiles == nil {
		return v
	}
	p, err := s.Profiles.GetUserProfile(ctx, c.AuthorID)
	if err != nil {
		if KindOf(err) != KindNotFound {
			logging.Ctx(ctx).Warn().Err(err).Str("author_id", c.AuthorID).Msg("failed to resolve comment author")
		}
		return v
	}
	if p.UserName != "" {
		v.AuthorName = p.UserName
	}
	v.AuthorAvatar = p.Avatar
	return v
}

func cleanText(op, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", invalid(op, "comment text cannot be empty")
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return "", invalid(op, "comment text is too long")
	}
	return text, nil
}
