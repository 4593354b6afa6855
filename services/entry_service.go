package services

import (
	"context"
	"strings"
	"time"

	"bookreview_server/logging"
	"bookreview_server/metrics"
	"bookreview_server/models"

	"github.com/google/uuid"
)

// AssetDeleter removes a stored object by its key.
type AssetDeleter interface {
	Delete(ctx context.Context, key string) error
}

// NewEntry is the input for posting a book.
type NewEntry struct {
	Title         string `json:"title" validate:"required,max=300"`
	BookAuthor    string `json:"bookAuthor" validate:"max=200"`
	Review        string `json:"review" validate:"max=10000"`
	CoverAssetKey string `json:"coverAssetKey" validate:"max=1024"`
}

// EntryService posts, reads and removes books.
type EntryService struct {
	Store  InteractionStore
	Assets AssetDeleter
	Now    func() time.Time
}

// Create posts a new book owned by ownerID with empty reaction sets.
func (s *EntryService) Create(ctx context.Context, ownerID string, in NewEntry) (*models.Entry, error) {
	const op = "create entry"
	if ownerID == "" {
		return nil, &Error{Kind: KindUnauthorized, Op: op, Msg: "authentication required"}
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid(op, "title is required")
	}

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now()
	}
	entry := &models.Entry{
		BookID:        uuid.New().String(),
		OwnerID:       ownerID,
		Title:         title,
		BookAuthor:    strings.TrimSpace(in.BookAuthor),
		Review:        strings.TrimSpace(in.Review),
		CoverAssetKey: strings.TrimSpace(in.CoverAssetKey),
		LikedBy:       []string{},
		DislikedBy:    []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Store.PutEntry(ctx, entry); err != nil {
		return nil, internal(op, err)
	}
	logging.Ctx(ctx).Info().Str("book_id", entry.BookID).Str("owner_id", ownerID).Msg("book posted")
	return entry, nil
}

// Get returns the book with bookID.
func (s *EntryService) Get(ctx context.Context, bookID string) (*models.Entry, error) {
	entry, err := s.Store.GetEntry(ctx, bookID)
	if err != nil {
		return nil, internal("get entry", err)
	}
	return entry, nil
}

// Delete removes bookID and its comments, then its cover object. Only the
// owner may delete. The object is looked up by the key stored on the entry;
// failing to remove it does not fail the call.
func (s *EntryService) Delete(ctx context.Context, bookID, requesterID string) error {
	const op = "delete entry"
	entry, err := s.Store.GetEntry(ctx, bookID)
	if err != nil {
		return internal(op, err)
	}
	if entry.OwnerID != requesterID {
		return forbidden(op, "only the owner can delete this book")
	}
	if err := s.Store.DeleteEntry(ctx, bookID); err != nil {
		return internal(op, err)
	}
	logging.Ctx(ctx).Info().Str("book_id", bookID).Msg("book deleted")

	if s.Assets != nil && entry.CoverAssetKey != "" {
		if err := s.Assets.Delete(ctx, entry.CoverAssetKey); err != nil {
			metrics.SideEffectFailuresTotal.WithLabelValues("asset_delete").Inc()
			logging.Ctx(ctx).Error().Err(err).
				Str("book_id", bookID).
				Str("key", entry.CoverAssetKey).
				Msg("failed to delete cover asset")
		}
	}
	return nil
}
