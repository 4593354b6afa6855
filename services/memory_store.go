package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"bookreview_server/models"
)

// MemoryStore is an in-process InteractionStore. It backs local runs
// (storage.driver=memory) and the package tests.
type MemoryStore struct {
	mu            sync.RWMutex
	entries       map[string]*entryRecord
	comments      map[string]*models.Comment
	notifications []models.Notification
	profiles      map[string]*models.UserProfile
}

// entryRecord guards one entry so reactions on different entries never
// contend.
type entryRecord struct {
	mu    sync.Mutex
	entry *models.Entry
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:  make(map[string]*entryRecord),
		comments: make(map[string]*models.Comment),
		profiles: make(map[string]*models.UserProfile),
	}
}

func (s *MemoryStore) PutEntry(_ context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.BookID] = &entryRecord{entry: entry.Clone()}
	return nil
}

func (s *MemoryStore) record(bookID string) (*entryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.entries[bookID]
	if !ok {
		return nil, notFound("get entry", "book %s not found", bookID)
	}
	return rec, nil
}

func (s *MemoryStore) GetEntry(_ context.Context, bookID string) (*models.Entry, error) {
	rec, err := s.record(bookID)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.entry.Clone(), nil
}

func (s *MemoryStore) ApplyReaction(_ context.Context, bookID, userID string, action models.ReactionAction) (*models.Entry, bool, error) {
	rec, err := s.record(bookID)
	if err != nil {
		return nil, false, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	before := rec.entry.MembershipOf(userID)
	after := action.Next(before)
	if after == before {
		return rec.entry.Clone(), false, nil
	}

	// Copy-on-write: readers holding an old snapshot never see a half-applied
	// transition.
	next := rec.entry.Clone()
	next.ApplyMembership(userID, after)
	next.UpdatedAt = time.Now().UTC()
	rec.entry = next
	return next.Clone(), true, nil
}

func (s *MemoryStore) DeleteEntry(_ context.Context, bookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[bookID]; !ok {
		return notFound("delete entry", "book %s not found", bookID)
	}
	delete(s.entries, bookID)
	for id, c := range s.comments {
		if c.BookID == bookID {
			delete(s.comments, id)
		}
	}
	return nil
}

func (s *MemoryStore) PutComment(_ context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[comment.BookID]; !ok {
		return notFound("put comment", "book %s not found", comment.BookID)
	}
	c := *comment
	s.comments[c.CommentID] = &c
	return nil
}

func (s *MemoryStore) GetComment(_ context.Context, commentID string) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comments[commentID]
	if !ok {
		return nil, notFound("get comment", "comment %s not found", commentID)
	}
	out := *c
	return &out, nil
}

func (s *MemoryStore) ListComments(_ context.Context, bookID string) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Comment{}
	for _, c := range s.comments {
		if c.BookID == bookID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CommentID < out[j].CommentID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) UpdateCommentText(_ context.Context, commentID, authorID, text string, at time.Time) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[commentID]
	if !ok {
		return nil, notFound("update comment", "comment %s not found", commentID)
	}
	if c.AuthorID != authorID {
		return nil, forbidden("update comment", "only the author can edit this comment")
	}
	c.Text = text
	c.UpdatedAt = at
	out := *c
	return &out, nil
}

func (s *MemoryStore) DeleteComment(_ context.Context, commentID, authorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[commentID]
	if !ok {
		return notFound("delete comment", "comment %s not found", commentID)
	}
	if c.AuthorID != authorID {
		return forbidden("delete comment", "only the author can delete this comment")
	}
	delete(s.comments, commentID)
	return nil
}

func (s *MemoryStore) PutNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, *n)
	return nil
}

// Notifications returns the notifications addressed to recipientID.
func (s *MemoryStore) Notifications(recipientID string) []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out
}

// PutUserProfile seeds a profile for comment views.
func (s *MemoryStore) PutUserProfile(p models.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = &p
}

// GetUserProfile implements ProfileResolver.
func (s *MemoryStore) GetUserProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, notFound("get profile", "profile %s not found", userID)
	}
	out := *p
	return &out, nil
}
