package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bookreview_server/models"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedEntry(t *testing.T, store *MemoryStore, bookID, ownerID string) {
	t.Helper()
	require.NoError(t, store.PutEntry(context.Background(), &models.Entry{
		BookID:    bookID,
		OwnerID:   ownerID,
		Title:     "Dune",
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}))
}

type broadcast struct {
	BookID  string
	Event   string
	Payload interface{}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []broadcast
	panics bool
}

func (b *fakeBroadcaster) Broadcast(bookID, event string, payload interface{}) int {
	if b.panics {
		panic("socket layer exploded")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcast{BookID: bookID, Event: event, Payload: payload})
	return 1
}

func (b *fakeBroadcaster) Events() []broadcast {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]broadcast(nil), b.events...)
}

type fakeNotifier struct {
	mu       sync.Mutex
	requests []NotifyRequest
	err      error
}

func (n *fakeNotifier) Notify(_ context.Context, req NotifyRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, req)
	return n.err
}

func (n *fakeNotifier) Requests() []NotifyRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]NotifyRequest(nil), n.requests...)
}

type fakeLive struct {
	mu        sync.Mutex
	connected map[string]bool
	pushed    []string
	onPush    func(userID string)
	panics    bool
}

func (l *fakeLive) EmitToUser(userID, event string, _ interface{}) bool {
	if l.panics {
		panic("connection torn down")
	}
	if l.onPush != nil {
		l.onPush(userID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected[userID] {
		return false
	}
	l.pushed = append(l.pushed, userID+":"+event)
	return true
}

type fakeAssets struct {
	deleted []string
	err     error
}

func (a *fakeAssets) Delete(_ context.Context, key string) error {
	a.deleted = append(a.deleted, key)
	return a.err
}

// failingStore wraps a MemoryStore and fails selected operations.
type failingStore struct {
	*MemoryStore
	failNotifications bool
}

func (s *failingStore) PutNotification(ctx context.Context, n *models.Notification) error {
	if s.failNotifications {
		return errors.New("table unavailable")
	}
	return s.MemoryStore.PutNotification(ctx, n)
}
