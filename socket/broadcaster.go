package socket

import (
	"fmt"
	"strings"
	"sync"

	"bookreview_server/logging"
	"bookreview_server/metrics"
)

const (
	bookRoomPrefix = "book:"
	userRoomPrefix = "user:"
)

func bookRoom(bookID string) string { return bookRoomPrefix + bookID }

func userRoom(userID string) string { return userRoomPrefix + userID }

// Rooms tracks which subscribers watch which book, plus one personal room per
// user for notifications. Broadcasts to a room are delivered in call order:
// every enqueue happens under the registry lock and each subscriber drains
// its queue in order.
type Rooms struct {
	mu    sync.Mutex
	rooms map[string]map[string]Subscriber
	// joined maps a subscriber id to the rooms it is in.
	joined map[string]map[string]struct{}
}

// NewRooms returns an empty registry.
func NewRooms() *Rooms {
	return &Rooms{
		rooms:  make(map[string]map[string]Subscriber),
		joined: make(map[string]map[string]struct{}),
	}
}

// Subscribe adds sub to the room of bookID. Joining twice is a no-op.
func (r *Rooms) Subscribe(bookID string, sub Subscriber) error {
	if strings.TrimSpace(bookID) == "" {
		return fmt.Errorf("book id is required")
	}
	r.join(bookRoom(bookID), sub)
	return nil
}

// Unsubscribe removes the subscriber from the room of bookID.
func (r *Rooms) Unsubscribe(bookID, subscriberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(bookRoom(bookID), subscriberID)
}

// SubscribeUser adds sub to userID's personal room.
func (r *Rooms) SubscribeUser(userID string, sub Subscriber) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	r.join(userRoom(userID), sub)
	return nil
}

// Disconnect removes the subscriber from every room it joined.
func (r *Rooms) Disconnect(subscriberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropLocked(subscriberID)
}

// Broadcast sends event to everyone watching bookID and returns how many
// subscribers accepted it. A room nobody watches is not an error.
func (r *Rooms) Broadcast(bookID, event string, payload interface{}) int {
	return r.publish(bookRoom(bookID), event, payload)
}

// EmitToUser sends event to every connection of userID and reports whether
// at least one took it.
func (r *Rooms) EmitToUser(userID, event string, payload interface{}) bool {
	return r.publish(userRoom(userID), event, payload) > 0
}

// RoomSize returns the number of subscribers watching bookID.
func (r *Rooms) RoomSize(bookID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[bookRoom(bookID)])
}

// RoomCount returns the number of non-empty rooms, personal rooms included.
func (r *Rooms) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func (r *Rooms) join(room string, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]Subscriber)
		r.rooms[room] = members
	}
	members[sub.ID()] = sub

	rooms, ok := r.joined[sub.ID()]
	if !ok {
		rooms = make(map[string]struct{})
		r.joined[sub.ID()] = rooms
	}
	rooms[room] = struct{}{}
	metrics.ActiveRooms.Set(float64(len(r.rooms)))
}

func (r *Rooms) publish(room, event string, payload interface{}) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delivered := 0
	var failed []string
	for id, sub := range r.rooms[room] {
		if err := sub.Send(event, payload); err != nil {
			logging.Warn().Err(err).Str("conn_id", id).Str("room", room).Str("event", event).Msg("dropping subscriber")
			failed = append(failed, id)
			continue
		}
		delivered++
	}
	for _, id := range failed {
		if sub := r.dropLocked(id); sub != nil {
			sub.Close()
		}
		metrics.SubscriberEvictionsTotal.Inc()
	}
	return delivered
}

func (r *Rooms) leaveLocked(room, subscriberID string) {
	if members, ok := r.rooms[room]; ok {
		delete(members, subscriberID)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if rooms, ok := r.joined[subscriberID]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.joined, subscriberID)
		}
	}
	metrics.ActiveRooms.Set(float64(len(r.rooms)))
}

// dropLocked removes the subscriber everywhere and returns it, or nil if it
// was not registered.
func (r *Rooms) dropLocked(subscriberID string) Subscriber {
	var sub Subscriber
	for room := range r.joined[subscriberID] {
		if s, ok := r.rooms[room][subscriberID]; ok {
			sub = s
		}
		r.leaveLocked(room, subscriberID)
	}
	return sub
}
