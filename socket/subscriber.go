package socket

import (
	"errors"
	"io"
	"sync"

	"bookreview_server/logging"
)

var (
	// ErrQueueFull means the subscriber is not keeping up and should be
	// dropped.
	ErrQueueFull = errors.New("subscriber send queue is full")
	// ErrClosed means the subscriber is already gone.
	ErrClosed = errors.New("subscriber is closed")
)

// Subscriber is one live connection as seen by the room registry. Send must
// not block.
type Subscriber interface {
	ID() string
	Send(event string, payload interface{}) error
	Close()
}

// Emitter is the part of a socket.io connection a subscriber writes to.
type Emitter interface {
	Emit(event string, v ...interface{})
}

type outbound struct {
	event   string
	payload interface{}
}

// ConnSubscriber queues events for one connection and writes them from its
// own goroutine, in the order they were sent.
type ConnSubscriber struct {
	id    string
	conn  Emitter
	queue chan outbound
	done  chan struct{}
	once  sync.Once
}

// NewConnSubscriber starts the writer for conn. queueSize bounds how many
// events may be pending before Send reports ErrQueueFull.
func NewConnSubscriber(id string, conn Emitter, queueSize int) *ConnSubscriber {
	if queueSize < 1 {
		queueSize = 1
	}
	s := &ConnSubscriber{
		id:    id,
		conn:  conn,
		queue: make(chan outbound, queueSize),
		done:  make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

func (s *ConnSubscriber) ID() string { return s.id }

// Send enqueues an event without blocking.
func (s *ConnSubscriber) Send(event string, payload interface{}) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.queue <- outbound{event: event, payload: payload}:
		return nil
	case <-s.done:
		return ErrClosed
	default:
		return ErrQueueFull
	}
}

// Close stops the writer. Pending events are discarded. If the connection can
// be closed it is, off the caller's goroutine, since closing triggers the
// disconnect handler.
func (s *ConnSubscriber) Close() {
	s.once.Do(func() {
		close(s.done)
		if c, ok := s.conn.(io.Closer); ok {
			go func() { _ = c.Close() }()
		}
	})
}

func (s *ConnSubscriber) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case m := <-s.queue:
			s.emit(m)
		}
	}
}

func (s *ConnSubscriber) emit(m outbound) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Str("conn_id", s.id).Str("event", m.event).Msg("socket emit panicked")
			s.Close()
		}
	}()
	s.conn.Emit(m.event, m.payload)
}
