package socket

import (
	"context"
	"errors"
	"net/http"

	"bookreview_server/auth"
	"bookreview_server/logging"
	"bookreview_server/metrics"
	"bookreview_server/models"

	socketio "github.com/googollee/go-socket.io"
)

// Authenticator resolves a bearer token to a user id.
type Authenticator interface {
	Authenticate(token string) (string, error)
}

// session is stored as the socket.io connection context.
type session struct {
	userID string
	sub    *ConnSubscriber
}

// Server is the socket.io endpoint. Anonymous viewers may watch book rooms;
// a valid token also subscribes the connection to its user's notifications.
type Server struct {
	io        *socketio.Server
	rooms     *Rooms
	auth      Authenticator
	queueSize int
}

// NewSocketServer initializes and returns a new Socket.IO server
func NewSocketServer(rooms *Rooms, authenticator Authenticator, queueSize int) *Server {
	s := &Server{
		io:        socketio.NewServer(nil),
		rooms:     rooms,
		auth:      authenticator,
		queueSize: queueSize,
	}

	s.io.OnConnect("/", s.onConnect)
	s.io.OnEvent("/", models.ClientEventJoinBook, s.onJoinBook)
	s.io.OnEvent("/", models.ClientEventLeaveBook, s.onLeaveBook)
	s.io.OnError("/", func(c socketio.Conn, err error) {
		id := ""
		if c != nil {
			id = c.ID()
		}
		logging.Warn().Err(err).Str("conn_id", id).Msg("socket error")
	})
	s.io.OnDisconnect("/", s.onDisconnect)

	return s
}

func (s *Server) onConnect(c socketio.Conn) error {
	userID, err := s.identify(c)
	if err != nil {
		logging.Warn().Err(err).Str("conn_id", c.ID()).Msg("socket rejected: invalid token")
		return err
	}

	sess := &session{userID: userID, sub: NewConnSubscriber(c.ID(), c, s.queueSize)}
	c.SetContext(sess)
	if userID != "" {
		if err := s.rooms.SubscribeUser(userID, sess.sub); err != nil {
			return err
		}
	}

	metrics.SocketConnections.Inc()
	logging.Info().Str("conn_id", c.ID()).Str("user_id", userID).Msg("socket connected")
	return nil
}

// identify returns "" for anonymous connections. A token that is present but
// invalid is an error.
func (s *Server) identify(c socketio.Conn) (string, error) {
	u := c.URL()
	token := u.Query().Get("token")
	if token == "" {
		if t, err := auth.BearerToken(c.RemoteHeader().Get("Authorization")); err == nil {
			token = t
		}
	}
	if token == "" {
		return "", nil
	}
	if s.auth == nil {
		return "", errors.New("authentication is not configured")
	}
	return s.auth.Authenticate(token)
}

func (s *Server) onJoinBook(c socketio.Conn, bookID string) {
	sess, ok := c.Context().(*session)
	if !ok {
		return
	}
	if err := s.rooms.Subscribe(bookID, sess.sub); err != nil {
		logging.Warn().Err(err).Str("conn_id", c.ID()).Msg("invalid joinBook request")
		return
	}
	logging.Debug().Str("conn_id", c.ID()).Str("book_id", bookID).Msg("joined book room")
}

func (s *Server) onLeaveBook(c socketio.Conn, bookID string) {
	s.rooms.Unsubscribe(bookID, c.ID())
	logging.Debug().Str("conn_id", c.ID()).Str("book_id", bookID).Msg("left book room")
}

func (s *Server) onDisconnect(c socketio.Conn, reason string) {
	s.rooms.Disconnect(c.ID())
	if sess, ok := c.Context().(*session); ok {
		sess.sub.Close()
		metrics.SocketConnections.Dec()
	}
	logging.Info().Str("conn_id", c.ID()).Str("reason", reason).Msg("socket disconnected")
}

// ServeHTTP mounts the endpoint; register it under /socket.io/.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHTTP(w, r)
}

// Serve runs the accept loop until ctx is done. It is a suture.Service.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.io.Serve() }()

	select {
	case <-ctx.Done():
		if err := s.io.Close(); err != nil {
			logging.Warn().Err(err).Msg("socket server close failed")
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// String implements fmt.Stringer for suture logs.
func (s *Server) String() string {
	return "socket-server"
}
