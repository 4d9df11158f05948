package devserver

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/liveroute/internal/errors"
	"github.com/vango-dev/liveroute/pkg/navigation"
	"github.com/vango-dev/liveroute/pkg/router"
	"github.com/vango-dev/liveroute/pkg/stream"
)

// MessageType identifies a bridge frame.
type MessageType string

const (
	// Client to server.
	TypeNavigate MessageType = "navigate"
	TypeBack     MessageType = "back"
	TypeForward  MessageType = "forward"

	// Server to client.
	TypeContent  MessageType = "content"
	TypeLocation MessageType = "location"
	TypeError    MessageType = "error"
)

// Message is a bridge frame.
type Message struct {
	Type    MessageType `json:"type"`
	Path    string      `json:"path,omitempty"`
	Content string      `json:"content,omitempty"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// session is one connected client with its own router run.
type session struct {
	srv  *Server
	conn *websocket.Conn
	nav  *navigation.Navigation

	writeMu sync.Mutex
	once    sync.Once
}

func newSession(srv *Server, conn *websocket.Conn, start string) *session {
	return &session{srv: srv, conn: conn, nav: navigation.New(start)}
}

// serve runs the router and reads client frames until either side ends.
func (s *session) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		if err := stream.Run(ctx, s.frames(), s.write); err != nil {
			e := errors.Describe(err)
			s.write(Message{Type: TypeError, Path: s.nav.Current(), Code: e.Code, Error: err.Error()})
			s.close()
		}
	}()

	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			break
		}
		if err := s.handle(msg); err != nil {
			s.write(Message{Type: TypeError, Path: msg.Path, Error: err.Error()})
		}
	}

	cancel()
	<-done
}

// frames merges the router's content with location changes, so that the
// client follows redirects and history moves. It fails when the run fails.
func (s *session) frames() stream.Stream[Message] {
	location := stream.Map(stream.SkipRepeats(stream.FromSignal(s.nav.Path()), nil), func(path string) Message {
		return Message{Type: TypeLocation, Path: path}
	})
	location = stream.Tap(location, func(msg Message) {
		s.srv.logger.Debug("location changed", "path", msg.Path)
	})
	content := stream.Map(s.srv.router.Run(s.nav), func(c router.Content) Message {
		return Message{Type: TypeContent, Path: s.nav.Current(), Content: fmt.Sprint(c)}
	})
	return stream.OnDone(stream.Merge(location, content), func(err error) {
		if err != nil {
			s.srv.logger.Info("router run failed", "path", s.nav.Current(), "code", errors.Describe(err).Code, "error", err)
		}
	})
}

func (s *session) handle(msg Message) error {
	switch msg.Type {
	case TypeNavigate:
		return s.nav.Navigate(msg.Path)
	case TypeBack:
		s.nav.Back()
	case TypeForward:
		s.nav.Forward()
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

func (s *session) write(msg Message) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(msg); err != nil {
		s.srv.logger.Debug("websocket write failed", "error", err)
	}
}

func (s *session) close() {
	s.once.Do(func() {
		s.conn.Close()
	})
}
