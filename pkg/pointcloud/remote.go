package pointcloud

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-facemesh/internal/log"
)

const remoteWriteWait = 2 * time.Second

// RemoteSink pushes datasets to an external scatter-plot service over a
// websocket. The connection is dialed lazily and dropped on write errors;
// the next push dials again.
type RemoteSink struct {
	url      string
	clientID string
	dialer   websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewRemoteSink creates a sink for the websocket at url.
func NewRemoteSink(url string) *RemoteSink {
	return &RemoteSink{
		url:      url,
		clientID: uuid.NewString(),
		dialer: websocket.Dialer{
			HandshakeTimeout: 5 * time.Second,
		},
	}
}

// ClientID identifies this process to the remote service.
func (s *RemoteSink) ClientID() string {
	return s.clientID
}

// Render implements Sink.
func (s *RemoteSink) Render(ds Dataset) error {
	return s.send(Message{Op: OpRender, Points: ds})
}

// Update implements Sink.
func (s *RemoteSink) Update(ds Dataset) error {
	return s.send(Message{Op: OpUpdate, Points: ds})
}

func (s *RemoteSink) send(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		header := http.Header{}
		header.Set("X-Client-ID", s.clientID)
		conn, _, err := s.dialer.Dial(s.url, header)
		if err != nil {
			return fmt.Errorf("pointcloud: dial %s: %w", s.url, err)
		}
		s.conn = conn
		log.Info("point cloud remote connected", "url", s.url, "client_id", s.clientID)
	}

	s.conn.SetWriteDeadline(time.Now().Add(remoteWriteWait))
	if err := s.conn.WriteJSON(msg); err != nil {
		s.conn.Close()
		s.conn = nil
		return fmt.Errorf("pointcloud: write: %w", err)
	}
	return nil
}

// Close closes the connection, if any.
func (s *RemoteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := s.conn.Close()
	s.conn = nil
	return err
}
