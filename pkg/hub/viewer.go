package hub

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-facemesh/internal/log"
)

// Viewer connection limits. Viewers send nothing but pongs.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 16
)

// Welcome is the first message a viewer receives, before any retained
// snapshot or live message.
type Welcome struct {
	Op     string `json:"op"`
	Viewer string `json:"viewer"`
	Stream string `json:"stream"`
}

// Viewer is one browser watching a hub's stream.
type Viewer struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

func newViewer(h *Hub, conn *websocket.Conn) *Viewer {
	return &Viewer{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan Message, sendBuffer),
	}
}

func (v *Viewer) welcome() Message {
	data, _ := json.Marshal(Welcome{Op: "welcome", Viewer: v.id, Stream: v.hub.name})
	return NewJSONMessage(data)
}

// Serve attaches conn to h and blocks until the viewer goes away or the
// hub stops. Call it from a websocket handler.
func Serve(h *Hub, conn *websocket.Conn) {
	v := newViewer(h, conn)
	if !h.join(v) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream stopped"))
		conn.Close()
		return
	}
	go v.writeLoop()
	v.readLoop()
}

// readLoop services pongs until the connection fails, then detaches.
func (v *Viewer) readLoop() {
	defer func() {
		v.hub.leave(v)
		v.conn.Close()
	}()

	v.conn.SetReadLimit(maxMessageSize)
	_ = v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("viewer read failed", "hub", v.hub.name, "viewer", v.id, "error", err)
			}
			return
		}
	}
}

// writeLoop is the only writer on conn. A closed send channel means the
// hub evicted the viewer or stopped.
func (v *Viewer) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		v.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-v.send:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = v.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream ended"))
				return
			}
			if err := v.conn.WriteMessage(msg.wsType(), msg.Data); err != nil {
				return
			}

		case <-ping.C:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
