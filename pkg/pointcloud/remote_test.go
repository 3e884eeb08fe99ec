package pointcloud

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestRemoteSink(t *testing.T) {
	received := make(chan Message, 4)
	clientIDs := make(chan string, 1)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIDs <- r.Header.Get("X-Client-ID")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			received <- msg
		}
	}))
	defer srv.Close()

	sink := NewRemoteSink("ws" + strings.TrimPrefix(srv.URL, "http"))
	defer sink.Close()

	s := NewScatter(sink)
	if err := s.Push(Dataset{{1, 2, 3}}); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if err := s.Push(Dataset{{4, 5, 6}}); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	if id := <-clientIDs; id != sink.ClientID() {
		t.Errorf("X-Client-ID = %q, want %q", id, sink.ClientID())
	}

	for _, want := range []string{OpRender, OpUpdate} {
		select {
		case msg := <-received:
			if msg.Op != want {
				t.Errorf("op = %s, want %s", msg.Op, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestRemoteSinkDialError(t *testing.T) {
	sink := NewRemoteSink("ws://127.0.0.1:1/none")
	if err := sink.Render(nil); err == nil {
		t.Error("Render() should fail when the service is down")
	}
}
