package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func newTestViewer(h *Hub, buf int) *Viewer {
	return &Viewer{id: "viewer-1", hub: h, send: make(chan Message, buf)}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}

func receive(t *testing.T, v *Viewer) Message {
	t.Helper()
	select {
	case msg := <-v.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return Message{}
	}
}

// startHub runs h until the returned stop func is called; stop waits for Run.
func startHub(t *testing.T, h *Hub) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	waitFor(t, h.IsRunning)
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Run did not return after cancel")
		}
	}
}

func TestJoinSendsWelcome(t *testing.T) {
	h := New("video")
	stop := startHub(t, h)
	defer stop()

	v := newTestViewer(h, 4)
	if !h.join(v) {
		t.Fatal("join() = false on a running hub")
	}

	msg := receive(t, v)
	if msg.Type != JSONMessage {
		t.Fatalf("Type = %v, want JSONMessage", msg.Type)
	}
	var w Welcome
	if err := json.Unmarshal(msg.Data, &w); err != nil {
		t.Fatal(err)
	}
	if w.Op != "welcome" || w.Viewer != "viewer-1" || w.Stream != "video" {
		t.Errorf("welcome = %+v", w)
	}
}

func TestHubBroadcast(t *testing.T) {
	h := New("video")
	stop := startHub(t, h)
	defer stop()

	v := newTestViewer(h, 4)
	h.join(v)
	receive(t, v) // welcome

	h.BroadcastBinary([]byte{1, 2, 3})

	msg := receive(t, v)
	if msg.Type != BinaryMessage {
		t.Errorf("Type = %v, want BinaryMessage", msg.Type)
	}
	if len(msg.Data) != 3 {
		t.Errorf("len(Data) = %d, want 3", len(msg.Data))
	}
}

func TestHubRetainedReplay(t *testing.T) {
	h := New("pointcloud")
	stop := startHub(t, h)
	defer stop()

	h.Retain(NewJSONMessage([]byte(`{"op":"render"}`)))

	v := newTestViewer(h, 4)
	h.join(v)
	receive(t, v) // welcome

	if msg := receive(t, v); string(msg.Data) != `{"op":"render"}` {
		t.Errorf("retained = %s", msg.Data)
	}
}

func TestHubEvictsSlowViewer(t *testing.T) {
	h := New("video")
	stop := startHub(t, h)
	defer stop()

	// The welcome fills the only slot.
	slow := newTestViewer(h, 1)
	h.join(slow)
	waitFor(t, func() bool { return h.ViewerCount() == 1 })

	h.BroadcastBinary([]byte{1})

	waitFor(t, func() bool { return h.ViewerCount() == 0 })
	if got := h.Stats().Evicted; got != 1 {
		t.Errorf("Stats().Evicted = %d, want 1", got)
	}
}

func TestHubLeave(t *testing.T) {
	h := New("video")
	stop := startHub(t, h)
	defer stop()

	v := newTestViewer(h, 2)
	h.join(v)
	h.leave(v)
	waitFor(t, func() bool { return h.ViewerCount() == 0 })

	receive(t, v) // welcome
	if _, ok := <-v.send; ok {
		t.Error("send channel should be closed after leave")
	}
}

func TestHubStopsOnCancel(t *testing.T) {
	h := New("video")
	stop := startHub(t, h)

	v := newTestViewer(h, 2)
	h.join(v)
	waitFor(t, func() bool { return h.ViewerCount() == 1 })

	stop()
	if h.IsRunning() {
		t.Error("IsRunning() = true after stop")
	}
	if h.ViewerCount() != 0 {
		t.Errorf("ViewerCount() = %d, want 0", h.ViewerCount())
	}
}

func TestJoinAndLeaveAfterStopDoNotBlock(t *testing.T) {
	h := New("video")
	stop := startHub(t, h)

	connected := newTestViewer(h, 2)
	h.join(connected)
	waitFor(t, func() bool { return h.ViewerCount() == 1 })
	stop()

	left := make(chan struct{})
	go func() {
		h.leave(connected)
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("leave blocked after the hub stopped")
	}

	joined := make(chan bool, 1)
	go func() { joined <- h.join(newTestViewer(h, 2)) }()
	select {
	case ok := <-joined:
		if ok {
			t.Error("join() = true after the hub stopped")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("join blocked after the hub stopped")
	}
}

func TestBroadcastDropsWhenQueueFull(t *testing.T) {
	h := New("video") // not running, nothing drains the queue
	for i := 0; i < cap(h.broadcast)+3; i++ {
		h.BroadcastBinary([]byte{byte(i)})
	}
	if got := h.Stats().Dropped; got != 3 {
		t.Errorf("Stats().Dropped = %d, want 3", got)
	}
}
