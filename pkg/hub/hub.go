package hub

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-facemesh/internal/log"
)

// Stats is a snapshot of a hub's delivery counters.
type Stats struct {
	Viewers int    `json:"viewers"`
	Dropped uint64 `json:"dropped"` // broadcasts discarded while the hub was busy
	Evicted uint64 `json:"evicted"` // viewers disconnected for falling behind
}

// Hub owns the viewers of one stream and broadcasts to them.
type Hub struct {
	name string

	viewers    map[*Viewer]struct{}
	broadcast  chan Message
	register   chan *Viewer
	unregister chan *Viewer

	// done is closed when Run returns; joins and leaves stop blocking.
	done     chan struct{}
	doneOnce sync.Once

	// Guards viewers and retained
	mu       sync.RWMutex
	retained *Message

	running atomic.Bool
	dropped atomic.Uint64
	evicted atomic.Uint64
}

// New creates a hub for the named stream.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		viewers:    make(map[*Viewer]struct{}),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Viewer),
		unregister: make(chan *Viewer),
		done:       make(chan struct{}),
	}
}

// Name returns the stream name used in logs.
func (h *Hub) Name() string {
	return h.name
}

// Run delivers broadcasts until ctx is cancelled, then disconnects every
// viewer. A hub runs once.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		h.doneOnce.Do(func() { close(h.done) })
	}()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case v := <-h.register:
			h.mu.Lock()
			h.viewers[v] = struct{}{}
			v.send <- v.welcome()
			if h.retained != nil {
				v.send <- *h.retained
			}
			count := len(h.viewers)
			h.mu.Unlock()
			log.Info("viewer connected", "hub", h.name, "viewer", v.id, "total", count)

		case v := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.viewers[v]; ok {
				delete(h.viewers, v)
				close(v.send)
			}
			count := len(h.viewers)
			h.mu.Unlock()
			log.Info("viewer disconnected", "hub", h.name, "viewer", v.id, "remaining", count)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for v := range h.viewers {
				select {
				case v.send <- msg:
				default:
					close(v.send)
					delete(h.viewers, v)
					h.evicted.Add(1)
					log.Warn("evicted slow viewer", "hub", h.name, "viewer", v.id)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for v := range h.viewers {
		close(v.send)
		delete(h.viewers, v)
	}
}

// join hands v to Run. It reports false once the hub has stopped.
func (h *Hub) join(v *Viewer) bool {
	select {
	case h.register <- v:
		return true
	case <-h.done:
		return false
	}
}

// leave detaches v. After the hub stops it returns at once; closeAll has
// already released the viewer.
func (h *Hub) leave(v *Viewer) {
	select {
	case h.unregister <- v:
	case <-h.done:
	}
}

// Broadcast queues msg for every viewer, dropping it if the hub is backed up.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Add(1)
		log.Debug("broadcast queue full, dropping message", "hub", h.name)
	}
}

// BroadcastBinary broadcasts an encoded video frame.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// Retain stores msg so viewers that connect later receive it first.
func (h *Hub) Retain(msg Message) {
	h.mu.Lock()
	h.retained = &msg
	h.mu.Unlock()
}

// ViewerCount returns the number of connected viewers.
func (h *Hub) ViewerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// Stats returns the hub's delivery counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Viewers: h.ViewerCount(),
		Dropped: h.dropped.Load(),
		Evicted: h.evicted.Load(),
	}
}

// IsRunning returns whether Run is active.
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}
