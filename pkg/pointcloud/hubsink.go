package pointcloud

import (
	"encoding/json"

	"github.com/teslashibe/go-facemesh/pkg/hub"
)

// Broadcaster is the part of hub.Hub a HubSink needs.
type Broadcaster interface {
	Broadcast(msg hub.Message)
	Retain(msg hub.Message)
	ViewerCount() int
}

// HubSink broadcasts datasets to websocket viewers through a hub. The
// latest dataset is retained as a render message so viewers that join
// later start from a full plot.
type HubSink struct {
	hub Broadcaster
}

// NewHubSink creates a sink broadcasting on h.
func NewHubSink(h Broadcaster) *HubSink {
	return &HubSink{hub: h}
}

// Render implements Sink.
func (s *HubSink) Render(ds Dataset) error {
	return s.send(OpRender, ds)
}

// Update implements Sink.
func (s *HubSink) Update(ds Dataset) error {
	return s.send(OpUpdate, ds)
}

// envelope shares one encoding of the points between the retained
// snapshot and the live message.
type envelope struct {
	Op     string          `json:"op"`
	Points json.RawMessage `json:"points"`
}

func (s *HubSink) send(op string, ds Dataset) error {
	points, err := json.Marshal(ds)
	if err != nil {
		return err
	}

	snapshot, err := json.Marshal(envelope{Op: OpRender, Points: points})
	if err != nil {
		return err
	}
	s.hub.Retain(hub.NewJSONMessage(snapshot))

	if s.hub.ViewerCount() == 0 {
		return nil
	}
	if op == OpRender {
		s.hub.Broadcast(hub.NewJSONMessage(snapshot))
		return nil
	}
	live, err := json.Marshal(envelope{Op: op, Points: points})
	if err != nil {
		return err
	}
	s.hub.Broadcast(hub.NewJSONMessage(live))
	return nil
}
