package pointcloud

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/teslashibe/go-facemesh/pkg/hub"
	"github.com/teslashibe/go-facemesh/pkg/landmark"
)

func TestFlatten(t *testing.T) {
	preds := []landmark.Prediction{
		{ScaledMesh: []landmark.Point{{X: 1, Y: 2, Z: 3}}},
		{ScaledMesh: []landmark.Point{{X: 4, Y: 5, Z: 6}}},
	}

	got := Flatten(preds)
	want := Dataset{{-1, -2, -3}, {-4, -5, -6}}

	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFlattenKeepsOrderAcrossFaces(t *testing.T) {
	preds := []landmark.Prediction{
		{ScaledMesh: []landmark.Point{{X: 1}, {X: 2}}},
		{ScaledMesh: nil},
		{ScaledMesh: []landmark.Point{{X: -3, Y: -4, Z: 0}}},
	}

	got := Flatten(preds)
	want := Dataset{{-1, 0, 0}, {-2, 0, 0}, {3, 4, 0}}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d = %v, want %v", i, got[i], want[i])
		}
	}

	if len(Flatten(nil)) != 0 {
		t.Error("Flatten(nil) should be empty")
	}
}

// recordingSink records the operations it receives.
type recordingSink struct {
	ops []string
	err error
}

func (r *recordingSink) Render(Dataset) error {
	r.ops = append(r.ops, OpRender)
	return r.err
}

func (r *recordingSink) Update(Dataset) error {
	r.ops = append(r.ops, OpUpdate)
	return r.err
}

func TestScatterRendersOnceThenUpdates(t *testing.T) {
	sink := &recordingSink{}
	s := NewScatter(sink)

	for i := 0; i < 3; i++ {
		if err := s.Push(Dataset{{1, 2, 3}}); err != nil {
			t.Fatalf("Push() error = %v", err)
		}
	}

	want := []string{OpRender, OpUpdate, OpUpdate}
	if len(sink.ops) != len(want) {
		t.Fatalf("ops = %v, want %v", sink.ops, want)
	}
	for i := range want {
		if sink.ops[i] != want[i] {
			t.Errorf("op %d = %s, want %s", i, sink.ops[i], want[i])
		}
	}
}

func TestScatterRetriesRenderAfterFailure(t *testing.T) {
	sink := &recordingSink{err: errors.New("down")}
	s := NewScatter(sink)

	if err := s.Push(nil); err == nil {
		t.Fatal("Push() should fail")
	}

	sink.err = nil
	s.Push(nil)
	if sink.ops[1] != OpRender {
		t.Errorf("second push op = %s, want render", sink.ops[1])
	}
}

func TestMulti(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{err: errors.New("b failed")}
	m := Multi{a, b}

	if err := m.Render(nil); err == nil {
		t.Error("Multi.Render() should surface b's error")
	}
	if err := m.Update(nil); err == nil {
		t.Error("Multi.Update() should surface b's error")
	}
	if len(a.ops) != 2 || len(b.ops) != 2 {
		t.Errorf("every sink should be called: a=%v b=%v", a.ops, b.ops)
	}
}

type fakeBroadcaster struct {
	viewers  int
	sent     []hub.Message
	retained hub.Message
}

func (f *fakeBroadcaster) Broadcast(msg hub.Message) { f.sent = append(f.sent, msg) }
func (f *fakeBroadcaster) Retain(msg hub.Message)    { f.retained = msg }
func (f *fakeBroadcaster) ViewerCount() int          { return f.viewers }

func TestHubSink(t *testing.T) {
	fb := &fakeBroadcaster{viewers: 1}
	s := NewHubSink(fb)

	if err := s.Update(Dataset{{-1, -2, -3}}); err != nil {
		t.Fatal(err)
	}

	if len(fb.sent) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(fb.sent))
	}
	var msg Message
	if err := json.Unmarshal(fb.sent[0].Data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Op != OpUpdate || len(msg.Points) != 1 || msg.Points[0] != [3]float64{-1, -2, -3} {
		t.Errorf("broadcast = %+v", msg)
	}

	var retained Message
	if err := json.Unmarshal(fb.retained.Data, &retained); err != nil {
		t.Fatal(err)
	}
	if retained.Op != OpRender {
		t.Errorf("retained op = %s, want render", retained.Op)
	}
	if fb.retained.Type != hub.JSONMessage {
		t.Error("retained message should be JSON")
	}
}

func TestHubSinkWithoutViewersOnlyRetains(t *testing.T) {
	fb := &fakeBroadcaster{}
	s := NewHubSink(fb)

	if err := s.Update(Dataset{{1, 2, 3}}); err != nil {
		t.Fatal(err)
	}
	if len(fb.sent) != 0 {
		t.Errorf("broadcasts = %d, want 0 without viewers", len(fb.sent))
	}

	var retained Message
	if err := json.Unmarshal(fb.retained.Data, &retained); err != nil {
		t.Fatal(err)
	}
	if retained.Op != OpRender || len(retained.Points) != 1 {
		t.Errorf("retained = %+v", retained)
	}
}

func TestHubSinkRenderSharesSnapshot(t *testing.T) {
	fb := &fakeBroadcaster{viewers: 2}
	s := NewHubSink(fb)

	if err := s.Render(Dataset{{1, 2, 3}}); err != nil {
		t.Fatal(err)
	}
	if len(fb.sent) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(fb.sent))
	}
	if string(fb.sent[0].Data) != string(fb.retained.Data) {
		t.Errorf("render broadcast %s differs from snapshot %s", fb.sent[0].Data, fb.retained.Data)
	}
}
