// Package pointcloud forwards landmark points to 3D scatter-plot viewers.
package pointcloud

import (
	"errors"
	"sync"

	"github.com/teslashibe/go-facemesh/pkg/landmark"
)

// Dataset is a flat list of scatter points.
type Dataset [][3]float64

// Operations carried in Message.Op.
const (
	OpRender = "render"
	OpUpdate = "update"
)

// Message is the wire form sent to scatter-plot viewers.
type Message struct {
	Op     string  `json:"op"`
	Points Dataset `json:"points"`
}

// Sink receives datasets. Render is called once before any Update.
type Sink interface {
	Render(ds Dataset) error
	Update(ds Dataset) error
}

// Flatten concatenates every prediction's mesh in order and negates each
// axis, turning image coordinates into a right-handed scatter space.
func Flatten(preds []landmark.Prediction) Dataset {
	n := 0
	for _, p := range preds {
		n += len(p.ScaledMesh)
	}
	ds := make(Dataset, 0, n)
	for _, p := range preds {
		for _, pt := range p.ScaledMesh {
			ds = append(ds, [3]float64{-pt.X, -pt.Y, -pt.Z})
		}
	}
	return ds
}

// Scatter drives a Sink: the first push renders, later pushes update.
type Scatter struct {
	sink Sink

	mu       sync.Mutex
	rendered bool
}

// NewScatter wraps sink.
func NewScatter(sink Sink) *Scatter {
	return &Scatter{sink: sink}
}

// Push sends ds to the sink.
func (s *Scatter) Push(ds Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.rendered {
		if err := s.sink.Render(ds); err != nil {
			return err
		}
		s.rendered = true
		return nil
	}
	return s.sink.Update(ds)
}

// Multi fans a dataset out to several sinks. Every sink is called; the
// errors are joined.
type Multi []Sink

// Render implements Sink.
func (m Multi) Render(ds Dataset) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Render(ds))
	}
	return errors.Join(errs...)
}

// Update implements Sink.
func (m Multi) Update(ds Dataset) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Update(ds))
	}
	return errors.Join(errs...)
}
