package facemesh

import (
	"sync/atomic"
	"time"
)

// Observer is notified about render loop progress.
type Observer interface {
	FrameRendered(faces int, inference time.Duration)
	FramesDropped(n int)
}

// Stats is a snapshot of render loop counters.
type Stats struct {
	FramesRendered  uint64  `json:"frames_rendered"`
	FramesDropped   uint64  `json:"frames_dropped"`
	LastFaces       int     `json:"last_faces"`
	LastInferenceMS float64 `json:"last_inference_ms"`
}

type stats struct {
	rendered      atomic.Uint64
	dropped       atomic.Uint64
	lastFaces     atomic.Int64
	lastInference atomic.Int64 // nanoseconds
}

func (s *stats) snapshot() Stats {
	return Stats{
		FramesRendered:  s.rendered.Load(),
		FramesDropped:   s.dropped.Load(),
		LastFaces:       int(s.lastFaces.Load()),
		LastInferenceMS: float64(s.lastInference.Load()) / float64(time.Millisecond),
	}
}
