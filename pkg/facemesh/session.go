// Package facemesh runs the capture and render loop.
//
// A Session opens the camera, loads the landmark model, then on every
// display tick reads a frame, estimates faces, draws the mesh overlay and
// hands the encoded frame to viewers. The point cloud of every frame is
// forwarded to a scatter-plot sink on desktop sessions.
package facemesh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facemesh/internal/log"
	"github.com/teslashibe/go-facemesh/pkg/camera"
	"github.com/teslashibe/go-facemesh/pkg/device"
	"github.com/teslashibe/go-facemesh/pkg/landmark"
	"github.com/teslashibe/go-facemesh/pkg/mesh"
	"github.com/teslashibe/go-facemesh/pkg/pointcloud"
	"github.com/teslashibe/go-facemesh/pkg/render"
)

// FrameSink receives every annotated JPEG frame.
type FrameSink interface {
	SendFrame(jpeg []byte)
}

// ModelLoader loads the landmark model. Failures should wrap
// landmark.ErrModelLoad.
type ModelLoader func(ctx context.Context, maxFaces int, backend landmark.Backend) (landmark.Model, error)

// Config holds session configuration.
type Config struct {
	UserAgent    string           // client the session renders for
	CameraDevice string           // camera index or path
	TargetSize   int              // requested width and height on desktop
	FPS          int              // display refresh rate
	Backend      landmark.Backend // initial compute backend
	MaxFaces     int              // initial face limit
	Triangulate  bool             // initial mesh mode
	PointRadius  int
	Style        render.Style
	JPEGQuality  int
	Mirror       bool
}

// DefaultConfig returns the desktop webcam defaults.
func DefaultConfig() Config {
	return Config{
		CameraDevice: "0",
		TargetSize:   camera.DefaultTargetSize,
		FPS:          60,
		Backend:      landmark.BackendCPU,
		MaxFaces:     1,
		Triangulate:  true,
		PointRadius:  1,
		Style:        render.DefaultStyle(),
		JPEGQuality:  80,
		Mirror:       true,
	}
}

// Deps are the collaborators a session is built from.
type Deps struct {
	OpenCamera camera.Opener
	LoadModel  ModelLoader

	// NewCanvas builds the canvas once the video size is known. Nil uses a
	// render.MatCanvas styled from Config.
	NewCanvas func(width, height int) render.Canvas

	// Triangulation may be nil, which disables mesh mode.
	Triangulation *mesh.Triangulation

	// Frames receives encoded frames. Optional.
	Frames FrameSink

	// PointCloud is the visualizer sink, used on desktop sessions only.
	PointCloud pointcloud.Sink

	// Observer is notified about rendered and dropped frames. Optional.
	Observer Observer
}

// Status is a point-in-time view of a session.
type Status struct {
	ID          string      `json:"id"`
	State       string      `json:"state"`
	Mobile      bool        `json:"mobile"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	RenderState RenderState `json:"render_state"`
	Stats       Stats       `json:"stats"`
}

// Session owns every resource of the render loop.
type Session struct {
	id   string
	cfg  Config
	deps Deps

	state  atomic.Int32
	mobile bool
	width  int
	height int

	cam     camera.Source
	model   landmark.Model
	canvas  render.Canvas
	tri     *mesh.Triangulation
	scatter *pointcloud.Scatter
	frame   gocv.Mat

	render renderStateManager
	stats  stats
	seq    uint64

	warnOnce  sync.Once
	closeOnce sync.Once
}

// New builds an uninitialized session.
func New(cfg Config, deps Deps) (*Session, error) {
	if deps.OpenCamera == nil {
		return nil, errors.New("facemesh: camera opener required")
	}
	if deps.LoadModel == nil {
		return nil, errors.New("facemesh: model loader required")
	}
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultConfig().FPS
	}
	if cfg.TargetSize <= 0 {
		cfg.TargetSize = camera.DefaultTargetSize
	}
	if cfg.MaxFaces <= 0 {
		cfg.MaxFaces = 1
	}
	if cfg.Backend == "" {
		cfg.Backend = landmark.BackendCPU
	}

	s := &Session{
		id:   uuid.NewString(),
		cfg:  cfg,
		deps: deps,
	}
	s.render.onChange = s.applyRenderState
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Mobile reports whether the session was classified as mobile.
func (s *Session) Mobile() bool {
	return s.mobile
}

// Initialize opens the camera, loads the model and enters Running. On
// failure the session stays Uninitialized and Run refuses to start.
func (s *Session) Initialize(ctx context.Context) error {
	if s.State() != StateUninitialized {
		return fmt.Errorf("facemesh: initialize in state %s", s.State())
	}

	s.mobile = device.IsMobile(s.cfg.UserAgent)

	constraints := camera.ConstraintsFor(s.mobile, s.cfg.TargetSize)
	cam, err := s.deps.OpenCamera(s.cfg.CameraDevice, constraints)
	if err != nil {
		if !errors.Is(err, camera.ErrCameraUnavailable) {
			err = fmt.Errorf("%w: %v", camera.ErrCameraUnavailable, err)
		}
		return err
	}

	model, err := s.deps.LoadModel(ctx, s.cfg.MaxFaces, s.cfg.Backend)
	if err != nil {
		cam.Close()
		if !errors.Is(err, landmark.ErrModelLoad) {
			err = fmt.Errorf("%w: %v", landmark.ErrModelLoad, err)
		}
		return err
	}

	s.cam = cam
	s.model = model
	s.width, s.height = cam.Size()
	if s.width <= 0 || s.height <= 0 {
		s.width, s.height = s.cfg.TargetSize, s.cfg.TargetSize
	}

	if s.deps.NewCanvas != nil {
		s.canvas = s.deps.NewCanvas(s.width, s.height)
	} else {
		s.canvas = render.NewMatCanvas(s.width, s.height, s.cfg.Style, s.cfg.JPEGQuality, s.cfg.Mirror)
	}
	s.frame = gocv.NewMat()

	s.tri = s.deps.Triangulation
	if s.tri != nil && !s.tri.Covers(landmark.MeshPoints) {
		log.Warn("triangulation does not fit the landmark mesh, drawing points",
			"max_index", s.tri.MaxIndex(),
			"mesh_points", landmark.MeshPoints)
		s.tri = nil
	}

	s.render.mobile = s.mobile
	s.render.canTriangulate = s.tri != nil
	s.render.state = RenderState{
		Backend:          s.cfg.Backend,
		MaxFaces:         s.cfg.MaxFaces,
		TriangulateMesh:  s.cfg.Triangulate && s.tri != nil,
		RenderPointCloud: !s.mobile,
	}
	if !s.mobile && s.deps.PointCloud != nil {
		s.scatter = pointcloud.NewScatter(s.deps.PointCloud)
	}

	s.state.Store(int32(StateRunning))
	log.Info("session initialized",
		"id", s.id,
		"mobile", s.mobile,
		"width", s.width,
		"height", s.height,
		"backend", s.cfg.Backend,
		"point_cloud", s.scatter != nil)
	return nil
}

// RenderFrame runs one iteration of the loop. A missing camera frame is
// counted as dropped and is not an error.
func (s *Session) RenderFrame(ctx context.Context) error {
	if s.State() != StateRunning {
		return ErrNotInitialized
	}

	if !s.cam.Read(&s.frame) {
		s.drop(1)
		return nil
	}
	s.seq++

	start := time.Now()
	preds, err := s.model.EstimateFaces(ctx, s.frame)
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &InferenceError{Frame: s.seq, Err: err}
	}

	rs := s.render.get()

	s.canvas.DrawImage(s.frame)
	counts := render.DrawPredictions(s.canvas, preds, s.tri, render.Options{
		Triangulate: rs.TriangulateMesh,
		PointRadius: s.cfg.PointRadius,
	})
	if counts.Skipped > 0 {
		s.warnOnce.Do(func() {
			log.Warn("triangulation references points past the end of the mesh",
				"max_index", s.tri.MaxIndex(),
				"skipped", counts.Skipped)
		})
	}

	if rs.RenderPointCloud && s.scatter != nil {
		if err := s.scatter.Push(pointcloud.Flatten(preds)); err != nil {
			log.Debug("point cloud push failed", "error", err)
		}
	}

	if s.deps.Frames != nil {
		jpeg, err := s.canvas.Encode()
		if err != nil {
			log.Warn("frame encode failed", "frame", s.seq, "error", err)
		} else {
			s.deps.Frames.SendFrame(jpeg)
		}
	}

	s.stats.rendered.Add(1)
	s.stats.lastFaces.Store(int64(len(preds)))
	s.stats.lastInference.Store(int64(elapsed))
	if s.deps.Observer != nil {
		s.deps.Observer.FrameRendered(len(preds), elapsed)
	}
	return nil
}

// Run drives RenderFrame at the configured rate until ctx is cancelled or
// inference fails. Ticks missed while a frame was being processed are
// counted as dropped.
func (s *Session) Run(ctx context.Context) error {
	switch s.State() {
	case StateUninitialized:
		return ErrNotInitialized
	case StateStopped:
		return ErrStopped
	}

	interval := time.Second / time.Duration(s.cfg.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("render loop started", "id", s.id, "fps", s.cfg.FPS)
	defer s.state.Store(int32(StateStopped))

	for {
		select {
		case <-ctx.Done():
			log.Info("render loop stopped", "id", s.id, "frames", s.stats.rendered.Load())
			return nil
		case <-ticker.C:
		}

		start := time.Now()
		if err := s.RenderFrame(ctx); err != nil {
			if ctx.Err() != nil {
				log.Info("render loop stopped", "id", s.id, "frames", s.stats.rendered.Load())
				return nil
			}
			log.Error("render loop terminated", "id", s.id, "error", err)
			return err
		}
		if missed := int(time.Since(start) / interval); missed > 0 {
			s.drop(missed)
		}
	}
}

func (s *Session) drop(n int) {
	s.stats.dropped.Add(uint64(n))
	if s.deps.Observer != nil {
		s.deps.Observer.FramesDropped(n)
	}
}

// RenderState returns the current render state.
func (s *Session) RenderState() RenderState {
	return s.render.get()
}

// SetRenderState replaces the render state.
func (s *Session) SetRenderState(rs RenderState) error {
	if s.State() == StateUninitialized {
		return ErrNotInitialized
	}
	return s.render.set(rs)
}

// UpdateRenderState applies a partial change keyed by JSON field name.
func (s *Session) UpdateRenderState(params map[string]any) (RenderState, error) {
	if s.State() == StateUninitialized {
		return RenderState{}, ErrNotInitialized
	}
	return s.render.update(params)
}

func (s *Session) applyRenderState(old, next RenderState) error {
	if next.Backend != old.Backend {
		if err := s.model.SetBackend(next.Backend); err != nil {
			return err
		}
	}
	if next.MaxFaces != old.MaxFaces {
		s.model.SetMaxFaces(next.MaxFaces)
	}
	log.Info("render state changed",
		"backend", next.Backend,
		"max_faces", next.MaxFaces,
		"triangulate", next.TriangulateMesh,
		"point_cloud", next.RenderPointCloud)
	return nil
}

// Status returns a snapshot for the web API.
func (s *Session) Status() Status {
	return Status{
		ID:          s.id,
		State:       s.State().String(),
		Mobile:      s.mobile,
		Width:       s.width,
		Height:      s.height,
		RenderState: s.render.get(),
		Stats:       s.stats.snapshot(),
	}
}

// Stats returns the render loop counters.
func (s *Session) Stats() Stats {
	return s.stats.snapshot()
}

// Close releases the camera, the model and the canvas. It must not be
// called while Run is active.
func (s *Session) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		if s.State() == StateRunning {
			s.state.Store(int32(StateStopped))
		}
		if s.cam != nil {
			errs = append(errs, s.cam.Close())
		}
		if s.model != nil {
			errs = append(errs, s.model.Close())
		}
		if s.canvas != nil {
			errs = append(errs, s.canvas.Close())
		}
		if s.cam != nil {
			errs = append(errs, s.frame.Close())
		}
	})
	return errors.Join(errs...)
}
