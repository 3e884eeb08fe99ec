// Package app wires the facemesh session, the viewer server and metrics
// into one process.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/teslashibe/go-facemesh/internal/config"
	"github.com/teslashibe/go-facemesh/internal/log"
	"github.com/teslashibe/go-facemesh/pkg/camera"
	"github.com/teslashibe/go-facemesh/pkg/facemesh"
	"github.com/teslashibe/go-facemesh/pkg/landmark"
	"github.com/teslashibe/go-facemesh/pkg/mesh"
	"github.com/teslashibe/go-facemesh/pkg/metrics"
	"github.com/teslashibe/go-facemesh/pkg/pointcloud"
	"github.com/teslashibe/go-facemesh/pkg/render"
	"github.com/teslashibe/go-facemesh/pkg/web"
)

// App is the main application orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config config.Config

	session   *facemesh.Session
	webServer *web.Server
	recorder  *metrics.Recorder
	remote    *pointcloud.RemoteSink

	// Overridable for tests
	openCamera camera.Opener
	loadModel  facemesh.ModelLoader
}

// New creates a new application with the given configuration.
func New(cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := landmark.ParseBackend(cfg.Model.Backend); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := render.ParseColor(cfg.Render.Color); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{config: cfg, openCamera: camera.Open}
	a.loadModel = a.defaultModelLoader
	return a, nil
}

// Init builds every component and initializes the session.
// Call this after New() and before Run().
func (a *App) Init(ctx context.Context) error {
	fmt.Println("🎭 go-facemesh")
	fmt.Println("==============")

	cfg := a.config
	backend, _ := landmark.ParseBackend(cfg.Model.Backend)
	color, _ := render.ParseColor(cfg.Render.Color)

	tri, err := mesh.Load(cfg.Mesh.TriangulationPath)
	if err != nil {
		// Mesh mode needs the table; dots still work without it
		log.Warn("triangulation unavailable, drawing landmark points", "error", err)
		tri = nil
	} else {
		log.Info("triangulation loaded", "triangles", tri.Len())
	}

	a.recorder = metrics.NewRecorder()
	a.webServer = web.NewServer(web.Config{
		Port:      cfg.Web.Port,
		StaticDir: cfg.Web.StaticDir,
		Metrics:   a.recorder.Handler(),
	})

	var sink pointcloud.Sink = pointcloud.NewHubSink(a.webServer.PointCloudHub())
	if cfg.PointCloud.RemoteURL != "" {
		a.remote = pointcloud.NewRemoteSink(cfg.PointCloud.RemoteURL)
		sink = pointcloud.Multi{sink, a.remote}
		log.Info("point cloud remote sink enabled",
			"url", cfg.PointCloud.RemoteURL,
			"client_id", a.remote.ClientID())
	}

	session, err := facemesh.New(facemesh.Config{
		UserAgent:    cfg.Device.UserAgent,
		CameraDevice: cfg.Camera.DeviceID,
		TargetSize:   cfg.Camera.TargetSize,
		FPS:          cfg.Render.FPS,
		Backend:      backend,
		MaxFaces:     cfg.Model.MaxFaces,
		Triangulate:  cfg.Mesh.Triangulate,
		PointRadius:  cfg.Render.PointRadius,
		Style:        render.Style{Color: color, LineWidth: cfg.Render.LineWidth},
		JPEGQuality:  cfg.Render.JPEGQuality,
		Mirror:       cfg.Render.Mirror,
	}, facemesh.Deps{
		OpenCamera:    a.openCamera,
		LoadModel:     a.loadModel,
		Triangulation: tri,
		Frames:        a.webServer,
		PointCloud:    sink,
		Observer:      a.recorder,
	})
	if err != nil {
		return err
	}

	fmt.Print("📷 Opening camera and loading model... ")
	if err := session.Initialize(ctx); err != nil {
		fmt.Println("❌")
		return fmt.Errorf("session init: %w", err)
	}
	fmt.Println("✅")

	a.session = session
	a.webServer.SetController(session)
	return nil
}

// defaultModelLoader resolves both model files and builds the DNN pipeline.
func (a *App) defaultModelLoader(ctx context.Context, maxFaces int, backend landmark.Backend) (landmark.Model, error) {
	mc := a.config.Model
	fetcher := landmark.NewFetcher(mc.CacheDir)

	detector, err := fetcher.Fetch(ctx, mc.DetectorPath)
	if err != nil {
		return nil, fmt.Errorf("detector: %w", err)
	}
	landmarks, err := fetcher.Fetch(ctx, mc.LandmarkPath)
	if err != nil {
		return nil, fmt.Errorf("landmarks: %w", err)
	}

	lc := landmark.DefaultConfig()
	lc.DetectorPath = detector
	lc.LandmarkPath = landmarks
	lc.Backend = backend
	lc.MaxFaces = maxFaces
	lc.Confidence = mc.Confidence
	lc.InputSize = mc.InputSize
	return landmark.NewFaceMesh(lc)
}

// Run starts the viewer server, the metrics sampler and the render loop.
// Blocks until ctx is cancelled or the render loop fails.
func (a *App) Run(ctx context.Context) error {
	if a.session == nil {
		return facemesh.ErrNotInitialized
	}

	a.webServer.StartAsync(ctx)
	go a.recorder.SampleProcess(ctx, metrics.DefaultSampleInterval)

	fmt.Println("\n🎥 Rendering! (Ctrl+C to exit)")
	err := a.session.Run(ctx)

	var inf *facemesh.InferenceError
	if errors.As(err, &inf) {
		fmt.Printf("❌ Inference failed on frame %d\n", inf.Frame)
	}
	return err
}

// Status returns the session status, or false before Init.
func (a *App) Status() (facemesh.Status, bool) {
	if a.session == nil {
		return facemesh.Status{}, false
	}
	return a.session.Status(), true
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	fmt.Println("\n👋 Goodbye!")

	if a.webServer != nil {
		if err := a.webServer.Shutdown(); err != nil {
			log.Warn("web server shutdown", "error", err)
		}
	}
	if a.remote != nil {
		a.remote.Close()
	}
	if a.session != nil {
		if err := a.session.Close(); err != nil {
			log.Warn("session close", "error", err)
		}
	}
	log.Sync()
}
