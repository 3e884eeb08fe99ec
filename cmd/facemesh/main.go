// go-facemesh - live face mesh overlay for a local webcam
//
// Captures frames, runs the face landmark model on each one and serves the
// annotated video and point cloud to browser viewers.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/teslashibe/go-facemesh/internal/config"
	flog "github.com/teslashibe/go-facemesh/internal/log"
	"github.com/teslashibe/go-facemesh/pkg/app"
)

func main() {
	cfg := parseFlags()

	flog.InitWithOptions(flog.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	defer flog.Sync()

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Init(ctx); err != nil {
		a.Shutdown()
		log.Fatalf("❌ Initialization failed: %v", err)
	}
	defer a.Shutdown()

	if err := a.Run(ctx); err != nil {
		a.Shutdown()
		log.Fatalf("❌ Runtime error: %v", err)
	}
}

// parseFlags loads .env, the config file and environment, then applies
// command line flags on top.
func parseFlags() config.Config {
	// .env is optional
	_ = godotenv.Load()

	configPath := flag.String("config", config.DefaultConfigPath, "YAML config file")
	cameraDev := flag.String("camera", "", "Camera index or device path (overrides FACEMESH_CAMERA)")
	backend := flag.String("backend", "", "Inference backend: cpu, opencl, cuda, vulkan")
	maxFaces := flag.Int("max-faces", 0, "Maximum faces per frame")
	userAgent := flag.String("user-agent", "", "Client user agent the session renders for")
	port := flag.String("port", "", "Viewer HTTP port")
	points := flag.Bool("points", false, "Draw landmark points instead of mesh triangles")
	remote := flag.String("pointcloud-url", "", "External scatter-plot websocket URL")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Config: %v", err)
	}

	if *cameraDev != "" {
		cfg.Camera.DeviceID = *cameraDev
	}
	if *backend != "" {
		cfg.Model.Backend = *backend
	}
	if *maxFaces > 0 {
		cfg.Model.MaxFaces = *maxFaces
	}
	if *userAgent != "" {
		cfg.Device.UserAgent = *userAgent
	}
	if *port != "" {
		cfg.Web.Port = *port
	}
	if *points {
		cfg.Mesh.Triangulate = false
	}
	if *remote != "" {
		cfg.PointCloud.RemoteURL = *remote
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = os.Getenv("FACEMESH_LOG_FILE")
	}
	return cfg
}
