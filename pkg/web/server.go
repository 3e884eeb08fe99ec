// Package web serves the viewer page, the render state API and the
// websocket feeds for annotated frames and the point cloud.
package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-facemesh/internal/log"
	"github.com/teslashibe/go-facemesh/pkg/device"
	"github.com/teslashibe/go-facemesh/pkg/facemesh"
	"github.com/teslashibe/go-facemesh/pkg/hub"
)

// Controller is the session surface the API drives.
type Controller interface {
	Status() facemesh.Status
	RenderState() facemesh.RenderState
	UpdateRenderState(params map[string]any) (facemesh.RenderState, error)
}

// Config holds server configuration.
type Config struct {
	Port      string
	StaticDir string       // viewer page, skipped when missing
	Metrics   http.Handler // served on /metrics when set
}

// Server is the viewer web server
type Server struct {
	app  *fiber.App
	port string

	controller   Controller
	controllerMu sync.RWMutex

	// Hubs for websocket broadcast
	videoHub *hub.Hub
	cloudHub *hub.Hub
}

// NewServer creates a new viewer server
func NewServer(cfg Config) *Server {
	s := &Server{
		port:     cfg.Port,
		videoHub: hub.New("video"),
		cloudHub: hub.New("pointcloud"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-facemesh",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		if _, err := os.Stat(cfg.StaticDir); err == nil {
			app.Static("/", cfg.StaticDir)
		} else {
			log.Debug("static dir not found, viewer page disabled", "dir", cfg.StaticDir)
		}
	}

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/config", s.handleGetConfig)
	api.Put("/config", s.handlePutConfig)
	api.Get("/backends", s.handleBackends)

	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	// Point cloud is desktop only
	app.Use("/ws/pointcloud", func(c *fiber.Ctx) error {
		if device.IsMobile(c.Get(fiber.HeaderUserAgent)) {
			return fiber.ErrForbidden
		}
		return c.Next()
	})

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/video", websocket.New(s.handleVideoWS))
	app.Get("/ws/pointcloud", websocket.New(s.handlePointCloudWS))

	s.app = app
	return s
}

// SetController attaches the session the API reports on.
func (s *Server) SetController(c Controller) {
	s.controllerMu.Lock()
	s.controller = c
	s.controllerMu.Unlock()
}

func (s *Server) getController() Controller {
	s.controllerMu.RLock()
	defer s.controllerMu.RUnlock()
	return s.controller
}

// Start runs the hubs and serves until Shutdown. The hubs stop with ctx.
func (s *Server) Start(ctx context.Context) error {
	fmt.Printf("🌐 Viewer: http://localhost:%s\n", s.port)

	go s.videoHub.Run(ctx)
	go s.cloudHub.Run(ctx)

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			log.Error("web server stopped", "error", err)
		}
	}()
}

// SendFrame sends an annotated frame to every video viewer.
func (s *Server) SendFrame(jpeg []byte) {
	if s.videoHub.ViewerCount() == 0 {
		return
	}
	s.videoHub.BroadcastBinary(jpeg)
}

// PointCloudHub returns the hub feeding /ws/pointcloud.
func (s *Server) PointCloudHub() *hub.Hub {
	return s.cloudHub
}

// App returns the fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

var _ facemesh.FrameSink = (*Server)(nil)
