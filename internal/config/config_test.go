package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Camera.TargetSize != 500 {
		t.Errorf("Expected TargetSize=500, got %d", cfg.Camera.TargetSize)
	}
	if cfg.Model.MaxFaces != 1 {
		t.Errorf("Expected MaxFaces=1, got %d", cfg.Model.MaxFaces)
	}
	if cfg.Model.Backend != "cpu" {
		t.Errorf("Expected Backend=cpu, got %q", cfg.Model.Backend)
	}
	if !cfg.Mesh.Triangulate {
		t.Error("Expected Triangulate=true by default")
	}
	if cfg.Render.Color != "#32EEDB" {
		t.Errorf("Expected Color=#32EEDB, got %q", cfg.Render.Color)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no camera", func(c *Config) { c.Camera.DeviceID = "" }, "camera.device_id"},
		{"zero target", func(c *Config) { c.Camera.TargetSize = 0 }, "camera.target_size"},
		{"no model", func(c *Config) { c.Model.LandmarkPath = "" }, "model.detector_path"},
		{"zero faces", func(c *Config) { c.Model.MaxFaces = 0 }, "model.max_faces"},
		{"confidence", func(c *Config) { c.Model.Confidence = 1.5 }, "model.confidence"},
		{"fps", func(c *Config) { c.Render.FPS = 0 }, "render.fps"},
		{"jpeg", func(c *Config) { c.Render.JPEGQuality = 101 }, "render.jpeg_quality"},
		{"port", func(c *Config) { c.Web.Port = "" }, "web.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Web.Port != DefaultPort {
		t.Errorf("Expected default port, got %q", cfg.Web.Port)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facemesh.yaml")
	data := `
camera:
  device_id: /dev/video2
model:
  backend: cuda
  max_faces: 3
mesh:
  triangulate: false
render:
  fps: 30
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Camera.DeviceID != "/dev/video2" {
		t.Errorf("DeviceID = %q", cfg.Camera.DeviceID)
	}
	if cfg.Model.Backend != "cuda" || cfg.Model.MaxFaces != 3 {
		t.Errorf("Model = %+v", cfg.Model)
	}
	if cfg.Mesh.Triangulate {
		t.Error("Triangulate should be false")
	}
	if cfg.Render.FPS != 30 {
		t.Errorf("FPS = %d, want 30", cfg.Render.FPS)
	}
	// untouched fields keep defaults
	if cfg.Camera.TargetSize != DefaultTargetSize {
		t.Errorf("TargetSize = %d, want default", cfg.Camera.TargetSize)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("camera: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("FACEMESH_CAMERA", "1")
	t.Setenv("FACEMESH_BACKEND", "vulkan")
	t.Setenv("FACEMESH_MAX_FACES", "2")
	t.Setenv("FACEMESH_USER_AGENT", "Mozilla/5.0 (iPhone)")
	t.Setenv("FACEMESH_POINTCLOUD_URL", "ws://localhost:9000/points")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.LoadEnv()

	if cfg.Camera.DeviceID != "1" {
		t.Errorf("DeviceID = %q", cfg.Camera.DeviceID)
	}
	if cfg.Model.Backend != "vulkan" || cfg.Model.MaxFaces != 2 {
		t.Errorf("Model = %+v", cfg.Model)
	}
	if cfg.Device.UserAgent != "Mozilla/5.0 (iPhone)" {
		t.Errorf("UserAgent = %q", cfg.Device.UserAgent)
	}
	if cfg.PointCloud.RemoteURL != "ws://localhost:9000/points" {
		t.Errorf("RemoteURL = %q", cfg.PointCloud.RemoteURL)
	}
	if cfg.Web.Port != "9090" || cfg.Log.Level != "debug" {
		t.Errorf("Port = %q, Level = %q", cfg.Web.Port, cfg.Log.Level)
	}
}

func TestLoadEnvIgnoresBadNumbers(t *testing.T) {
	t.Setenv("FACEMESH_MAX_FACES", "many")

	cfg := DefaultConfig()
	cfg.LoadEnv()
	if cfg.Model.MaxFaces != 1 {
		t.Errorf("MaxFaces = %d, want default 1", cfg.Model.MaxFaces)
	}
}
