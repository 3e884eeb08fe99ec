// Package config provides configuration loading for go-facemesh commands.
//
// Values are resolved in three layers: DefaultConfig, an optional YAML file,
// then environment variables. Command-line flags are applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultConfigPath = "facemesh.yaml"
	DefaultPort       = "8080"
	DefaultTargetSize = 500
	DefaultFPS        = 60
)

// Config represents the complete go-facemesh configuration.
type Config struct {
	Camera     CameraConfig     `yaml:"camera"`
	Model      ModelConfig      `yaml:"model"`
	Mesh       MeshConfig       `yaml:"mesh"`
	Render     RenderConfig     `yaml:"render"`
	Device     DeviceConfig     `yaml:"device"`
	Web        WebConfig        `yaml:"web"`
	PointCloud PointCloudConfig `yaml:"pointcloud"`
	Log        LogConfig        `yaml:"log"`
}

// CameraConfig contains camera settings.
type CameraConfig struct {
	DeviceID   string `yaml:"device_id"`   // index ("0") or device path ("/dev/video0")
	TargetSize int    `yaml:"target_size"` // requested width and height on non-mobile sessions
}

// ModelConfig contains the pretrained model settings.
type ModelConfig struct {
	DetectorPath string  `yaml:"detector_path"` // YuNet face detector (.onnx, path or URL)
	LandmarkPath string  `yaml:"landmark_path"` // face mesh landmark regressor (.onnx, path or URL)
	CacheDir     string  `yaml:"cache_dir"`     // download directory for URL model paths
	Backend      string  `yaml:"backend"`       // cpu, opencl, cuda, vulkan
	MaxFaces     int     `yaml:"max_faces"`
	Confidence   float64 `yaml:"confidence"`
	InputSize    int     `yaml:"input_size"` // landmark net input edge in pixels
}

// MeshConfig contains the triangulation table settings.
type MeshConfig struct {
	TriangulationPath string `yaml:"triangulation_path"`
	Triangulate       bool   `yaml:"triangulate"`
}

// RenderConfig contains overlay drawing settings.
type RenderConfig struct {
	FPS         int    `yaml:"fps"` // display refresh rate driving the render loop
	Color       string `yaml:"color"`
	LineWidth   int    `yaml:"line_width"`
	PointRadius int    `yaml:"point_radius"`
	JPEGQuality int    `yaml:"jpeg_quality"`
	Mirror      bool   `yaml:"mirror"` // selfie view, flips the encoded frame
}

// DeviceConfig describes the client the session renders for.
type DeviceConfig struct {
	UserAgent string `yaml:"user_agent"`
}

// WebConfig contains the viewer server settings.
type WebConfig struct {
	Port      string `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
}

// PointCloudConfig contains the scatter-plot sink settings.
type PointCloudConfig struct {
	RemoteURL string `yaml:"remote_url"` // optional external scatter-plot websocket
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		Camera: CameraConfig{
			DeviceID:   "0",
			TargetSize: DefaultTargetSize,
		},
		Model: ModelConfig{
			DetectorPath: "models/face_detection_yunet_2023mar.onnx",
			LandmarkPath: "models/face_mesh_192x192.onnx",
			CacheDir:     "models/cache",
			Backend:      "cpu",
			MaxFaces:     1,
			Confidence:   0.9,
			InputSize:    192,
		},
		Mesh: MeshConfig{
			TriangulationPath: "models/face_mesh_triangulation.json",
			Triangulate:       true,
		},
		Render: RenderConfig{
			FPS:         DefaultFPS,
			Color:       "#32EEDB",
			LineWidth:   1,
			PointRadius: 1,
			JPEGQuality: 80,
			Mirror:      true,
		},
		Web: WebConfig{
			Port:      DefaultPort,
			StaticDir: "./web",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file on top of DefaultConfig and applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.LoadEnv()
	return cfg, nil
}

// LoadEnv applies environment variable overrides.
func (c *Config) LoadEnv() {
	if v := os.Getenv("FACEMESH_CAMERA"); v != "" {
		c.Camera.DeviceID = v
	}
	if v := os.Getenv("FACEMESH_BACKEND"); v != "" {
		c.Model.Backend = v
	}
	if v := os.Getenv("FACEMESH_MAX_FACES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Model.MaxFaces = n
		}
	}
	if v := os.Getenv("FACEMESH_USER_AGENT"); v != "" {
		c.Device.UserAgent = v
	}
	if v := os.Getenv("FACEMESH_POINTCLOUD_URL"); v != "" {
		c.PointCloud.RemoteURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Web.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks if the config values are within valid ranges.
func (c *Config) Validate() error {
	var errs []error

	if c.Camera.DeviceID == "" {
		errs = append(errs, errors.New("camera.device_id is required"))
	}
	if c.Camera.TargetSize <= 0 {
		errs = append(errs, errors.New("camera.target_size must be positive"))
	}
	if c.Model.DetectorPath == "" || c.Model.LandmarkPath == "" {
		errs = append(errs, errors.New("model.detector_path and model.landmark_path are required"))
	}
	if c.Model.MaxFaces <= 0 {
		errs = append(errs, errors.New("model.max_faces must be positive"))
	}
	if c.Model.Confidence <= 0 || c.Model.Confidence > 1 {
		errs = append(errs, errors.New("model.confidence must be in (0, 1]"))
	}
	if c.Model.InputSize <= 0 {
		errs = append(errs, errors.New("model.input_size must be positive"))
	}
	if c.Render.FPS < 1 || c.Render.FPS > 240 {
		errs = append(errs, errors.New("render.fps must be between 1 and 240"))
	}
	if c.Render.JPEGQuality < 1 || c.Render.JPEGQuality > 100 {
		errs = append(errs, errors.New("render.jpeg_quality must be between 1 and 100"))
	}
	if c.Web.Port == "" {
		errs = append(errs, errors.New("web.port is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
