// Package landmark runs the pretrained face landmark model.
//
// A YuNet face detector finds face boxes, then a face mesh regressor turns
// each box into 468 3D landmarks scaled back to frame pixels.
package landmark

import (
	"context"
	"errors"
	"image"

	"gocv.io/x/gocv"
)

// MeshPoints is the number of landmarks the face mesh model produces.
const MeshPoints = 468

// ErrModelLoad is returned when a model cannot be fetched or loaded.
var ErrModelLoad = errors.New("landmark: model load failed")

// Point is a landmark in frame pixel space. Z shares the X scale and is
// relative to the face center, smaller is closer to the camera.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Prediction is one detected face for one frame.
type Prediction struct {
	Box        image.Rectangle `json:"box"`
	Score      float64         `json:"score"`
	ScaledMesh []Point         `json:"scaled_mesh"`
}

// Model estimates faces in camera frames.
type Model interface {
	// EstimateFaces returns at most MaxFaces predictions, best score first.
	EstimateFaces(ctx context.Context, frame gocv.Mat) ([]Prediction, error)

	// SetBackend switches the compute backend used by the networks.
	SetBackend(b Backend) error

	// SetMaxFaces changes the face limit for later calls.
	SetMaxFaces(n int)

	// Close releases the networks.
	Close() error
}

// Config holds model configuration.
type Config struct {
	DetectorPath string  // YuNet ONNX file
	LandmarkPath string  // face mesh ONNX file
	Backend      Backend // compute backend
	MaxFaces     int     // faces returned per frame
	Confidence   float64 // minimum detector score
	InputSize    int     // landmark net input edge
	OutputName   string  // landmark output layer, empty for the default
	BoxScale     float64 // crop enlargement around the detector box
}

// DefaultConfig returns production defaults for the face mesh pipeline.
func DefaultConfig() Config {
	return Config{
		DetectorPath: "models/face_detection_yunet_2023mar.onnx",
		LandmarkPath: "models/face_mesh_192x192.onnx",
		Backend:      BackendCPU,
		MaxFaces:     1,
		Confidence:   0.9,
		InputSize:    192,
		BoxScale:     1.5,
	}
}
