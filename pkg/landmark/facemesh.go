package landmark

import (
	"context"
	"fmt"
	"image"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facemesh/internal/log"
)

// Detector parameters fixed by the YuNet model.
const (
	detectorNMS  = 0.3
	detectorTopK = 5000
)

// FaceMesh is the OpenCV DNN implementation of Model.
type FaceMesh struct {
	cfg Config

	mu       sync.Mutex // protects detector, net and backend
	detector gocv.FaceDetectorYN
	net      gocv.Net
	backend  Backend

	maxFaces atomic.Int64
}

// box is a raw detector hit in frame pixels.
type box struct {
	rect  image.Rectangle
	score float64
}

// NewFaceMesh loads both networks. Missing or unreadable model files fail
// with ErrModelLoad.
func NewFaceMesh(cfg Config) (*FaceMesh, error) {
	if cfg.InputSize <= 0 {
		cfg.InputSize = DefaultConfig().InputSize
	}
	if cfg.BoxScale <= 0 {
		cfg.BoxScale = DefaultConfig().BoxScale
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendCPU
	}

	for _, p := range []string{cfg.DetectorPath, cfg.LandmarkPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
		}
	}

	net := gocv.ReadNetFromONNX(cfg.LandmarkPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: cannot read %s", ErrModelLoad, cfg.LandmarkPath)
	}

	m := &FaceMesh{cfg: cfg, net: net}
	m.maxFaces.Store(int64(max(cfg.MaxFaces, 1)))
	m.detector = m.newDetector(cfg.Backend)
	if err := m.applyNetBackend(cfg.Backend); err != nil {
		m.detector.Close()
		m.net.Close()
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	m.backend = cfg.Backend

	log.Info("face mesh loaded",
		"detector", cfg.DetectorPath,
		"landmarks", cfg.LandmarkPath,
		"backend", cfg.Backend,
		"max_faces", m.maxFaces.Load())
	return m, nil
}

func (m *FaceMesh) newDetector(b Backend) gocv.FaceDetectorYN {
	backend, target := b.DNN()
	return gocv.NewFaceDetectorYNWithParams(
		m.cfg.DetectorPath,
		"", // no config file for ONNX
		image.Pt(320, 320),
		float32(m.cfg.Confidence),
		detectorNMS,
		detectorTopK,
		int(backend),
		int(target),
	)
}

func (m *FaceMesh) applyNetBackend(b Backend) error {
	backend, target := b.DNN()
	if err := m.net.SetPreferableBackend(backend); err != nil {
		return fmt.Errorf("set backend %s: %w", b, err)
	}
	if err := m.net.SetPreferableTarget(target); err != nil {
		return fmt.Errorf("set target %s: %w", b, err)
	}
	return nil
}

// SetBackend rebuilds the detector and retargets the landmark net.
func (m *FaceMesh) SetBackend(b Backend) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b == m.backend {
		return nil
	}
	if err := m.applyNetBackend(b); err != nil {
		return err
	}
	m.detector.Close()
	m.detector = m.newDetector(b)
	m.backend = b

	log.Info("inference backend changed", "backend", b)
	return nil
}

// SetMaxFaces changes the face limit. Values below one are clamped.
func (m *FaceMesh) SetMaxFaces(n int) {
	m.maxFaces.Store(int64(max(n, 1)))
}

// EstimateFaces runs detection then landmark regression on frame.
func (m *FaceMesh) EstimateFaces(ctx context.Context, frame gocv.Mat) ([]Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame.Empty() {
		return nil, fmt.Errorf("landmark: empty frame")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	boxes := m.detect(frame)
	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())

	preds := make([]Prediction, 0, len(boxes))
	for _, b := range boxes {
		roi := cropRegion(b.rect, m.cfg.BoxScale, bounds)
		if roi.Empty() {
			continue
		}
		raw, err := m.regress(frame, roi)
		if err != nil {
			return preds, err
		}
		preds = append(preds, Prediction{
			Box:        b.rect,
			Score:      b.score,
			ScaledMesh: scaleMesh(raw, roi, m.cfg.InputSize),
		})
	}
	return preds, nil
}

func (m *FaceMesh) detect(frame gocv.Mat) []box {
	m.detector.SetInputSize(image.Pt(frame.Cols(), frame.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()
	m.detector.Detect(frame, &faces)

	boxes := make([]box, 0, faces.Rows())
	for r := 0; r < faces.Rows(); r++ {
		// YuNet rows: 0-3 box, 4-13 five landmarks, 14 score
		x := int(faces.GetFloatAt(r, 0))
		y := int(faces.GetFloatAt(r, 1))
		w := int(faces.GetFloatAt(r, 2))
		h := int(faces.GetFloatAt(r, 3))
		boxes = append(boxes, box{
			rect:  image.Rect(x, y, x+w, y+h),
			score: float64(faces.GetFloatAt(r, 14)),
		})
	}
	return topFaces(boxes, int(m.maxFaces.Load()))
}

func (m *FaceMesh) regress(frame gocv.Mat, roi image.Rectangle) ([]float32, error) {
	crop := frame.Region(roi)
	defer crop.Close()

	size := image.Pt(m.cfg.InputSize, m.cfg.InputSize)
	blob := gocv.BlobFromImage(crop, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	m.net.SetInput(blob, "")
	out := m.net.Forward(m.cfg.OutputName)
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("landmark: read output: %w", err)
	}
	if len(data) < MeshPoints*3 {
		return nil, fmt.Errorf("landmark: output has %d values, want %d", len(data), MeshPoints*3)
	}
	// DataPtrFloat32 aliases out, which is closed on return
	raw := make([]float32, MeshPoints*3)
	copy(raw, data)
	return raw, nil
}

// Close releases the networks.
func (m *FaceMesh) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detector.Close()
	return m.net.Close()
}

// topFaces returns the n best-scoring boxes.
func topFaces(boxes []box, n int) []box {
	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].score > boxes[j].score
	})
	if len(boxes) > n {
		boxes = boxes[:n]
	}
	return boxes
}

// cropRegion squares r around its center, enlarges it by scale and clips
// it to bounds.
func cropRegion(r image.Rectangle, scale float64, bounds image.Rectangle) image.Rectangle {
	side := float64(max(r.Dx(), r.Dy())) * scale
	cx := float64(r.Min.X+r.Max.X) / 2
	cy := float64(r.Min.Y+r.Max.Y) / 2
	half := side / 2

	sq := image.Rect(int(cx-half), int(cy-half), int(cx+half), int(cy+half))
	return sq.Intersect(bounds)
}

// scaleMesh maps raw landmark output in model input pixels to frame pixels.
func scaleMesh(raw []float32, roi image.Rectangle, inputSize int) []Point {
	sx := float64(roi.Dx()) / float64(inputSize)
	sy := float64(roi.Dy()) / float64(inputSize)

	points := make([]Point, len(raw)/3)
	for i := range points {
		points[i] = Point{
			X: float64(roi.Min.X) + float64(raw[i*3])*sx,
			Y: float64(roi.Min.Y) + float64(raw[i*3+1])*sy,
			Z: float64(raw[i*3+2]) * sx,
		}
	}
	return points
}
