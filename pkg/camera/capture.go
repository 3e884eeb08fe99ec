package camera

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facemesh/internal/log"
)

// Source yields frames from a camera.
type Source interface {
	// Read fills frame with the next image. Returns false when no frame
	// could be read.
	Read(frame *gocv.Mat) bool

	// Size returns the actual frame dimensions.
	Size() (width, height int)

	// Close releases the device.
	Close() error
}

// Opener opens a device with the given constraints.
type Opener func(device string, c Constraints) (Source, error)

// Capture is a gocv-backed Source.
type Capture struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	device string
	width  int
	height int
}

// Open opens device (an index like "0" or a path like "/dev/video0") and
// applies the constraints. Failures wrap ErrCameraUnavailable.
func Open(device string, c Constraints) (Source, error) {
	if errs := c.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrCameraUnavailable, strings.Join(errs, "; "))
	}

	var target any = device
	if idx, err := strconv.Atoi(device); err == nil {
		target = idx
	}

	vc, err := gocv.OpenVideoCapture(target)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrCameraUnavailable, device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: device %s not opened", ErrCameraUnavailable, device)
	}

	if c.Width != nil && c.Height != nil {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(*c.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(*c.Height))
	}

	capture := &Capture{
		vc:     vc,
		device: device,
		width:  int(vc.Get(gocv.VideoCaptureFrameWidth)),
		height: int(vc.Get(gocv.VideoCaptureFrameHeight)),
	}

	log.Info("camera opened",
		"device", device,
		"width", capture.width,
		"height", capture.height,
		"facing", c.FacingMode)
	return capture, nil
}

// Read implements Source.
func (c *Capture) Read(frame *gocv.Mat) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vc == nil {
		return false
	}
	return c.vc.Read(frame) && !frame.Empty()
}

// Size implements Source.
func (c *Capture) Size() (int, int) {
	return c.width, c.height
}

// Close implements Source. It is safe to call more than once.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vc == nil {
		return nil
	}
	err := c.vc.Close()
	c.vc = nil
	log.Debug("camera closed", "device", c.device)
	return err
}
