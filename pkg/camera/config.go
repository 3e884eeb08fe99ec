// Package camera opens local video devices for the render loop.
package camera

import "errors"

// ErrCameraUnavailable is returned when no device exists or it cannot be opened.
var ErrCameraUnavailable = errors.New("camera: unavailable")

// Facing modes.
const (
	FacingUser        = "user"
	FacingEnvironment = "environment"
)

// DefaultTargetSize is the width and height requested on desktop sessions.
const DefaultTargetSize = 500

// Constraints describes the stream the session asks for.
// Width and Height are nil when the device's native resolution is accepted.
type Constraints struct {
	Audio      bool   `json:"audio"`
	FacingMode string `json:"facing_mode"`
	Width      *int   `json:"width,omitempty"`
	Height     *int   `json:"height,omitempty"`
}

// ConstraintsFor returns the constraints for a session. Mobile sessions
// take the native resolution; desktop sessions ask for size x size.
func ConstraintsFor(mobile bool, size int) Constraints {
	c := Constraints{
		Audio:      false,
		FacingMode: FacingUser,
	}
	if !mobile {
		w, h := size, size
		c.Width = &w
		c.Height = &h
	}
	return c
}

// Validate checks the constraints can be satisfied by a local camera.
// Returns a list of validation errors, or nil if valid.
func (c *Constraints) Validate() []string {
	var errs []string

	if c.Audio {
		errs = append(errs, "audio capture is not supported")
	}
	if c.FacingMode != "" && c.FacingMode != FacingUser && c.FacingMode != FacingEnvironment {
		errs = append(errs, "facing_mode must be user or environment")
	}
	if (c.Width == nil) != (c.Height == nil) {
		errs = append(errs, "width and height must be set together")
	}
	if c.Width != nil && (*c.Width < 16 || *c.Width > 7680) {
		errs = append(errs, "width must be between 16 and 7680")
	}
	if c.Height != nil && (*c.Height < 16 || *c.Height > 4320) {
		errs = append(errs, "height must be between 16 and 4320")
	}

	return errs
}
