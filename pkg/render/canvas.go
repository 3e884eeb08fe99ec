// Package render draws face mesh overlays onto frames.
package render

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"gocv.io/x/gocv"
)

// Canvas is a drawing surface for one annotated frame.
type Canvas interface {
	// DrawImage paints frame over the whole canvas.
	DrawImage(frame gocv.Mat)

	// StrokePath strokes a polyline through points, closing it when asked.
	StrokePath(points []image.Point, closed bool)

	// FillCircle fills a circle centered at pt.
	FillCircle(pt image.Point, radius int)

	// Encode returns the canvas as a JPEG.
	Encode() ([]byte, error)

	// Close releases the canvas.
	Close() error
}

// Style is the stroke and fill state, fixed when a canvas is created.
type Style struct {
	Color     color.RGBA
	LineWidth int
}

// DefaultStyle returns the aqua overlay style.
func DefaultStyle() Style {
	return Style{
		Color:     color.RGBA{R: 0x32, G: 0xEE, B: 0xDB, A: 0xFF},
		LineWidth: 1,
	}
}

// ParseColor parses "#RRGGBB" or "RRGGBB".
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("render: invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("render: invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, nil
}

// MatCanvas is a Canvas backed by an OpenCV Mat.
type MatCanvas struct {
	mat     gocv.Mat
	width   int
	height  int
	style   Style
	quality int
	mirror  bool
}

// NewMatCanvas creates a width x height canvas. quality is the JPEG quality
// used by Encode; mirror flips the encoded image horizontally.
func NewMatCanvas(width, height int, style Style, quality int, mirror bool) *MatCanvas {
	if style.LineWidth <= 0 {
		style.LineWidth = 1
	}
	return &MatCanvas{
		mat:     gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3),
		width:   width,
		height:  height,
		style:   style,
		quality: quality,
		mirror:  mirror,
	}
}

// Size returns the canvas dimensions.
func (c *MatCanvas) Size() (int, int) {
	return c.width, c.height
}

// DrawImage implements Canvas. Frames of another size are scaled to fit.
func (c *MatCanvas) DrawImage(frame gocv.Mat) {
	if frame.Empty() {
		return
	}
	if frame.Cols() == c.width && frame.Rows() == c.height {
		frame.CopyTo(&c.mat)
		return
	}
	gocv.Resize(frame, &c.mat, image.Pt(c.width, c.height), 0, 0, gocv.InterpolationLinear)
}

// StrokePath implements Canvas.
func (c *MatCanvas) StrokePath(points []image.Point, closed bool) {
	if len(points) == 0 {
		return
	}
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{points})
	defer pv.Close()
	gocv.Polylines(&c.mat, pv, closed, c.style.Color, c.style.LineWidth)
}

// FillCircle implements Canvas.
func (c *MatCanvas) FillCircle(pt image.Point, radius int) {
	gocv.Circle(&c.mat, pt, radius, c.style.Color, -1)
}

// Encode implements Canvas.
func (c *MatCanvas) Encode() ([]byte, error) {
	src := c.mat
	if c.mirror {
		flipped := gocv.NewMat()
		defer flipped.Close()
		gocv.Flip(c.mat, &flipped, 1)
		src = flipped
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, src, []int{int(gocv.IMWriteJpegQuality), c.quality})
	if err != nil {
		return nil, fmt.Errorf("render: encode: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Close implements Canvas.
func (c *MatCanvas) Close() error {
	return c.mat.Close()
}

var _ Canvas = (*MatCanvas)(nil)
