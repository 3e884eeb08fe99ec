package render

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#32EEDB", color.RGBA{0x32, 0xEE, 0xDB, 0xFF}, false},
		{"ff0000", color.RGBA{0xFF, 0, 0, 0xFF}, false},
		{"#fff", color.RGBA{}, true},
		{"#zzzzzz", color.RGBA{}, true},
	}

	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMatCanvasEncode(t *testing.T) {
	c := NewMatCanvas(64, 48, DefaultStyle(), 80, true)
	defer c.Close()

	frame := gocv.NewMatWithSize(96, 128, gocv.MatTypeCV8UC3)
	defer frame.Close()

	c.DrawImage(frame)
	c.StrokePath([]image.Point{{1, 1}, {30, 1}, {30, 30}}, true)
	c.FillCircle(image.Pt(10, 10), 2)

	data, err := c.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		t.Error("Encode() did not produce a JPEG")
	}

	w, h := c.Size()
	if w != 64 || h != 48 {
		t.Errorf("Size() = %dx%d, want 64x48", w, h)
	}
}
