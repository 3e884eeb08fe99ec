package camera

import (
	"errors"
	"testing"
)

func TestConstraintsFor(t *testing.T) {
	desktop := ConstraintsFor(false, DefaultTargetSize)
	if desktop.Audio {
		t.Error("Audio should be false")
	}
	if desktop.FacingMode != FacingUser {
		t.Errorf("FacingMode = %q, want user", desktop.FacingMode)
	}
	if desktop.Width == nil || desktop.Height == nil {
		t.Fatal("desktop constraints should carry width and height")
	}
	if *desktop.Width != 500 || *desktop.Height != 500 {
		t.Errorf("size = %dx%d, want 500x500", *desktop.Width, *desktop.Height)
	}

	mobile := ConstraintsFor(true, DefaultTargetSize)
	if mobile.Width != nil || mobile.Height != nil {
		t.Error("mobile constraints should accept native resolution")
	}
	if mobile.Audio || mobile.FacingMode != FacingUser {
		t.Errorf("mobile constraints = %+v", mobile)
	}
}

func TestConstraintsValidate(t *testing.T) {
	size := 500
	tiny := 4

	tests := []struct {
		name    string
		c       Constraints
		wantErr bool
	}{
		{"desktop", ConstraintsFor(false, 500), false},
		{"mobile", ConstraintsFor(true, 500), false},
		{"audio", Constraints{Audio: true, FacingMode: FacingUser}, true},
		{"bad facing", Constraints{FacingMode: "left"}, true},
		{"width only", Constraints{Width: &size}, true},
		{"too small", Constraints{Width: &tiny, Height: &tiny}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.c.Validate()
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestOpenRejectsInvalidConstraints(t *testing.T) {
	_, err := Open("0", Constraints{Audio: true})
	if !errors.Is(err, ErrCameraUnavailable) {
		t.Errorf("Open() error = %v, want ErrCameraUnavailable", err)
	}
}
