package landmark

import (
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

// Backend is a compute execution target for inference.
type Backend string

// Supported backends.
const (
	BackendCPU    Backend = "cpu"
	BackendOpenCL Backend = "opencl"
	BackendCUDA   Backend = "cuda"
	BackendVulkan Backend = "vulkan"
)

// Backends returns every supported backend, portable fallback first.
func Backends() []Backend {
	return []Backend{BackendCPU, BackendOpenCL, BackendCUDA, BackendVulkan}
}

// ParseBackend parses a backend name, case-insensitively.
func ParseBackend(s string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Backends() {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("landmark: unknown backend %q", s)
}

// String implements fmt.Stringer.
func (b Backend) String() string {
	return string(b)
}

// DNN returns the OpenCV backend and target for b.
func (b Backend) DNN() (gocv.NetBackendType, gocv.NetTargetType) {
	switch b {
	case BackendOpenCL:
		// NetTargetFP32 is OpenCV's DNN_TARGET_OPENCL
		return gocv.NetBackendOpenCV, gocv.NetTargetFP32
	case BackendCUDA:
		return gocv.NetBackendCUDA, gocv.NetTargetCUDA
	case BackendVulkan:
		return gocv.NetBackendVKCOM, gocv.NetTargetVulkan
	default:
		return gocv.NetBackendDefault, gocv.NetTargetCPU
	}
}
