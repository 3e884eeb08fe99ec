package landmark

import (
	"context"
	"sync"

	"gocv.io/x/gocv"
)

// Mock implements Model for testing.
type Mock struct {
	// EstimateFunc is called when EstimateFaces is invoked.
	EstimateFunc func(ctx context.Context, frame gocv.Mat) ([]Prediction, error)

	// SetBackendFunc is called when SetBackend is invoked.
	SetBackendFunc func(b Backend) error

	mu       sync.Mutex
	calls    []string
	backend  Backend
	maxFaces int
	closed   bool
}

// NewMock creates a mock that returns no faces.
func NewMock() *Mock {
	return &Mock{backend: BackendCPU, maxFaces: 1}
}

// EstimateFaces calls EstimateFunc and records the call.
func (m *Mock) EstimateFaces(ctx context.Context, frame gocv.Mat) ([]Prediction, error) {
	m.record("EstimateFaces")
	if m.EstimateFunc != nil {
		return m.EstimateFunc(ctx, frame)
	}
	return nil, nil
}

// SetBackend calls SetBackendFunc and records the backend.
func (m *Mock) SetBackend(b Backend) error {
	m.record("SetBackend")
	if m.SetBackendFunc != nil {
		if err := m.SetBackendFunc(b); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.backend = b
	m.mu.Unlock()
	return nil
}

// SetMaxFaces records the limit.
func (m *Mock) SetMaxFaces(n int) {
	m.record("SetMaxFaces")
	m.mu.Lock()
	m.maxFaces = n
	m.mu.Unlock()
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.record("Close")
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *Mock) record(method string) {
	m.mu.Lock()
	m.calls = append(m.calls, method)
	m.mu.Unlock()
}

// Calls returns the recorded method names in order.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == method {
			n++
		}
	}
	return n
}

// Backend returns the last backend set.
func (m *Mock) Backend() Backend {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend
}

// MaxFaces returns the last face limit set.
func (m *Mock) MaxFaces() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxFaces
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ Model = (*Mock)(nil)
var _ Model = (*FaceMesh)(nil)
