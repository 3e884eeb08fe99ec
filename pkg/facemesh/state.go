package facemesh

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/teslashibe/go-facemesh/pkg/landmark"
)

// State is the session lifecycle state.
type State int32

// Lifecycle states. A session moves Uninitialized → Running → Stopped and
// never restarts.
const (
	StateUninitialized State = iota
	StateRunning
	StateStopped
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// RenderState is the user-adjustable render configuration.
type RenderState struct {
	Backend          landmark.Backend `json:"backend"`
	MaxFaces         int              `json:"max_faces"`
	TriangulateMesh  bool             `json:"triangulate_mesh"`
	RenderPointCloud bool             `json:"render_point_cloud"`
}

// renderStateManager holds the current render state and handles updates.
type renderStateManager struct {
	state RenderState
	mu    sync.RWMutex

	// fixed at initialization
	mobile         bool
	canTriangulate bool

	// onChange applies a validated state before it is committed
	onChange func(old, next RenderState) error
}

func (m *renderStateManager) get() RenderState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *renderStateManager) validate(rs RenderState) error {
	if _, err := landmark.ParseBackend(string(rs.Backend)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRenderState, err)
	}
	if rs.MaxFaces <= 0 {
		return fmt.Errorf("%w: max_faces must be positive", ErrInvalidRenderState)
	}
	if rs.RenderPointCloud && m.mobile {
		return fmt.Errorf("%w: point cloud is not available on mobile", ErrInvalidRenderState)
	}
	if rs.TriangulateMesh && !m.canTriangulate {
		return fmt.Errorf("%w: no triangulation table loaded", ErrInvalidRenderState)
	}
	return nil
}

// set validates rs, applies it through onChange and commits it.
func (m *renderStateManager) set(rs RenderState) error {
	if err := m.validate(rs); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.onChange != nil {
		if err := m.onChange(m.state, rs); err != nil {
			return fmt.Errorf("failed to apply render state: %w", err)
		}
	}
	m.state = rs
	return nil
}

// update applies a partial change given as field names to values.
func (m *renderStateManager) update(params map[string]any) (RenderState, error) {
	rs := m.get()

	for key, value := range params {
		switch key {
		case "backend":
			v, ok := value.(string)
			if !ok {
				return rs, fmt.Errorf("%w: backend must be a string", ErrInvalidRenderState)
			}
			rs.Backend = landmark.Backend(v)
		case "max_faces":
			v, ok := toInt(value)
			if !ok {
				return rs, fmt.Errorf("%w: max_faces must be an integer", ErrInvalidRenderState)
			}
			rs.MaxFaces = v
		case "triangulate_mesh":
			v, ok := value.(bool)
			if !ok {
				return rs, fmt.Errorf("%w: triangulate_mesh must be a boolean", ErrInvalidRenderState)
			}
			rs.TriangulateMesh = v
		case "render_point_cloud":
			v, ok := value.(bool)
			if !ok {
				return rs, fmt.Errorf("%w: render_point_cloud must be a boolean", ErrInvalidRenderState)
			}
			rs.RenderPointCloud = v
		default:
			return rs, fmt.Errorf("%w: unknown field %q", ErrInvalidRenderState, key)
		}
	}

	if b, err := landmark.ParseBackend(string(rs.Backend)); err == nil {
		rs.Backend = b
	}
	if err := m.set(rs); err != nil {
		return m.get(), err
	}
	return rs, nil
}

func toInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		if val != float64(int(val)) {
			return 0, false
		}
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}
