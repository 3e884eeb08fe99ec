// Package mesh loads the face mesh triangulation table.
//
// The table is a flat list of landmark indices; every three consecutive
// entries form one triangle.
package mesh

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrInvalidTriangulation is returned when a table is malformed.
var ErrInvalidTriangulation = errors.New("mesh: invalid triangulation")

// Triangulation is an immutable table of landmark index triples.
type Triangulation struct {
	indices  []int
	maxIndex int
}

// New validates indices and returns a triangulation backed by a copy.
func New(indices []int) (*Triangulation, error) {
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of 3", ErrInvalidTriangulation, len(indices))
	}
	maxIndex := -1
	for i, v := range indices {
		if v < 0 {
			return nil, fmt.Errorf("%w: negative index %d at position %d", ErrInvalidTriangulation, v, i)
		}
		if v > maxIndex {
			maxIndex = v
		}
	}
	cp := make([]int, len(indices))
	copy(cp, indices)
	return &Triangulation{indices: cp, maxIndex: maxIndex}, nil
}

// Parse decodes a JSON array of indices.
func Parse(data []byte) (*Triangulation, error) {
	var indices []int
	if err := json.Unmarshal(data, &indices); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTriangulation, err)
	}
	return New(indices)
}

// Load reads a JSON triangulation file.
func Load(path string) (*Triangulation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read triangulation: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Len returns the number of triangles.
func (t *Triangulation) Len() int {
	return len(t.indices) / 3
}

// Triangle returns the i-th index triple.
func (t *Triangulation) Triangle(i int) [3]int {
	j := i * 3
	return [3]int{t.indices[j], t.indices[j+1], t.indices[j+2]}
}

// MaxIndex returns the largest index referenced, or -1 for an empty table.
func (t *Triangulation) MaxIndex() int {
	return t.maxIndex
}

// Covers reports whether a point sequence of length n satisfies every index.
func (t *Triangulation) Covers(n int) bool {
	return t.maxIndex < n
}
