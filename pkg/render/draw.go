package render

import (
	"image"
	"math"

	"github.com/teslashibe/go-facemesh/pkg/landmark"
	"github.com/teslashibe/go-facemesh/pkg/mesh"
)

// Options selects how predictions are drawn.
type Options struct {
	Triangulate bool // triangle outlines instead of landmark dots
	PointRadius int
}

// Counts reports the draw calls issued for one frame.
type Counts struct {
	Paths   int // closed triangle paths
	Fills   int // landmark circles
	Skipped int // triangles referencing points past the end of the mesh
}

// DrawPath strokes one path through points with a single canvas call.
func DrawPath(c Canvas, points []landmark.Point, closed bool) {
	pts := make([]image.Point, len(points))
	for i, p := range points {
		pts[i] = toPixel(p)
	}
	c.StrokePath(pts, closed)
}

// DrawPredictions draws every prediction. In triangle mode each index
// triple of tri becomes one closed path; otherwise every landmark gets one
// filled circle. A nil tri draws nothing in triangle mode.
func DrawPredictions(c Canvas, preds []landmark.Prediction, tri *mesh.Triangulation, opts Options) Counts {
	var n Counts
	radius := max(opts.PointRadius, 1)

	for _, pred := range preds {
		pts := pred.ScaledMesh

		if opts.Triangulate {
			if tri == nil {
				continue
			}
			for i := 0; i < tri.Len(); i++ {
				idx := tri.Triangle(i)
				if idx[0] >= len(pts) || idx[1] >= len(pts) || idx[2] >= len(pts) {
					n.Skipped++
					continue
				}
				DrawPath(c, []landmark.Point{pts[idx[0]], pts[idx[1]], pts[idx[2]]}, true)
				n.Paths++
			}
			continue
		}

		for _, p := range pts {
			c.FillCircle(toPixel(p), radius)
			n.Fills++
		}
	}
	return n
}

func toPixel(p landmark.Point) image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}
