package gesture

import (
	"errors"

	"github.com/glidekb/glide/pkg/keyboard"
)

// DefaultSamplePoints is the canonical resampled path length. All residual
// comparisons happen between paths of this length.
const DefaultSamplePoints = 48

// ErrPathTooShort reports a path with fewer than two distinct points.
var ErrPathTooShort = errors.New("gesture: path too short to normalize")

// NormalizedPath is a raw swipe path resampled to a fixed number of points
// by arc length, with per-segment unit direction vectors and the ordered
// sequence of unique keys the path visits. Immutable once built.
type NormalizedPath struct {
	Points     []Point
	Directions []Point
	Keys       []string
}

// StartKey returns the first visited key ID, or "".
func (np *NormalizedPath) StartKey() string {
	if len(np.Keys) == 0 {
		return ""
	}
	return np.Keys[0]
}

// EndKey returns the last visited key ID, or "".
func (np *NormalizedPath) EndKey() string {
	if len(np.Keys) == 0 {
		return ""
	}
	return np.Keys[len(np.Keys)-1]
}

// Normalize resamples a raw sample path and derives its key sequence using
// nearest-key mapping over the given geometry.
func Normalize(samples []TouchSample, keys keyboard.Provider, samplePoints int) (*NormalizedPath, error) {
	if samplePoints <= 1 {
		samplePoints = DefaultSamplePoints
	}
	raw := make([]Point, 0, len(samples))
	for _, s := range samples {
		p := Point{X: s.X, Y: s.Y}
		// Drop exact duplicates so arc-length parametrization is well formed.
		if n := len(raw); n > 0 && raw[n-1] == p {
			continue
		}
		raw = append(raw, p)
	}
	if len(raw) < 2 {
		return nil, ErrPathTooShort
	}

	points := Resample(raw, samplePoints)
	np := &NormalizedPath{
		Points:     points,
		Directions: directions(points),
	}
	if keys != nil {
		np.Keys = visitedKeys(points, keys)
	}
	return np, nil
}

// Resample redistributes a polyline to n points spaced evenly by arc length.
// Endpoints are preserved.
func Resample(pts []Point, n int) []Point {
	if len(pts) == 0 || n <= 0 {
		return nil
	}
	if len(pts) == 1 {
		out := make([]Point, n)
		for i := range out {
			out[i] = pts[0]
		}
		return out
	}

	var total float64
	segLen := make([]float64, len(pts)-1)
	for i := 1; i < len(pts); i++ {
		segLen[i-1] = pts[i-1].Dist(pts[i])
		total += segLen[i-1]
	}
	if total == 0 {
		out := make([]Point, n)
		for i := range out {
			out[i] = pts[0]
		}
		return out
	}

	out := make([]Point, 0, n)
	out = append(out, pts[0])
	step := total / float64(n-1)
	target := step
	seg := 0
	walked := 0.0
	for len(out) < n-1 {
		for seg < len(segLen) && walked+segLen[seg] < target {
			walked += segLen[seg]
			seg++
		}
		if seg >= len(segLen) {
			break
		}
		t := (target - walked) / segLen[seg]
		a, b := pts[seg], pts[seg+1]
		out = append(out, Point{
			X: a.X + (b.X-a.X)*t,
			Y: a.Y + (b.Y-a.Y)*t,
		})
		target += step
	}
	for len(out) < n {
		out = append(out, pts[len(pts)-1])
	}
	return out
}

// directions returns unit direction vectors between consecutive points.
// Zero-length segments yield zero vectors.
func directions(pts []Point) []Point {
	if len(pts) < 2 {
		return nil
	}
	out := make([]Point, len(pts)-1)
	for i := 1; i < len(pts); i++ {
		dx := pts[i].X - pts[i-1].X
		dy := pts[i].Y - pts[i-1].Y
		d := pts[i-1].Dist(pts[i])
		if d > 0 {
			out[i-1] = Point{X: dx / d, Y: dy / d}
		}
	}
	return out
}

// visitedKeys maps each point to its nearest character key and collapses
// consecutive repeats.
func visitedKeys(pts []Point, keys keyboard.Provider) []string {
	var out []string
	for _, p := range pts {
		k, ok := keys.Nearest(p.X, p.Y)
		if !ok {
			continue
		}
		if n := len(out); n == 0 || out[n-1] != k.ID {
			out = append(out, k.ID)
		}
	}
	return out
}

// PathThroughKeys builds the ideal resampled path for an ordered key-ID
// sequence: the polyline through the key centers. Consecutive duplicate
// keys are collapsed first, so "ll" contributes a single waypoint.
func PathThroughKeys(keyIDs []string, keys keyboard.Provider, samplePoints int) ([]Point, error) {
	if samplePoints <= 1 {
		samplePoints = DefaultSamplePoints
	}
	var centers []Point
	for _, id := range keyIDs {
		k, ok := keys.Key(id)
		if !ok {
			return nil, errors.New("gesture: unknown key " + id)
		}
		c := Point{X: k.CenterX(), Y: k.CenterY()}
		if n := len(centers); n > 0 && centers[n-1] == c {
			continue
		}
		centers = append(centers, c)
	}
	if len(centers) == 0 {
		return nil, ErrPathTooShort
	}
	if len(centers) == 1 {
		// Single-key word: the ideal path is stationary on the key.
		out := make([]Point, samplePoints)
		for i := range out {
			out[i] = centers[0]
		}
		return out, nil
	}
	return Resample(centers, samplePoints), nil
}
