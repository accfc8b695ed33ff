// Package gesture is the touch front end: it buffers raw touch samples,
// classifies a touch sequence as a tap, a rejected peck, or a swipe, and
// normalizes finished swipe paths for candidate scoring.
package gesture

import "math"

// Action is the touch event type delivered with each sample.
type Action int

const (
	ActionDown Action = iota
	ActionMove
	ActionUp
	ActionCancel
)

// String returns the human-readable name of the action.
func (a Action) String() string {
	switch a {
	case ActionDown:
		return "DOWN"
	case ActionMove:
		return "MOVE"
	case ActionUp:
		return "UP"
	case ActionCancel:
		return "CANCEL"
	default:
		return "UNKNOWN"
	}
}

// TouchSample is one raw touch point. Owned by the active gesture; callers
// must not retain slices of samples handed to listeners past the callback.
type TouchSample struct {
	X      float64
	Y      float64
	TimeMs int64
}

// Point is a 2D point in key-grid pixel space.
type Point struct {
	X float64
	Y float64
}

// Dist returns the Euclidean distance to o.
func (p Point) Dist(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

func sampleDist(a, b TouchSample) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
