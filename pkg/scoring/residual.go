// Package scoring ranks dictionary words against a normalized swipe path by
// combining a geometric residual with a frequency-plausibility filter.
package scoring

import (
	"math"

	"github.com/glidekb/glide/pkg/gesture"
)

// Residual computes the geometric residual between an observed resampled
// path and a word's ideal path: dynamic-time-warping alignment cost over
// point distances, normalized by the longer path length. Lower is better.
// Returns +Inf when either path is empty.
func Residual(observed, ideal []gesture.Point) float64 {
	n, m := len(observed), len(ideal)
	if n == 0 || m == 0 {
		return math.Inf(1)
	}

	// Two-row DTW: paths are both resampled to a fixed length, so the
	// full matrix is never needed.
	prev := make([]float64, m+1)
	curr := make([]float64, m+1)
	for j := range prev {
		prev[j] = math.Inf(1)
	}
	prev[0] = 0

	for i := 1; i <= n; i++ {
		curr[0] = math.Inf(1)
		for j := 1; j <= m; j++ {
			cost := observed[i-1].Dist(ideal[j-1])
			curr[j] = cost + min3(prev[j], curr[j-1], prev[j-1])
		}
		prev, curr = curr, prev
	}

	denom := float64(n)
	if m > n {
		denom = float64(m)
	}
	return prev[m] / denom
}

// DirectionPenalty measures how much two equally-sampled paths disagree in
// heading: mean (1 - cosine similarity) over paired segment directions, in
// [0, 2]. Zero-length segments contribute nothing.
func DirectionPenalty(observed, ideal []gesture.Point) float64 {
	n := len(observed)
	if len(ideal) < n {
		n = len(ideal)
	}
	if n == 0 {
		return 0
	}
	var sum float64
	var counted int
	for i := 0; i < n; i++ {
		a, b := observed[i], ideal[i]
		if (a.X == 0 && a.Y == 0) || (b.X == 0 && b.Y == 0) {
			continue
		}
		sum += 1 - (a.X*b.X + a.Y*b.Y)
		counted++
	}
	if counted == 0 {
		return 0
	}
	return sum / float64(counted)
}

func min3(a, b, c float64) float64 {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}
