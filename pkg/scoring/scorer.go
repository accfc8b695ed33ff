package scoring

import (
	"math"
	"sort"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/stat"

	"github.com/glidekb/glide/pkg/dictionary"
	"github.com/glidekb/glide/pkg/gesture"
)

// DefaultTopK matches the suggestion bar's slot count.
const DefaultTopK = 5

// Candidate is one ranked word for a finished swipe.
type Candidate struct {
	Word string
	// Residual is the geometric distance to the word's ideal path.
	Residual float64
	// FrequencyScore is the word's normalized standing frequency in [0, 1].
	FrequencyScore float64
	// Combined is the final rank score; lower is better.
	Combined float64
}

// FrequencyProvider supplies adaptive per-user counts for ranking boosts.
// Implemented by the adaptive frequency store; nil disables boosting.
type FrequencyProvider interface {
	GetFrequencies(words []string, lang string) map[string]uint32
}

// Options tunes the scorer.
type Options struct {
	// TopK is the number of candidates returned.
	TopK int
	// FrequencyWeight scales how much a low standing frequency inflates
	// the geometric residual.
	FrequencyWeight float64
	// DirectionWeight scales the heading-mismatch penalty.
	DirectionWeight float64
	// ZipfTolerance is how far (in natural-log units) a word's actual
	// frequency may fall below the fitted Zipf curve before it is
	// penalized as implausible.
	ZipfTolerance float64
	// ZipfPenalty multiplies the combined score of implausible words.
	ZipfPenalty float64
	// AdaptiveWeight scales the per-user usage boost.
	AdaptiveWeight float64
}

// DefaultOptions returns the stock scoring options.
func DefaultOptions() Options {
	return Options{
		TopK:            DefaultTopK,
		FrequencyWeight: 0.6,
		DirectionWeight: 0.35,
		ZipfTolerance:   2.5,
		ZipfPenalty:     2.0,
		AdaptiveWeight:  0.25,
	}
}

// Scorer ranks candidates for one dictionary. Construct per language;
// concurrent Rank calls are safe because the scorer is read-only after
// construction.
type Scorer struct {
	dict *dictionary.Dictionary
	freq FrequencyProvider
	opts Options
	// Fitted Zipf curve: ln f = zipfIntercept + zipfSlope * ln rank.
	zipfSlope     float64
	zipfIntercept float64
	zipfOK        bool
}

// NewScorer builds a scorer over a dictionary. freq may be nil.
func NewScorer(dict *dictionary.Dictionary, freq FrequencyProvider, opts Options) *Scorer {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	s := &Scorer{dict: dict, freq: freq, opts: opts}
	s.fitZipf()
	return s
}

// fitZipf regresses log frequency on log rank over the frequency-sorted
// table. A dictionary too small to fit keeps the filter disabled.
func (s *Scorer) fitZipf() {
	entries := s.dict.Entries()
	if len(entries) < 16 {
		return
	}
	xs := make([]float64, 0, len(entries))
	ys := make([]float64, 0, len(entries))
	for _, e := range entries {
		if e.Frequency == 0 {
			continue
		}
		xs = append(xs, math.Log(float64(e.Rank)))
		ys = append(ys, math.Log(float64(e.Frequency)))
	}
	if len(xs) < 16 {
		return
	}
	s.zipfIntercept, s.zipfSlope = stat.LinearRegression(xs, ys, nil, false)
	s.zipfOK = true
	log.Debugf("zipf fit for %s: slope=%.3f intercept=%.3f", s.dict.Lang(), s.zipfSlope, s.zipfIntercept)
}

// zipfImplausible reports whether a word's standing frequency sits far
// below the fitted power-law curve for its rank. Such entries are usually
// corpus noise and should not beat common words on geometry alone.
func (s *Scorer) zipfImplausible(e *dictionary.Entry) bool {
	if !s.zipfOK || e.Frequency == 0 {
		return false
	}
	expected := s.zipfIntercept + s.zipfSlope*math.Log(float64(e.Rank))
	return expected-math.Log(float64(e.Frequency)) > s.opts.ZipfTolerance
}

// Rank scores every compatible dictionary entry against the observed path
// and returns the top-K candidates, best first. A path with no compatible
// entries yields an empty list, never an error.
func (s *Scorer) Rank(observed *gesture.NormalizedPath) []Candidate {
	if s.dict == nil || observed == nil {
		return nil
	}
	entries := s.dict.Candidates(observed)
	if len(entries) == 0 {
		return nil
	}

	adaptive := s.adaptiveCounts(entries)
	maxFreq := float64(s.dict.MaxFrequency())

	candidates := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		residual := Residual(observed.Points, e.Ideal)
		if math.IsInf(residual, 1) {
			continue
		}
		if s.opts.DirectionWeight > 0 {
			idealDirs := pathDirections(e.Ideal)
			residual *= 1 + s.opts.DirectionWeight*DirectionPenalty(observed.Directions, idealDirs)
		}

		freqScore := 0.0
		if maxFreq > 0 {
			freqScore = math.Log1p(float64(e.Frequency)) / math.Log1p(maxFreq)
		}

		combined := residual * (1 + s.opts.FrequencyWeight*(1-freqScore))
		if s.zipfImplausible(e) {
			combined *= s.opts.ZipfPenalty
		}
		if count := adaptive[e.Word]; count > 0 {
			combined /= 1 + s.opts.AdaptiveWeight*math.Log1p(float64(count))
		}

		candidates = append(candidates, Candidate{
			Word:           e.Word,
			Residual:       residual,
			FrequencyScore: freqScore,
			Combined:       combined,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Combined != candidates[j].Combined {
			return candidates[i].Combined < candidates[j].Combined
		}
		return candidates[i].FrequencyScore > candidates[j].FrequencyScore
	})
	if len(candidates) > s.opts.TopK {
		candidates = candidates[:s.opts.TopK]
	}
	return candidates
}

func (s *Scorer) adaptiveCounts(entries []*dictionary.Entry) map[string]uint32 {
	if s.freq == nil {
		return nil
	}
	words := make([]string, len(entries))
	for i, e := range entries {
		words[i] = e.Word
	}
	return s.freq.GetFrequencies(words, s.dict.Lang())
}

func pathDirections(pts []gesture.Point) []gesture.Point {
	if len(pts) < 2 {
		return nil
	}
	out := make([]gesture.Point, len(pts)-1)
	for i := 1; i < len(pts); i++ {
		d := pts[i-1].Dist(pts[i])
		if d > 0 {
			out[i-1] = gesture.Point{X: (pts[i].X - pts[i-1].X) / d, Y: (pts[i].Y - pts[i-1].Y) / d}
		}
	}
	return out
}
