package gesture

import (
	"github.com/charmbracelet/log"

	"github.com/glidekb/glide/pkg/keyboard"
)

// Thresholds holds the gesture classification thresholds in density
// independent units (dp). Pixel values are derived by scaling with the
// current display density.
type Thresholds struct {
	// SwipeActivateDp is the travel distance before a touch is promoted
	// from pending tap to swiping. The finger must also have left the
	// starting key.
	SwipeActivateDp float64
	// DwellMs is how long the finger must rest (movement below
	// DwellEpsilonDp) before a subsequent jump is treated as a peck.
	DwellMs int64
	// DwellEpsilonDp is the movement tolerance while dwelling.
	DwellEpsilonDp float64
	// PeckJumpDp is the minimum single-event jump after a dwell that
	// rejects the sequence as a peck.
	PeckJumpDp float64
	// MinSwipePathDp is the minimum accumulated path length for a swipe
	// to complete as a swipe on UP.
	MinSwipePathDp float64
	// MinSwipeKeys is the minimum number of distinct visited keys for a
	// swipe to complete as a swipe on UP.
	MinSwipeKeys int
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SwipeActivateDp: 24,
		DwellMs:         250,
		DwellEpsilonDp:  6,
		PeckJumpDp:      72,
		MinSwipePathDp:  48,
		MinSwipeKeys:    2,
	}
}

// Listener receives resolved gestures. Callbacks run synchronously on the
// input thread and must not block.
type Listener interface {
	// OnTap fires when a touch sequence resolves as a tap on a key.
	OnTap(key keyboard.Key)
	// OnSwipeComplete fires once per finished swipe with the raw path.
	OnSwipeComplete(path []TouchSample)
}

// Machine classifies a stream of touch samples into taps, rejected pecks,
// and swipes. It is not internally synchronized: HandleTouchEvent must be
// called from a single input-delivery goroutine, and it performs no I/O.
type Machine struct {
	state      state
	keys       keyboard.Provider
	listener   Listener
	density    float64
	thresholds Thresholds
}

// NewMachine creates a gesture machine over the given key geometry.
func NewMachine(keys keyboard.Provider) *Machine {
	return &Machine{
		state:      idle{},
		keys:       keys,
		density:    1,
		thresholds: DefaultThresholds(),
	}
}

// SetListener installs the gesture listener.
func (m *Machine) SetListener(l Listener) {
	m.listener = l
}

// SetThresholds overrides the classification thresholds.
func (m *Machine) SetThresholds(t Thresholds) {
	m.thresholds = t
}

// UpdateKeyPositions swaps the key geometry, e.g. after a layout change.
// Any in-flight gesture is reset.
func (m *Machine) UpdateKeyPositions(keys keyboard.Provider) {
	m.keys = keys
	m.state = idle{}
}

// UpdateDisplayMetrics sets the display density used to scale thresholds.
func (m *Machine) UpdateDisplayMetrics(density float64) {
	if density > 0 {
		m.density = density
	}
}

// Cleanup resets the machine to idle. It is an idempotent reset, not a
// terminal shutdown: the machine remains usable afterwards.
func (m *Machine) Cleanup() {
	m.state = idle{}
}

func (m *Machine) px(dp float64) float64 { return dp * m.density }

// HandleTouchEvent feeds one sample into the machine and reports whether
// the event was consumed. Malformed sequences (MOVE or UP with no prior
// DOWN) are ignored, not surfaced as errors.
func (m *Machine) HandleTouchEvent(sample TouchSample, action Action) bool {
	if action == ActionCancel {
		// Reset without firing any callback.
		consumed := !m.isIdle()
		m.state = idle{}
		return consumed
	}

	switch st := m.state.(type) {
	case idle:
		return m.handleIdle(st, sample, action)
	case pendingTap:
		return m.handlePendingTap(st, sample, action)
	case swiping:
		return m.handleSwiping(st, sample, action)
	case rejected:
		return m.handleRejected(st, sample, action)
	}
	return false
}

func (m *Machine) isIdle() bool {
	_, ok := m.state.(idle)
	return ok
}

func (m *Machine) handleIdle(_ idle, sample TouchSample, action Action) bool {
	if action != ActionDown || m.keys == nil {
		// MOVE/UP with no prior DOWN: out-of-order, ignore.
		return false
	}
	key, ok := m.keys.KeyAt(sample.X, sample.Y)
	if !ok || key.Kind != keyboard.KindChar {
		// Action keys and dead space fall through to normal key handling.
		return false
	}
	m.state = pendingTap{
		startKey:   key,
		points:     []TouchSample{sample},
		anchor:     sample,
		anchorAtMs: sample.TimeMs,
	}
	return true
}

func (m *Machine) handlePendingTap(st pendingTap, sample TouchSample, action Action) bool {
	switch action {
	case ActionDown:
		// Second DOWN without UP: restart from the new point.
		m.state = idle{}
		return m.HandleTouchEvent(sample, ActionDown)
	case ActionMove:
		st.points = append(st.points, sample)
		moved := sampleDist(st.anchor, sample)

		if moved < m.px(m.thresholds.DwellEpsilonDp) {
			// Still resting near the anchor.
			m.state = st
			return true
		}

		dwelled := sample.TimeMs-st.anchorAtMs >= m.thresholds.DwellMs
		if dwelled && moved >= m.px(m.thresholds.PeckJumpDp) {
			// Dwell then a single large jump: a deliberate two-tap
			// sequence, not a swipe.
			log.Debugf("peck rejected: dwell %dms jump %.1fpx", sample.TimeMs-st.anchorAtMs, moved)
			m.state = rejected{startKey: st.startKey}
			return true
		}

		if m.travel(st.points) >= m.px(m.thresholds.SwipeActivateDp) && m.leftStartKey(st, sample) {
			visited := []string{st.startKey.ID}
			if k, ok := m.keys.Nearest(sample.X, sample.Y); ok && k.ID != st.startKey.ID {
				visited = append(visited, k.ID)
			}
			m.state = swiping{
				points:      st.points,
				visitedKeys: visited,
			}
			return true
		}

		// Material movement below activation: re-anchor the dwell.
		st.anchor = sample
		st.anchorAtMs = sample.TimeMs
		m.state = st
		return true
	case ActionUp:
		m.state = idle{}
		if m.listener != nil {
			m.listener.OnTap(st.startKey)
		}
		return true
	}
	return false
}

func (m *Machine) handleSwiping(st swiping, sample TouchSample, action Action) bool {
	switch action {
	case ActionDown:
		m.state = idle{}
		return m.HandleTouchEvent(sample, ActionDown)
	case ActionMove:
		st.points = append(st.points, sample)
		if k, ok := m.keys.Nearest(sample.X, sample.Y); ok {
			if n := len(st.visitedKeys); n == 0 || st.visitedKeys[n-1] != k.ID {
				st.visitedKeys = append(st.visitedKeys, k.ID)
			}
		}
		m.state = st
		return true
	case ActionUp:
		st.points = append(st.points, sample)
		m.state = idle{}
		if len(distinct(st.visitedKeys)) >= m.thresholds.MinSwipeKeys &&
			m.travel(st.points) >= m.px(m.thresholds.MinSwipePathDp) {
			if m.listener != nil {
				m.listener.OnSwipeComplete(st.points)
			}
			return true
		}
		// Below the swipe minimum: fall through to a tap on the key
		// under the final point.
		if key, ok := m.keys.KeyAt(sample.X, sample.Y); ok && key.Kind == keyboard.KindChar {
			if m.listener != nil {
				m.listener.OnTap(key)
			}
			return true
		}
		return false
	}
	return false
}

func (m *Machine) handleRejected(st rejected, sample TouchSample, action Action) bool {
	switch action {
	case ActionDown:
		m.state = idle{}
		return m.HandleTouchEvent(sample, ActionDown)
	case ActionMove:
		// Swipe activation stays suppressed for the rest of the sequence.
		return true
	case ActionUp:
		m.state = idle{}
		// The UP is still consumed and forwarded as a tap on the key
		// under the final point, falling back to the starting key.
		key := st.startKey
		if k, ok := m.keys.KeyAt(sample.X, sample.Y); ok && k.Kind == keyboard.KindChar {
			key = k
		}
		if m.listener != nil {
			m.listener.OnTap(key)
		}
		return true
	}
	return false
}

// travel returns the accumulated path length of a sample sequence.
func (m *Machine) travel(points []TouchSample) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += sampleDist(points[i-1], points[i])
	}
	return total
}

func (m *Machine) leftStartKey(st pendingTap, sample TouchSample) bool {
	k, ok := m.keys.KeyAt(sample.X, sample.Y)
	if !ok {
		// Off every key still counts as having left the start key.
		return true
	}
	return k.ID != st.startKey.ID
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
