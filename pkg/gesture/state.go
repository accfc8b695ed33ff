package gesture

import "github.com/glidekb/glide/pkg/keyboard"

// state is the closed set of gesture states. Exactly one value is live per
// touch sequence; Machine transitions are the sole mutator.
type state interface {
	gestureState()
}

// idle: no active touch.
type idle struct{}

// pendingTap: finger is down on a character key, not yet classified.
type pendingTap struct {
	startKey keyboard.Key
	points   []TouchSample
	// dwell anchor: the sample the finger has been resting near, and when
	// it arrived. Re-anchored whenever the finger moves materially.
	anchor     TouchSample
	anchorAtMs int64
}

// swiping: sustained travel across keys; collecting the path.
type swiping struct {
	points      []TouchSample
	visitedKeys []string
}

// rejected: classified as a peck (dwell then jump). Swipe activation is
// suppressed for the rest of the sequence; UP still resolves as a tap.
type rejected struct {
	startKey keyboard.Key
}

func (idle) gestureState()       {}
func (pendingTap) gestureState() {}
func (swiping) gestureState()    {}
func (rejected) gestureState()   {}
