// Package keyboard defines key geometry for gesture decoding. The rendering
// layer owns the real key rects; this package only needs enough geometry to
// hit-test touch points and to precompute ideal paths for dictionary words.
package keyboard

import (
	"math"
	"strings"
)

// Kind classifies a key for gesture purposes. Only character keys can start
// or continue a swipe; action keys always fall through to normal handling.
type Kind int

const (
	KindChar Kind = iota
	KindAction
)

// Key is one key's geometry. ID is the lowercase character for character
// keys ("q", "ü") and a symbolic name ("space", "shift") for action keys.
type Key struct {
	ID   string
	Kind Kind
	X    float64 // left edge, px
	Y    float64 // top edge, px
	W    float64
	H    float64
}

// CenterX returns the horizontal center of the key.
func (k Key) CenterX() float64 { return k.X + k.W/2 }

// CenterY returns the vertical center of the key.
func (k Key) CenterY() float64 { return k.Y + k.H/2 }

// Provider supplies key hit-testing. Implemented by the rendering layer in
// production; Layout is the concrete implementation used by tests and tools.
type Provider interface {
	// KeyAt returns the key whose rect contains (x, y), or false if the
	// point is outside every key.
	KeyAt(x, y float64) (Key, bool)
	// Nearest returns the character key whose center is closest to (x, y).
	// Returns false only when the layout has no character keys.
	Nearest(x, y float64) (Key, bool)
	// Key returns the key with the given ID.
	Key(id string) (Key, bool)
	// Keys returns all keys.
	Keys() []Key
	// Neighbors returns character keys whose centers lie within radius of
	// the named key's center, excluding the key itself.
	Neighbors(id string, radius float64) []string
}

// Layout is a static row-based key layout.
type Layout struct {
	keys  []Key
	byID  map[string]Key
	chars []Key
}

// NewLayout builds a layout from explicit key rects.
func NewLayout(keys []Key) *Layout {
	l := &Layout{keys: keys, byID: make(map[string]Key, len(keys))}
	for _, k := range keys {
		l.byID[k.ID] = k
		if k.Kind == KindChar {
			l.chars = append(l.chars, k)
		}
	}
	return l
}

// qwertyRows holds the standard three letter rows with their horizontal
// offsets in key widths.
var qwertyRows = []struct {
	letters string
	offset  float64
}{
	{"qwertyuiop", 0},
	{"asdfghjkl", 0.5},
	{"zxcvbnm", 1.5},
}

// NewQwerty builds a QWERTY letter grid with the given key size, plus a
// bottom row containing a space bar. Suitable for tests and trace replay;
// a production host supplies its own Provider.
func NewQwerty(keyW, keyH float64) *Layout {
	var keys []Key
	for row, r := range qwertyRows {
		x := r.offset * keyW
		y := float64(row) * keyH
		for _, ch := range r.letters {
			keys = append(keys, Key{
				ID:   string(ch),
				Kind: KindChar,
				X:    x,
				Y:    y,
				W:    keyW,
				H:    keyH,
			})
			x += keyW
		}
	}
	bottom := 3 * keyH
	keys = append(keys,
		Key{ID: "shift", Kind: KindAction, X: 0, Y: bottom, W: 1.5 * keyW, H: keyH},
		Key{ID: "space", Kind: KindAction, X: 2 * keyW, Y: bottom, W: 5 * keyW, H: keyH},
		Key{ID: "backspace", Kind: KindAction, X: 8 * keyW, Y: bottom, W: 1.5 * keyW, H: keyH},
	)
	return NewLayout(keys)
}

// KeyAt implements Provider.
func (l *Layout) KeyAt(x, y float64) (Key, bool) {
	for _, k := range l.keys {
		if x >= k.X && x < k.X+k.W && y >= k.Y && y < k.Y+k.H {
			return k, true
		}
	}
	return Key{}, false
}

// Nearest implements Provider. Only character keys are considered: a path
// that strays over the space bar should still map to the nearest letter.
func (l *Layout) Nearest(x, y float64) (Key, bool) {
	if len(l.chars) == 0 {
		return Key{}, false
	}
	best := l.chars[0]
	bestDist := math.Inf(1)
	for _, k := range l.chars {
		dx := x - k.CenterX()
		dy := y - k.CenterY()
		d := dx*dx + dy*dy
		if d < bestDist {
			bestDist = d
			best = k
		}
	}
	return best, true
}

// Key implements Provider.
func (l *Layout) Key(id string) (Key, bool) {
	k, ok := l.byID[strings.ToLower(id)]
	return k, ok
}

// Keys implements Provider.
func (l *Layout) Keys() []Key {
	out := make([]Key, len(l.keys))
	copy(out, l.keys)
	return out
}

// Neighbors returns the IDs of character keys whose centers lie within
// radius of the given key's center, excluding the key itself. Used by the
// candidate index to tolerate off-by-one start/end keys.
func (l *Layout) Neighbors(id string, radius float64) []string {
	center, ok := l.byID[id]
	if !ok {
		return nil
	}
	var out []string
	for _, k := range l.chars {
		if k.ID == id {
			continue
		}
		dx := k.CenterX() - center.CenterX()
		dy := k.CenterY() - center.CenterY()
		if math.Hypot(dx, dy) <= radius {
			out = append(out, k.ID)
		}
	}
	return out
}
