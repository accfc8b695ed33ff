package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQwertyHitTest(t *testing.T) {
	l := NewQwerty(60, 80)

	tests := []struct {
		x, y   float64
		wantID string
		wantOK bool
	}{
		{30, 40, "q", true},
		{90, 40, "w", true},
		{590, 40, "p", true},
		{60, 120, "a", true}, // second row offset
		{270, 280, "space", true},
		{-10, 40, "", false},
		{30, 1000, "", false},
	}
	for _, tc := range tests {
		k, ok := l.KeyAt(tc.x, tc.y)
		assert.Equal(t, tc.wantOK, ok, "KeyAt(%v, %v)", tc.x, tc.y)
		if tc.wantOK {
			assert.Equal(t, tc.wantID, k.ID)
		}
	}
}

func TestNearestSkipsActionKeys(t *testing.T) {
	l := NewQwerty(60, 80)

	// Over the space bar: nearest character key, never space itself.
	k, ok := l.Nearest(270, 280)
	require.True(t, ok)
	assert.Equal(t, KindChar, k.Kind)
}

func TestNeighbors(t *testing.T) {
	l := NewQwerty(60, 80)

	neighbors := l.Neighbors("g", 100)
	assert.Contains(t, neighbors, "f")
	assert.Contains(t, neighbors, "h")
	assert.NotContains(t, neighbors, "g")
	assert.NotContains(t, neighbors, "p")

	assert.Empty(t, l.Neighbors("no-such-key", 100))
}

func TestKeyLookup(t *testing.T) {
	l := NewQwerty(60, 80)

	k, ok := l.Key("Q")
	require.True(t, ok, "lookup is case-insensitive")
	assert.Equal(t, "q", k.ID)

	_, ok = l.Key("é")
	assert.False(t, ok)
}
