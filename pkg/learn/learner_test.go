package learn

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glidekb/glide/pkg/store"
)

func newTestStores(t *testing.T) (*store.FrequencyStore, *store.BigramStore, *store.SQLiteBackend) {
	t.Helper()
	backend, err := store.OpenSQLite(filepath.Join(t.TempDir(), "adaptive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	cfg := store.DefaultConfig()
	cfg.DebounceInterval = 10 * time.Millisecond
	freq, err := store.NewFrequencyStore(backend, cfg)
	require.NoError(t, err)
	bigrams, err := store.NewBigramStore(backend, cfg)
	require.NoError(t, err)
	return freq, bigrams, backend
}

func TestCommitLearnsFrequencyAndCasing(t *testing.T) {
	freq, bigrams, backend := newTestStores(t)
	e := NewEngine(freq, bigrams)

	e.Commit("Hello", SourceSwipe, "en")
	e.Commit("Hello", SourceTap, "en")
	freq.Flush()

	count, err := backend.WordCount(context.Background(), "en", "hello")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), count, "frequency increments unconditionally")

	display, score, err := backend.DisplayForm(context.Background(), "en", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello", display)
	assert.Equal(t, 2, score)
}

func TestCasingPromotionRequiresStrictlyHigherScore(t *testing.T) {
	freq, bigrams, backend := newTestStores(t)
	e := NewEngine(freq, bigrams)

	e.Commit("mcdonald", SourceTap, "en")
	freq.Flush()
	e.Commit("Mcdonald", SourceTap, "en") // leading cap, score 2
	freq.Flush()
	e.Commit("McDonald", SourceTap, "en") // interior cap, score 4
	freq.Flush()
	e.Commit("MCDONALD", SourceTap, "en") // all-caps long, score 1: no demotion
	freq.Flush()

	display, score, err := backend.DisplayForm(context.Background(), "en", "mcdonald")
	require.NoError(t, err)
	assert.Equal(t, "McDonald", display)
	assert.Equal(t, 4, score)

	count, err := backend.WordCount(context.Background(), "en", "mcdonald")
	require.NoError(t, err)
	assert.Equal(t, uint32(4), count)
}

func TestCommitRecordsBigramChain(t *testing.T) {
	freq, bigrams, backend := newTestStores(t)
	e := NewEngine(freq, bigrams)

	e.Commit("Hello", SourceSwipe, "en")
	e.Commit("world", SourceSwipe, "en")
	e.Commit("world", SourceSwipe, "en")
	bigrams.Flush()

	preds, err := backend.BigramPredictions(context.Background(), "en", "hello", 5)
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, "world", preds[0].Word)

	// world -> world from the repeat
	preds, err = backend.BigramPredictions(context.Background(), "en", "world", 5)
	require.NoError(t, err)
	require.Len(t, preds, 1)
}

func TestResetContextBreaksChain(t *testing.T) {
	freq, bigrams, backend := newTestStores(t)
	e := NewEngine(freq, bigrams)

	e.Commit("hello", SourceSwipe, "en")
	e.ResetContext("en")
	e.Commit("world", SourceSwipe, "en")
	bigrams.Flush()

	preds, err := backend.BigramPredictions(context.Background(), "en", "hello", 5)
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestDisplayFormFallsBackToInput(t *testing.T) {
	freq, bigrams, _ := newTestStores(t)
	e := NewEngine(freq, bigrams)

	assert.Equal(t, "nothing", e.DisplayForm("nothing", "en"))

	e.Commit("NASA", SourceTap, "en")
	freq.Flush()
	assert.Equal(t, "NASA", e.DisplayForm("nasa", "en"))
}

func TestCommitIgnoresBlankWords(t *testing.T) {
	freq, bigrams, _ := newTestStores(t)
	e := NewEngine(freq, bigrams)

	e.Commit("   ", SourceTap, "en")
	assert.Equal(t, 0, freq.PendingCount())
}
