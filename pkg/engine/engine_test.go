package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glidekb/glide/pkg/dictionary"
	"github.com/glidekb/glide/pkg/gesture"
	"github.com/glidekb/glide/pkg/keyboard"
	"github.com/glidekb/glide/pkg/learn"
	"github.com/glidekb/glide/pkg/scoring"
	"github.com/glidekb/glide/pkg/store"
)

func testEngine(t *testing.T, words map[string]uint32) (*Engine, *keyboard.Layout) {
	t.Helper()
	keys := keyboard.NewQwerty(60, 80)
	dicts := dictionary.NewManager()
	if len(words) > 0 {
		b := dictionary.NewBuilder("en", keys, gesture.DefaultSamplePoints, 70)
		for w, f := range words {
			b.AddWord(w, f)
		}
		dicts.Put(b.Build())
	}
	e := New(keys, dicts, nil, nil, DefaultOptions())
	t.Cleanup(e.Close)
	return e, keys
}

// swipeWord drives the touch pipeline along the ideal path of a key
// sequence, as if the user traced the word.
func swipeWord(t *testing.T, e *Engine, keys keyboard.Provider, keyIDs []string) {
	t.Helper()
	pts, err := gesture.PathThroughKeys(keyIDs, keys, gesture.DefaultSamplePoints)
	require.NoError(t, err)
	for i, p := range pts {
		sample := gesture.TouchSample{X: p.X, Y: p.Y, TimeMs: int64(i) * 16}
		switch i {
		case 0:
			e.HandleTouchEvent(sample, gesture.ActionDown)
		case len(pts) - 1:
			e.HandleTouchEvent(sample, gesture.ActionUp)
		default:
			e.HandleTouchEvent(sample, gesture.ActionMove)
		}
	}
}

func awaitCandidates(t *testing.T, ch <-chan []scoring.Candidate) []scoring.Candidate {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no candidates delivered")
		return nil
	}
}

func TestSwipeDeliversRankedCandidates(t *testing.T) {
	e, keys := testEngine(t, map[string]uint32{"hello": 500, "help": 300, "to": 900})
	ch := make(chan []scoring.Candidate, 1)
	e.SetCandidateHandler(func(c []scoring.Candidate) { ch <- c })

	swipeWord(t, e, keys, []string{"h", "e", "l", "o"})

	candidates := awaitCandidates(t, ch)
	require.NotEmpty(t, candidates)
	assert.Equal(t, "hello", candidates[0].Word)
}

func TestTapInvokesTapHandlerOnly(t *testing.T) {
	e, _ := testEngine(t, map[string]uint32{"hello": 1})
	taps := make(chan keyboard.Key, 1)
	e.SetTapHandler(func(k keyboard.Key) { taps <- k })
	swipes := make(chan []scoring.Candidate, 1)
	e.SetCandidateHandler(func(c []scoring.Candidate) { swipes <- c })

	e.HandleTouchEvent(gesture.TouchSample{X: 450, Y: 40, TimeMs: 0}, gesture.ActionDown)
	e.HandleTouchEvent(gesture.TouchSample{X: 450, Y: 40, TimeMs: 50}, gesture.ActionUp)

	select {
	case k := <-taps:
		assert.Equal(t, keyboard.KindChar, k.Kind)
	case <-time.After(time.Second):
		t.Fatal("no tap delivered")
	}
	select {
	case <-swipes:
		t.Fatal("tap must not produce swipe candidates")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMissingDictionaryDegradesToEmptyCandidates(t *testing.T) {
	e, keys := testEngine(t, nil)
	ch := make(chan []scoring.Candidate, 1)
	e.SetCandidateHandler(func(c []scoring.Candidate) { ch <- c })

	swipeWord(t, e, keys, []string{"h", "e", "l", "o"})
	assert.Empty(t, awaitCandidates(t, ch))
}

func TestCleanupLeavesEngineUsable(t *testing.T) {
	e, keys := testEngine(t, map[string]uint32{"hello": 500})
	ch := make(chan []scoring.Candidate, 2)
	e.SetCandidateHandler(func(c []scoring.Candidate) { ch <- c })

	e.Cleanup()
	e.Cleanup() // idempotent

	swipeWord(t, e, keys, []string{"h", "e", "l", "o"})
	candidates := awaitCandidates(t, ch)
	require.NotEmpty(t, candidates)
	assert.Equal(t, "hello", candidates[0].Word)
}

func TestLayoutSwapDuringAsyncScoring(t *testing.T) {
	e, keys := testEngine(t, map[string]uint32{"hello": 500})
	ch := make(chan []scoring.Candidate, 64)
	e.SetCandidateHandler(func(c []scoring.Candidate) { ch <- c })

	// Swap the key geometry between gestures while earlier scoring tasks
	// may still be running; each task must keep the geometry it was
	// dispatched with.
	for i := 0; i < 50; i++ {
		swipeWord(t, e, keys, []string{"h", "e", "l", "o"})
		e.UpdateKeyPositions(keyboard.NewQwerty(60, 80))
		e.SetTapHandler(func(keyboard.Key) {})
	}

	for {
		select {
		case <-ch:
			continue
		default:
		}
		break
	}

	swipeWord(t, e, keys, []string{"h", "e", "l", "o"})
	candidates := awaitCandidates(t, ch)
	require.NotEmpty(t, candidates)
	assert.Equal(t, "hello", candidates[0].Word)
}

func TestSetLanguageSwitchesDictionary(t *testing.T) {
	keys := keyboard.NewQwerty(60, 80)
	dicts := dictionary.NewManager()
	en := dictionary.NewBuilder("en", keys, gesture.DefaultSamplePoints, 70)
	en.AddWord("hello", 500)
	dicts.Put(en.Build())

	e := New(keys, dicts, nil, nil, DefaultOptions())
	t.Cleanup(e.Close)
	ch := make(chan []scoring.Candidate, 2)
	e.SetCandidateHandler(func(c []scoring.Candidate) { ch <- c })

	e.SetLanguage("de")
	assert.Equal(t, "de", e.Lang())
	swipeWord(t, e, keys, []string{"h", "e", "l", "o"})
	assert.Empty(t, awaitCandidates(t, ch), "no dictionary loaded for de")

	e.SetLanguage("en")
	swipeWord(t, e, keys, []string{"h", "e", "l", "o"})
	candidates := awaitCandidates(t, ch)
	require.NotEmpty(t, candidates)
	assert.Equal(t, "hello", candidates[0].Word)
}

func TestCommitLearningAndNextWords(t *testing.T) {
	keys := keyboard.NewQwerty(60, 80)
	backend, err := store.OpenSQLite(filepath.Join(t.TempDir(), "glide.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, backend.Close()) })

	cfg := store.DefaultConfig()
	cfg.DebounceInterval = 10 * time.Millisecond
	freq, err := store.NewFrequencyStore(backend, cfg)
	require.NoError(t, err)
	bigrams, err := store.NewBigramStore(backend, cfg)
	require.NoError(t, err)

	e := New(keys, dictionary.NewManager(), freq, bigrams, DefaultOptions())
	t.Cleanup(e.Close)

	e.CommitWord("Good", learn.SourceTap)
	e.CommitWord("morning", learn.SourceSwipe)
	freq.Flush()
	bigrams.Flush()

	preds := e.NextWords("good", 5)
	require.Len(t, preds, 1)
	assert.Equal(t, "morning", preds[0].Word)

	assert.Equal(t, "Good", e.DisplayForm("good"))

	e.ResetContext()
	e.CommitWord("evening", learn.SourceTap)
	bigrams.Flush()
	assert.Len(t, e.NextWords("morning", 5), 0, "reset breaks the bigram chain")
}
