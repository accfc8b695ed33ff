// Package engine wires the gesture machine, candidate scoring, word
// learning, and the adaptive stores into one explicitly constructed
// session. Instances are owned by the host session; nothing here is a
// process-wide singleton.
package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/glidekb/glide/pkg/dictionary"
	"github.com/glidekb/glide/pkg/gesture"
	"github.com/glidekb/glide/pkg/keyboard"
	"github.com/glidekb/glide/pkg/learn"
	"github.com/glidekb/glide/pkg/scoring"
	"github.com/glidekb/glide/pkg/store"
)

// Options configures an engine session.
type Options struct {
	Lang         string
	SamplePoints int
	Thresholds   gesture.Thresholds
	Scoring      scoring.Options
}

// DefaultOptions returns the stock engine options.
func DefaultOptions() Options {
	return Options{
		Lang:         "en",
		SamplePoints: gesture.DefaultSamplePoints,
		Thresholds:   gesture.DefaultThresholds(),
		Scoring:      scoring.DefaultOptions(),
	}
}

// Engine is one input session: it consumes touch events and produces taps,
// ranked swipe candidates, learning commits, and next-word predictions.
type Engine struct {
	machine *gesture.Machine
	dicts   *dictionary.Manager
	freq    *store.FrequencyStore
	bigrams *store.BigramStore
	learner *learn.Engine
	opts    Options

	// mu guards everything the scoring goroutines read concurrently with
	// the host thread: the active language, the scorer cache, the key
	// geometry, and the installed callbacks.
	mu           sync.Mutex
	lang         string
	scorers      map[string]*scoring.Scorer
	keys         keyboard.Provider
	onCandidates func([]scoring.Candidate)
	onTap        func(keyboard.Key)

	// gen is the latest-gesture generation; a scoring task only delivers
	// when its generation is still current, so stale completions are
	// dropped without explicit cancellation plumbing.
	gen atomic.Uint64

	ctxMu  sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup
}

// New constructs an engine session. Stores may be nil; swipe decoding then
// runs without adaptive boosts and learning is disabled.
func New(keys keyboard.Provider, dicts *dictionary.Manager, freq *store.FrequencyStore, bigrams *store.BigramStore, opts Options) *Engine {
	if opts.SamplePoints <= 1 {
		opts.SamplePoints = gesture.DefaultSamplePoints
	}
	if opts.Lang == "" {
		opts.Lang = "en"
	}
	e := &Engine{
		machine: gesture.NewMachine(keys),
		keys:    keys,
		dicts:   dicts,
		freq:    freq,
		bigrams: bigrams,
		learner: learn.NewEngine(freq, bigrams),
		opts:    opts,
		lang:    opts.Lang,
		scorers: make(map[string]*scoring.Scorer),
	}
	e.machine.SetThresholds(opts.Thresholds)
	e.machine.SetListener(e)
	e.ctx, e.cancel = context.WithCancel(context.Background())
	return e
}

// SetCandidateHandler installs the ranked-candidate callback. It runs on a
// scoring goroutine; the host marshals to its UI context.
func (e *Engine) SetCandidateHandler(fn func([]scoring.Candidate)) {
	e.mu.Lock()
	e.onCandidates = fn
	e.mu.Unlock()
}

// SetTapHandler installs the tap callback. It runs synchronously on the
// input thread and must not block.
func (e *Engine) SetTapHandler(fn func(keyboard.Key)) {
	e.mu.Lock()
	e.onTap = fn
	e.mu.Unlock()
}

// HandleTouchEvent feeds one touch sample through the gesture machine.
// Synchronous, no I/O; safe to call from the input-delivery thread.
func (e *Engine) HandleTouchEvent(sample gesture.TouchSample, action gesture.Action) bool {
	return e.machine.HandleTouchEvent(sample, action)
}

// UpdateKeyPositions swaps the key geometry. In-flight scoring tasks keep
// the geometry they were dispatched with.
func (e *Engine) UpdateKeyPositions(keys keyboard.Provider) {
	e.machine.UpdateKeyPositions(keys)
	e.mu.Lock()
	e.keys = keys
	e.scorers = make(map[string]*scoring.Scorer)
	e.mu.Unlock()
}

// UpdateDisplayMetrics sets the display density for threshold scaling.
func (e *Engine) UpdateDisplayMetrics(density float64) {
	e.machine.UpdateDisplayMetrics(density)
}

// SetLanguage switches the active language.
func (e *Engine) SetLanguage(lang string) {
	e.mu.Lock()
	e.lang = lang
	e.mu.Unlock()
}

// Lang returns the active language.
func (e *Engine) Lang() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lang
}

// OnTap implements gesture.Listener.
func (e *Engine) OnTap(key keyboard.Key) {
	e.mu.Lock()
	fn := e.onTap
	e.mu.Unlock()
	if fn != nil {
		fn(key)
	}
}

// OnSwipeComplete implements gesture.Listener: it dispatches one scoring
// task per finished gesture. Last result wins; results for superseded
// gestures are discarded.
func (e *Engine) OnSwipeComplete(path []gesture.TouchSample) {
	gen := e.gen.Add(1)
	snapshot := make([]gesture.TouchSample, len(path))
	copy(snapshot, path)

	// Snapshot geometry and handler so the task never touches fields the
	// host thread may swap mid-flight.
	e.mu.Lock()
	keys := e.keys
	handler := e.onCandidates
	e.mu.Unlock()

	e.ctxMu.Lock()
	ctx := e.ctx
	e.ctxMu.Unlock()

	e.tasks.Add(1)
	go func() {
		defer e.tasks.Done()
		candidates := e.score(snapshot, keys)
		if ctx.Err() != nil || e.gen.Load() != gen {
			// A newer gesture finished first, or cleanup ran.
			return
		}
		if handler != nil {
			handler(candidates)
		}
	}()
}

// score runs the full decode for one path. A missing dictionary for the
// active language degrades to no candidates, never an error.
func (e *Engine) score(path []gesture.TouchSample, keys keyboard.Provider) []scoring.Candidate {
	lang := e.Lang()
	scorer := e.scorer(lang)
	if scorer == nil {
		log.Debugf("no dictionary for %s, swipe degrades to tap-only", lang)
		return nil
	}
	normalized, err := gesture.Normalize(path, keys, e.opts.SamplePoints)
	if err != nil {
		log.Debugf("path normalization failed: %v", err)
		return nil
	}
	return scorer.Rank(normalized)
}

func (e *Engine) scorer(lang string) *scoring.Scorer {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.scorers[lang]; ok {
		return s
	}
	if e.dicts == nil {
		return nil
	}
	dict, ok := e.dicts.Get(lang)
	if !ok {
		return nil
	}
	var freq scoring.FrequencyProvider
	if e.freq != nil {
		freq = e.freq
	}
	s := scoring.NewScorer(dict, freq, e.opts.Scoring)
	e.scorers[lang] = s
	return s
}

// InvalidateScorers drops cached scorers, e.g. after a dictionary reload.
func (e *Engine) InvalidateScorers() {
	e.mu.Lock()
	e.scorers = make(map[string]*scoring.Scorer)
	e.mu.Unlock()
}

// CommitWord records an accepted word or correction for learning.
func (e *Engine) CommitWord(word string, source learn.Source) {
	e.learner.Commit(word, source, e.Lang())
}

// ResetContext breaks the bigram chain for the active language.
func (e *Engine) ResetContext() {
	e.learner.ResetContext(e.Lang())
}

// NextWords returns bigram-based next-word predictions after prev.
func (e *Engine) NextWords(prev string, limit int) []store.Prediction {
	if e.bigrams == nil {
		return nil
	}
	return e.bigrams.GetBigramPredictions(prev, e.Lang(), limit)
}

// DisplayForm returns the learned display casing for a word.
func (e *Engine) DisplayForm(word string) string {
	return e.learner.DisplayForm(word, e.Lang())
}

// Cleanup cancels outstanding scoring tasks and resets the gesture
// machine. The engine remains usable afterwards; durable writes already
// past the flush lock boundary are not aborted.
func (e *Engine) Cleanup() {
	e.ctxMu.Lock()
	e.cancel()
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.ctxMu.Unlock()
	e.machine.Cleanup()
}

// Close flushes both stores and waits for in-flight scoring tasks. The
// backend is owned by the caller and closed separately.
func (e *Engine) Close() {
	e.Cleanup()
	e.tasks.Wait()
	if e.freq != nil {
		e.freq.Flush()
	}
	if e.bigrams != nil {
		e.bigrams.Flush()
	}
}

// Stats aggregates counters across the session's parts.
func (e *Engine) Stats() map[string]int {
	stats := make(map[string]int)
	if e.dicts != nil {
		for k, v := range e.dicts.Stats() {
			stats["dict."+k] = v
		}
	}
	if e.freq != nil {
		for k, v := range e.freq.Stats() {
			stats["freq."+k] = v
		}
	}
	if e.bigrams != nil {
		for k, v := range e.bigrams.Stats() {
			stats["bigram."+k] = v
		}
	}
	return stats
}
