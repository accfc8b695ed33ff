package learn

import (
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/glidekb/glide/pkg/store"
)

// Source says how a committed word was produced.
type Source int

const (
	SourceTap Source = iota
	SourceSwipe
	SourceCorrection
	SourcePrediction
)

// String returns the human-readable name of the source.
func (s Source) String() string {
	switch s {
	case SourceTap:
		return "tap"
	case SourceSwipe:
		return "swipe"
	case SourceCorrection:
		return "correction"
	case SourcePrediction:
		return "prediction"
	default:
		return "unknown"
	}
}

// Engine commits accepted words and corrections into the adaptive stores.
// The typed casing becomes the stored display form on first use; repeats
// replace it only when the new form's casing-intent score is strictly
// higher. Frequency increments unconditionally either way.
type Engine struct {
	freq    *store.FrequencyStore
	bigrams *store.BigramStore

	mu       sync.Mutex
	lastWord map[string]string // lang -> previously committed word
}

// NewEngine wires a learning engine to its stores. Either store may be nil
// to disable that signal.
func NewEngine(freq *store.FrequencyStore, bigrams *store.BigramStore) *Engine {
	return &Engine{
		freq:     freq,
		bigrams:  bigrams,
		lastWord: make(map[string]string),
	}
}

// Commit records one accepted word. Fire-and-forget; persistence happens on
// the stores' debounced flush path.
func (e *Engine) Commit(word string, source Source, lang string) {
	word = strings.TrimSpace(word)
	if word == "" {
		return
	}
	log.Debugf("commit %q source=%s lang=%s", word, source, lang)

	if e.freq != nil {
		e.freq.CommitUsage(word, word, CasingIntentScore(word), lang)
	}

	e.mu.Lock()
	prev := e.lastWord[lang]
	e.lastWord[lang] = word
	e.mu.Unlock()

	if e.bigrams != nil && prev != "" {
		e.bigrams.RecordBigram(prev, word, lang)
	}
}

// ResetContext forgets the previous word for a language, breaking the
// bigram chain. Call when the cursor moves or the field changes.
func (e *Engine) ResetContext(lang string) {
	e.mu.Lock()
	delete(e.lastWord, lang)
	e.mu.Unlock()
}

// DisplayForm returns the stored display casing for a word, falling back
// to the given word when nothing stronger is stored.
func (e *Engine) DisplayForm(word, lang string) string {
	if e.freq == nil {
		return word
	}
	display, _ := e.freq.DisplayForm(word, lang)
	if display == "" {
		return word
	}
	return display
}
