// Package dictionary holds per-language word tables with precomputed ideal
// key paths, indexed for fast candidate retrieval by a swipe's start and end
// keys.
package dictionary

import (
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/glidekb/glide/pkg/gesture"
	"github.com/glidekb/glide/pkg/keyboard"
)

// Entry is one dictionary word with its corpus frequency and precomputed
// ideal swipe path.
type Entry struct {
	Word      string
	Frequency uint32
	// KeySeq is the collapsed sequence of key IDs the word's letters map
	// to: "hello" -> [h e l o].
	KeySeq []string
	// Ideal is the resampled polyline through the KeySeq key centers.
	Ideal []gesture.Point
	// Rank is the 1-based position of the word in the frequency-sorted
	// table. Used by the Zipf plausibility filter.
	Rank int
}

// Dictionary is an immutable per-language word table. Build it once via a
// Builder or the loader; concurrent reads need no locking.
type Dictionary struct {
	lang         string
	entries      []*Entry
	byWord       map[string]*Entry
	index        *patricia.Trie
	maxFrequency uint32
	// neighborRadius is the tolerance, in px, for matching a swipe's
	// start/end keys against a word's first/last keys.
	neighborRadius float64
	keys           keyboard.Provider
}

// Lang returns the dictionary's language tag.
func (d *Dictionary) Lang() string { return d.lang }

// Len returns the number of indexed words.
func (d *Dictionary) Len() int { return len(d.entries) }

// MaxFrequency returns the highest corpus frequency in the table.
func (d *Dictionary) MaxFrequency() uint32 { return d.maxFrequency }

// Entry returns the entry for an exact word.
func (d *Dictionary) Entry(word string) (*Entry, bool) {
	e, ok := d.byWord[word]
	return e, ok
}

// Entries returns the frequency-sorted entries. Callers must not mutate.
func (d *Dictionary) Entries() []*Entry { return d.entries }

// Stats returns counters in the same shape the rest of the engine reports.
func (d *Dictionary) Stats() map[string]int {
	return map[string]int{
		"totalWords":   len(d.entries),
		"maxFrequency": int(d.maxFrequency),
	}
}

// edgePrefix builds the index prefix for a (start key, end key) pair.
func edgePrefix(start, end string) string {
	return start + "|" + end + ":"
}

// Builder accumulates words and produces an indexed Dictionary.
type Builder struct {
	lang           string
	keys           keyboard.Provider
	samplePoints   int
	neighborRadius float64
	words          map[string]uint32
}

// NewBuilder creates a dictionary builder for one language over the given
// key geometry. neighborRadius is the start/end key match tolerance in px;
// zero disables neighbor expansion.
func NewBuilder(lang string, keys keyboard.Provider, samplePoints int, neighborRadius float64) *Builder {
	if samplePoints <= 1 {
		samplePoints = gesture.DefaultSamplePoints
	}
	return &Builder{
		lang:           lang,
		keys:           keys,
		samplePoints:   samplePoints,
		neighborRadius: neighborRadius,
		words:          make(map[string]uint32),
	}
}

// AddWord records a word with its corpus frequency. Repeats keep the
// highest frequency seen.
func (b *Builder) AddWord(word string, frequency uint32) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return
	}
	if f, ok := b.words[word]; !ok || frequency > f {
		b.words[word] = frequency
	}
}

// Build indexes the accumulated words. Words whose letters have no key in
// the layout are skipped with a debug log, not an error: a dictionary can
// legitimately contain words the active layout cannot swipe.
func (b *Builder) Build() *Dictionary {
	d := &Dictionary{
		lang:           b.lang,
		byWord:         make(map[string]*Entry, len(b.words)),
		index:          patricia.NewTrie(),
		neighborRadius: b.neighborRadius,
		keys:           b.keys,
	}

	skipped := 0
	for word, freq := range b.words {
		keySeq := wordKeySeq(word, b.keys)
		if len(keySeq) == 0 {
			skipped++
			continue
		}
		ideal, err := gesture.PathThroughKeys(keySeq, b.keys, b.samplePoints)
		if err != nil {
			skipped++
			continue
		}
		e := &Entry{
			Word:      word,
			Frequency: freq,
			KeySeq:    keySeq,
			Ideal:     ideal,
		}
		d.entries = append(d.entries, e)
		d.byWord[word] = e
		if freq > d.maxFrequency {
			d.maxFrequency = freq
		}
	}
	if skipped > 0 {
		log.Debugf("dictionary %s: skipped %d words with no key mapping", b.lang, skipped)
	}

	sort.Slice(d.entries, func(i, j int) bool {
		if d.entries[i].Frequency != d.entries[j].Frequency {
			return d.entries[i].Frequency > d.entries[j].Frequency
		}
		return d.entries[i].Word < d.entries[j].Word
	})
	for i, e := range d.entries {
		e.Rank = i + 1
		start := e.KeySeq[0]
		end := e.KeySeq[len(e.KeySeq)-1]
		d.index.Insert(patricia.Prefix(edgePrefix(start, end)+e.Word), e)
	}
	return d
}

// wordKeySeq maps a word's letters to key IDs, collapsing consecutive
// repeats. Letters with no key in the layout (apostrophes, hyphens) are
// dropped; a word that loses every letter is unmappable.
func wordKeySeq(word string, keys keyboard.Provider) []string {
	var seq []string
	for _, r := range word {
		id := string(r)
		if _, ok := keys.Key(id); !ok {
			continue
		}
		if n := len(seq); n > 0 && seq[n-1] == id {
			continue
		}
		seq = append(seq, id)
	}
	return seq
}

// Candidates returns entries whose ideal path is compatible with the
// observed key sequence: the start and end keys match within the neighbor
// tolerance, and the word's interior keys are covered by the observed keys
// expanded with their neighbors.
func (d *Dictionary) Candidates(observed *gesture.NormalizedPath) []*Entry {
	if observed == nil || len(observed.Keys) == 0 {
		return nil
	}
	starts := d.expand(observed.StartKey())
	ends := d.expand(observed.EndKey())

	covered := make(map[string]struct{}, len(observed.Keys)*4)
	for _, id := range observed.Keys {
		covered[id] = struct{}{}
		for _, n := range d.keys.Neighbors(id, d.neighborRadius) {
			covered[n] = struct{}{}
		}
	}

	var out []*Entry
	for _, start := range starts {
		for _, end := range ends {
			prefix := patricia.Prefix(edgePrefix(start, end))
			err := d.index.VisitSubtree(prefix, func(_ patricia.Prefix, item patricia.Item) error {
				e := item.(*Entry)
				if keySetCovered(e.KeySeq, covered) {
					out = append(out, e)
				}
				return nil
			})
			if err != nil {
				log.Errorf("dictionary %s: visiting candidate index: %v", d.lang, err)
			}
		}
	}
	return out
}

func (d *Dictionary) expand(id string) []string {
	if id == "" {
		return nil
	}
	out := []string{id}
	if d.neighborRadius > 0 && d.keys != nil {
		out = append(out, d.keys.Neighbors(id, d.neighborRadius)...)
	}
	return out
}

func keySetCovered(keySeq []string, covered map[string]struct{}) bool {
	for _, id := range keySeq {
		if _, ok := covered[id]; !ok {
			return false
		}
	}
	return true
}

// Manager owns the loaded dictionaries, one per language, and supports
// runtime load/unload as the active language set changes.
type Manager struct {
	mu    sync.RWMutex
	dicts map[string]*Dictionary
}

// NewManager creates an empty dictionary manager.
func NewManager() *Manager {
	return &Manager{dicts: make(map[string]*Dictionary)}
}

// Put installs a dictionary, replacing any previous one for the language.
func (m *Manager) Put(d *Dictionary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dicts[d.lang] = d
}

// Get returns the dictionary for a language.
func (m *Manager) Get(lang string) (*Dictionary, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.dicts[lang]
	return d, ok
}

// Unload drops the dictionary for a language.
func (m *Manager) Unload(lang string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.dicts, lang)
}

// Langs returns the loaded language tags.
func (m *Manager) Langs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.dicts))
	for lang := range m.dicts {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Stats aggregates per-language counters.
func (m *Manager) Stats() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := map[string]int{"languages": len(m.dicts)}
	for lang, d := range m.dicts {
		for k, v := range d.Stats() {
			stats[lang+"."+k] = v
		}
	}
	return stats
}
