package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/glidekb/glide/internal/textutil"
)

// Config tunes one store's caching, flushing, and pruning.
type Config struct {
	// DebounceInterval is the quiet period after the last increment
	// before pending updates flush. Each new increment for a key resets
	// the timer.
	DebounceInterval time.Duration
	// FlushCeiling caps how long a steady stream of increments can defer
	// a flush. Zero restores pure debounce (the flush may then be
	// deferred indefinitely under sustained typing).
	FlushCeiling time.Duration
	// PruneEvery triggers a prune pass after every Nth flush.
	PruneEvery uint64
	// StaleAfter is the age past which unused rows are pruned.
	StaleAfter time.Duration
	// MaxRows caps the durable table; pruning evicts low-count, old rows
	// down to the cap.
	MaxRows int
	// CacheSize bounds the fine-grained read cache.
	CacheSize int
	// PreloadLimit is how many rows PreloadTop pulls into the coarse
	// per-language cache.
	PreloadLimit int
	// FlushTimeout bounds a single durable write batch.
	FlushTimeout time.Duration
}

// DefaultConfig returns the stock store configuration.
func DefaultConfig() Config {
	return Config{
		DebounceInterval: 300 * time.Millisecond,
		FlushCeiling:     5 * time.Second,
		PruneEvery:       16,
		StaleAfter:       90 * 24 * time.Hour,
		MaxRows:          10000,
		CacheSize:        2048,
		PreloadLimit:     200,
		FlushTimeout:     5 * time.Second,
	}
}

func (c *Config) fill() {
	d := DefaultConfig()
	if c.DebounceInterval <= 0 {
		c.DebounceInterval = d.DebounceInterval
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = d.StaleAfter
	}
	if c.CacheSize <= 0 {
		c.CacheSize = d.CacheSize
	}
	if c.PreloadLimit <= 0 {
		c.PreloadLimit = d.PreloadLimit
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = d.FlushTimeout
	}
}

type wordKey struct {
	lang string
	word string
}

// pendingWord aggregates increments for one key between flushes. The
// highest-scoring display form observed in the window is the promotion
// candidate.
type pendingWord struct {
	count       uint32
	display     string
	casingScore int
}

// FrequencyStore is the adaptive per-user word frequency store.
//
// Increments are non-blocking and thread-safe: they merge into an
// in-memory aggregator and (re)arm a debounced flush. Reads observe the
// last flushed value only.
type FrequencyStore struct {
	backend Backend
	cfg     Config

	mu             sync.Mutex // guards pending, timer, firstPendingAt
	pending        map[wordKey]*pendingWord
	timer          *time.Timer
	firstPendingAt time.Time

	flushMu sync.Mutex // serializes flushes
	flushes atomic.Uint64

	cache *lru.Cache[wordKey, uint32]

	topMu sync.RWMutex
	top   map[string]map[string]uint32 // lang -> word -> flushed count
}

// NewFrequencyStore creates a frequency store over a backend. The store
// does not own the backend; the caller closes it after Flush/ClearCache.
func NewFrequencyStore(backend Backend, cfg Config) (*FrequencyStore, error) {
	cfg.fill()
	cache, err := lru.New[wordKey, uint32](cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &FrequencyStore{
		backend: backend,
		cfg:     cfg,
		pending: make(map[wordKey]*pendingWord),
		cache:   cache,
		top:     make(map[string]map[string]uint32),
	}, nil
}

// IncrementFrequency records one use of a word. Fire-and-forget: storage
// failures are logged at flush time and never surface here.
func (s *FrequencyStore) IncrementFrequency(word, lang string) {
	s.CommitUsage(word, word, 0, lang)
}

// CommitUsage records one use of a word together with its typed display
// form and casing-intent score. The learning engine uses this entry point;
// plain increments go through IncrementFrequency.
func (s *FrequencyStore) CommitUsage(word, display string, casingScore int, lang string) {
	normalized := textutil.NormalizeWord(word, lang)
	if normalized == "" {
		return
	}
	key := wordKey{lang: lang, word: normalized}

	// Invalidate the read cache first so a stale value is not served for
	// the whole debounce window.
	s.cache.Remove(key)

	s.mu.Lock()
	p, ok := s.pending[key]
	if !ok {
		p = &pendingWord{display: display, casingScore: casingScore}
		s.pending[key] = p
	} else if casingScore > p.casingScore {
		p.display = display
		p.casingScore = casingScore
	}
	p.count++
	s.scheduleLocked()
	s.mu.Unlock()
}

// scheduleLocked (re)arms the debounce timer; the caller holds mu. When the
// ceiling has elapsed since the first unflushed increment, the flush runs
// now instead of being deferred again.
func (s *FrequencyStore) scheduleLocked() {
	now := time.Now()
	if s.firstPendingAt.IsZero() {
		s.firstPendingAt = now
	}
	if s.cfg.FlushCeiling > 0 && now.Sub(s.firstPendingAt) >= s.cfg.FlushCeiling {
		go s.Flush()
		return
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.cfg.DebounceInterval, s.Flush)
	} else {
		s.timer.Reset(s.cfg.DebounceInterval)
	}
}

// Flush snapshots and clears all pending aggregators, then applies them as
// a single batch with a shared timestamp. Storage errors drop the batch;
// subsequent increments accumulate normally. Every PruneEvery-th flush also
// runs a prune pass.
func (s *FrequencyStore) Flush() {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	pending := s.pending
	s.pending = make(map[wordKey]*pendingWord)
	s.firstPendingAt = time.Time{}
	s.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	nowMs := time.Now().UnixMilli()
	deltas := make([]WordDelta, 0, len(pending))
	for key, p := range pending {
		deltas = append(deltas, WordDelta{
			Lang:        key.lang,
			Word:        key.word,
			Display:     p.display,
			CasingScore: p.casingScore,
			Count:       p.count,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FlushTimeout)
	defer cancel()
	if err := s.backend.ApplyWordDeltas(ctx, deltas, nowMs); err != nil {
		log.Errorf("frequency flush failed, dropping %d updates: %v", len(deltas), err)
		return
	}

	n := s.flushes.Add(1)
	if s.cfg.PruneEvery > 0 && n%s.cfg.PruneEvery == 0 {
		cutoff := nowMs - s.cfg.StaleAfter.Milliseconds()
		removed, err := s.backend.PruneWords(ctx, cutoff, s.cfg.MaxRows)
		if err != nil {
			log.Errorf("frequency prune failed: %v", err)
		} else if removed > 0 {
			log.Debugf("frequency prune removed %d rows", removed)
		}
	}
}

// GetFrequency returns the last flushed count for a word, or 0 on miss or
// storage failure.
func (s *FrequencyStore) GetFrequency(word, lang string) uint32 {
	normalized := textutil.NormalizeWord(word, lang)
	if normalized == "" {
		return 0
	}
	key := wordKey{lang: lang, word: normalized}
	if count, ok := s.cache.Get(key); ok {
		return count
	}
	if count, ok := s.topLookup(lang, normalized); ok {
		s.cache.Add(key, count)
		return count
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FlushTimeout)
	defer cancel()
	count, err := s.backend.WordCount(ctx, lang, normalized)
	if err != nil {
		log.Errorf("frequency read for %q failed: %v", normalized, err)
		return 0
	}
	s.cache.Add(key, count)
	return count
}

// GetFrequencies batch-reads flushed counts for a word list. Words with no
// entry map to 0. Storage failure degrades to cache-only results.
func (s *FrequencyStore) GetFrequencies(words []string, lang string) map[string]uint32 {
	result := make(map[string]uint32, len(words))
	var missing []string
	normalizedFor := make(map[string]string, len(words))
	for _, w := range words {
		normalized := textutil.NormalizeWord(w, lang)
		if normalized == "" {
			continue
		}
		normalizedFor[w] = normalized
		key := wordKey{lang: lang, word: normalized}
		if count, ok := s.cache.Get(key); ok {
			result[w] = count
			continue
		}
		if count, ok := s.topLookup(lang, normalized); ok {
			s.cache.Add(key, count)
			result[w] = count
			continue
		}
		missing = append(missing, normalized)
	}
	if len(missing) == 0 {
		return result
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FlushTimeout)
	defer cancel()
	counts, err := s.backend.WordCounts(ctx, lang, missing)
	if err != nil {
		log.Errorf("frequency batch read failed: %v", err)
		return result
	}
	for _, w := range words {
		normalized, ok := normalizedFor[w]
		if !ok {
			continue
		}
		if _, done := result[w]; done {
			continue
		}
		count := counts[normalized]
		result[w] = count
		s.cache.Add(wordKey{lang: lang, word: normalized}, count)
	}
	return result
}

// DisplayForm returns the stored display casing for a word and its casing
// intent score. Misses and storage failures return the empty form.
func (s *FrequencyStore) DisplayForm(word, lang string) (string, int) {
	normalized := textutil.NormalizeWord(word, lang)
	if normalized == "" {
		return "", 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FlushTimeout)
	defer cancel()
	display, score, err := s.backend.DisplayForm(ctx, lang, normalized)
	if err != nil {
		log.Errorf("display form read for %q failed: %v", normalized, err)
		return "", 0
	}
	return display, score
}

// PreloadTop populates the coarse per-language cache with the most used
// words, so common lookups skip the backend entirely.
func (s *FrequencyStore) PreloadTop(lang string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FlushTimeout)
	defer cancel()
	rows, err := s.backend.TopWords(ctx, lang, s.cfg.PreloadLimit)
	if err != nil {
		log.Errorf("preloading top words for %s failed: %v", lang, err)
		return
	}
	top := make(map[string]uint32, len(rows))
	for _, r := range rows {
		top[r.Word] = r.Count
	}
	s.topMu.Lock()
	s.top[lang] = top
	s.topMu.Unlock()
	log.Debugf("preloaded %d top words for %s", len(rows), lang)
}

func (s *FrequencyStore) topLookup(lang, word string) (uint32, bool) {
	s.topMu.RLock()
	defer s.topMu.RUnlock()
	top, ok := s.top[lang]
	if !ok {
		return 0, false
	}
	count, ok := top[word]
	return count, ok
}

// ClearCache cancels the pending debounce timer, forces a best-effort
// flush of everything pending, then empties all caches. Asynchronous
// best-effort, not transactional.
func (s *FrequencyStore) ClearCache() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.Flush()

	s.cache.Purge()
	s.topMu.Lock()
	s.top = make(map[string]map[string]uint32)
	s.topMu.Unlock()
}

// PendingCount reports the number of unflushed aggregators.
func (s *FrequencyStore) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stats returns store counters.
func (s *FrequencyStore) Stats() map[string]int {
	s.mu.Lock()
	pending := len(s.pending)
	s.mu.Unlock()
	return map[string]int{
		"pendingWords": pending,
		"cachedWords":  s.cache.Len(),
		"flushes":      int(s.flushes.Load()),
	}
}
