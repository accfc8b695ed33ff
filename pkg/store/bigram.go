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

type bigramKey struct {
	lang  string
	wordA string
	wordB string
}

type sourceKey struct {
	lang  string
	wordA string
}

// BigramStore records word pairs and serves next-word predictions. Same
// write-coalescing protocol as FrequencyStore with its own aggregator and
// lock pair, so the two stores flush independently.
type BigramStore struct {
	backend Backend
	cfg     Config

	mu             sync.Mutex
	pending        map[bigramKey]uint32
	timer          *time.Timer
	firstPendingAt time.Time

	flushMu sync.Mutex
	flushes atomic.Uint64

	// predictions caches follower lists per source word.
	predictions *lru.Cache[sourceKey, []Prediction]

	topMu sync.RWMutex
	top   map[string]map[string][]Prediction // lang -> wordA -> followers
}

// NewBigramStore creates a bigram store over a backend.
func NewBigramStore(backend Backend, cfg Config) (*BigramStore, error) {
	cfg.fill()
	predictions, err := lru.New[sourceKey, []Prediction](cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &BigramStore{
		backend:     backend,
		cfg:         cfg,
		pending:     make(map[bigramKey]uint32),
		predictions: predictions,
		top:         make(map[string]map[string][]Prediction),
	}, nil
}

// RecordBigram records that wordB followed wordA. Fire-and-forget.
func (s *BigramStore) RecordBigram(wordA, wordB, lang string) {
	a := textutil.NormalizeWord(wordA, lang)
	b := textutil.NormalizeWord(wordB, lang)
	if a == "" || b == "" {
		return
	}

	// Any write to a source word invalidates its cached follower list and
	// the coarse per-language cache.
	s.predictions.Remove(sourceKey{lang: lang, wordA: a})
	s.topMu.Lock()
	delete(s.top, lang)
	s.topMu.Unlock()

	s.mu.Lock()
	s.pending[bigramKey{lang: lang, wordA: a, wordB: b}]++
	s.scheduleLocked()
	s.mu.Unlock()
}

func (s *BigramStore) scheduleLocked() {
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

// Flush snapshots and clears the pending aggregator and applies it as one
// batch. Failures drop the batch. Every PruneEvery-th flush prunes.
func (s *BigramStore) Flush() {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	pending := s.pending
	s.pending = make(map[bigramKey]uint32)
	s.firstPendingAt = time.Time{}
	s.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	nowMs := time.Now().UnixMilli()
	deltas := make([]BigramDelta, 0, len(pending))
	for key, count := range pending {
		deltas = append(deltas, BigramDelta{
			Lang:  key.lang,
			WordA: key.wordA,
			WordB: key.wordB,
			Count: count,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FlushTimeout)
	defer cancel()
	if err := s.backend.ApplyBigramDeltas(ctx, deltas, nowMs); err != nil {
		log.Errorf("bigram flush failed, dropping %d updates: %v", len(deltas), err)
		return
	}

	n := s.flushes.Add(1)
	if s.cfg.PruneEvery > 0 && n%s.cfg.PruneEvery == 0 {
		cutoff := nowMs - s.cfg.StaleAfter.Milliseconds()
		removed, err := s.backend.PruneBigrams(ctx, cutoff, s.cfg.MaxRows)
		if err != nil {
			log.Errorf("bigram prune failed: %v", err)
		} else if removed > 0 {
			log.Debugf("bigram prune removed %d rows", removed)
		}
	}
}

// GetBigramPredictions returns the most likely followers of a word,
// ordered best first. Misses and storage failures return an empty list.
func (s *BigramStore) GetBigramPredictions(wordA, lang string, limit int) []Prediction {
	a := textutil.NormalizeWord(wordA, lang)
	if a == "" || limit <= 0 {
		return nil
	}
	key := sourceKey{lang: lang, wordA: a}
	if cached, ok := s.predictions.Get(key); ok {
		return clipPredictions(cached, limit)
	}
	if cached, ok := s.topLookup(lang, a); ok {
		s.predictions.Add(key, cached)
		return clipPredictions(cached, limit)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FlushTimeout)
	defer cancel()
	preds, err := s.backend.BigramPredictions(ctx, lang, a, s.cfg.PreloadLimit)
	if err != nil {
		log.Errorf("bigram read for %q failed: %v", a, err)
		return nil
	}
	s.predictions.Add(key, preds)
	return clipPredictions(preds, limit)
}

// PreloadTopBigrams populates the coarse per-language cache with the most
// frequent bigrams, grouped by source word.
func (s *BigramStore) PreloadTopBigrams(lang string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FlushTimeout)
	defer cancel()
	rows, err := s.backend.TopBigrams(ctx, lang, s.cfg.PreloadLimit)
	if err != nil {
		log.Errorf("preloading top bigrams for %s failed: %v", lang, err)
		return
	}
	top := make(map[string][]Prediction)
	for _, r := range rows {
		top[r.WordA] = append(top[r.WordA], Prediction{Word: r.WordB, Count: r.Count})
	}
	s.topMu.Lock()
	s.top[lang] = top
	s.topMu.Unlock()
	log.Debugf("preloaded %d top bigrams for %s", len(rows), lang)
}

func (s *BigramStore) topLookup(lang, wordA string) ([]Prediction, bool) {
	s.topMu.RLock()
	defer s.topMu.RUnlock()
	top, ok := s.top[lang]
	if !ok {
		return nil, false
	}
	preds, ok := top[wordA]
	return preds, ok
}

// ClearCache cancels the debounce timer, forces a best-effort flush, and
// empties all caches.
func (s *BigramStore) ClearCache() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.Flush()

	s.predictions.Purge()
	s.topMu.Lock()
	s.top = make(map[string]map[string][]Prediction)
	s.topMu.Unlock()
}

// PendingCount reports the number of unflushed aggregators.
func (s *BigramStore) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stats returns store counters.
func (s *BigramStore) Stats() map[string]int {
	s.mu.Lock()
	pending := len(s.pending)
	s.mu.Unlock()
	return map[string]int{
		"pendingBigrams": pending,
		"cachedSources":  s.predictions.Len(),
		"flushes":        int(s.flushes.Load()),
	}
}

func clipPredictions(preds []Prediction, limit int) []Prediction {
	if len(preds) <= limit {
		return preds
	}
	return preds[:limit]
}
