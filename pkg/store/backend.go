// Package store provides the adaptive frequency and bigram stores: bounded
// in-memory caches in front of a durable backend, with write-coalescing
// debounced persistence and periodic pruning.
//
// Consistency contract: reads observe the last flushed value, never pending
// in-memory deltas. Read-after-write is deliberately not guaranteed; both
// stores are advisory ranking signals, not correctness-critical state.
package store

import "context"

// WordDelta is one coalesced frequency increment applied at flush time.
type WordDelta struct {
	Lang        string
	Word        string // normalized form, the storage key
	Display     string // originally typed casing candidate
	CasingScore int
	Count       uint32
}

// WordRow is one persisted frequency entry.
type WordRow struct {
	Lang        string
	Word        string
	Display     string
	CasingScore int
	Count       uint32
	LastUsedMs  int64
}

// BigramDelta is one coalesced bigram increment applied at flush time.
type BigramDelta struct {
	Lang  string
	WordA string
	WordB string
	Count uint32
}

// BigramRow is one persisted bigram entry.
type BigramRow struct {
	Lang       string
	WordA      string
	WordB      string
	Count      uint32
	LastUsedMs int64
}

// Prediction is one next-word suggestion derived from bigram counts.
type Prediction struct {
	Word  string
	Count uint32
}

// Backend is the durable storage the stores flush to and fall back to on
// cache misses. Implementations must be safe for concurrent use.
type Backend interface {
	// ApplyWordDeltas applies each delta as a single increment-by-N write
	// with the shared timestamp. Display forms replace stored ones only
	// when the delta's casing score strictly exceeds the stored score.
	ApplyWordDeltas(ctx context.Context, deltas []WordDelta, nowMs int64) error
	// WordCount returns the flushed count for a word, 0 if absent.
	WordCount(ctx context.Context, lang, word string) (uint32, error)
	// WordCounts batch-reads flushed counts; absent words are omitted.
	WordCounts(ctx context.Context, lang string, words []string) (map[string]uint32, error)
	// DisplayForm returns the stored display casing and its intent score.
	DisplayForm(ctx context.Context, lang, word string) (string, int, error)
	// TopWords returns the highest-count words for a language.
	TopWords(ctx context.Context, lang string, limit int) ([]WordRow, error)
	// PruneWords deletes rows last used before staleBeforeMs, then trims
	// the table to maxRows keeping higher-count, more recent rows.
	// Returns the number of rows deleted.
	PruneWords(ctx context.Context, staleBeforeMs int64, maxRows int) (int64, error)

	ApplyBigramDeltas(ctx context.Context, deltas []BigramDelta, nowMs int64) error
	// BigramPredictions returns follower words of wordA ordered by count
	// descending, then recency.
	BigramPredictions(ctx context.Context, lang, wordA string, limit int) ([]Prediction, error)
	// TopBigrams returns the highest-count bigrams for a language.
	TopBigrams(ctx context.Context, lang string, limit int) ([]BigramRow, error)
	PruneBigrams(ctx context.Context, staleBeforeMs int64, maxRows int) (int64, error)

	Close() error
}
