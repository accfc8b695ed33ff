package store

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// memBackend is an in-memory Backend for exercising the stores' flush and
// cache protocol without SQLite.
type memBackend struct {
	mu sync.Mutex

	words   map[wordKey]WordRow
	bigrams map[bigramKey]BigramRow

	wordApplies   int
	bigramApplies int
	wordPrunes    int
	bigramPrunes  int

	failWords   bool
	failBigrams bool
	failReads   bool
}

var errInjected = errors.New("injected storage failure")

func newMemBackend() *memBackend {
	return &memBackend{
		words:   make(map[wordKey]WordRow),
		bigrams: make(map[bigramKey]BigramRow),
	}
}

func (m *memBackend) ApplyWordDeltas(_ context.Context, deltas []WordDelta, nowMs int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWords {
		return errInjected
	}
	m.wordApplies++
	for _, d := range deltas {
		key := wordKey{lang: d.Lang, word: d.Word}
		row, ok := m.words[key]
		if !ok {
			row = WordRow{Lang: d.Lang, Word: d.Word, Display: d.Display, CasingScore: d.CasingScore}
		} else if d.CasingScore > row.CasingScore {
			row.Display = d.Display
			row.CasingScore = d.CasingScore
		}
		row.Count += d.Count
		row.LastUsedMs = nowMs
		m.words[key] = row
	}
	return nil
}

func (m *memBackend) WordCount(_ context.Context, lang, word string) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return 0, errInjected
	}
	return m.words[wordKey{lang: lang, word: word}].Count, nil
}

func (m *memBackend) WordCounts(_ context.Context, lang string, words []string) (map[string]uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return nil, errInjected
	}
	out := make(map[string]uint32)
	for _, w := range words {
		if row, ok := m.words[wordKey{lang: lang, word: w}]; ok {
			out[w] = row.Count
		}
	}
	return out, nil
}

func (m *memBackend) DisplayForm(_ context.Context, lang, word string) (string, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return "", 0, errInjected
	}
	row := m.words[wordKey{lang: lang, word: word}]
	return row.Display, row.CasingScore, nil
}

func (m *memBackend) TopWords(_ context.Context, lang string, limit int) ([]WordRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return nil, errInjected
	}
	var rows []WordRow
	for _, row := range m.words {
		if row.Lang == lang {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *memBackend) PruneWords(_ context.Context, staleBeforeMs int64, maxRows int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wordPrunes++
	var removed int64
	for key, row := range m.words {
		if row.LastUsedMs < staleBeforeMs {
			delete(m.words, key)
			removed++
		}
	}
	if maxRows > 0 && len(m.words) > maxRows {
		var rows []WordRow
		for _, row := range m.words {
			rows = append(rows, row)
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].Count != rows[j].Count {
				return rows[i].Count < rows[j].Count
			}
			return rows[i].LastUsedMs < rows[j].LastUsedMs
		})
		for _, row := range rows[:len(rows)-maxRows] {
			delete(m.words, wordKey{lang: row.Lang, word: row.Word})
			removed++
		}
	}
	return removed, nil
}

func (m *memBackend) ApplyBigramDeltas(_ context.Context, deltas []BigramDelta, nowMs int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failBigrams {
		return errInjected
	}
	m.bigramApplies++
	for _, d := range deltas {
		key := bigramKey{lang: d.Lang, wordA: d.WordA, wordB: d.WordB}
		row, ok := m.bigrams[key]
		if !ok {
			row = BigramRow{Lang: d.Lang, WordA: d.WordA, WordB: d.WordB}
		}
		row.Count += d.Count
		row.LastUsedMs = nowMs
		m.bigrams[key] = row
	}
	return nil
}

func (m *memBackend) BigramPredictions(_ context.Context, lang, wordA string, limit int) ([]Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return nil, errInjected
	}
	var preds []Prediction
	for _, row := range m.bigrams {
		if row.Lang == lang && row.WordA == wordA {
			preds = append(preds, Prediction{Word: row.WordB, Count: row.Count})
		}
	}
	sort.Slice(preds, func(i, j int) bool { return preds[i].Count > preds[j].Count })
	if len(preds) > limit {
		preds = preds[:limit]
	}
	return preds, nil
}

func (m *memBackend) TopBigrams(_ context.Context, lang string, limit int) ([]BigramRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return nil, errInjected
	}
	var rows []BigramRow
	for _, row := range m.bigrams {
		if row.Lang == lang {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *memBackend) PruneBigrams(_ context.Context, staleBeforeMs int64, maxRows int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bigramPrunes++
	var removed int64
	for key, row := range m.bigrams {
		if row.LastUsedMs < staleBeforeMs {
			delete(m.bigrams, key)
			removed++
		}
	}
	return removed, nil
}

func (m *memBackend) Close() error { return nil }

func (m *memBackend) wordRow(lang, word string) WordRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.words[wordKey{lang: lang, word: word}]
}

func (m *memBackend) bigramRow(lang, wordA, wordB string) BigramRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bigrams[bigramKey{lang: lang, wordA: wordA, wordB: wordB}]
}

func (m *memBackend) applyCounts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wordApplies, m.bigramApplies
}
