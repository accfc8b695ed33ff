package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver.
)

// SQLiteBackend persists frequency and bigram tables in a local SQLite
// database. The host is expected to place the file on encrypted storage;
// at-rest encryption is outside this engine.
type SQLiteBackend struct {
	db *sql.DB
}

var _ Backend = (*SQLiteBackend)(nil)

// OpenSQLite opens or creates the database and applies migrations.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	b := &SQLiteBackend{db: db}
	if err := b.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return b, nil
}

// Close closes the underlying database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func (b *SQLiteBackend) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS words (
			lang TEXT NOT NULL,
			word TEXT NOT NULL,
			display TEXT NOT NULL,
			casing_score INTEGER NOT NULL,
			count INTEGER NOT NULL,
			last_used INTEGER NOT NULL,
			PRIMARY KEY (lang, word)
		);`,
		`CREATE TABLE IF NOT EXISTS bigrams (
			lang TEXT NOT NULL,
			word_a TEXT NOT NULL,
			word_b TEXT NOT NULL,
			count INTEGER NOT NULL,
			last_used INTEGER NOT NULL,
			PRIMARY KEY (lang, word_a, word_b)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_words_last_used ON words(last_used);`,
		`CREATE INDEX IF NOT EXISTS idx_words_lang_count ON words(lang, count DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_bigrams_last_used ON bigrams(last_used);`,
		`CREATE INDEX IF NOT EXISTS idx_bigrams_source ON bigrams(lang, word_a, count DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := b.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ApplyWordDeltas implements Backend.
func (b *SQLiteBackend) ApplyWordDeltas(ctx context.Context, deltas []WordDelta, nowMs int64) error {
	if len(deltas) == 0 {
		return nil
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO words (lang, word, display, casing_score, count, last_used)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (lang, word) DO UPDATE SET
			count = count + excluded.count,
			last_used = excluded.last_used,
			display = CASE WHEN excluded.casing_score > words.casing_score
				THEN excluded.display ELSE words.display END,
			casing_score = CASE WHEN excluded.casing_score > words.casing_score
				THEN excluded.casing_score ELSE words.casing_score END`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()

	for _, d := range deltas {
		if _, err = stmt.ExecContext(ctx, d.Lang, d.Word, d.Display, d.CasingScore, d.Count, nowMs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// WordCount implements Backend.
func (b *SQLiteBackend) WordCount(ctx context.Context, lang, word string) (uint32, error) {
	var count uint32
	err := b.db.QueryRowContext(ctx,
		`SELECT count FROM words WHERE lang = ? AND word = ?`, lang, word).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// WordCounts implements Backend.
func (b *SQLiteBackend) WordCounts(ctx context.Context, lang string, words []string) (map[string]uint32, error) {
	if len(words) == 0 {
		return map[string]uint32{}, nil
	}
	placeholders := make([]string, len(words))
	args := make([]any, 0, len(words)+1)
	args = append(args, lang)
	for i, w := range words {
		placeholders[i] = "?"
		args = append(args, w)
	}
	query := fmt.Sprintf(`SELECT word, count FROM words WHERE lang = ? AND word IN (%s)`,
		strings.Join(placeholders, ","))
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := make(map[string]uint32, len(words))
	for rows.Next() {
		var word string
		var count uint32
		if err := rows.Scan(&word, &count); err != nil {
			return nil, err
		}
		result[word] = count
	}
	return result, rows.Err()
}

// DisplayForm implements Backend.
func (b *SQLiteBackend) DisplayForm(ctx context.Context, lang, word string) (string, int, error) {
	var display string
	var score int
	err := b.db.QueryRowContext(ctx,
		`SELECT display, casing_score FROM words WHERE lang = ? AND word = ?`, lang, word).
		Scan(&display, &score)
	if err == sql.ErrNoRows {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, err
	}
	return display, score, nil
}

// TopWords implements Backend.
func (b *SQLiteBackend) TopWords(ctx context.Context, lang string, limit int) ([]WordRow, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT lang, word, display, casing_score, count, last_used
		 FROM words WHERE lang = ?
		 ORDER BY count DESC, last_used DESC LIMIT ?`, lang, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []WordRow
	for rows.Next() {
		var r WordRow
		if err := rows.Scan(&r.Lang, &r.Word, &r.Display, &r.CasingScore, &r.Count, &r.LastUsedMs); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// PruneWords implements Backend.
func (b *SQLiteBackend) PruneWords(ctx context.Context, staleBeforeMs int64, maxRows int) (int64, error) {
	return b.prune(ctx, "words", staleBeforeMs, maxRows)
}

// ApplyBigramDeltas implements Backend.
func (b *SQLiteBackend) ApplyBigramDeltas(ctx context.Context, deltas []BigramDelta, nowMs int64) error {
	if len(deltas) == 0 {
		return nil
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO bigrams (lang, word_a, word_b, count, last_used)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (lang, word_a, word_b) DO UPDATE SET
			count = count + excluded.count,
			last_used = excluded.last_used`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()

	for _, d := range deltas {
		if _, err = stmt.ExecContext(ctx, d.Lang, d.WordA, d.WordB, d.Count, nowMs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// BigramPredictions implements Backend.
func (b *SQLiteBackend) BigramPredictions(ctx context.Context, lang, wordA string, limit int) ([]Prediction, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT word_b, count FROM bigrams
		 WHERE lang = ? AND word_a = ?
		 ORDER BY count DESC, last_used DESC LIMIT ?`, lang, wordA, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []Prediction
	for rows.Next() {
		var p Prediction
		if err := rows.Scan(&p.Word, &p.Count); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// TopBigrams implements Backend.
func (b *SQLiteBackend) TopBigrams(ctx context.Context, lang string, limit int) ([]BigramRow, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT lang, word_a, word_b, count, last_used
		 FROM bigrams WHERE lang = ?
		 ORDER BY count DESC, last_used DESC LIMIT ?`, lang, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []BigramRow
	for rows.Next() {
		var r BigramRow
		if err := rows.Scan(&r.Lang, &r.WordA, &r.WordB, &r.Count, &r.LastUsedMs); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// PruneBigrams implements Backend.
func (b *SQLiteBackend) PruneBigrams(ctx context.Context, staleBeforeMs int64, maxRows int) (int64, error) {
	return b.prune(ctx, "bigrams", staleBeforeMs, maxRows)
}

// prune deletes stale rows, then trims the table down to maxRows keeping
// higher-count, more recent rows. Table names are module constants, never
// caller input.
func (b *SQLiteBackend) prune(ctx context.Context, table string, staleBeforeMs int64, maxRows int) (int64, error) {
	res, err := b.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE last_used < ?`, table), staleBeforeMs)
	if err != nil {
		return 0, err
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if maxRows <= 0 {
		return deleted, nil
	}
	var total int
	if err := b.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&total); err != nil {
		return deleted, err
	}
	if total <= maxRows {
		return deleted, nil
	}
	res, err = b.db.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE rowid IN (
			SELECT rowid FROM %s ORDER BY count ASC, last_used ASC LIMIT ?
		)`, table, table), total-maxRows)
	if err != nil {
		return deleted, err
	}
	trimmed, err := res.RowsAffected()
	if err != nil {
		return deleted, err
	}
	return deleted + trimmed, nil
}
