package dictionary

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glidekb/glide/pkg/gesture"
	"github.com/glidekb/glide/pkg/keyboard"
)

func testKeys() *keyboard.Layout {
	return keyboard.NewQwerty(60, 80)
}

func buildTestDict(t *testing.T, words map[string]uint32) *Dictionary {
	t.Helper()
	b := NewBuilder("en", testKeys(), gesture.DefaultSamplePoints, 70)
	for w, f := range words {
		b.AddWord(w, f)
	}
	return b.Build()
}

func TestBuilderAssignsRanksByFrequency(t *testing.T) {
	d := buildTestDict(t, map[string]uint32{"the": 1000, "quick": 10, "brown": 100})

	the, ok := d.Entry("the")
	require.True(t, ok)
	assert.Equal(t, 1, the.Rank)

	brown, _ := d.Entry("brown")
	assert.Equal(t, 2, brown.Rank)

	quick, _ := d.Entry("quick")
	assert.Equal(t, 3, quick.Rank)
	assert.Equal(t, uint32(1000), d.MaxFrequency())
}

func TestBuilderCollapsesRepeatedLetters(t *testing.T) {
	d := buildTestDict(t, map[string]uint32{"hello": 1, "too": 1})

	hello, ok := d.Entry("hello")
	require.True(t, ok)
	assert.Equal(t, []string{"h", "e", "l", "o"}, hello.KeySeq)

	too, _ := d.Entry("too")
	assert.Equal(t, []string{"t", "o"}, too.KeySeq)
	assert.Len(t, too.Ideal, gesture.DefaultSamplePoints)
}

func TestBuilderSkipsUnmappableWords(t *testing.T) {
	b := NewBuilder("en", testKeys(), gesture.DefaultSamplePoints, 70)
	b.AddWord("word", 10)
	b.AddWord("ñ", 5)
	d := b.Build()

	assert.Equal(t, 1, d.Len())
	_, ok := d.Entry("ñ")
	assert.False(t, ok)
}

func TestBuilderDropsUnmappedLettersInsideWords(t *testing.T) {
	d := buildTestDict(t, map[string]uint32{"don't": 1})

	e, ok := d.Entry("don't")
	require.True(t, ok)
	assert.Equal(t, []string{"d", "o", "n", "t"}, e.KeySeq)
}

func TestBuilderKeepsHighestFrequencyForDuplicates(t *testing.T) {
	b := NewBuilder("en", testKeys(), gesture.DefaultSamplePoints, 70)
	b.AddWord("Word", 10)
	b.AddWord("word", 3)
	d := b.Build()

	e, ok := d.Entry("word")
	require.True(t, ok)
	assert.Equal(t, uint32(10), e.Frequency)
	assert.Equal(t, 1, d.Len())
}

func observedOver(t *testing.T, keyIDs []string) *gesture.NormalizedPath {
	t.Helper()
	keys := testKeys()
	pts, err := gesture.PathThroughKeys(keyIDs, keys, gesture.DefaultSamplePoints)
	require.NoError(t, err)
	samples := make([]gesture.TouchSample, len(pts))
	for i, p := range pts {
		samples[i] = gesture.TouchSample{X: p.X, Y: p.Y, TimeMs: int64(i) * 10}
	}
	np, err := gesture.Normalize(samples, keys, gesture.DefaultSamplePoints)
	require.NoError(t, err)
	return np
}

func TestCandidatesMatchStartAndEndKeys(t *testing.T) {
	d := buildTestDict(t, map[string]uint32{
		"to":   900,
		"top":  500, // ends on p, a neighbor of o
		"lamp": 100, // starts nowhere near t
	})

	words := candidateWords(d, observedOver(t, []string{"t", "o"}))
	assert.Contains(t, words, "to")
	assert.Contains(t, words, "top")
	assert.NotContains(t, words, "lamp")
}

func TestCandidatesRequireInteriorCoverage(t *testing.T) {
	d := buildTestDict(t, map[string]uint32{
		"toon": 50,  // t, o, n: n is far from the t-o line
		"tip":  100, // t, i, p: fully inside the swept corridor
	})

	words := candidateWords(d, observedOver(t, []string{"t", "o"}))
	assert.NotContains(t, words, "toon")
	assert.Contains(t, words, "tip")
}

func candidateWords(d *Dictionary, observed *gesture.NormalizedPath) []string {
	var words []string
	for _, e := range d.Candidates(observed) {
		words = append(words, e.Word)
	}
	return words
}

func TestBinaryRoundtrip(t *testing.T) {
	words := map[string]uint32{"the": 1000, "be": 800, "hello": 50}
	var buf bytes.Buffer
	require.NoError(t, SaveBinary(&buf, "en", words))

	d, err := DecodeBinary(&buf, testKeys(), gesture.DefaultSamplePoints, 70)
	require.NoError(t, err)
	assert.Equal(t, "en", d.Lang())
	assert.Equal(t, 3, d.Len())

	e, ok := d.Entry("the")
	require.True(t, ok)
	assert.Equal(t, uint32(1000), e.Frequency)
}

func TestDecodeBinaryRejectsForeignData(t *testing.T) {
	_, err := DecodeBinary(bytes.NewReader([]byte("not a dictionary")), testKeys(), gesture.DefaultSamplePoints, 70)
	assert.Error(t, err)
}

func TestLoadText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	content := "# comment\nthe 1000\nhello 50\nbare\n\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	d, err := LoadText(path, "en", testKeys(), gesture.DefaultSamplePoints, 70)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())

	e, ok := d.Entry("the")
	require.True(t, ok)
	assert.Equal(t, uint32(1000), e.Frequency)

	_, ok = d.Entry("bare")
	assert.True(t, ok, "frequency column is optional")
}

func TestManagerLoadUnload(t *testing.T) {
	m := NewManager()
	en := buildTestDict(t, map[string]uint32{"the": 1})
	m.Put(en)

	got, ok := m.Get("en")
	require.True(t, ok)
	assert.Same(t, en, got)
	assert.Equal(t, []string{"en"}, m.Langs())

	m.Unload("en")
	_, ok = m.Get("en")
	assert.False(t, ok)
	assert.Empty(t, m.Langs())
}
