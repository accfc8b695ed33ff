package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/glidekb/glide/pkg/keyboard"
)

// fileMagic identifies a glide binary dictionary.
const fileMagic = "GLDICT"

// fileVersion is the current binary format version.
const fileVersion = 1

type fileHeader struct {
	Magic   string `msgpack:"m"`
	Version int    `msgpack:"v"`
	Lang    string `msgpack:"l"`
	Count   int    `msgpack:"c"`
}

type fileEntry struct {
	Word      string `msgpack:"w"`
	Frequency uint32 `msgpack:"f"`
}

// LoadBinary reads a msgpack dictionary file and builds the indexed
// dictionary over the given key geometry.
func LoadBinary(path string, keys keyboard.Provider, samplePoints int, neighborRadius float64) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dictionary %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			log.Warnf("closing dictionary %s: %v", path, cerr)
		}
	}()
	return DecodeBinary(bufio.NewReader(f), keys, samplePoints, neighborRadius)
}

// DecodeBinary reads a msgpack dictionary stream.
func DecodeBinary(r io.Reader, keys keyboard.Provider, samplePoints int, neighborRadius float64) (*Dictionary, error) {
	dec := msgpack.NewDecoder(r)

	var hdr fileHeader
	if err := dec.Decode(&hdr); err != nil {
		return nil, fmt.Errorf("decoding dictionary header: %w", err)
	}
	if hdr.Magic != fileMagic {
		return nil, fmt.Errorf("not a glide dictionary (magic %q)", hdr.Magic)
	}
	if hdr.Version != fileVersion {
		return nil, fmt.Errorf("unsupported dictionary version %d", hdr.Version)
	}
	if hdr.Count < 0 {
		return nil, fmt.Errorf("invalid word count %d", hdr.Count)
	}

	b := NewBuilder(hdr.Lang, keys, samplePoints, neighborRadius)
	for i := 0; i < hdr.Count; i++ {
		var e fileEntry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("decoding dictionary entry %d/%d: %w", i, hdr.Count, err)
		}
		b.AddWord(e.Word, e.Frequency)
	}
	d := b.Build()
	log.Debugf("loaded dictionary %s: %d words", hdr.Lang, d.Len())
	return d, nil
}

// SaveBinary writes a dictionary word table as a msgpack stream. Intended
// for tooling; the engine only reads.
func SaveBinary(w io.Writer, lang string, words map[string]uint32) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(fileHeader{
		Magic:   fileMagic,
		Version: fileVersion,
		Lang:    lang,
		Count:   len(words),
	}); err != nil {
		return fmt.Errorf("encoding dictionary header: %w", err)
	}
	for word, freq := range words {
		if err := enc.Encode(fileEntry{Word: word, Frequency: freq}); err != nil {
			return fmt.Errorf("encoding dictionary entry %q: %w", word, err)
		}
	}
	return nil
}

// LoadText reads a plain "word frequency" table, one pair per line, for
// tooling and tests. Lines starting with # are skipped.
func LoadText(path, lang string, keys keyboard.Provider, samplePoints int, neighborRadius float64) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dictionary %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			log.Warnf("closing dictionary %s: %v", path, cerr)
		}
	}()

	b := NewBuilder(lang, keys, samplePoints, neighborRadius)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		freq := uint32(1)
		if len(fields) > 1 {
			n, err := strconv.ParseUint(fields[1], 10, 32)
			if err != nil {
				log.Warnf("dictionary %s line %d: bad frequency %q", path, line, fields[1])
				continue
			}
			freq = uint32(n)
		}
		b.AddWord(fields[0], freq)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dictionary %s: %w", path, err)
	}
	return b.Build(), nil
}
