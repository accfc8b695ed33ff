/*
Package main is the glide debugging CLI.

glide decodes swipe-typing gesture paths into ranked word candidates and
adapts its rankings from committed words, entirely on-device. The engine is
a library; this tool exists to exercise it from the command line: compile
text word lists into binary dictionaries, replay recorded touch traces, and
inspect the adaptive store.

Compile a word list:

	glide compile -i en.txt -o en.bin -l en

Replay a trace against a dictionary:

	glide replay -d en.bin -t trace.txt

Synthesize an ideal swipe for a word and decode it back:

	glide replay -d en.bin -w hello

Dump adaptive store counters:

	glide stats -s ~/.local/share/glide/adaptive.db -l en
*/
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/glidekb/glide/internal/logger"
	"github.com/glidekb/glide/pkg/config"
	"github.com/glidekb/glide/pkg/dictionary"
	"github.com/glidekb/glide/pkg/gesture"
	"github.com/glidekb/glide/pkg/keyboard"
	"github.com/glidekb/glide/pkg/scoring"
	"github.com/glidekb/glide/pkg/store"
)

const (
	keyWidth  = 60.0
	keyHeight = 80.0
)

var (
	flagConfig string
	flagDebug  bool
)

func main() {
	root := &cobra.Command{
		Use:   "glide",
		Short: "Swipe gesture decoding and adaptive ranking tools",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if flagDebug {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config.toml")
	root.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "enable debug logging")

	root.AddCommand(compileCmd(), replayCmd(), statsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func compileCmd() *cobra.Command {
	var input, output, lang string
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a text word list into a binary dictionary",
		RunE: func(_ *cobra.Command, _ []string) error {
			clog := logger.New("compile")
			f, err := os.Open(input)
			if err != nil {
				return err
			}
			defer f.Close()

			words := make(map[string]uint32)
			scanner := bufio.NewScanner(f)
			for scanner.Scan() {
				fields := strings.Fields(scanner.Text())
				if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
					continue
				}
				freq := uint64(1)
				if len(fields) > 1 {
					if n, err := strconv.ParseUint(fields[1], 10, 32); err == nil {
						freq = n
					}
				}
				words[strings.ToLower(fields[0])] = uint32(freq)
			}
			if err := scanner.Err(); err != nil {
				return err
			}

			out, err := os.Create(output)
			if err != nil {
				return err
			}
			defer out.Close()
			w := bufio.NewWriter(out)
			if err := dictionary.SaveBinary(w, lang, words); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
			clog.Infof("compiled %d words to %s", len(words), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "text word list (word [frequency] per line)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output binary dictionary")
	cmd.Flags().StringVarP(&lang, "lang", "l", "en", "language tag")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func replayCmd() *cobra.Command {
	var dictPath, tracePath, word, lang string
	var limit int
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Decode a touch trace (or a synthesized word swipe) into candidates",
		RunE: func(_ *cobra.Command, _ []string) error {
			level := log.InfoLevel
			if flagDebug {
				level = log.DebugLevel
			}
			clog := logger.NewWithConfig("replay", level, flagDebug, true, log.TextFormatter)

			cfg, _, err := config.LoadConfigWithPriority(flagConfig)
			if err != nil {
				return err
			}
			keys := keyboard.NewQwerty(keyWidth, keyHeight)
			dict, err := loadDict(dictPath, lang, keys, cfg)
			if err != nil {
				return err
			}

			var samples []gesture.TouchSample
			switch {
			case tracePath != "":
				samples, err = readTrace(tracePath)
				if err != nil {
					return err
				}
			case word != "":
				samples, err = synthesize(word, keys)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("either --trace or --word is required")
			}

			normalized, err := gesture.Normalize(samples, keys, cfg.Dict.SamplePoints)
			if err != nil {
				return err
			}
			clog.Debugf("normalized %d samples to %d points over keys %v",
				len(samples), len(normalized.Points), normalized.Keys)

			opts := cfg.ScoringOptions()
			if limit > 0 {
				opts.TopK = limit
			}
			scorer := scoring.NewScorer(dict, nil, opts)
			candidates := scorer.Rank(normalized)
			clog.Debugf("ranked %d candidates", len(candidates))

			fmt.Printf("keys: %s\n", strings.Join(normalized.Keys, " "))
			if len(candidates) == 0 {
				fmt.Println("no candidates")
				return nil
			}
			for i, c := range candidates {
				fmt.Printf("%2d. %-20s residual=%8.2f freq=%.3f combined=%8.2f\n",
					i+1, c.Word, c.Residual, c.FrequencyScore, c.Combined)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dictPath, "dict", "D", "", "dictionary file (.bin or .txt)")
	cmd.Flags().StringVarP(&tracePath, "trace", "t", "", "trace file: one 'x y timestampMs' per line")
	cmd.Flags().StringVarP(&word, "word", "w", "", "synthesize an ideal swipe for this word")
	cmd.Flags().StringVarP(&lang, "lang", "l", "en", "language tag for text dictionaries")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "max candidates")
	_ = cmd.MarkFlagRequired("dict")
	return cmd
}

func statsCmd() *cobra.Command {
	var dbPath, lang string
	var top int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Inspect the adaptive store",
		RunE: func(c *cobra.Command, _ []string) error {
			backend, err := store.OpenSQLite(dbPath)
			if err != nil {
				return err
			}
			defer backend.Close()

			rows, err := backend.TopWords(c.Context(), lang, top)
			if err != nil {
				return err
			}
			fmt.Printf("top %d words for %s:\n", top, lang)
			for _, r := range rows {
				fmt.Printf("  %-20s count=%-6d display=%q casing=%d\n", r.Word, r.Count, r.Display, r.CasingScore)
			}

			bigrams, err := backend.TopBigrams(c.Context(), lang, top)
			if err != nil {
				return err
			}
			fmt.Printf("top %d bigrams for %s:\n", top, lang)
			for _, b := range bigrams {
				fmt.Printf("  %-20s -> %-20s count=%d\n", b.WordA, b.WordB, b.Count)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dbPath, "store", "s", "", "sqlite store path")
	cmd.Flags().StringVarP(&lang, "lang", "l", "en", "language tag")
	cmd.Flags().IntVarP(&top, "top", "n", 20, "rows to list")
	_ = cmd.MarkFlagRequired("store")
	return cmd
}

func loadDict(path, lang string, keys keyboard.Provider, cfg *config.Config) (*dictionary.Dictionary, error) {
	if strings.HasSuffix(path, ".txt") {
		return dictionary.LoadText(path, lang, keys, cfg.Dict.SamplePoints, cfg.Dict.NeighborRadiusDp)
	}
	return dictionary.LoadBinary(path, keys, cfg.Dict.SamplePoints, cfg.Dict.NeighborRadiusDp)
}

// readTrace parses one "x y timestampMs" triple per line.
func readTrace(path string) ([]gesture.TouchSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var samples []gesture.TouchSample
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("trace %s line %d: want 'x y timestampMs'", path, line)
		}
		x, err1 := strconv.ParseFloat(fields[0], 64)
		y, err2 := strconv.ParseFloat(fields[1], 64)
		t, err3 := strconv.ParseInt(fields[2], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("trace %s line %d: bad number", path, line)
		}
		samples = append(samples, gesture.TouchSample{X: x, Y: y, TimeMs: t})
	}
	return samples, scanner.Err()
}

// synthesize produces the ideal swipe for a word: the resampled polyline
// through its key centers, with 10ms between samples.
func synthesize(word string, keys keyboard.Provider) ([]gesture.TouchSample, error) {
	var ids []string
	for _, r := range strings.ToLower(word) {
		ids = append(ids, string(r))
	}
	points, err := gesture.PathThroughKeys(ids, keys, gesture.DefaultSamplePoints)
	if err != nil {
		return nil, err
	}
	samples := make([]gesture.TouchSample, len(points))
	for i, p := range points {
		samples[i] = gesture.TouchSample{X: p.X, Y: p.Y, TimeMs: int64(i) * 10}
	}
	return samples, nil
}
