// Package textutil holds word normalization shared by the learning engine
// and the adaptive stores. Lookup keys must be produced identically on the
// write and read paths, so the rules live in one place.
package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeWord produces the canonical lookup key for a typed word: NFKC
// compatibility normalization followed by Unicode case folding, with the
// Turkic dotted/dotless i handled per language before folding.
func NormalizeWord(word string, lang string) string {
	word = strings.TrimSpace(word)
	if word == "" {
		return ""
	}
	word = norm.NFKC.String(word)
	if isTurkic(lang) {
		word = strings.Map(turkicDots, word)
	}
	// Casers are stateful, so build one per call.
	return cases.Fold().String(word)
}

// ParseTag parses a BCP 47 language tag, falling back to Und on garbage
// input.
func ParseTag(lang string) language.Tag {
	tag, err := language.Parse(lang)
	if err != nil {
		return language.Und
	}
	return tag
}

func isTurkic(lang string) bool {
	base, _ := ParseTag(lang).Base()
	switch base.String() {
	case "tr", "az":
		return true
	}
	return false
}

// turkicDots maps the Turkic capital pair before folding: capital dotless
// I folds to dotless lowercase, capital dotted İ to plain i.
func turkicDots(r rune) rune {
	switch r {
	case 'I':
		return 'ı'
	case 'İ':
		return 'i'
	}
	return r
}
