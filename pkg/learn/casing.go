// Package learn normalizes and commits accepted words into the adaptive
// stores, with a casing-promotion policy for stored display forms.
package learn

import (
	"unicode"

	"github.com/rivo/uniseg"
)

// shortWordGraphemes is the visible-length cutoff for the all-caps short
// word rule. Length is measured in grapheme clusters, so combining marks
// and emoji count once.
const shortWordGraphemes = 3

// CasingIntentScore ranks how deliberately a word's capitalization was
// chosen. Higher scores replace stored display forms on repeats:
//
//	4  any interior capital ("McDonald"), always deliberate
//	3  all-caps, at most three visible units ("API")
//	2  leading capital only ("Apple")
//	1  all-caps, longer ("HELLO")
//	0  anything else, including all-lowercase
func CasingIntentScore(word string) int {
	var letters, uppers int
	for _, r := range word {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			uppers++
		}
	}
	if letters == 0 || uppers == 0 {
		return 0
	}

	if uppers == letters {
		if uniseg.GraphemeClusterCount(word) <= shortWordGraphemes {
			return 3
		}
		return 1
	}

	if hasInteriorCapital(word) {
		return 4
	}
	if leadingCapitalOnly(word) {
		return 2
	}
	return 0
}

// hasInteriorCapital reports an uppercase letter in any grapheme cluster
// after the first.
func hasInteriorCapital(word string) bool {
	gr := uniseg.NewGraphemes(word)
	first := true
	for gr.Next() {
		if first {
			first = false
			continue
		}
		for _, r := range gr.Runes() {
			if unicode.IsUpper(r) || unicode.IsTitle(r) {
				return true
			}
		}
	}
	return false
}

// leadingCapitalOnly reports that the only uppercase letters sit in the
// first grapheme cluster.
func leadingCapitalOnly(word string) bool {
	gr := uniseg.NewGraphemes(word)
	if !gr.Next() {
		return false
	}
	leadingUpper := false
	for _, r := range gr.Runes() {
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			leadingUpper = true
		}
	}
	return leadingUpper && !hasInteriorCapital(word)
}
