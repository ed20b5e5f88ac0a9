// Package token provides the single token encoder used everywhere chunks are
// sized. Ingestion and querying must count tokens with the same encoder;
// mixing counters across the two paths is undefined behavior, so nothing else
// in the codebase may estimate token lengths on its own.
package token

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// runesPerToken approximates BPE-style encoders on English prose, where a
// token averages about four characters.
const runesPerToken = 4

// Count returns the deterministic token length of text.
//
// Each whitespace-separated word contributes ceil(len/4) tokens and each
// punctuation rune counts as its own token, which tracks subword encoders
// closely enough for chunk sizing while staying dependency-free and stable
// across releases.
func Count(text string) int {
	total := 0
	for _, field := range strings.Fields(text) {
		word := 0
		for _, r := range field {
			if unicode.IsPunct(r) || unicode.IsSymbol(r) {
				if word > 0 {
					total += tokensForWordLength(word)
					word = 0
				}
				total++
				continue
			}
			word++
		}
		if word > 0 {
			total += tokensForWordLength(word)
		}
	}
	return total
}

func tokensForWordLength(runes int) int {
	return (runes + runesPerToken - 1) / runesPerToken
}

// Truncate cuts text to at most maxTokens under Count, on a rune boundary.
// Used to bound context blocks before they are sent to the generative model.
func Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 || Count(text) <= maxTokens {
		return text
	}
	// Binary search on the rune prefix length; Count is monotonic in prefix
	// length for any fixed text.
	runes := []rune(text)
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if Count(string(runes[:mid])) <= maxTokens {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return string(runes[:lo])
}

// Valid reports whether text is well-formed UTF-8; extraction rejects sources
// that are not.
func Valid(text string) bool {
	return utf8.ValidString(text)
}
