// Package match computes multi-factor relevance scores between resumes and
// job descriptions: semantic similarity, skill overlap, experience-level fit,
// and location fit.
package match

import (
	"regexp"
	"strings"
)

var nonWordPattern = regexp.MustCompile(`[^a-z0-9_\s]`)

// Normalize lowercases text, strips punctuation, and collapses whitespace.
// All scoring operates on normalized text so the engine is deterministic for
// case and formatting variants.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = nonWordPattern.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// Tokenize returns the whitespace-separated tokens of normalized text.
func Tokenize(text string) []string {
	return strings.Fields(Normalize(text))
}

// stopwords is a compact English stopword list; these carry no signal for
// similarity and would otherwise dominate term-frequency vectors.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "been": true, "but": true, "by": true, "for": true,
	"from": true, "has": true, "have": true, "if": true, "in": true,
	"is": true, "it": true, "its": true, "of": true, "on": true, "or": true,
	"our": true, "that": true, "the": true, "their": true, "this": true,
	"to": true, "was": true, "we": true, "were": true, "will": true,
	"with": true, "you": true, "your": true,
}

// contentTokens returns the tokens of normalized text with stopwords removed.
func contentTokens(normalized string) []string {
	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if !stopwords[f] {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
