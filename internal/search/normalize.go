package search

import (
	"regexp"
	"strings"
)

// wordRun matches a maximal run of Unicode letters and digits. Everything
// between runs (punctuation, symbols, underscores, whitespace) is a
// separator. Treating the underscore as a separator keeps the tokens in
// line with the store's text tokenizer, so Name_Year file names match
// space-separated queries.
var wordRun = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Normalize turns free text into the canonical lowercase token sequence.
// The same scheme is used for building search tags at index time and for
// cleaning incoming queries, so both sides always agree on token shape.
func Normalize(text string) []string {
	if text == "" {
		return nil
	}
	return wordRun.FindAllString(strings.ToLower(text), -1)
}

// Tags builds the stored search_tags value from a record's display name and
// caption: normalized tokens joined by single spaces.
func Tags(parts ...string) string {
	return strings.Join(Normalize(strings.Join(parts, " ")), " ")
}
