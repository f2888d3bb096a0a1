package schema

import (
	"regexp"
	"strings"
)

// nonWordRegex matches runs of non-word characters. Letters and digits of
// any script count as word characters so accented terms survive intact.
var nonWordRegex = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// NormalizeQuery strips punctuation from a raw query string and rejoins the
// remaining words with single spaces, so that the storage engine only ever
// sees bare terms.
//
//	"desert, planet!" -> "desert planet"
//
// Case is kept. On the SQLite backend the terms go to an FTS5 MATCH, where
// uppercase AND, OR and NOT are operators, so a query such as "desert OR"
// fails with ERR_403_QUERY_FAILED.
func NormalizeQuery(raw string) string {
	parts := nonWordRegex.Split(raw, -1)
	terms := parts[:0]
	for _, p := range parts {
		if p != "" {
			terms = append(terms, p)
		}
	}
	return strings.Join(terms, " ")
}

// Terms splits a normalized query into its terms.
func Terms(normalized string) []string {
	return strings.Fields(normalized)
}
