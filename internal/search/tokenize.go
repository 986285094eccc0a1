// Package search is the full-text inverted index over catalog entities.
// Documents are derived from the catalog and never written by callers
// directly; the index coordinator keeps them in step with the graph.
package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultMinTokenLen is the shortest token kept by default
const DefaultMinTokenLen = 2

// Tokenizer splits text into index terms
type Tokenizer struct {
	MinLen int
}

// NewTokenizer creates a tokenizer dropping tokens shorter than minLen runes
func NewTokenizer(minLen int) Tokenizer {
	if minLen < 1 {
		minLen = 1
	}
	return Tokenizer{MinLen: minLen}
}

// Tokens lowercases text and splits it on anything that is not a letter or
// digit. Tokens shorter than MinLen runes are dropped.
func (t Tokenizer) Tokens(text string) []string {
	var out []string
	for _, tok := range split(text) {
		if utf8.RuneCountInString(tok) >= t.MinLen {
			out = append(out, tok)
		}
	}
	return out
}

func split(text string) []string {
	text = strings.ToLower(norm.NFC.String(text))
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// term is one parsed query token
type term struct {
	text   string
	prefix bool
}

// parse turns raw query tokens into terms. A trailing '*' makes the last
// piece of a token a prefix wildcard, which is kept at any length; other
// pieces follow the usual length rule.
func (t Tokenizer) parse(raw []string) []term {
	var out []term
	for _, r := range raw {
		wildcard := strings.HasSuffix(r, "*")
		pieces := split(strings.TrimRight(r, "*"))
		for i, p := range pieces {
			if wildcard && i == len(pieces)-1 {
				out = append(out, term{text: p, prefix: true})
				continue
			}
			if utf8.RuneCountInString(p) >= t.MinLen {
				out = append(out, term{text: p})
			}
		}
	}
	return out
}

// ParseQuery splits free text on whitespace into query tokens
func ParseQuery(text string, limit, offset int) Query {
	return Query{Tokens: strings.Fields(text), Limit: limit, Offset: offset}
}
