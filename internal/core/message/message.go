// Package message provides pure helpers over a chat message's structured
// content: token detection, mention extraction, and annotation cleanup.
// Cleanup pipeline for stored annotations
// 1 UTF-8 repair drop invalid bytes
// 2 Remove zero-width and format chars
// 3 Strip mention/link markup spans and token markers
// 4 Collapse whitespace to single spaces and trim
package message

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// TokenName is the emoji name that marks a message as a grant attempt
const TokenName = "burrito"

// tokenMarker is the raw-text form of the token emoji
const tokenMarker = ":" + TokenName + ":"

// ElementType tags one structured content element
type ElementType string

const (
	// ElementEmoji is an emoji element carrying a Name
	ElementEmoji ElementType = "emoji"

	// ElementUser is a mention element carrying a UserID
	ElementUser ElementType = "user"

	// ElementText is a plain text element carrying Text
	ElementText ElementType = "text"
)

// Element is one structured content element of a chat message
type Element struct {
	Type   ElementType
	Name   string
	UserID string
	Text   string
}

// HasToken reports whether the elements contain the token emoji
// A message without it is not a grant attempt at all
func HasToken(els []Element) bool {
	for _, el := range els {
		if el.Type == ElementEmoji && el.Name == TokenName {
			return true
		}
	}
	return false
}

// Mentions returns the external user ids of all mention elements in order
func Mentions(els []Element) []string {
	var out []string
	for _, el := range els {
		if el.Type == ElementUser && el.UserID != "" {
			out = append(out, el.UserID)
		}
	}
	return out
}

// pool of fresh transformer chains
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			runes.Remove(runes.In(unicode.Cf)), // strip format chars ZWJ ZWNJ FEFF etc
		)
	},
}

// Annotation returns the free-text annotation to store on a grant:
// raw text with markup refs and token markers stripped, cleaned, and trimmed
func Annotation(raw string) string {
	if raw == "" {
		return ""
	}

	// 1 repair UTF-8 drop invalid bytes
	s := strings.ToValidUTF8(raw, "")

	// 2 strip format chars via pooled chain then reset and return it
	tr := chainPool.Get().(transform.Transformer)
	s, _, _ = transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	// 3 strip <...> markup spans and token markers
	s = stripMarkup(s)
	s = strings.ReplaceAll(s, tokenMarker, "")

	// 4 collapse whitespace and trim
	return collapseSpaces(s)
}

// stripMarkup removes chat markup spans of the form <...>
// an unterminated "<" drops the rest of the string, matching how the
// platform renders broken refs as nothing useful
func stripMarkup(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// collapseSpaces folds runs of whitespace into single spaces and trims
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
