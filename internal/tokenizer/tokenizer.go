// Package tokenizer splits free text into lowercase word tokens using Unicode
// word boundaries (UAX #29) and locale-aware case mapping.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tokenizer turns a message into an ordered list of word tokens.
// A Tokenizer is safe for concurrent use.
type Tokenizer struct {
	lang language.Tag
}

// New returns a Tokenizer that lowercases according to the rules of lang.
// language.Und selects the root locale.
func New(lang language.Tag) *Tokenizer {
	return &Tokenizer{lang: lang}
}

// NewFromString parses a BCP 47 tag such as "en" or "tr" and returns a Tokenizer
// for it. An empty string selects the root locale.
func NewFromString(tag string) (*Tokenizer, error) {
	if tag == "" {
		return New(language.Und), nil
	}
	lang, err := language.Parse(tag)
	if err != nil {
		return nil, err
	}
	return New(lang), nil
}

// Language returns the locale used for case mapping.
func (t *Tokenizer) Language() language.Tag {
	return t.lang
}

// Tokenize segments message on word boundaries and returns the lowercased words in
// their original order. Segments with no letters or digits are dropped and
// punctuation inside a word (apostrophes, hyphens) is removed.
func (t *Tokenizer) Tokenize(message string) []string {
	if strings.TrimSpace(message) == "" {
		return nil
	}

	// cases.Caser keeps state between calls and must not be shared across goroutines.
	lower := cases.Lower(t.lang)

	var tokens []string
	state := -1
	rest := message
	var segment string
	for len(rest) > 0 {
		segment, rest, state = uniseg.FirstWordInString(rest, state)
		word := stripPunctuation(segment)
		if word == "" {
			continue
		}
		tokens = append(tokens, lower.String(word))
	}
	return tokens
}

// stripPunctuation drops punctuation, symbols and spaces from segment and returns
// "" when no letter or digit survives.
func stripPunctuation(segment string) string {
	hasWordRune := false
	clean := true
	for _, r := range segment {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			hasWordRune = true
		case unicode.IsMark(r):
		default:
			clean = false
		}
	}
	if !hasWordRune {
		return ""
	}
	if clean {
		return segment
	}

	var sb strings.Builder
	sb.Grow(len(segment))
	for _, r := range segment {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
