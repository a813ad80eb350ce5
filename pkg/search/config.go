// Package search holds the tokenization and term-building rules used by
// component full-text search.
//
// A Config bundles the query greylist and the stemmer so that callers pass
// search configuration explicitly instead of relying on process-wide state.
package search

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball/english"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"

	"github.com/agentstation/metapool/pkg/constants"
)

// Stemmer reduces a folded word to its stem.
type Stemmer interface {
	Stem(word string) string
}

// EnglishStemmer stems words with the English Snowball algorithm.
type EnglishStemmer struct{}

// Stem implements Stemmer.
func (EnglishStemmer) Stem(word string) string {
	return english.Stem(word, false)
}

// IdentityStemmer returns words unchanged.
type IdentityStemmer struct{}

// Stem implements Stemmer.
func (IdentityStemmer) Stem(word string) string { return word }

// Config is the search configuration shared by a pool and its components.
// It is safe for concurrent use once constructed.
type Config struct {
	greylist []string
	stemmer  Stemmer
	policy   *bluemonday.Policy
}

// Option configures a Config.
type Option func(*Config)

// WithGreylist replaces the default greylist.
func WithGreylist(words ...string) Option {
	return func(c *Config) {
		c.greylist = append([]string(nil), words...)
	}
}

// WithStemmer sets the stemmer. A nil stemmer disables stemming.
func WithStemmer(s Stemmer) Option {
	return func(c *Config) {
		if s == nil {
			s = IdentityStemmer{}
		}
		c.stemmer = s
	}
}

// NewConfig returns a Config with the default greylist and English stemming.
func NewConfig(opts ...Option) *Config {
	c := &Config{
		greylist: strings.Split(constants.SearchGreylist, ";"),
		stemmer:  EnglishStemmer{},
		policy:   bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Greylist returns a copy of the configured greylist.
func (c *Config) Greylist() []string {
	return append([]string(nil), c.greylist...)
}

// Fold case-folds s for caseless matching.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// TokenValid reports whether token may be used for matching: at least
// three characters and none of the markup characters <, >, ( and ).
func TokenValid(token string) bool {
	if utf8.RuneCountInString(token) < constants.MinSearchTokenLength {
		return false
	}
	return !strings.ContainsAny(token, "<>()")
}

// Stem returns the stem of word.
func (c *Config) Stem(word string) string {
	if c.stemmer == nil {
		return word
	}
	return c.stemmer.Stem(word)
}

// Terms turns a user query into stemmed search terms. It returns nil when no
// usable term remains, which callers treat as "match everything".
func (c *Config) Terms(query string) []string {
	folded := Fold(query)
	stripped := folded
	for _, word := range c.greylist {
		stripped = strings.ReplaceAll(stripped, word, "")
	}
	if stripped == "" {
		stripped = folded
	}
	stripped = strings.TrimSpace(stripped)

	var terms []string
	for _, part := range strings.Split(stripped, " ") {
		if !TokenValid(part) {
			continue
		}
		terms = append(terms, c.Stem(part))
	}
	return terms
}

// Words folds text and splits it into words. Hyphens are kept inside words.
func Words(text string) []string {
	return strings.FieldsFunc(Fold(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '+'
	})
}

// StripMarkup removes description markup and returns the plain text.
func (c *Config) StripMarkup(markup string) string {
	return html.UnescapeString(c.policy.Sanitize(markup))
}
