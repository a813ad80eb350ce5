package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenValid(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{"foo", true},
		{"fo", false},
		{"", false},
		{"äöü", true},
		{"<b>", false},
		{"foo(", false},
		{"x-plane", true},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenValid(tt.token))
		})
	}
}

func TestConfigTerms(t *testing.T) {
	cfg := NewConfig(WithStemmer(IdentityStemmer{}), WithGreylist("app", "tool"))

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"simple", "Foo", []string{"foo"}},
		{"multiple words", "foo  bar", []string{"foo", "bar"}},
		{"greylist stripped", "foo tool", []string{"foo"}},
		{"greylist restores when empty", "app", []string{"app"}},
		{"short tokens dropped", "ab cd", nil},
		{"trimmed", "  editor ", []string{"editor"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.Terms(tt.query))
		})
	}
}

func TestDefaultGreylist(t *testing.T) {
	cfg := NewConfig()
	assert.Contains(t, cfg.Greylist(), "application")
	assert.Contains(t, cfg.Greylist(), "tool")
}

func TestEnglishStemmer(t *testing.T) {
	s := EnglishStemmer{}
	assert.Equal(t, "edit", s.Stem("editing"))
	assert.Equal(t, s.Stem("editing"), s.Stem("edits"))
}

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"foobar", "studio", "x-plane"}, Words("FooBar Studio, X-Plane!"))
	assert.Empty(t, Words("  ,.  "))
}

func TestStripMarkup(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, "Hello & welcome", cfg.StripMarkup("<p>Hello &amp; <em>welcome</em></p>"))
}

func TestMatchString(t *testing.T) {
	assert.Equal(t, "none", MatchNone.String())
	assert.Equal(t, "name|pkgname", (MatchName | MatchPkgname).String())
	assert.True(t, (MatchName | MatchID).Has(MatchID))
	assert.False(t, MatchName.Has(MatchID))
}
