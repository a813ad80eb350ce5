package components

import (
	"maps"
	"slices"
	"strings"

	"github.com/agentstation/metapool/pkg/search"
)

// InvalidateTokenCache drops the search token cache so that it is rebuilt
// on the next search.
func (c *Component) InvalidateTokenCache() {
	c.tokens = nil
	c.tokensValid = false
}

// TokenCache returns a copy of the token cache and whether it is valid.
func (c *Component) TokenCache() (map[string]search.Match, bool) {
	if !c.tokensValid {
		return nil, false
	}
	return maps.Clone(c.tokens), true
}

// SetTokenCache installs a precomputed token cache and marks it valid.
func (c *Component) SetTokenCache(tokens map[string]search.Match) {
	c.tokens = maps.Clone(tokens)
	if c.tokens == nil {
		c.tokens = make(map[string]search.Match)
	}
	c.tokensValid = true
}

// EnsureTokenCache builds the token cache unless it is already valid.
func (c *Component) EnsureTokenCache(cfg *search.Config) {
	if c.tokensValid {
		return
	}
	c.BuildTokenCache(cfg)
}

// BuildTokenCache rebuilds the token cache from the searchable fields.
func (c *Component) BuildTokenCache(cfg *search.Config) {
	c.tokens = make(map[string]search.Match)
	c.tokensValid = true

	if c.ID != "" {
		c.addToken(cfg, search.Fold(c.ID), false, search.MatchID)
	}
	if name := c.Name(); name != "" {
		c.addWords(cfg, name, true, search.MatchName)
	}
	if summary := c.Summary(); summary != "" {
		c.addWords(cfg, summary, true, search.MatchSummary)
	}
	if desc := c.Description(); desc != "" {
		c.addWords(cfg, cfg.StripMarkup(desc), false, search.MatchDescription)
	}
	for _, kw := range c.ActiveKeywords() {
		c.addWords(cfg, kw, false, search.MatchKeyword)
	}
	if p := c.ProvidedFor(ProvidedKindMediatype); p != nil {
		for _, item := range p.Items {
			c.addToken(cfg, search.Fold(item), false, search.MatchMediatype)
		}
	}
	for _, pkg := range c.PackageNames {
		c.addToken(cfg, search.Fold(pkg), false, search.MatchPkgname)
	}
}

func (c *Component) addWords(cfg *search.Config, text string, split bool, flag search.Match) {
	for _, word := range search.Words(text) {
		c.addToken(cfg, word, split, flag)
	}
}

func (c *Component) addToken(cfg *search.Config, token string, split bool, flag search.Match) {
	// names like x-plane also match on their parts
	if split && strings.Contains(token, "-") {
		for _, part := range strings.Split(token, "-") {
			c.addStemmed(cfg, part, flag)
		}
	}
	c.addStemmed(cfg, token, flag)
}

func (c *Component) addStemmed(cfg *search.Config, token string, flag search.Match) {
	if !search.TokenValid(token) {
		return
	}
	c.tokens[cfg.Stem(token)] |= flag
}

// SearchMatches scores a single stemmed term. An exact token hit scores its
// flags shifted left by two, otherwise the flags of all tokens that start
// with term are combined.
func (c *Component) SearchMatches(term string, cfg *search.Config) uint {
	if term == "" {
		return 0
	}
	c.EnsureTokenCache(cfg)

	if m, ok := c.tokens[term]; ok {
		return uint(m) << 2
	}
	var result search.Match
	for token, m := range c.tokens {
		if strings.HasPrefix(token, term) {
			result |= m
		}
	}
	return uint(result)
}

// SearchMatchesAll scores the component against all terms and stores the
// result as its sort score. Every term must match. Nil terms match with a
// score of 1.
func (c *Component) SearchMatchesAll(terms []string, cfg *search.Config) uint {
	c.sortScore = 0
	if terms == nil {
		c.sortScore = 1
		return c.sortScore
	}
	var score uint
	for _, term := range terms {
		m := c.SearchMatches(term, cfg)
		if m == 0 {
			return 0
		}
		score |= m
	}
	c.sortScore = score
	return score
}

// SearchTokens returns the sorted tokens of the (possibly rebuilt) cache.
func (c *Component) SearchTokens(cfg *search.Config) []string {
	c.EnsureTokenCache(cfg)
	out := make([]string, 0, len(c.tokens))
	for t := range c.tokens {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
