package pool

import (
	"cmp"
	"slices"
	"strconv"

	gocache "github.com/patrickmn/go-cache"

	"github.com/agentstation/metapool/pkg/components"
)

// Search returns the components matching every term of query, best match
// first. A query without usable terms matches all components.
//
// Results are memoized until the pool changes.
func (p *Pool) Search(query string) []*components.Component {
	// scoring writes the token caches and sort scores of stored components
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics.Searches.Inc()
	key := strconv.FormatUint(p.generation, 10) + "\x00" + query
	if cached, ok := p.searches.Get(key); ok {
		p.metrics.SearchCacheHits.Inc()
		return cloneAll(cached.([]*components.Component))
	}

	terms := p.search.Terms(query)
	keys := make([]string, 0, len(p.cpts))
	for cdid := range p.cpts {
		keys = append(keys, cdid)
	}
	slices.Sort(keys)

	var results []*components.Component
	for _, cdid := range keys {
		c := p.cpts[cdid]
		if c.SearchMatchesAll(terms, p.search) == 0 {
			continue
		}
		results = append(results, c.Clone())
	}
	slices.SortStableFunc(results, func(a, b *components.Component) int {
		return cmp.Compare(b.SortScore(), a.SortScore())
	})

	p.searches.Set(key, results, gocache.DefaultExpiration)
	return cloneAll(results)
}

func cloneAll(cpts []*components.Component) []*components.Component {
	if cpts == nil {
		return nil
	}
	out := make([]*components.Component, len(cpts))
	for i, c := range cpts {
		out[i] = c.Clone()
	}
	return out
}
