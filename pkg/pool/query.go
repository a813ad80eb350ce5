package pool

import (
	"slices"

	"github.com/agentstation/metapool/pkg/components"
)

// snapshot returns copies of the components matching keep, sorted by data
// id. Callers hold at least the read lock.
func (p *Pool) snapshot(keep func(*components.Component) bool) []*components.Component {
	keys := make([]string, 0, len(p.cpts))
	for cdid, c := range p.cpts {
		if keep == nil || keep(c) {
			keys = append(keys, cdid)
		}
	}
	slices.Sort(keys)

	out := make([]*components.Component, 0, len(keys))
	for _, cdid := range keys {
		out = append(out, p.cpts[cdid].Clone())
	}
	return out
}

func (p *Pool) query(keep func(*components.Component) bool) []*components.Component {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot(keep)
}

// Components returns all components.
func (p *Pool) Components() []*components.Component {
	return p.query(nil)
}

// Entries returns copies of all components keyed by the data id they are
// stored under. The key can differ from DataID, for example for desktop
// entries matched by their ".desktop" suffix.
func (p *Pool) Entries() map[string]*components.Component {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]*components.Component, len(p.cpts))
	for key, c := range p.cpts {
		out[key] = c.Clone()
	}
	return out
}

// ByDataID returns the component stored under a data id.
func (p *Pool) ByDataID(cdid string) (*components.Component, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.cpts[cdid]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// ByID returns all components with the given id, one per scope and origin.
func (p *Pool) ByID(id string) []*components.Component {
	return p.query(func(c *components.Component) bool {
		return c.ID == id
	})
}

// ByProvidedItem returns the components providing item. The unknown kind
// matches items of any kind.
func (p *Pool) ByProvidedItem(kind components.ProvidedKind, item string) []*components.Component {
	return p.query(func(c *components.Component) bool {
		for _, prov := range c.Provided {
			if kind != components.ProvidedKindUnknown && prov.Kind != kind {
				continue
			}
			if prov.Has(item) {
				return true
			}
		}
		return false
	})
}

// ByKind returns the components of the given type.
func (p *Pool) ByKind(kind components.Kind) []*components.Component {
	return p.query(func(c *components.Component) bool {
		return c.Kind == kind
	})
}

// ByCategories returns the components in any of the given categories.
func (p *Pool) ByCategories(categories ...string) []*components.Component {
	return p.query(func(c *components.Component) bool {
		for _, cat := range categories {
			if c.HasCategory(cat) {
				return true
			}
		}
		return false
	})
}

// ByLaunchable returns the components with a launchable entry. The unknown
// kind matches launchables of any kind.
func (p *Pool) ByLaunchable(kind components.LaunchableKind, entry string) []*components.Component {
	return p.query(func(c *components.Component) bool {
		for _, l := range c.Launchables {
			if kind != components.LaunchableKindUnknown && l.Kind != kind {
				continue
			}
			if slices.Contains(l.Entries, entry) {
				return true
			}
		}
		return false
	})
}

// ByExtends returns the addons and plugins that extend the component id.
func (p *Pool) ByExtends(id string) []*components.Component {
	return p.query(func(c *components.Component) bool {
		return slices.Contains(c.Extends, id)
	})
}

// Addons returns the addons linked to the component stored under cdid.
func (p *Pool) Addons(cdid string) []*components.Component {
	p.mu.RLock()
	defer p.mu.RUnlock()

	parent, ok := p.cpts[cdid]
	if !ok {
		return nil
	}
	out := make([]*components.Component, 0, len(parent.Addons))
	for _, id := range parent.Addons {
		if addon, ok := p.cpts[id]; ok {
			out = append(out, addon.Clone())
		}
	}
	return out
}

// KnownID reports whether a component with the bare id was ever inserted
// since the last clear.
func (p *Pool) KnownID(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.knownIDs[id]
	return ok
}
