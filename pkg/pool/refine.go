package pool

import (
	"slices"

	"github.com/rs/zerolog"

	"github.com/agentstation/metapool/pkg/components"
	"github.com/agentstation/metapool/pkg/logging"
)

// RefineAll validates every component, completes its data and links addons
// to the components they extend. Invalid components are dropped. It returns
// the number of dropped components, not counting desktop-entry data.
func (p *Pool) RefineAll() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refineLocked(p.logger)
}

func (p *Pool) refineLocked(log *zerolog.Logger) int {
	refined := make(map[string]*components.Component, len(p.cpts))
	invalid := 0

	for cdid, c := range p.cpts {
		if !c.IsValid() {
			if c.OriginKind == components.OriginKindDesktopEntry {
				log.Debug().Str(logging.FieldDataID, cdid).Msg("Ignored invalid component from desktop-entry file")
			} else {
				log.Debug().Str(logging.FieldDataID, cdid).Msg("Ignored invalid component")
				invalid++
			}
			continue
		}
		c.Complete(p.fs, p.screenshotService, p.iconDirs)
		c.Addons = nil
		refined[cdid] = c
	}

	for cdid, c := range refined {
		p.linkAddon(refined, cdid, c, log)
	}
	for _, c := range refined {
		slices.Sort(c.Addons)
	}

	p.cpts = refined
	p.metrics.InvalidComponents.Add(float64(invalid))
	p.changed()
	return invalid
}

// linkAddon attaches c to the addon list of every component it extends.
func (p *Pool) linkAddon(cpts map[string]*components.Component, cdid string, c *components.Component, log *zerolog.Logger) {
	for _, id := range c.Extends {
		parentID := components.BuildDataID(components.ScopeSystem, c.BundleKind(), "os", id)
		parent, ok := cpts[parentID]
		if !ok {
			log.Debug().Str(logging.FieldDataID, cdid).Str("extends", parentID).Msg("Extended component not found")
			continue
		}
		parent.AddAddon(cdid)
	}
}
