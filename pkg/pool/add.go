package pool

import (
	"math"
	"slices"

	"github.com/rs/zerolog"

	"github.com/agentstation/metapool/internal/metrics"
	"github.com/agentstation/metapool/pkg/components"
	"github.com/agentstation/metapool/pkg/errors"
	"github.com/agentstation/metapool/pkg/logging"
)

// Add adds a copy of c to the pool, resolving data id collisions.
//
// A merge fragment is never stored; its data is folded into every component
// with the same id. Add fails with an IgnoredError for ignored components
// and with a CollisionError when the pool already holds a component with
// the same data id that wins.
func (p *Pool) Add(c *components.Component) error {
	if c == nil {
		return errors.NewValidationError("component", nil, "component must not be nil")
	}
	if c.Ignored {
		return errors.NewIgnoredError(c.DataID(), "component is ignored")
	}
	if c.ID == "" {
		return errors.NewValidationError("id", c.ID, "component has no id")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addLocked(c.Clone(), p.logger)
}

// AddComponents adds copies of all components. Collisions and ignored
// components are logged at debug level and skipped; the first other error
// is returned after all components were offered.
func (p *Pool) AddComponents(cpts []*components.Component) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for _, c := range cpts {
		if c == nil {
			continue
		}
		err := p.addLocked(c.Clone(), p.logger)
		if err == nil || errors.IsCollision(err) || errors.IsIgnored(err) {
			continue
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// addLocked adds c, which the pool owns from now on. Callers hold the write
// lock.
func (p *Pool) addLocked(c *components.Component, log *zerolog.Logger) error {
	outcome, err := p.resolve(c, log)
	p.metrics.ObserveAdd(outcome)
	switch outcome {
	case metrics.OutcomeAdded, metrics.OutcomeReplaced, metrics.OutcomeMerged:
		p.changed()
	}
	if err != nil {
		logging.Component(log, c.DataID()).Debug().Err(err).Msg("Component not added")
	}
	return err
}

func (p *Pool) resolve(c *components.Component, log *zerolog.Logger) (string, error) {
	cdid := c.DataID()
	if c.Ignored {
		return metrics.OutcomeIgnored, errors.NewIgnoredError(cdid, "component is ignored")
	}
	if c.ID == "" {
		return metrics.OutcomeInvalid, errors.NewValidationError("id", c.ID, "component has no id")
	}

	existingID := cdid
	existing := p.cpts[cdid]
	if c.OriginKind == components.OriginKindDesktopEntry {
		// desktop files may be referenced with or without their suffix
		if existing == nil {
			existingID = cdid + ".desktop"
			existing = p.cpts[existingID]
		}
		if existing != nil && existing.OriginKind != components.OriginKindDesktopEntry {
			return metrics.OutcomeIgnored, errors.NewIgnoredError(cdid, "better data is already in the pool")
		}
	}

	if c.MergeKind != components.MergeKindNone {
		p.mergeFragment(c, log)
		return metrics.OutcomeMerged, nil
	}

	if existing == nil {
		p.insert(cdid, c)
		p.knownIDs[c.ID] = struct{}{}
		return metrics.OutcomeAdded, nil
	}

	if !existing.IsValid() {
		log.Debug().Str(logging.FieldDataID, cdid).Msg("Replacing invalid component with new one")
		p.replace(existingID, cdid, c)
		return metrics.OutcomeReplaced, nil
	}

	switch {
	case existing.OriginKind == components.OriginKindDesktopEntry && c.OriginKind == components.OriginKindMetainfo:
		// keep the icon and launchable of the desktop entry
		c.MergeWithMode(existing, components.MergeKindAppend)
		p.replace(existingID, cdid, c)
		log.Debug().Str(logging.FieldDataID, cdid).Msg("Replaced component with data from metainfo and desktop-entry file")
		return metrics.OutcomeReplaced, nil
	case existing.OriginKind == components.OriginKindDesktopEntry:
		existing.Priority = math.MinInt
	}

	if p.flags.Has(FlagPreferLocalMetainfo) && c.OriginKind == components.OriginKindMetainfo {
		// metainfo files never carry package names
		c.PackageNames = slices.Clone(existing.PackageNames)
		p.replace(existingID, cdid, c)
		log.Debug().Str(logging.FieldDataID, cdid).Msg("Replaced component with data from metainfo file")
		return metrics.OutcomeReplaced, nil
	}

	if existing.Priority < c.Priority {
		p.replace(existingID, cdid, c)
		log.Debug().Str(logging.FieldDataID, cdid).Msg("Replaced component with data of higher priority")
		return metrics.OutcomeReplaced, nil
	}

	if len(existing.Bundles) == 0 && len(c.Bundles) > 0 {
		existing.Bundles = slices.Clone(c.Bundles)
		log.Debug().Str(logging.FieldDataID, cdid).Msg("Copied bundle information from lower priority data")
		return metrics.OutcomeMerged, nil
	}

	if existing.Priority == c.Priority {
		if p.preferArchitecture(existing, c) {
			p.replace(existingID, cdid, c)
			log.Debug().Str(logging.FieldDataID, cdid).Str("arch", c.Architecture).Msg("Replaced component with native architecture data")
			return metrics.OutcomeReplaced, nil
		}
		return metrics.OutcomeCollided, errors.NewCollisionError(cdid, "was already added with the same priority")
	}
	return metrics.OutcomeCollided, errors.NewCollisionError(cdid, "was already added with a higher priority")
}

// preferArchitecture reports whether c should replace existing. Both must
// declare an architecture the running system can use.
func (p *Pool) preferArchitecture(existing, c *components.Component) bool {
	if c.Architecture == "" || existing.Architecture == "" {
		return false
	}
	return components.ArchCompatible(p.arch, c.Architecture) &&
		components.ArchCompatible(p.arch, existing.Architecture)
}

// mergeFragment folds c into every component sharing its id.
func (p *Pool) mergeFragment(c *components.Component, log *zerolog.Logger) {
	for key, match := range p.byIDLocked(c.ID) {
		if c.MergeKind == components.MergeKindRemoveComponent {
			if match.Priority < c.Priority {
				delete(p.cpts, key)
				log.Debug().Str(logging.FieldDataID, key).Msg("Removed component via merge")
			}
			continue
		}
		match.Merge(c)
		p.rekey(key, match)
	}
}

// rekey moves a component whose data id changed, unless another component
// already owns the new data id.
func (p *Pool) rekey(key string, c *components.Component) {
	cdid := c.DataID()
	if cdid == key {
		return
	}
	if _, taken := p.cpts[cdid]; taken {
		return
	}
	delete(p.cpts, key)
	p.cpts[cdid] = c
}

func (p *Pool) insert(cdid string, c *components.Component) {
	c.SetActiveLocale(p.locale)
	c.Complete(p.fs, p.screenshotService, p.iconDirs)
	p.cpts[cdid] = c
}

// replace drops the component stored under old and stores c under cdid.
func (p *Pool) replace(old, cdid string, c *components.Component) {
	delete(p.cpts, old)
	c.SetActiveLocale(p.locale)
	p.cpts[cdid] = c
}

// byIDLocked returns the stored components with the given id, keyed by
// data id.
func (p *Pool) byIDLocked(id string) map[string]*components.Component {
	out := make(map[string]*components.Component)
	for key, c := range p.cpts {
		if c.ID == id {
			out[key] = c
		}
	}
	return out
}
