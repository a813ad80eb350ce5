package metapool

import (
	"maps"
	"slices"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/agentstation/metapool/pkg/components"
)

// Compile-time interface check to ensure proper implementation.
var _ Hooks = (*client)(nil)

// Hook function types for component events
type (
	// ComponentAddedHook is called when a component appears in the pool
	ComponentAddedHook func(c *components.Component)

	// ComponentUpdatedHook is called when a component changed during a reload
	ComponentUpdatedHook func(old, new *components.Component)

	// ComponentRemovedHook is called when a component is gone after a reload
	ComponentRemovedHook func(c *components.Component)
)

// Hooks registers callbacks for pool changes. Callbacks run on the
// goroutine that reloaded the pool and receive copies.
type Hooks interface {
	OnComponentAdded(ComponentAddedHook)
	OnComponentUpdated(ComponentUpdatedHook)
	OnComponentRemoved(ComponentRemovedHook)
}

// hooks manages event callbacks for pool changes
type hooks struct {
	mu                 sync.RWMutex
	onComponentAdded   []ComponentAddedHook
	onComponentUpdated []ComponentUpdatedHook
	onComponentRemoved []ComponentRemovedHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnComponentAdded registers a callback for added components.
func (c *client) OnComponentAdded(fn ComponentAddedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onComponentAdded = append(c.hooks.onComponentAdded, fn)
}

// OnComponentUpdated registers a callback for changed components.
func (c *client) OnComponentUpdated(fn ComponentUpdatedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onComponentUpdated = append(c.hooks.onComponentUpdated, fn)
}

// OnComponentRemoved registers a callback for removed components.
func (c *client) OnComponentRemoved(fn ComponentRemovedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onComponentRemoved = append(c.hooks.onComponentRemoved, fn)
}

// componentEqual ignores derived state such as token caches and scores.
var componentEqual = []cmp.Option{
	cmpopts.IgnoreUnexported(components.Component{}),
	cmpopts.EquateEmpty(),
}

// triggerPoolUpdate compares two pool snapshots by storage key and runs
// the matching hooks in key order.
func (h *hooks) triggerPoolUpdate(before, after map[string]*components.Component) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.onComponentAdded)+len(h.onComponentUpdated)+len(h.onComponentRemoved) == 0 {
		return
	}

	for _, key := range slices.Sorted(maps.Keys(after)) {
		c := after[key]
		prev, exists := before[key]
		if !exists {
			for _, hook := range h.onComponentAdded {
				hook(c)
			}
			continue
		}
		if !cmp.Equal(prev, c, componentEqual...) {
			for _, hook := range h.onComponentUpdated {
				hook(prev, c)
			}
		}
	}

	for _, key := range slices.Sorted(maps.Keys(before)) {
		if _, kept := after[key]; kept {
			continue
		}
		for _, hook := range h.onComponentRemoved {
			hook(before[key])
		}
	}
}
