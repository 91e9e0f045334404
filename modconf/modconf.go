// Package modconf is the configuration object handed to a hosted module at
// start-up: an ordered list of pre-run hooks, a set of run dependencies that
// hold start-up back, and the invocation-argument property.
package modconf

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// Hook orders. Hooks run in ascending order; equal orders keep insertion order.
const (
	OrderDefault = 0
	// OrderSearchArgs is used by hooks that derive arguments from a page
	// search string.
	OrderSearchArgs = 50
	// OrderArgsOverride runs after every other hook so the argument override
	// is the last writer in the chain.
	OrderArgsOverride = 100
)

// ErrPropertyOwned is returned when a component other than the one that
// defined the argument property tries to redefine it.
var ErrPropertyOwned = errors.New("property owned by another component")

// Hook is a named start-up step run before the module's own code.
type Hook struct {
	Name  string
	Order int
	Run   func(ctx context.Context) error
}

// Config is the module configuration object.
type Config struct {
	mu     sync.Mutex
	preRun []Hook
	args   ArgsProperty

	deps map[string]struct{}
	idle chan struct{}
}

// New returns a Config whose argument property holds args.
func New(args ...string) *Config {
	idle := make(chan struct{})
	close(idle)
	return &Config{
		args: ArgsProperty{value: slices.Clone(args)},
		deps: make(map[string]struct{}),
		idle: idle,
	}
}

// Args returns the invocation-argument property.
func (c *Config) Args() *ArgsProperty {
	return &c.args
}

// AddPreRun appends a pre-run hook.
func (c *Config) AddPreRun(h Hook) {
	c.mu.Lock()
	c.preRun = append(c.preRun, h)
	c.mu.Unlock()
}

// PreRunHooks returns the registered hooks in execution order.
func (c *Config) PreRunHooks() []Hook {
	c.mu.Lock()
	hooks := slices.Clone(c.preRun)
	c.mu.Unlock()

	sort.SliceStable(hooks, func(i, j int) bool {
		return hooks[i].Order < hooks[j].Order
	})
	return hooks
}

// RunPreRun runs every pre-run hook in order, stopping at the first error.
func (c *Config) RunPreRun(ctx context.Context) error {
	for _, h := range c.PreRunHooks() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if h.Run == nil {
			continue
		}
		if err := h.Run(ctx); err != nil {
			return fmt.Errorf("pre-run hook %q: %w", h.Name, err)
		}
	}
	return nil
}

// AddRunDependency registers a token that holds start-up until removed.
// Adding an already pending id is a no-op.
func (c *Config) AddRunDependency(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.deps[id]; ok {
		return
	}
	if len(c.deps) == 0 {
		c.idle = make(chan struct{})
	}
	c.deps[id] = struct{}{}
}

// RemoveRunDependency releases a token. Unknown ids are ignored.
func (c *Config) RemoveRunDependency(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.deps[id]; !ok {
		return
	}
	delete(c.deps, id)
	if len(c.deps) == 0 {
		close(c.idle)
	}
}

// PendingRunDependencies returns the sorted ids still holding start-up.
func (c *Config) PendingRunDependencies() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.deps))
	for id := range c.deps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// WaitRunDependencies blocks until no run dependency is pending.
func (c *Config) WaitRunDependencies(ctx context.Context) error {
	for {
		c.mu.Lock()
		if len(c.deps) == 0 {
			c.mu.Unlock()
			return nil
		}
		idle := c.idle
		c.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return fmt.Errorf("waiting for run dependencies %v: %w", c.PendingRunDependencies(), ctx.Err())
		}
	}
}

// Accessor replaces the stored value of an [ArgsProperty].
type Accessor struct {
	Get func() []string
	Set func([]string)
}

// ArgsProperty holds the module's invocation arguments. Once an accessor
// is defined, reads and writes go through it, and only the defining owner
// may redefine it.
type ArgsProperty struct {
	mu    sync.RWMutex
	value []string
	owner string
	acc   *Accessor
}

// Get returns the current arguments.
func (p *ArgsProperty) Get() []string {
	p.mu.RLock()
	acc := p.acc
	value := p.value
	p.mu.RUnlock()

	if acc != nil && acc.Get != nil {
		return slices.Clone(acc.Get())
	}
	return slices.Clone(value)
}

// Set writes the arguments, through the accessor if one is defined.
func (p *ArgsProperty) Set(args []string) {
	p.mu.Lock()
	acc := p.acc
	if acc == nil {
		p.value = slices.Clone(args)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	if acc.Set != nil {
		acc.Set(slices.Clone(args))
	}
}

// Define installs acc on behalf of owner.
func (p *ArgsProperty) Define(owner string, acc Accessor) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.owner != "" && p.owner != owner {
		return fmt.Errorf("define args as %q: %w (%q)", owner, ErrPropertyOwned, p.owner)
	}
	p.owner = owner
	p.acc = &acc
	return nil
}

// Owner returns the owner of the current accessor, or "".
func (p *ArgsProperty) Owner() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.owner
}
