package game

import (
	"fmt"
	"sync"
)

// Registry holds all registered rule sets.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rules
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rules)}
}

// Register adds a rule set. Panics on duplicate names.
func (r *Registry) Register(rules Rules) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := rules.Info().Name
	if _, exists := r.rules[name]; exists {
		panic(fmt.Sprintf("rules %q already registered", name))
	}
	r.rules[name] = rules
}

// Get returns a rule set by name.
func (r *Registry) Get(name string) (Rules, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rules, ok := r.rules[name]
	return rules, ok
}

// List returns info for all registered rule sets.
func (r *Registry) List() []RuleInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]RuleInfo, 0, len(r.rules))
	for _, rules := range r.rules {
		infos = append(infos, rules.Info())
	}
	return infos
}
