// Package rules holds the alert rule implementations and their
// registry. Rules are constructed from merged parameters: rule
// defaults overridden by externally supplied per-rule config.
package rules

import (
	"sort"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/match-tracker/internal/domain/alert"
)

// Factory builds one rule instance from its merged parameters.
type Factory func(params map[string]any) (alert.Rule, error)

// Registry maps rule names to factories. Registration is explicit;
// there is no filesystem discovery.
type Registry struct {
	factories map[string]Factory
	defaults  map[string]map[string]any
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		defaults:  make(map[string]map[string]any),
	}
}

// DefaultRegistry returns a registry with the built-in rules.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(OverUnderRuleName, overUnderDefaults(), NewOverUnderRule)
	return r
}

func (r *Registry) Register(name string, defaults map[string]any, factory Factory) {
	r.factories[name] = factory
	r.defaults[name] = defaults
}

// Names lists registered rule names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build instantiates one rule, overlaying config onto the rule's
// defaults. Config wins on conflicting keys.
func (r *Registry) Build(name string, config map[string]any) (alert.Rule, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, crerr.Newf("unknown alert rule %q", name)
	}

	params := make(map[string]any)
	for k, v := range r.defaults[name] {
		params[k] = v
	}
	for k, v := range config {
		params[k] = v
	}

	rule, err := factory(params)
	if err != nil {
		return nil, crerr.Wrapf(err, "build rule %q", name)
	}
	return rule, nil
}

// BuildAll instantiates every registered rule with its per-rule config
// section (which may be absent).
func (r *Registry) BuildAll(configs map[string]map[string]any) ([]alert.Rule, error) {
	out := make([]alert.Rule, 0, len(r.factories))
	for _, name := range r.Names() {
		rule, err := r.Build(name, configs[name])
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}
