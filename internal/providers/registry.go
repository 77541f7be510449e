// Package providers implements the pluggable metrics-provider registry used
// by the workflow validator (C7) to turn a domain-specific change (a VCS
// diff, an API surface, a data-pipeline config) into a domain-agnostic
// MetricsResult the validator can threshold against.
package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/marcohefti/triadctl/internal/schema"
)

// Provider computes metrics for one domain. Domain is the registry key
// (e.g. "vcs", "api-surface"); Calculate inspects whatever context it is
// given and returns a MetricsResult or an error.
type Provider interface {
	Domain() string
	Calculate(ctx context.Context, triadDir string) (schema.MetricsResultV1, error)
}

type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: map[string]Provider{}}
}

func (r *Registry) Register(p Provider) error {
	if r == nil {
		return fmt.Errorf("provider registry is nil")
	}
	if p == nil {
		return fmt.Errorf("provider is nil")
	}
	domain := p.Domain()
	if domain == "" {
		return fmt.Errorf("provider domain is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[domain]; exists {
		return fmt.Errorf("provider %q already registered", domain)
	}
	r.providers[domain] = p
	return nil
}

func (r *Registry) MustRegister(p Provider) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

func (r *Registry) Get(domain string) (Provider, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[domain]
	return p, ok
}

func (r *Registry) Domains() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for id := range r.providers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
