package providers

import (
	"context"
	"testing"

	"github.com/marcohefti/triadctl/internal/schema"
)

type fakeProvider struct{ domain string }

func (f fakeProvider) Domain() string { return f.domain }
func (f fakeProvider) Calculate(ctx context.Context, triadDir string) (schema.MetricsResultV1, error) {
	return schema.MetricsResultV1{Domain: f.domain}, nil
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(fakeProvider{domain: "alpha"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	got, ok := reg.Get("alpha")
	if !ok {
		t.Fatalf("expected provider")
	}
	if got.Domain() != "alpha" {
		t.Fatalf("unexpected domain: %q", got.Domain())
	}
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(fakeProvider{domain: "alpha"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(fakeProvider{domain: "alpha"}); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestRegistryDomainsAreSorted(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(fakeProvider{domain: "zeta"})
	reg.MustRegister(fakeProvider{domain: "alpha"})
	domains := reg.Domains()
	if len(domains) != 2 {
		t.Fatalf("expected two domains, got %d", len(domains))
	}
	if domains[0] != "alpha" || domains[1] != "zeta" {
		t.Fatalf("unexpected domains: %#v", domains)
	}
}
