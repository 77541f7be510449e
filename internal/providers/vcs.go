package providers

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/marcohefti/triadctl/internal/schema"
)

// VCSProvider computes metrics from the working tree's pending git diff:
// quantity is total changed lines (additions+deletions), components is the
// number of distinct files touched. Shelling out to git is wrapped in a
// circuit breaker so a broken or missing git binary degrades to a single
// fast error per cooldown window instead of hanging every workflow check.
type VCSProvider struct {
	dir string
	cb  *gobreaker.CircuitBreaker[schema.MetricsResultV1]
}

func NewVCSProvider(repoDir string) *VCSProvider {
	settings := gobreaker.Settings{
		Name:        "vcs-metrics",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &VCSProvider{
		dir: repoDir,
		cb:  gobreaker.NewCircuitBreaker[schema.MetricsResultV1](settings),
	}
}

func (p *VCSProvider) Domain() string { return "vcs" }

func (p *VCSProvider) Calculate(ctx context.Context, _ string) (schema.MetricsResultV1, error) {
	return p.cb.Execute(func() (schema.MetricsResultV1, error) {
		return p.calculate(ctx)
	})
}

func (p *VCSProvider) calculate(ctx context.Context) (schema.MetricsResultV1, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--numstat", "HEAD")
	cmd.Dir = p.dir
	out, err := cmd.Output()
	if err != nil {
		return schema.MetricsResultV1{}, err
	}

	quantity := 0
	components := 0
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		components++
		for _, f := range fields[:2] {
			if f == "-" { // binary file, numstat reports "-"
				continue
			}
			if n, err := strconv.Atoi(f); err == nil {
				quantity += n
			}
		}
	}

	return schema.MetricsResultV1{
		Domain:     p.Domain(),
		Quantity:   quantity,
		Components: components,
		Band:       bandFor(quantity, components),
		ComputedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}

// bandFor applies the domain-agnostic size thresholds: substantial if
// quantity>100 or components>5; moderate if quantity>30 or components>2;
// otherwise trivial.
func bandFor(quantity, components int) string {
	switch {
	case quantity > 100 || components > 5:
		return "substantial"
	case quantity > 30 || components > 2:
		return "moderate"
	default:
		return "trivial"
	}
}
