// Package narrative synthesizes structured STAR/CAR/PAR-style stories
// from hydrated clusters. Generation walks three strategy tiers in order,
// model, pattern, template, until one yields a draft that clears the
// acceptance gate or every tier is exhausted.
package narrative

import (
	"context"
	"fmt"
	"time"

	"github.com/jmhart/storyarc/internal/cluster"
	"github.com/jmhart/storyarc/internal/config"
	"github.com/jmhart/storyarc/internal/fault"
	"github.com/jmhart/storyarc/internal/framework"
	"github.com/jmhart/storyarc/internal/llm"
)

// strategy is one generation tier. Attempt returns (nil, nil) when the
// tier cannot run for this cluster (missing journal content, disabled
// model); an error means the tier ran and failed. Both fall through to
// the next tier.
type strategy interface {
	Tier() Tier
	Attempt(ctx context.Context, req *Request) (*Draft, error)
}

// Generator runs the tier chain and gates the output.
type Generator struct {
	tiers []strategy
	gate  config.GateConfig
}

// NewGenerator builds a generator. client may be nil, which disables the
// model tier entirely; the heuristic tiers keep the pipeline from ever
// dead-ending.
func NewGenerator(client llm.Client, modelCfg config.ModelConfig, gateCfg config.GateConfig) *Generator {
	tiers := []strategy{}
	if client != nil {
		tiers = append(tiers, &modelTier{client: client, redact: modelCfg.Redact})
	}
	tiers = append(tiers, &patternTier{}, &templateTier{})

	return &Generator{tiers: tiers, gate: gateCfg}
}

// Generate produces a narrative for the hydrated cluster. The only hard
// failure is an empty cluster; every tier-internal failure is recovered
// by falling through. If no tier clears the gate, the last rejection is
// returned as the outcome.
func (g *Generator) Generate(ctx context.Context, hyd *cluster.Hydrated, persona Persona, opts Options) (*Outcome, error) {
	if hyd.Size() == 0 {
		return nil, fmt.Errorf("cluster %s: %w", hyd.Cluster.ID, fault.ErrNoActivities)
	}

	if opts.Framework == "" {
		opts.Framework = framework.Default
	}
	if _, ok := framework.Parse(string(opts.Framework)); !ok {
		return nil, fmt.Errorf("unknown framework %q: %w", opts.Framework, fault.ErrInvalidInput)
	}

	req := &Request{Hydrated: hyd, Persona: persona, Options: opts}
	start := time.Now()

	var attempts []Attempt
	var last *Outcome

	for _, tier := range g.tiers {
		draft, err := tier.Attempt(ctx, req)
		if err != nil {
			attempts = append(attempts, Attempt{Tier: tier.Tier(), Result: err.Error()})
			continue
		}
		if draft == nil {
			attempts = append(attempts, Attempt{Tier: tier.Tier(), Result: "unavailable"})
			continue
		}

		outcome := evaluate(draft, hyd, tier.Tier(), g.gate)
		if outcome.Accepted {
			attempts = append(attempts, Attempt{Tier: tier.Tier(), Result: "accepted"})
			outcome.Elapsed = time.Since(start)
			if opts.Debug {
				outcome.Attempts = attempts
			}
			return outcome, nil
		}

		attempts = append(attempts, Attempt{Tier: tier.Tier(), Result: "gate_failed"})
		last = outcome
	}

	// The template tier always produces a draft for a non-empty cluster,
	// so last is set: the outcome is a rejection, not an error.
	last.Elapsed = time.Since(start)
	if opts.Debug {
		last.Attempts = attempts
	}
	return last, nil
}
