package narrative

import (
	"time"

	"github.com/jmhart/storyarc/internal/cluster"
	"github.com/jmhart/storyarc/internal/framework"
	"github.com/jmhart/storyarc/internal/store"
)

// Tier names a generation strategy, recorded on the produced story.
type Tier string

const (
	TierModel    Tier = "model"
	TierPattern  Tier = "pattern"
	TierTemplate Tier = "template"
)

// Persona carries user context for prompt personalization.
type Persona struct {
	Name    string
	Role    string
	Company string
}

// Options controls one generation call.
type Options struct {
	Framework    framework.Framework
	Style        string // e.g. "concise", "detailed"
	Archetype    string // e.g. "turnaround", "scaling", "firefight"
	CustomPrompt string
	Debug        bool // record per-tier attempt info on the outcome
}

// Request is the input a tier works from.
type Request struct {
	Hydrated *cluster.Hydrated
	Persona  Persona
	Options  Options
}

// Draft is a tier's proposed narrative, before the acceptance gate.
type Draft struct {
	Title     string
	Role      string
	Framework framework.Framework
	Sections  []store.Section
}

// Rejection explains why a generated narrative did not clear the gates.
// It is data, not an error: the caller uses it to tell the user what to
// fix (usually: add more activities or journal content).
type Rejection struct {
	FailedGates   []string
	Participation map[string]int // activity id -> evidence references
	EvidenceCount int            // distinct activities referenced
	EvidenceNeed  int            // minimum required for this cluster
}

// Attempt records what one tier did, for debug output.
type Attempt struct {
	Tier   Tier
	Result string // "accepted", "gate_failed", "unavailable", or an error
}

// Outcome is the result of a generation call: either an accepted draft or
// a structured rejection. Gate failure is an expected, user-actionable
// outcome, so it is returned as a value rather than an error.
type Outcome struct {
	Accepted  bool
	Draft     *Draft
	Tier      Tier
	Rejection *Rejection
	Elapsed   time.Duration
	Attempts  []Attempt // populated when Options.Debug is set
}
