package narrative

import (
	"math"
	"strings"

	"github.com/jmhart/storyarc/internal/cluster"
	"github.com/jmhart/storyarc/internal/config"
	"github.com/jmhart/storyarc/internal/framework"
)

// Gate names, reported to the caller on rejection.
const (
	GateRequiredSections = "required_sections"
	GateParticipation    = "evidence_participation"
	GateDistinctSections = "distinct_sections"
)

// evaluate checks a draft against the acceptance gates. All gates must
// pass; failures are collected rather than short-circuited so the caller
// sees everything that went wrong.
func evaluate(d *Draft, hyd *cluster.Hydrated, tier Tier, cfg config.GateConfig) *Outcome {
	var failed []string

	summaries := make(map[string]string, len(d.Sections))
	for _, sec := range d.Sections {
		summaries[sec.Key] = sec.Summary
	}
	for _, key := range framework.Required(d.Framework) {
		if strings.TrimSpace(summaries[key]) == "" {
			failed = append(failed, GateRequiredSections)
			break
		}
	}

	// Distinct evidence participation: enough of the cluster's activities
	// must back the narrative for it to count as evidenced.
	participation := make(map[string]int)
	for _, sec := range d.Sections {
		for _, ev := range sec.Evidence {
			participation[ev.ActivityID]++
		}
	}
	need := participationFloor(hyd.Size(), cfg.ParticipationRatio)
	if len(participation) < need {
		failed = append(failed, GateParticipation)
	}

	// Verbatim-duplicate section summaries signal degenerate output from
	// the pattern tier.
	seen := make(map[string]bool)
	for _, sec := range d.Sections {
		norm := strings.TrimSpace(sec.Summary)
		if norm == "" {
			continue
		}
		if seen[norm] {
			failed = append(failed, GateDistinctSections)
			break
		}
		seen[norm] = true
	}

	if len(failed) > 0 {
		return &Outcome{
			Accepted: false,
			Draft:    d,
			Tier:     tier,
			Rejection: &Rejection{
				FailedGates:   failed,
				Participation: participation,
				EvidenceCount: len(participation),
				EvidenceNeed:  need,
			},
		}
	}

	return &Outcome{Accepted: true, Draft: d, Tier: tier}
}

// participationFloor converts the configured ratio into a minimum number
// of distinct evidence activities for a cluster of the given size, always
// at least 1.
func participationFloor(clusterSize int, ratio float64) int {
	if ratio <= 0 {
		ratio = 0.5
	}
	need := int(math.Ceil(ratio * float64(clusterSize)))
	if need < 1 {
		need = 1
	}
	return need
}
