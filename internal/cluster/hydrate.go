package cluster

import (
	"sort"
	"time"

	"github.com/jmhart/storyarc/internal/store"
)

// Hydrated is the pipeline-local view of a cluster: the persisted row
// plus its current members and derived metrics. It is recomputed on every
// call because membership may have changed since the cluster was created;
// nothing here is cached.
type Hydrated struct {
	Cluster    store.Cluster
	Activities []store.Activity
	Journal    *store.JournalEntry

	SharedRefs []string // refs appearing in >= threshold members
	Tools      []string // distinct source tags, sorted
	Start      time.Time
	End        time.Time
}

// Hydrate expands a persisted cluster into the in-pipeline representation.
// Purely derived and side-effect-free.
func (e *Engine) Hydrate(userID, clusterID string) (*Hydrated, error) {
	c, err := e.store.GetCluster(userID, clusterID)
	if err != nil {
		return nil, err
	}

	activities, err := e.store.ActivitiesByCluster(userID, clusterID)
	if err != nil {
		return nil, err
	}

	journal, err := e.store.JournalForCluster(userID, clusterID)
	if err != nil {
		return nil, err
	}

	h := &Hydrated{
		Cluster:    *c,
		Activities: activities,
		Journal:    journal,
		SharedRefs: sharedRefs(activities, e.cfg.SharedRefThreshold),
		Tools:      distinctTools(activities),
	}

	for _, a := range activities {
		if h.Start.IsZero() || a.OccurredAt.Before(h.Start) {
			h.Start = a.OccurredAt
		}
		if h.End.IsZero() || a.OccurredAt.After(h.End) {
			h.End = a.OccurredAt
		}
	}

	return h, nil
}

// Size returns the member count.
func (h *Hydrated) Size() int {
	return len(h.Activities)
}

// DaySpan returns the number of calendar days the cluster covers, at
// least 1 for any non-empty cluster.
func (h *Hydrated) DaySpan() int {
	if len(h.Activities) == 0 {
		return 0
	}
	return int(h.End.Sub(h.Start).Hours()/24) + 1
}

// HasJournalContent reports whether the cluster carries rich contextual
// content, which is what qualifies it for model-tier generation.
func (h *Hydrated) HasJournalContent() bool {
	return h.Journal != nil && (h.Journal.Notes != "" || len(h.Journal.Phases) > 0)
}

func distinctTools(activities []store.Activity) []string {
	seen := make(map[string]bool)
	for _, a := range activities {
		seen[a.Source] = true
	}
	tools := make([]string, 0, len(seen))
	for t := range seen {
		tools = append(tools, t)
	}
	sort.Strings(tools)
	return tools
}
