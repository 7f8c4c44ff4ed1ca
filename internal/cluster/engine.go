// Package cluster groups unclustered activities into units of work and
// hydrates persisted clusters into the pipeline's in-memory view.
//
// Two activities are related when they occur within a sliding temporal
// window of each other and share at least one cross-tool reference.
// Transitively related activities merge into one candidate; candidates
// below the minimum size are discarded and their activities stay
// unclustered.
package cluster

import (
	"fmt"
	"sort"
	"time"

	"github.com/jmhart/storyarc/internal/config"
	"github.com/jmhart/storyarc/internal/fault"
	"github.com/jmhart/storyarc/internal/refs"
	"github.com/jmhart/storyarc/internal/store"
)

const (
	minClusterSizeFloor = 2
	minClusterSizeCeil  = 100
)

// Engine runs clustering and cluster mutation against the store.
type Engine struct {
	store *store.Store
	cfg   config.ClusteringConfig
}

// NewEngine builds a clustering engine.
func NewEngine(s *store.Store, cfg config.ClusteringConfig) *Engine {
	return &Engine{store: s, cfg: cfg}
}

// Options controls one clustering run. Zero From/To means no date filter;
// MinSize zero takes the configured default.
type Options struct {
	From    time.Time
	To      time.Time
	MinSize int
}

// Result describes one cluster created by a run.
type Result struct {
	Cluster    store.Cluster
	Members    []store.Activity
	SharedRefs []string
}

// Cluster groups the user's currently-unclustered activities. Activities
// outside the date range are untouched, and re-running without new
// activities produces no new clusters.
func (e *Engine) Cluster(userID string, opts Options) ([]Result, error) {
	minSize := opts.MinSize
	if minSize == 0 {
		minSize = e.cfg.MinClusterSize
	}
	if minSize < minClusterSizeFloor || minSize > minClusterSizeCeil {
		return nil, fmt.Errorf("min cluster size %d out of range [%d, %d]: %w",
			minSize, minClusterSizeFloor, minClusterSizeCeil, fault.ErrInvalidInput)
	}
	if !opts.From.IsZero() && !opts.To.IsZero() && opts.To.Before(opts.From) {
		return nil, fmt.Errorf("date range ends before it starts: %w", fault.ErrInvalidInput)
	}

	pool, err := e.store.UnclusteredActivities(userID, opts.From, opts.To)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, nil
	}

	candidates := relate(pool, time.Duration(e.cfg.WindowHours)*time.Hour)

	byID := make(map[string]store.Activity, len(pool))
	for _, a := range pool {
		byID[a.ID] = a
	}

	var results []Result
	for _, memberIDs := range candidates {
		if len(memberIDs) < minSize {
			continue
		}

		members := make([]store.Activity, 0, len(memberIDs))
		for _, id := range memberIDs {
			members = append(members, byID[id])
		}
		sort.Slice(members, func(i, j int) bool {
			return members[i].OccurredAt.Before(members[j].OccurredAt)
		})

		shared := sharedRefs(members, e.cfg.SharedRefThreshold)
		name := autoName(members, shared)

		ids := make([]string, len(members))
		for i, m := range members {
			ids[i] = m.ID
		}

		c, err := e.store.CreateClusterWithMembers(userID, name, ids)
		if err != nil {
			return nil, fmt.Errorf("persist cluster: %w", err)
		}

		clusterID := c.ID
		for i := range members {
			members[i].ClusterID = &clusterID
		}

		results = append(results, Result{
			Cluster:    *c,
			Members:    members,
			SharedRefs: shared,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Members[0].OccurredAt.Before(results[j].Members[0].OccurredAt)
	})
	return results, nil
}

// relate builds connected components over the pool: a sliding window pass
// over time-sorted activities, unioning pairs inside the window that share
// a reference.
func relate(pool []store.Activity, window time.Duration) [][]string {
	sorted := make([]store.Activity, len(pool))
	copy(sorted, pool)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
	})

	ids := make([]string, len(sorted))
	for i, a := range sorted {
		ids[i] = a.ID
	}
	uf := newUnionFind(ids)

	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].OccurredAt.Sub(sorted[i].OccurredAt) > window {
				break
			}
			if refs.Overlap(sorted[i].Refs, sorted[j].Refs) {
				uf.union(sorted[i].ID, sorted[j].ID)
			}
		}
	}

	return uf.components()
}

// sharedRefs returns references appearing in at least threshold member
// activities, sorted.
func sharedRefs(members []store.Activity, threshold int) []string {
	if threshold < 2 {
		threshold = 2
	}

	counts := make(map[string]int)
	for _, a := range members {
		seen := make(map[string]bool, len(a.Refs))
		for _, r := range a.Refs {
			if !seen[r] {
				counts[r]++
				seen[r] = true
			}
		}
	}

	var shared []string
	for r, n := range counts {
		if n >= threshold {
			shared = append(shared, r)
		}
	}
	sort.Strings(shared)
	return shared
}

// autoName derives a display name from the dominant shared reference, or
// the date span when nothing is shared.
func autoName(members []store.Activity, shared []string) string {
	if len(shared) > 0 {
		return shared[0]
	}
	start := members[0].OccurredAt
	end := members[len(members)-1].OccurredAt
	if start.Format("2006-01-02") == end.Format("2006-01-02") {
		return "Work of " + start.Format("Jan 2, 2006")
	}
	return fmt.Sprintf("Work of %s - %s", start.Format("Jan 2"), end.Format("Jan 2, 2006"))
}
