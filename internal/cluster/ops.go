package cluster

import (
	"fmt"

	"github.com/jmhart/storyarc/internal/fault"
)

// Rename updates a cluster's display name only; membership and derived
// metrics are unaffected.
func (e *Engine) Rename(userID, clusterID, name string) error {
	if name == "" {
		return fmt.Errorf("empty cluster name: %w", fault.ErrInvalidInput)
	}
	return e.store.RenameCluster(userID, clusterID, name)
}

// AddActivity assigns one activity to the cluster, replacing any prior
// assignment. An activity belongs to at most one cluster at a time.
func (e *Engine) AddActivity(userID, clusterID, activityID string) error {
	return e.store.AssignActivity(userID, clusterID, activityID)
}

// RemoveActivity unassigns one activity from the cluster. Removing the
// last member leaves an empty cluster.
func (e *Engine) RemoveActivity(userID, clusterID, activityID string) error {
	return e.store.UnassignActivity(userID, clusterID, activityID)
}

// Merge moves all activities from the source clusters into the target and
// deletes the emptied sources. Fails atomically if any id is missing or
// belongs to another user.
func (e *Engine) Merge(userID, targetID string, sourceIDs []string) error {
	return e.store.MergeClusters(userID, targetID, sourceIDs)
}

// Delete unassigns the cluster's members and removes the cluster row.
func (e *Engine) Delete(userID, clusterID string) error {
	return e.store.DeleteCluster(userID, clusterID)
}
