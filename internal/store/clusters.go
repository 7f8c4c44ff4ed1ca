package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jmhart/storyarc/internal/fault"
)

// CreateClusterWithMembers inserts a cluster row and assigns the given
// unclustered activities to it in one transaction. Activities that are
// already clustered are never reassigned.
func (s *Store) CreateClusterWithMembers(userID, name string, memberIDs []string) (*Cluster, error) {
	if len(memberIDs) == 0 {
		return nil, fmt.Errorf("cluster needs members: %w", fault.ErrInvalidInput)
	}

	c := &Cluster{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO clusters (id, user_id, name, created_at) VALUES (?, ?, ?, ?)",
		c.ID, c.UserID, c.Name, c.CreatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("insert cluster: %w", err)
	}

	for _, actID := range memberIDs {
		res, err := tx.Exec(`
			UPDATE activities SET cluster_id = ?
			WHERE id = ? AND user_id = ? AND cluster_id IS NULL`,
			c.ID, actID, userID)
		if err != nil {
			return nil, fmt.Errorf("assign activity %s: %w", actID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("activity %s not assignable: %w", actID, fault.ErrNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return c, nil
}

// GetCluster fetches one cluster owned by userID.
func (s *Store) GetCluster(userID, id string) (*Cluster, error) {
	var c Cluster
	var createdAt int64
	err := s.db.QueryRow(
		"SELECT id, user_id, name, created_at FROM clusters WHERE user_id = ? AND id = ?",
		userID, id).Scan(&c.ID, &c.UserID, &c.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("cluster %s: %w", id, fault.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get cluster: %w", err)
	}
	c.CreatedAt = time.UnixMilli(createdAt)
	return &c, nil
}

// ListClusters returns the user's clusters ordered by creation time.
func (s *Store) ListClusters(userID string) ([]Cluster, error) {
	rows, err := s.db.Query(
		"SELECT id, user_id, name, created_at FROM clusters WHERE user_id = ? ORDER BY created_at ASC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}
	defer rows.Close()

	var out []Cluster
	for rows.Next() {
		var c Cluster
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// RenameCluster updates a cluster's display name only.
func (s *Store) RenameCluster(userID, id, name string) error {
	res, err := s.db.Exec(
		"UPDATE clusters SET name = ? WHERE user_id = ? AND id = ?",
		name, userID, id)
	if err != nil {
		return fmt.Errorf("rename cluster: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("cluster %s: %w", id, fault.ErrNotFound)
	}
	return nil
}

// AssignActivity moves one activity into a cluster, replacing any prior
// assignment. Both the cluster and the activity must belong to userID.
func (s *Store) AssignActivity(userID, clusterID, activityID string) error {
	if _, err := s.GetCluster(userID, clusterID); err != nil {
		return err
	}
	res, err := s.db.Exec(
		"UPDATE activities SET cluster_id = ? WHERE user_id = ? AND id = ?",
		clusterID, userID, activityID)
	if err != nil {
		return fmt.Errorf("assign activity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("activity %s: %w", activityID, fault.ErrNotFound)
	}
	return nil
}

// UnassignActivity removes one activity from a cluster. Removing the last
// member leaves an empty cluster behind; it is not auto-deleted.
func (s *Store) UnassignActivity(userID, clusterID, activityID string) error {
	res, err := s.db.Exec(`
		UPDATE activities SET cluster_id = NULL
		WHERE user_id = ? AND id = ? AND cluster_id = ?`,
		userID, activityID, clusterID)
	if err != nil {
		return fmt.Errorf("unassign activity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("activity %s in cluster %s: %w", activityID, clusterID, fault.ErrNotFound)
	}
	return nil
}

// MergeClusters reassigns all activities from the source clusters into the
// target and deletes the emptied source rows. The whole operation is one
// transaction: if any id is missing or foreign, nothing changes.
func (s *Store) MergeClusters(userID, targetID string, sourceIDs []string) error {
	if len(sourceIDs) == 0 {
		return fmt.Errorf("no source clusters: %w", fault.ErrInvalidInput)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// Ownership check up front so the merge fails atomically.
	for _, id := range append([]string{targetID}, sourceIDs...) {
		var n int
		if err := tx.QueryRow(
			"SELECT COUNT(*) FROM clusters WHERE user_id = ? AND id = ?",
			userID, id).Scan(&n); err != nil {
			return fmt.Errorf("check cluster %s: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("cluster %s: %w", id, fault.ErrNotFound)
		}
	}

	for _, srcID := range sourceIDs {
		if srcID == targetID {
			return fmt.Errorf("cannot merge cluster into itself: %w", fault.ErrInvalidInput)
		}
		if _, err := tx.Exec(
			"UPDATE activities SET cluster_id = ? WHERE user_id = ? AND cluster_id = ?",
			targetID, userID, srcID); err != nil {
			return fmt.Errorf("move members of %s: %w", srcID, err)
		}
		if _, err := tx.Exec(
			"DELETE FROM clusters WHERE user_id = ? AND id = ?",
			userID, srcID); err != nil {
			return fmt.Errorf("delete source %s: %w", srcID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DeleteCluster unassigns all members (they become unclustered again) and
// removes the cluster row.
func (s *Store) DeleteCluster(userID, id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM clusters WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return fmt.Errorf("delete cluster: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("cluster %s: %w", id, fault.ErrNotFound)
	}

	if _, err := tx.Exec(
		"UPDATE activities SET cluster_id = NULL WHERE user_id = ? AND cluster_id = ?",
		userID, id); err != nil {
		return fmt.Errorf("unassign members: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
