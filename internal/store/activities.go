package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jmhart/storyarc/internal/fault"
)

// InsertActivity stores a new activity. A missing ID is minted; CreatedAt
// is stamped if zero.
func (s *Store) InsertActivity(a *Activity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	refsJSON, err := json.Marshal(nonNil(a.Refs))
	if err != nil {
		return fmt.Errorf("marshal refs: %w", err)
	}

	payloadJSON := ""
	if a.Payload != nil {
		data, err := json.Marshal(a.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		payloadJSON = string(data)
	}

	_, err = s.db.Exec(`
		INSERT INTO activities (id, user_id, source, source_id, url, title,
			description, occurred_at, refs, payload, cluster_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?)`,
		a.ID, a.UserID, a.Source, a.SourceID, a.URL, a.Title,
		a.Description, a.OccurredAt.UnixMilli(), string(refsJSON),
		payloadJSON, a.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// GetActivity fetches one activity owned by userID.
func (s *Store) GetActivity(userID, id string) (*Activity, error) {
	row := s.db.QueryRow(activitySelect+" WHERE user_id = ? AND id = ?", userID, id)
	a, err := scanActivity(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("activity %s: %w", id, fault.ErrNotFound)
	}
	return a, err
}

// HasActivityBySource reports whether an activity with the given source
// identity already exists for the user. Ingestion uses this to stay
// idempotent across re-runs.
func (s *Store) HasActivityBySource(userID, source, sourceID string) (bool, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM activities
		WHERE user_id = ? AND source = ? AND source_id = ?`,
		userID, source, sourceID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check activity source: %w", err)
	}
	return n > 0, nil
}

// UnclusteredActivities returns the user's activities with no cluster
// assignment, optionally bounded to [from, to], ordered by occurrence time.
// Zero times mean unbounded.
func (s *Store) UnclusteredActivities(userID string, from, to time.Time) ([]Activity, error) {
	query := activitySelect + " WHERE user_id = ? AND cluster_id IS NULL"
	args := []any{userID}
	if !from.IsZero() {
		query += " AND occurred_at >= ?"
		args = append(args, from.UnixMilli())
	}
	if !to.IsZero() {
		query += " AND occurred_at <= ?"
		args = append(args, to.UnixMilli())
	}
	query += " ORDER BY occurred_at ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unclustered: %w", err)
	}
	defer rows.Close()
	return scanActivities(rows)
}

// ActivitiesByCluster returns the member activities of a cluster, ordered
// by occurrence time.
func (s *Store) ActivitiesByCluster(userID, clusterID string) ([]Activity, error) {
	rows, err := s.db.Query(
		activitySelect+" WHERE user_id = ? AND cluster_id = ? ORDER BY occurred_at ASC",
		userID, clusterID)
	if err != nil {
		return nil, fmt.Errorf("query cluster members: %w", err)
	}
	defer rows.Close()
	return scanActivities(rows)
}

// ClearActivities removes all of a user's activities. Explicit
// user-initiated bulk clear is the only way activities are destroyed.
func (s *Store) ClearActivities(userID string) (int, error) {
	res, err := s.db.Exec("DELETE FROM activities WHERE user_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("clear activities: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

const activitySelect = `
	SELECT id, user_id, source, source_id, url, title, description,
		occurred_at, refs, payload, cluster_id, created_at
	FROM activities`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(r rowScanner) (*Activity, error) {
	var a Activity
	var occurredAt, createdAt int64
	var refsJSON, payloadJSON string
	var clusterID sql.NullString

	err := r.Scan(&a.ID, &a.UserID, &a.Source, &a.SourceID, &a.URL,
		&a.Title, &a.Description, &occurredAt, &refsJSON, &payloadJSON,
		&clusterID, &createdAt)
	if err != nil {
		return nil, err
	}

	a.OccurredAt = time.UnixMilli(occurredAt)
	a.CreatedAt = time.UnixMilli(createdAt)
	if clusterID.Valid {
		a.ClusterID = &clusterID.String
	}
	if err := json.Unmarshal([]byte(refsJSON), &a.Refs); err != nil {
		return nil, fmt.Errorf("parse refs for %s: %w", a.ID, err)
	}
	if payloadJSON != "" {
		if err := json.Unmarshal([]byte(payloadJSON), &a.Payload); err != nil {
			return nil, fmt.Errorf("parse payload for %s: %w", a.ID, err)
		}
	}
	return &a, nil
}

func scanActivities(rows *sql.Rows) ([]Activity, error) {
	var out []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
