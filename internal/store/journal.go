package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UpsertJournalEntry creates or replaces the journal entry for a cluster.
func (s *Store) UpsertJournalEntry(j *JournalEntry) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	j.UpdatedAt = time.Now()

	phasesJSON, err := json.Marshal(j.Phases)
	if err != nil {
		return fmt.Errorf("marshal phases: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO journal_entries (id, user_id, cluster_id, notes, phases, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cluster_id) DO UPDATE SET
			notes = excluded.notes,
			phases = excluded.phases,
			updated_at = excluded.updated_at`,
		j.ID, j.UserID, j.ClusterID, j.Notes, string(phasesJSON),
		j.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert journal entry: %w", err)
	}
	return nil
}

// JournalForCluster returns the cluster's journal entry, or nil if the
// user never wrote one. Absence is normal: it just routes generation past
// the model tier.
func (s *Store) JournalForCluster(userID, clusterID string) (*JournalEntry, error) {
	var j JournalEntry
	var phasesJSON string
	var updatedAt int64

	err := s.db.QueryRow(`
		SELECT id, user_id, cluster_id, notes, phases, updated_at
		FROM journal_entries WHERE user_id = ? AND cluster_id = ?`,
		userID, clusterID).Scan(&j.ID, &j.UserID, &j.ClusterID, &j.Notes,
		&phasesJSON, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get journal entry: %w", err)
	}

	j.UpdatedAt = time.UnixMilli(updatedAt)
	if err := json.Unmarshal([]byte(phasesJSON), &j.Phases); err != nil {
		return nil, fmt.Errorf("parse phases: %w", err)
	}
	return &j, nil
}
