package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jmhart/storyarc/internal/fault"
)

// InsertDerivation persists a derivation artifact. Derivations are
// immutable after this point.
func (s *Store) InsertDerivation(d *Derivation) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	idsJSON, err := json.Marshal(nonNil(d.StoryIDs))
	if err != nil {
		return fmt.Errorf("marshal story ids: %w", err)
	}
	snapsJSON, err := json.Marshal(d.Snapshots)
	if err != nil {
		return fmt.Errorf("marshal snapshots: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO derivations (id, user_id, kind, type, story_ids,
			snapshots, content, tone, custom_prompt, char_count, word_count,
			speak_seconds, credit_cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.Kind, d.Type, string(idsJSON), string(snapsJSON),
		d.Content, d.Tone, d.CustomPrompt, d.CharCount, d.WordCount,
		d.SpeakSeconds, d.CreditCost, d.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert derivation: %w", err)
	}
	return nil
}

// GetDerivation fetches one derivation owned by userID.
func (s *Store) GetDerivation(userID, id string) (*Derivation, error) {
	row := s.db.QueryRow(derivationSelect+" WHERE user_id = ? AND id = ?", userID, id)
	d, err := scanDerivation(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("derivation %s: %w", id, fault.ErrNotFound)
	}
	return d, err
}

// ListDerivations returns the user's derivations, newest first.
func (s *Store) ListDerivations(userID string) ([]Derivation, error) {
	rows, err := s.db.Query(
		derivationSelect+" WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("list derivations: %w", err)
	}
	defer rows.Close()

	var out []Derivation
	for rows.Next() {
		d, err := scanDerivation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// DeleteDerivation removes a derivation.
func (s *Store) DeleteDerivation(userID, id string) error {
	res, err := s.db.Exec("DELETE FROM derivations WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return fmt.Errorf("delete derivation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("derivation %s: %w", id, fault.ErrNotFound)
	}
	return nil
}

const derivationSelect = `
	SELECT id, user_id, kind, type, story_ids, snapshots, content, tone,
		custom_prompt, char_count, word_count, speak_seconds, credit_cost, created_at
	FROM derivations`

func scanDerivation(r rowScanner) (*Derivation, error) {
	var d Derivation
	var idsJSON, snapsJSON string
	var createdAt int64

	err := r.Scan(&d.ID, &d.UserID, &d.Kind, &d.Type, &idsJSON, &snapsJSON,
		&d.Content, &d.Tone, &d.CustomPrompt, &d.CharCount, &d.WordCount,
		&d.SpeakSeconds, &d.CreditCost, &createdAt)
	if err != nil {
		return nil, err
	}

	d.CreatedAt = time.UnixMilli(createdAt)
	if err := json.Unmarshal([]byte(idsJSON), &d.StoryIDs); err != nil {
		return nil, fmt.Errorf("parse story ids for %s: %w", d.ID, err)
	}
	if err := json.Unmarshal([]byte(snapsJSON), &d.Snapshots); err != nil {
		return nil, fmt.Errorf("parse snapshots for %s: %w", d.ID, err)
	}
	return &d, nil
}
