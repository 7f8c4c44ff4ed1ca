package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jmhart/storyarc/internal/fault"
)

// InsertStory persists a newly accepted narrative.
func (s *Store) InsertStory(st *Story) error {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	now := time.Now()
	st.CreatedAt = now
	st.UpdatedAt = now

	sectionsJSON, err := json.Marshal(st.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}
	verifJSON, err := json.Marshal(nonNil(st.Verifications))
	if err != nil {
		return fmt.Errorf("marshal verifications: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO stories (id, user_id, cluster_id, journal_id, framework,
			title, role, archetype, tier, published, sections, verifications,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.UserID, st.ClusterID, st.JournalID, st.Framework,
		st.Title, st.Role, st.Archetype, st.Tier, boolInt(st.Published),
		string(sectionsJSON), string(verifJSON),
		st.CreatedAt.UnixMilli(), st.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert story: %w", err)
	}
	return nil
}

// ReplaceStoryContent swaps a story's generated content wholesale: title,
// role, archetype, tier, framework, and all sections in one UPDATE.
// Regeneration never patches individual sections.
func (s *Store) ReplaceStoryContent(st *Story) error {
	sectionsJSON, err := json.Marshal(st.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}

	res, err := s.db.Exec(`
		UPDATE stories SET framework = ?, title = ?, role = ?, archetype = ?,
			tier = ?, sections = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		st.Framework, st.Title, st.Role, st.Archetype, st.Tier,
		string(sectionsJSON), time.Now().UnixMilli(),
		st.UserID, st.ID)
	if err != nil {
		return fmt.Errorf("replace story content: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("story %s: %w", st.ID, fault.ErrNotFound)
	}
	return nil
}

// GetStory fetches one story owned by userID.
func (s *Store) GetStory(userID, id string) (*Story, error) {
	row := s.db.QueryRow(storySelect+" WHERE user_id = ? AND id = ?", userID, id)
	st, err := scanStory(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("story %s: %w", id, fault.ErrNotFound)
	}
	return st, err
}

// GetStories fetches several stories, preserving the requested order.
// Any missing or foreign id fails the whole lookup.
func (s *Store) GetStories(userID string, ids []string) ([]Story, error) {
	out := make([]Story, 0, len(ids))
	for _, id := range ids {
		st, err := s.GetStory(userID, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, nil
}

// ListStories returns the user's stories, newest first.
func (s *Store) ListStories(userID string) ([]Story, error) {
	rows, err := s.db.Query(
		storySelect+" WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	var out []Story
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

// DeleteStory removes a story. Derivations keep their snapshots and
// survive.
func (s *Store) DeleteStory(userID, id string) error {
	res, err := s.db.Exec("DELETE FROM stories WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return fmt.Errorf("delete story: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("story %s: %w", id, fault.ErrNotFound)
	}
	return nil
}

// SetStoryPublished flips a story's publish/visibility state.
func (s *Store) SetStoryPublished(userID, id string, published bool) error {
	res, err := s.db.Exec(
		"UPDATE stories SET published = ?, updated_at = ? WHERE user_id = ? AND id = ?",
		boolInt(published), time.Now().UnixMilli(), userID, id)
	if err != nil {
		return fmt.Errorf("set published: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("story %s: %w", id, fault.ErrNotFound)
	}
	return nil
}

const storySelect = `
	SELECT id, user_id, cluster_id, journal_id, framework, title, role,
		archetype, tier, published, sections, verifications, created_at, updated_at
	FROM stories`

func scanStory(r rowScanner) (*Story, error) {
	var st Story
	var published int
	var sectionsJSON, verifJSON string
	var createdAt, updatedAt int64

	err := r.Scan(&st.ID, &st.UserID, &st.ClusterID, &st.JournalID,
		&st.Framework, &st.Title, &st.Role, &st.Archetype, &st.Tier,
		&published, &sectionsJSON, &verifJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	st.Published = published != 0
	st.CreatedAt = time.UnixMilli(createdAt)
	st.UpdatedAt = time.UnixMilli(updatedAt)
	if err := json.Unmarshal([]byte(sectionsJSON), &st.Sections); err != nil {
		return nil, fmt.Errorf("parse sections for %s: %w", st.ID, err)
	}
	if err := json.Unmarshal([]byte(verifJSON), &st.Verifications); err != nil {
		return nil, fmt.Errorf("parse verifications for %s: %w", st.ID, err)
	}
	return &st, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
