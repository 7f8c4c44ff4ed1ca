// Package ingest pulls activity records into the store from JSON drop
// files written by external tool connectors. Ingestion is idempotent per
// (source, source id): re-processing a file never duplicates activities.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jmhart/storyarc/internal/refs"
	"github.com/jmhart/storyarc/internal/store"
)

// Record is the wire shape of one activity in a drop file.
type Record struct {
	Source      string         `json:"source"`
	SourceID    string         `json:"source_id"`
	URL         string         `json:"url,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Refs        []string       `json:"refs,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// Result summarizes one ingestion run.
type Result struct {
	Ingested int
	Skipped  int // already present or unusable
}

// Ingester writes validated records into the store.
type Ingester struct {
	store  *store.Store
	userID string
}

// New builds an ingester for one user.
func New(s *store.Store, userID string) *Ingester {
	return &Ingester{store: s, userID: userID}
}

// File reads a JSON drop file (an array of records, or one record object)
// and ingests its contents.
func (in *Ingester) File(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read drop file: %w", err)
	}
	return in.Bytes(data)
}

// Bytes ingests raw JSON. Both a top-level array and a single object are
// accepted; connectors differ on which they write.
func (in *Ingester) Bytes(data []byte) (*Result, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		var one Record
		if err2 := json.Unmarshal(data, &one); err2 != nil {
			return nil, fmt.Errorf("parse drop file: %w", err)
		}
		records = []Record{one}
	}

	return in.Records(records)
}

// Records ingests parsed records, skipping duplicates and records missing
// required fields.
func (in *Ingester) Records(records []Record) (*Result, error) {
	res := &Result{}

	for _, r := range records {
		if r.Source == "" || r.Title == "" || r.OccurredAt.IsZero() {
			res.Skipped++
			continue
		}

		if r.SourceID != "" {
			exists, err := in.store.HasActivityBySource(in.userID, r.Source, r.SourceID)
			if err != nil {
				return res, err
			}
			if exists {
				res.Skipped++
				continue
			}
		}

		extracted := refs.Extract(r.Title, r.Description)
		a := store.Activity{
			UserID:      in.userID,
			Source:      r.Source,
			SourceID:    r.SourceID,
			URL:         r.URL,
			Title:       r.Title,
			Description: r.Description,
			OccurredAt:  r.OccurredAt,
			Refs:        refs.Merge(r.Refs, extracted),
			Payload:     r.Payload,
		}
		if err := in.store.InsertActivity(&a); err != nil {
			return res, err
		}
		res.Ingested++
	}

	return res, nil
}
