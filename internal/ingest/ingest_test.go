package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmhart/storyarc/internal/store"
)

func newTestIngester(t *testing.T) (*Ingester, *store.Store) {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s, "u1"), s
}

func TestRecords_SkipsInvalidAndDuplicates(t *testing.T) {
	in, s := newTestIngester(t)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	records := []Record{
		{Source: "github", SourceID: "abc123", Title: "fix: PROJ-42 token refresh", OccurredAt: now},
		{Source: "github", SourceID: "abc123", Title: "same commit again", OccurredAt: now},
		{Source: "", SourceID: "x", Title: "no source", OccurredAt: now},
		{Source: "jira", SourceID: "PROJ-42", Title: "", OccurredAt: now},
		{Source: "jira", SourceID: "PROJ-43", Title: "no timestamp"},
	}

	res, err := in.Records(records)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Ingested != 1 || res.Skipped != 4 {
		t.Errorf("got %+v", res)
	}

	pool, _ := s.UnclusteredActivities("u1", time.Time{}, time.Time{})
	if len(pool) != 1 {
		t.Fatalf("got %d activities", len(pool))
	}
}

func TestRecords_RerunIsIdempotent(t *testing.T) {
	in, _ := newTestIngester(t)
	now := time.Now().UTC()

	records := []Record{
		{Source: "github", SourceID: "c1", Title: "one", OccurredAt: now},
		{Source: "github", SourceID: "c2", Title: "two", OccurredAt: now},
	}

	if res, err := in.Records(records); err != nil || res.Ingested != 2 {
		t.Fatalf("first run: %+v, %v", res, err)
	}
	res, err := in.Records(records)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Ingested != 0 || res.Skipped != 2 {
		t.Errorf("got %+v", res)
	}
}

func TestRecords_MergesExplicitAndExtractedRefs(t *testing.T) {
	in, s := newTestIngester(t)
	now := time.Now().UTC()

	_, err := in.Records([]Record{{
		Source:      "github",
		SourceID:    "c1",
		Title:       "fix: proj-42 token refresh",
		Description: "closes acme/api#117",
		OccurredAt:  now,
		Refs:        []string{"EPIC-7"},
	}})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	pool, _ := s.UnclusteredActivities("u1", time.Time{}, time.Time{})
	if len(pool) != 1 {
		t.Fatalf("got %d activities", len(pool))
	}

	got := pool[0].Refs
	want := map[string]bool{"EPIC-7": true, "PROJ-42": true, "acme/api#117": true}
	if len(got) != len(want) {
		t.Fatalf("got refs %v", got)
	}
	for _, r := range got {
		if !want[r] {
			t.Errorf("unexpected ref %q in %v", r, got)
		}
	}
}

func TestBytes_ArrayAndSingleObject(t *testing.T) {
	in, _ := newTestIngester(t)

	res, err := in.Bytes([]byte(`[{"source":"github","source_id":"a","title":"one","occurred_at":"2026-03-02T09:00:00Z"}]`))
	if err != nil || res.Ingested != 1 {
		t.Fatalf("array: %+v, %v", res, err)
	}

	res, err = in.Bytes([]byte(`{"source":"github","source_id":"b","title":"two","occurred_at":"2026-03-02T10:00:00Z"}`))
	if err != nil || res.Ingested != 1 {
		t.Fatalf("object: %+v, %v", res, err)
	}

	if _, err := in.Bytes([]byte(`not json`)); err == nil {
		t.Error("garbage should fail")
	}
}

func TestFile(t *testing.T) {
	in, _ := newTestIngester(t)

	path := filepath.Join(t.TempDir(), "drop.json")
	data := `[{"source":"slack","source_id":"m1","title":"thread on PROJ-9 rollout","occurred_at":"2026-03-02T09:00:00Z"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := in.File(path)
	if err != nil || res.Ingested != 1 {
		t.Fatalf("got %+v, %v", res, err)
	}

	if _, err := in.File(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file should fail")
	}
}
