package narrative

import (
	"context"
	"testing"
	"time"

	"github.com/jmhart/storyarc/internal/cluster"
	"github.com/jmhart/storyarc/internal/config"
	"github.com/jmhart/storyarc/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	engine := cluster.NewEngine(s, config.ClusteringConfig{
		WindowHours:        48,
		MinClusterSize:     2,
		SharedRefThreshold: 2,
	})
	gen := NewGenerator(nil, config.ModelConfig{}, defaultGate())
	return NewService(s, engine, gen), s
}

func seedCluster(t *testing.T, s *store.Store) string {
	t.Helper()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	var ids []string
	for i, title := range []string{
		"fix: PROJ-42 token refresh",
		"PROJ-42 review notes",
		"Merged PROJ-42: cut login latency 40%",
	} {
		a := &store.Activity{
			UserID:     "u1",
			Source:     "github",
			SourceID:   title,
			Title:      title,
			OccurredAt: base.Add(time.Duration(i) * time.Hour),
			Refs:       []string{"PROJ-42"},
		}
		if err := s.InsertActivity(a); err != nil {
			t.Fatalf("insert activity: %v", err)
		}
		ids = append(ids, a.ID)
	}

	c, err := s.CreateClusterWithMembers("u1", "PROJ-42", ids)
	if err != nil {
		t.Fatalf("create cluster: %v", err)
	}
	return c.ID
}

func TestGenerateForCluster_PersistsAcceptedStory(t *testing.T) {
	svc, s := newTestService(t)
	clusterID := seedCluster(t, s)

	outcome, st, err := svc.GenerateForCluster(context.Background(), "u1", clusterID, Persona{Role: "Engineer"}, Options{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !outcome.Accepted || st == nil {
		t.Fatalf("got outcome %+v, story %v", outcome, st)
	}

	got, err := s.GetStory("u1", st.ID)
	if err != nil {
		t.Fatalf("story not persisted: %v", err)
	}
	if got.ClusterID != clusterID || got.Tier != string(TierPattern) {
		t.Errorf("got %+v", got)
	}
	if len(got.Sections) < 4 {
		t.Errorf("got %d sections", len(got.Sections))
	}
}

func TestRegenerate_PreservesIdentityAndInheritsFramework(t *testing.T) {
	svc, s := newTestService(t)
	clusterID := seedCluster(t, s)

	_, st, err := svc.GenerateForCluster(context.Background(), "u1", clusterID, Persona{}, Options{Framework: "CAR"})
	if err != nil || st == nil {
		t.Fatalf("initial generate: %v, %v", st, err)
	}
	if err := s.SetStoryPublished("u1", st.ID, true); err != nil {
		t.Fatalf("publish: %v", err)
	}

	outcome, updated, err := svc.Regenerate(context.Background(), "u1", st.ID, Persona{}, Options{})
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if !outcome.Accepted {
		t.Fatalf("rejected: %+v", outcome.Rejection)
	}
	if updated.ID != st.ID {
		t.Errorf("id changed: %q -> %q", st.ID, updated.ID)
	}

	got, err := s.GetStory("u1", st.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Framework != "CAR" {
		t.Errorf("framework not inherited: %q", got.Framework)
	}
	if !got.Published {
		t.Error("published flag lost on regeneration")
	}
	if got.CreatedAt.UnixMilli() != st.CreatedAt.UnixMilli() {
		t.Errorf("created-at changed: %v -> %v", st.CreatedAt, got.CreatedAt)
	}
}
