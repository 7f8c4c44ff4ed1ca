package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jmhart/storyarc/internal/cluster"
	"github.com/jmhart/storyarc/internal/config"
	"github.com/jmhart/storyarc/internal/fault"
	"github.com/jmhart/storyarc/internal/framework"
	"github.com/jmhart/storyarc/internal/llm"
	"github.com/jmhart/storyarc/internal/store"
)

// fakeClient scripts the model tier without a network.
type fakeClient struct {
	response json.RawMessage
	err      error
	calls    int
}

func (c *fakeClient) Generate(_ context.Context, _ llm.Request) (json.RawMessage, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.response, nil
}

func testHydrated(n int) *cluster.Hydrated {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	h := &cluster.Hydrated{
		Cluster:    store.Cluster{ID: "c1", UserID: "u1", Name: "PROJ-42"},
		SharedRefs: []string{"PROJ-42"},
		Tools:      []string{"github", "jira"},
	}
	for i := 0; i < n; i++ {
		h.Activities = append(h.Activities, store.Activity{
			ID:         fmt.Sprintf("a%d", i+1),
			Source:     "github",
			Title:      fmt.Sprintf("Commit %d for PROJ-42", i+1),
			OccurredAt: base.Add(time.Duration(i) * time.Hour),
			Refs:       []string{"PROJ-42"},
		})
	}
	if n > 0 {
		h.Start = h.Activities[0].OccurredAt
		h.End = h.Activities[n-1].OccurredAt
		h.Activities[n-1].Title = "Merged PROJ-42: cut login latency 40%"
	}
	return h
}

func defaultGate() config.GateConfig {
	return config.GateConfig{ParticipationRatio: 0.5}
}

func TestGenerate_EmptyCluster(t *testing.T) {
	g := NewGenerator(nil, config.ModelConfig{}, defaultGate())
	_, err := g.Generate(context.Background(), testHydrated(0), Persona{}, Options{})
	if !errors.Is(err, fault.ErrNoActivities) {
		t.Errorf("got %v, want ErrNoActivities", err)
	}
}

func TestGenerate_UnknownFramework(t *testing.T) {
	g := NewGenerator(nil, config.ModelConfig{}, defaultGate())
	_, err := g.Generate(context.Background(), testHydrated(3), Persona{}, Options{Framework: "BOGUS"})
	if !errors.Is(err, fault.ErrInvalidInput) {
		t.Errorf("got %v, want ErrInvalidInput", err)
	}
}

func TestGenerate_PatternTierWithoutClient(t *testing.T) {
	g := NewGenerator(nil, config.ModelConfig{}, defaultGate())

	out, err := g.Generate(context.Background(), testHydrated(3), Persona{Role: "Backend engineer"}, Options{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !out.Accepted {
		t.Fatalf("rejected: %+v", out.Rejection)
	}
	if out.Tier != TierPattern {
		t.Errorf("got tier %q", out.Tier)
	}
	if out.Draft.Framework != framework.STAR {
		t.Errorf("got framework %q", out.Draft.Framework)
	}
	for _, key := range framework.Required(framework.STAR) {
		found := false
		for _, sec := range out.Draft.Sections {
			if sec.Key == key && sec.Summary != "" {
				found = true
			}
		}
		if !found {
			t.Errorf("required section %q missing or empty", key)
		}
	}
	if out.Draft.Role != "Backend engineer" {
		t.Errorf("got role %q", out.Draft.Role)
	}
}

func TestGenerate_ModelFailureFallsThrough(t *testing.T) {
	client := &fakeClient{err: fault.ErrServiceUnavailable}
	g := NewGenerator(client, config.ModelConfig{}, defaultGate())

	hyd := testHydrated(3)
	hyd.Journal = &store.JournalEntry{Notes: "I led the token revamp."}

	out, err := g.Generate(context.Background(), hyd, Persona{Role: "Engineer"}, Options{Debug: true})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !out.Accepted || out.Tier != TierPattern {
		t.Errorf("got tier %q accepted=%v", out.Tier, out.Accepted)
	}
	if client.calls != 1 {
		t.Errorf("model called %d times", client.calls)
	}
	if len(out.Attempts) < 2 || out.Attempts[0].Tier != TierModel {
		t.Errorf("got attempts %+v", out.Attempts)
	}
}

func TestGenerate_ModelTierAccepted(t *testing.T) {
	resp := `{
		"title": "Token revamp under pressure",
		"role": "Tech lead",
		"sections": {
			"situation": "Logins were timing out during peak traffic.",
			"task": "I owned restoring reliable auth within the sprint.",
			"action": "I rewrote the refresh flow and added circuit breaking.",
			"result": "Login latency dropped 40% and timeouts stopped."
		},
		"evidence": {
			"situation": ["a1"],
			"action": ["a2"],
			"result": ["a3", "ghost"]
		}
	}`
	client := &fakeClient{response: json.RawMessage(resp)}
	g := NewGenerator(client, config.ModelConfig{}, defaultGate())

	hyd := testHydrated(3)
	hyd.Journal = &store.JournalEntry{Notes: "notes"}

	out, err := g.Generate(context.Background(), hyd, Persona{}, Options{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !out.Accepted || out.Tier != TierModel {
		t.Fatalf("got tier %q accepted=%v rejection=%+v", out.Tier, out.Accepted, out.Rejection)
	}
	if out.Draft.Title != "Token revamp under pressure" {
		t.Errorf("got title %q", out.Draft.Title)
	}

	// The unknown evidence id must have been dropped.
	for _, sec := range out.Draft.Sections {
		for _, ev := range sec.Evidence {
			if ev.ActivityID == "ghost" {
				t.Error("unknown evidence id kept")
			}
		}
	}
}

func TestGenerate_ModelSkippedWithoutJournal(t *testing.T) {
	client := &fakeClient{response: json.RawMessage(`{}`)}
	g := NewGenerator(client, config.ModelConfig{}, defaultGate())

	out, err := g.Generate(context.Background(), testHydrated(3), Persona{}, Options{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if client.calls != 0 {
		t.Errorf("model called %d times for journal-less cluster", client.calls)
	}
	if out.Tier != TierPattern {
		t.Errorf("got tier %q", out.Tier)
	}
}

func TestParseModelOutput_MissingRequiredSection(t *testing.T) {
	hyd := testHydrated(2)
	req := &Request{Hydrated: hyd, Options: Options{Framework: framework.STAR}}

	raw := json.RawMessage(`{"title":"t","sections":{"situation":"s","task":"t","action":"a"}}`)
	if _, err := parseModelOutput(raw, req); err == nil {
		t.Error("missing result section should fail the tier")
	}
}

func TestTemplateDraft_RejectedWithoutEvidence(t *testing.T) {
	hyd := testHydrated(3)
	tier := &templateTier{}
	draft, err := tier.Attempt(context.Background(), &Request{
		Hydrated: hyd,
		Options:  Options{Framework: framework.STAR},
	})
	if err != nil || draft == nil {
		t.Fatalf("template tier: %v", err)
	}
	if len(draft.Sections) != 4 {
		t.Fatalf("got %d sections", len(draft.Sections))
	}

	out := evaluate(draft, hyd, TierTemplate, defaultGate())
	if out.Accepted {
		t.Fatal("zero-evidence draft cleared the gate")
	}
	if out.Rejection.EvidenceNeed != 2 || out.Rejection.EvidenceCount != 0 {
		t.Errorf("got rejection %+v", out.Rejection)
	}
	if !containsGate(out.Rejection.FailedGates, GateParticipation) {
		t.Errorf("got failed gates %v", out.Rejection.FailedGates)
	}
}

func containsGate(gates []string, want string) bool {
	for _, g := range gates {
		if g == want {
			return true
		}
	}
	return false
}
