package derive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jmhart/storyarc/internal/fault"
	"github.com/jmhart/storyarc/internal/llm"
	"github.com/jmhart/storyarc/internal/store"
)

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

func okResponse() json.RawMessage {
	return json.RawMessage(`{"text": "I led the auth revamp and cut login latency by 40 percent."}`)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addStory(t *testing.T, s *store.Store, userID, title string) *store.Story {
	t.Helper()
	st := &store.Story{
		UserID:    userID,
		ClusterID: "c1",
		Framework: "STAR",
		Title:     title,
		Tier:      "pattern",
		Sections: []store.Section{
			{Key: "situation", Summary: "Logins failing."},
			{Key: "task", Summary: "Fix it."},
			{Key: "action", Summary: "Rewrote the flow."},
			{Key: "result", Summary: "Latency down 40%."},
		},
	}
	if err := s.InsertStory(st); err != nil {
		t.Fatalf("insert story: %v", err)
	}
	return st
}

func fund(t *testing.T, s *store.Store, userID string, balance int) {
	t.Helper()
	if err := s.EnsureAccount(userID, balance); err != nil {
		t.Fatalf("ensure account: %v", err)
	}
}

func TestSingle_Success(t *testing.T) {
	s := newTestStore(t)
	fund(t, s, "u1", 10)
	st := addStory(t, s, "u1", "Auth revamp")

	client := &fakeClient{response: okResponse()}
	e := NewEngine(s, client, map[string]int{"interview_answer": 2})

	d, err := e.Single(context.Background(), "u1", st.ID, "interview_answer", Options{Tone: "confident"})
	if err != nil {
		t.Fatalf("single: %v", err)
	}
	if d.Kind != KindSingle || d.Type != "interview_answer" || d.CreditCost != 2 {
		t.Errorf("got %+v", d)
	}
	if d.WordCount == 0 || d.SpeakSeconds == 0 {
		t.Errorf("stats missing: words=%d speak=%d", d.WordCount, d.SpeakSeconds)
	}
	if len(d.Snapshots) != 1 || d.Snapshots[0].Title != "Auth revamp" || d.Snapshots[0].Sections != 4 {
		t.Errorf("got snapshots %+v", d.Snapshots)
	}

	bal, _ := s.Balance("u1")
	if bal != 8 {
		t.Errorf("got balance %d, want 8", bal)
	}

	// The derivation outlives its source story.
	if err := s.DeleteStory("u1", st.ID); err != nil {
		t.Fatalf("delete story: %v", err)
	}
	got, err := s.GetDerivation("u1", d.ID)
	if err != nil {
		t.Fatalf("get derivation: %v", err)
	}
	if got.Snapshots[0].Title != "Auth revamp" {
		t.Errorf("snapshot lost after story deletion: %+v", got.Snapshots)
	}
}

func TestSingle_UnknownType(t *testing.T) {
	s := newTestStore(t)
	e := NewEngine(s, &fakeClient{response: okResponse()}, nil)

	_, err := e.Single(context.Background(), "u1", "s1", "promotion_packet", Options{})
	if !errors.Is(err, fault.ErrInvalidInput) {
		t.Errorf("got %v, want ErrInvalidInput", err)
	}
}

func TestSingle_MissingStory(t *testing.T) {
	s := newTestStore(t)
	fund(t, s, "u1", 10)
	e := NewEngine(s, &fakeClient{response: okResponse()}, nil)

	_, err := e.Single(context.Background(), "u1", "missing", "resume_bullet", Options{})
	if !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestPacket_SizeBounds(t *testing.T) {
	s := newTestStore(t)
	e := NewEngine(s, &fakeClient{response: okResponse()}, nil)

	_, err := e.Packet(context.Background(), "u1", []string{"s1"}, "promotion_packet", Options{})
	if !errors.Is(err, fault.ErrInvalidInput) {
		t.Errorf("1 story: got %v, want ErrInvalidInput", err)
	}

	eleven := make([]string, 11)
	for i := range eleven {
		eleven[i] = fmt.Sprintf("s%d", i)
	}
	_, err = e.Packet(context.Background(), "u1", eleven, "promotion_packet", Options{})
	if !errors.Is(err, fault.ErrInvalidInput) {
		t.Errorf("11 stories: got %v, want ErrInvalidInput", err)
	}

	_, err = e.Packet(context.Background(), "u1", []string{"s1", "s1"}, "promotion_packet", Options{})
	if !errors.Is(err, fault.ErrInvalidInput) {
		t.Errorf("duplicate ids: got %v, want ErrInvalidInput", err)
	}
}

func TestPacket_Success(t *testing.T) {
	s := newTestStore(t)
	fund(t, s, "u1", 10)
	a := addStory(t, s, "u1", "Auth revamp")
	b := addStory(t, s, "u1", "Perf push")

	client := &fakeClient{response: okResponse()}
	e := NewEngine(s, client, map[string]int{"promotion_packet": 3})

	d, err := e.Packet(context.Background(), "u1", []string{a.ID, b.ID}, "promotion_packet", Options{})
	if err != nil {
		t.Fatalf("packet: %v", err)
	}
	if d.Kind != KindPacket || len(d.Snapshots) != 2 {
		t.Errorf("got %+v", d)
	}
	if d.Snapshots[0].StoryID != a.ID || d.Snapshots[1].StoryID != b.ID {
		t.Errorf("snapshot order: %+v", d.Snapshots)
	}
	bal, _ := s.Balance("u1")
	if bal != 7 {
		t.Errorf("got balance %d, want 7", bal)
	}
}

func TestRun_InsufficientCredits(t *testing.T) {
	s := newTestStore(t)
	fund(t, s, "u1", 1)
	st := addStory(t, s, "u1", "Auth revamp")

	client := &fakeClient{response: okResponse()}
	e := NewEngine(s, client, map[string]int{"interview_answer": 2})

	_, err := e.Single(context.Background(), "u1", st.ID, "interview_answer", Options{})
	if !errors.Is(err, fault.ErrPaymentRequired) {
		t.Fatalf("got %v, want ErrPaymentRequired", err)
	}
	if client.calls != 0 {
		t.Errorf("generation ran %d times despite empty wallet", client.calls)
	}
	bal, _ := s.Balance("u1")
	if bal != 1 {
		t.Errorf("balance touched: %d", bal)
	}
}

func TestRun_NoCreditsConsumedOnFailure(t *testing.T) {
	s := newTestStore(t)
	fund(t, s, "u1", 10)
	st := addStory(t, s, "u1", "Auth revamp")

	client := &fakeClient{err: fault.ErrServiceUnavailable}
	e := NewEngine(s, client, nil)

	_, err := e.Single(context.Background(), "u1", st.ID, "interview_answer", Options{})
	if !errors.Is(err, fault.ErrServiceUnavailable) {
		t.Fatalf("got %v, want ErrServiceUnavailable", err)
	}
	bal, _ := s.Balance("u1")
	if bal != 10 {
		t.Errorf("credits consumed on failure: balance %d", bal)
	}

	derivs, _ := s.ListDerivations("u1")
	if len(derivs) != 0 {
		t.Errorf("failed run persisted %d derivations", len(derivs))
	}
}

func TestRun_NilClient(t *testing.T) {
	s := newTestStore(t)
	fund(t, s, "u1", 10)
	st := addStory(t, s, "u1", "Auth revamp")

	e := NewEngine(s, nil, nil)
	_, err := e.Single(context.Background(), "u1", st.ID, "interview_answer", Options{})
	if !errors.Is(err, fault.ErrServiceUnavailable) {
		t.Errorf("got %v, want ErrServiceUnavailable", err)
	}
}

func TestParseOutput(t *testing.T) {
	if _, err := parseOutput(json.RawMessage(`{"text": ""}`)); !errors.Is(err, fault.ErrServiceUnavailable) {
		t.Errorf("empty text: got %v", err)
	}
	if _, err := parseOutput(json.RawMessage(`not json`)); !errors.Is(err, fault.ErrServiceUnavailable) {
		t.Errorf("malformed: got %v", err)
	}
	text, err := parseOutput(json.RawMessage(`{"text": "  padded  "}`))
	if err != nil || text != "padded" {
		t.Errorf("got %q, %v", text, err)
	}
}
