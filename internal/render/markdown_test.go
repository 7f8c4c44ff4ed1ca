package render

import (
	"strings"
	"testing"
	"time"

	"github.com/jmhart/storyarc/internal/store"
)

func TestStory(t *testing.T) {
	st := &store.Story{
		Title:     "Auth revamp",
		Framework: "STAR",
		Role:      "Backend engineer",
		Tier:      "model",
		CreatedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Sections: []store.Section{
			{Key: "situation", Summary: "Logins failing.", Evidence: []store.Evidence{
				{ActivityID: "a1", Description: "fix: token refresh"},
				{ActivityID: "a2"},
			}},
			{Key: "result", Summary: "Latency down 40%."},
		},
	}

	md := Story(st)

	for _, want := range []string{
		"# Auth revamp",
		"## Situation",
		"## Result",
		"- fix: token refresh (`a1`)",
		"- `a2`",
		"framework: STAR",
		"created: 2026-03-02",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("missing %q in:\n%s", want, md)
		}
	}
}

func TestStory_UnknownSectionKey(t *testing.T) {
	st := &store.Story{
		Title:     "t",
		Framework: "STAR",
		Sections:  []store.Section{{Key: "custom", Summary: "x"}},
	}
	if md := Story(st); !strings.Contains(md, "## Custom") {
		t.Errorf("unknown key not title-cased:\n%s", md)
	}
}

func TestDerivation(t *testing.T) {
	d := &store.Derivation{
		Kind:         "packet",
		Type:         "promotion_packet",
		Tone:         "confident",
		Content:      "Two quarters of platform work.",
		WordCount:    6,
		SpeakSeconds: 2,
		CreditCost:   3,
		CreatedAt:    time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Snapshots: []store.StorySnapshot{
			{StoryID: "s1", Title: "Auth revamp", Framework: "STAR", Archetype: "firefight"},
			{StoryID: "s2", Title: "Perf push", Framework: "CAR"},
		},
	}

	md := Derivation(d)

	for _, want := range []string{
		"type: promotion_packet",
		"tone: confident",
		"speaking_seconds: 2",
		"Two quarters of platform work.",
		"## Sources",
		"- Auth revamp (STAR, firefight)",
		"- Perf push (CAR)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("missing %q in:\n%s", want, md)
		}
	}
}
