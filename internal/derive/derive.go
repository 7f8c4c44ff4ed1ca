// Package derive renders accepted stories into audience-specific
// artifacts: interview answers, resume bullets, multi-story packets.
// Unlike narrative generation there is no fallback tier; the language
// model is required, and credits meter every successful generation.
package derive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmhart/storyarc/internal/fault"
	"github.com/jmhart/storyarc/internal/llm"
	"github.com/jmhart/storyarc/internal/store"
)

// Derivation kinds.
const (
	KindSingle = "single"
	KindPacket = "packet"
)

// Packet size bounds.
const (
	packetMinStories = 2
	packetMaxStories = 10
)

var singleTypes = map[string]bool{
	"interview_answer": true,
	"resume_bullet":    true,
	"cover_paragraph":  true,
}

var packetTypes = map[string]bool{
	"promotion_packet": true,
	"interview_prep":   true,
	"portfolio_brief":  true,
}

// Engine generates and persists derivations.
type Engine struct {
	store  *store.Store
	client llm.Client
	costs  map[string]int
}

// NewEngine wires the derivation engine. client may be nil, in which case
// every derivation fails with ErrServiceUnavailable.
func NewEngine(st *store.Store, client llm.Client, costs map[string]int) *Engine {
	return &Engine{store: st, client: client, costs: costs}
}

// Options carries the optional derivation parameters.
type Options struct {
	Tone         string
	CustomPrompt string
	From         time.Time // packet only: coarse date range for the brief
	To           time.Time
}

// Single derives one artifact from one accepted story.
func (e *Engine) Single(ctx context.Context, userID, storyID, typ string, opts Options) (*store.Derivation, error) {
	if !singleTypes[typ] {
		return nil, fmt.Errorf("unknown single derivation type %q: %w", typ, fault.ErrInvalidInput)
	}

	stories, err := e.store.GetStories(userID, []string{storyID})
	if err != nil {
		return nil, err
	}

	prompt := buildSinglePrompt(&stories[0], typ, opts)
	return e.run(ctx, userID, KindSingle, typ, stories, prompt, opts)
}

// Packet derives one combined artifact from two to ten stories.
func (e *Engine) Packet(ctx context.Context, userID string, storyIDs []string, typ string, opts Options) (*store.Derivation, error) {
	if !packetTypes[typ] {
		return nil, fmt.Errorf("unknown packet derivation type %q: %w", typ, fault.ErrInvalidInput)
	}
	if len(storyIDs) < packetMinStories || len(storyIDs) > packetMaxStories {
		return nil, fmt.Errorf("packet needs %d-%d stories, got %d: %w",
			packetMinStories, packetMaxStories, len(storyIDs), fault.ErrInvalidInput)
	}
	if hasDuplicate(storyIDs) {
		return nil, fmt.Errorf("duplicate story id in packet: %w", fault.ErrInvalidInput)
	}

	stories, err := e.store.GetStories(userID, storyIDs)
	if err != nil {
		return nil, err
	}

	prompt := buildPacketPrompt(stories, typ, opts)
	return e.run(ctx, userID, KindPacket, typ, stories, prompt, opts)
}

// run is the shared tail: affordability check, generation, stats,
// snapshotting, consumption, persistence. Credits are consumed exactly
// once per successful generation and never on failure; the consume itself
// is a conditional decrement, so concurrent derivations cannot overdraw.
func (e *Engine) run(ctx context.Context, userID, kind, typ string, stories []store.Story, prompt string, opts Options) (*store.Derivation, error) {
	cost := e.cost(typ)
	balance, err := e.store.Balance(userID)
	if err != nil {
		return nil, err
	}
	if balance < cost {
		return nil, fmt.Errorf("need %d credits, have %d: %w", cost, balance, fault.ErrPaymentRequired)
	}

	if e.client == nil {
		return nil, fmt.Errorf("derivation: %w", fault.ErrServiceUnavailable)
	}

	raw, err := e.client.Generate(ctx, llm.Request{
		System: systemPromptFor(kind, typ),
		User:   prompt,
	})
	if err != nil {
		return nil, err
	}

	text, err := parseOutput(raw)
	if err != nil {
		return nil, err
	}

	if err := e.store.ConsumeCredits(userID, cost); err != nil {
		return nil, err
	}

	chars, words, speakSeconds := TextStats(text)
	d := &store.Derivation{
		UserID:       userID,
		Kind:         kind,
		Type:         typ,
		StoryIDs:     storyIDList(stories),
		Snapshots:    snapshot(stories),
		Content:      text,
		Tone:         opts.Tone,
		CustomPrompt: opts.CustomPrompt,
		CharCount:    chars,
		WordCount:    words,
		SpeakSeconds: speakSeconds,
		CreditCost:   cost,
	}
	if err := e.store.InsertDerivation(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (e *Engine) cost(typ string) int {
	if c, ok := e.costs[typ]; ok {
		return c
	}
	return 1
}

// snapshot preserves each source story's display metadata so the
// derivation survives deletion of its sources.
func snapshot(stories []store.Story) []store.StorySnapshot {
	out := make([]store.StorySnapshot, len(stories))
	for i, st := range stories {
		out[i] = store.StorySnapshot{
			StoryID:   st.ID,
			Title:     st.Title,
			Framework: st.Framework,
			Archetype: st.Archetype,
			Sections:  len(st.Sections),
		}
	}
	return out
}

func storyIDList(stories []store.Story) []string {
	ids := make([]string, len(stories))
	for i, st := range stories {
		ids[i] = st.ID
	}
	return ids
}

type derivationOutput struct {
	Text string `json:"text"`
}

func parseOutput(raw json.RawMessage) (string, error) {
	var out derivationOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("malformed derivation response: %w: %v", fault.ErrServiceUnavailable, err)
	}
	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", fmt.Errorf("empty derivation text: %w", fault.ErrServiceUnavailable)
	}
	return text, nil
}

func hasDuplicate(ids []string) bool {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return true
		}
		seen[id] = true
	}
	return false
}
