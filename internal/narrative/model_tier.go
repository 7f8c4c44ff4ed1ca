package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmhart/storyarc/internal/framework"
	"github.com/jmhart/storyarc/internal/llm"
	"github.com/jmhart/storyarc/internal/sanitize"
	"github.com/jmhart/storyarc/internal/store"
)

// modelTier renders a prompt from the cluster's journal content and asks
// the language-model service for a section map. It only runs when the
// cluster carries rich contextual content; without notes or phase data
// the model has nothing to work from that the pattern tier doesn't.
type modelTier struct {
	client llm.Client
	redact bool
}

func (t *modelTier) Tier() Tier { return TierModel }

const modelSystemPrompt = `You turn work-activity clusters into structured interview narratives.

Respond with valid JSON only. No markdown, no explanation. Schema:
{
  "title": "Short story title",
  "role": "The author's role in this work",
  "sections": {"<section key>": "1-3 sentence summary", ...},
  "evidence": {"<section key>": ["<activity id>", ...], ...}
}

Rules:
- sections: include exactly the section keys listed in the prompt, each non-empty.
- Ground every claim in the provided notes and activities; never invent outcomes.
- evidence: cite the activity ids that support each section. Omit a key if no activity applies.
- Keep summaries in first person, past tense.`

func (t *modelTier) Attempt(ctx context.Context, req *Request) (*Draft, error) {
	if !req.Hydrated.HasJournalContent() {
		return nil, nil
	}

	out, err := t.client.Generate(ctx, llm.Request{
		System: modelSystemPrompt,
		User:   t.buildPrompt(req),
	})
	if err != nil {
		return nil, fmt.Errorf("model tier: %w", err)
	}

	return parseModelOutput(out, req)
}

func (t *modelTier) buildPrompt(req *Request) string {
	hyd := req.Hydrated
	opts := req.Options
	var b strings.Builder

	b.WriteString(fmt.Sprintf("## Narrative Request\n- Framework: %s\n", opts.Framework))
	b.WriteString("- Section keys: ")
	var keys []string
	for _, sec := range framework.Sections(opts.Framework) {
		keys = append(keys, sec.Key)
	}
	b.WriteString(strings.Join(keys, ", "))
	b.WriteString("\n")
	if opts.Style != "" {
		b.WriteString(fmt.Sprintf("- Style: %s\n", opts.Style))
	}
	if opts.Archetype != "" {
		b.WriteString(fmt.Sprintf("- Archetype: %s\n", opts.Archetype))
	}

	if p := req.Persona; p.Name != "" || p.Role != "" {
		b.WriteString("\n## Author\n")
		if p.Name != "" {
			b.WriteString(fmt.Sprintf("- Name: %s\n", p.Name))
		}
		if p.Role != "" {
			b.WriteString(fmt.Sprintf("- Role: %s\n", p.Role))
		}
		if p.Company != "" {
			b.WriteString(fmt.Sprintf("- Company: %s\n", p.Company))
		}
	}

	b.WriteString("\n## Cluster\n")
	b.WriteString(fmt.Sprintf("- Activities: %d across %s\n", hyd.Size(), strings.Join(hyd.Tools, ", ")))
	b.WriteString(fmt.Sprintf("- Dates: %s to %s\n",
		hyd.Start.Format("2006-01-02"), hyd.End.Format("2006-01-02")))
	if len(hyd.SharedRefs) > 0 {
		b.WriteString(fmt.Sprintf("- Shared references: %s\n", strings.Join(hyd.SharedRefs, ", ")))
	}

	if hyd.Journal.Notes != "" {
		b.WriteString("\n## Notes\n")
		b.WriteString(t.clean(hyd.Journal.Notes))
		b.WriteString("\n")
	}
	if len(hyd.Journal.Phases) > 0 {
		b.WriteString("\n## Phases\n")
		for _, p := range hyd.Journal.Phases {
			b.WriteString(fmt.Sprintf("- %s: %s\n", p.Name, t.clean(p.Summary)))
		}
	}

	b.WriteString("\n## Activities\n")
	for _, a := range hyd.Activities {
		line := fmt.Sprintf("- [%s] %s %s: %s", a.ID, a.OccurredAt.Format("2006-01-02"), a.Source, a.Title)
		if len(a.Refs) > 0 {
			line += fmt.Sprintf(" (refs: %s)", strings.Join(a.Refs, ", "))
		}
		b.WriteString(t.clean(line))
		b.WriteString("\n")
	}

	if opts.CustomPrompt != "" {
		b.WriteString("\n## Additional Guidance\n")
		b.WriteString(t.clean(opts.CustomPrompt))
		b.WriteString("\n")
	}

	return b.String()
}

func (t *modelTier) clean(text string) string {
	if t.redact {
		text = sanitize.Redact(text)
	}
	return sanitize.Clean(text)
}

type modelOutput struct {
	Title    string              `json:"title"`
	Role     string              `json:"role"`
	Sections map[string]string   `json:"sections"`
	Evidence map[string][]string `json:"evidence"`
}

// parseModelOutput validates the model's JSON against the requested
// framework. Missing required sections or unknown evidence ids make the
// response unusable; unknown ids are dropped, missing sections fail the
// tier so the pattern tier takes over.
func parseModelOutput(raw json.RawMessage, req *Request) (*Draft, error) {
	var out modelOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("model tier: malformed response: %w", err)
	}

	known := make(map[string]bool, req.Hydrated.Size())
	for _, a := range req.Hydrated.Activities {
		known[a.ID] = true
	}

	draft := &Draft{
		Title:     strings.TrimSpace(out.Title),
		Role:      strings.TrimSpace(out.Role),
		Framework: req.Options.Framework,
	}

	for _, schema := range framework.Sections(req.Options.Framework) {
		summary := strings.TrimSpace(out.Sections[schema.Key])
		if summary == "" {
			if schema.Required {
				return nil, fmt.Errorf("model tier: missing section %q", schema.Key)
			}
			continue
		}

		sec := store.Section{Key: schema.Key, Summary: summary}
		for _, id := range out.Evidence[schema.Key] {
			if known[id] {
				sec.Evidence = append(sec.Evidence, store.Evidence{ActivityID: id})
			}
		}
		draft.Sections = append(draft.Sections, sec)
	}

	if draft.Title == "" {
		draft.Title = req.Hydrated.Cluster.Name
	}
	if draft.Role == "" {
		draft.Role = req.Persona.Role
	}

	return draft, nil
}
