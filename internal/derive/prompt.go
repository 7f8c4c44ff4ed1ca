package derive

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmhart/storyarc/internal/store"
)

func systemPromptFor(kind, typ string) string {
	var shape string
	switch typ {
	case "interview_answer":
		shape = "a spoken interview answer of 60-90 seconds, first person, conversational"
	case "resume_bullet":
		shape = "one resume bullet of at most 220 characters, leading with the outcome"
	case "cover_paragraph":
		shape = "one cover-letter paragraph, 3-4 sentences"
	case "promotion_packet":
		shape = "a promotion-packet impact summary with one short paragraph per story"
	case "interview_prep":
		shape = "an interview prep sheet: for each story a headline and three talking points"
	case "portfolio_brief":
		shape = "a portfolio brief: a combined overview paragraph, then one line per story"
	default:
		shape = "a concise professional summary"
	}

	return fmt.Sprintf(`You rewrite structured work narratives for a specific audience.

Produce %s.

Respond with valid JSON only. No markdown fences, no explanation. Schema:
{"text": "the rendered artifact"}

Rules:
- Use only facts present in the source material; never invent outcomes or numbers.
- Keep the requested tone if one is given.`, shape)
}

func buildSinglePrompt(st *store.Story, typ string, opts Options) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("## Derivation\n- Type: %s\n", typ))
	if opts.Tone != "" {
		b.WriteString(fmt.Sprintf("- Tone: %s\n", opts.Tone))
	}

	writeStory(&b, st)

	if opts.CustomPrompt != "" {
		b.WriteString("\n## Additional Guidance\n")
		b.WriteString(opts.CustomPrompt)
		b.WriteString("\n")
	}

	return b.String()
}

func buildPacketPrompt(stories []store.Story, typ string, opts Options) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("## Packet Derivation\n- Type: %s\n- Stories: %d\n", typ, len(stories)))
	if opts.Tone != "" {
		b.WriteString(fmt.Sprintf("- Tone: %s\n", opts.Tone))
	}
	if !opts.From.IsZero() || !opts.To.IsZero() {
		b.WriteString(fmt.Sprintf("- Period: %s to %s\n",
			formatOrOpen(opts.From), formatOrOpen(opts.To)))
	}

	// Combined brief so the model sees the packet as one body of work.
	frameworks := make(map[string]int)
	sections := 0
	for _, st := range stories {
		frameworks[st.Framework]++
		sections += len(st.Sections)
	}
	var fwList []string
	for f, n := range frameworks {
		fwList = append(fwList, fmt.Sprintf("%s x%d", f, n))
	}
	b.WriteString(fmt.Sprintf("- Combined: %d sections, frameworks %s\n",
		sections, strings.Join(fwList, ", ")))

	for i := range stories {
		writeStory(&b, &stories[i])
	}

	if opts.CustomPrompt != "" {
		b.WriteString("\n## Additional Guidance\n")
		b.WriteString(opts.CustomPrompt)
		b.WriteString("\n")
	}

	return b.String()
}

func writeStory(b *strings.Builder, st *store.Story) {
	b.WriteString(fmt.Sprintf("\n## Story: %s\n- Framework: %s\n", st.Title, st.Framework))
	if st.Role != "" {
		b.WriteString(fmt.Sprintf("- Role: %s\n", st.Role))
	}
	if st.Archetype != "" {
		b.WriteString(fmt.Sprintf("- Archetype: %s\n", st.Archetype))
	}
	for _, sec := range st.Sections {
		b.WriteString(fmt.Sprintf("- %s: %s\n", sec.Key, sec.Summary))
	}
}

func formatOrOpen(t time.Time) string {
	if t.IsZero() {
		return "open"
	}
	return t.Format("2006-01-02")
}
