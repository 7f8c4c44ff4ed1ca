// Package render produces markdown for stories and derivations, used by
// the CLI's show commands and the export bundle.
package render

import (
	"fmt"
	"strings"

	"github.com/jmhart/storyarc/internal/framework"
	"github.com/jmhart/storyarc/internal/store"
)

// Story renders one story as a markdown document.
func Story(st *store.Story) string {
	var b strings.Builder

	b.WriteString("---\n")
	b.WriteString(fmt.Sprintf("title: %q\n", st.Title))
	b.WriteString(fmt.Sprintf("framework: %s\n", st.Framework))
	if st.Role != "" {
		b.WriteString(fmt.Sprintf("role: %q\n", st.Role))
	}
	if st.Archetype != "" {
		b.WriteString(fmt.Sprintf("archetype: %s\n", st.Archetype))
	}
	b.WriteString(fmt.Sprintf("tier: %s\n", st.Tier))
	b.WriteString(fmt.Sprintf("created: %s\n", st.CreatedAt.Format("2006-01-02")))
	b.WriteString("---\n\n")

	b.WriteString(fmt.Sprintf("# %s\n", st.Title))

	labels := sectionLabels(framework.Framework(st.Framework))
	for _, sec := range st.Sections {
		label := labels[sec.Key]
		if label == "" {
			label = upperFirst(sec.Key)
		}
		b.WriteString(fmt.Sprintf("\n## %s\n\n%s\n", label, sec.Summary))
		if len(sec.Evidence) > 0 {
			b.WriteString("\nEvidence:\n")
			for _, ev := range sec.Evidence {
				if ev.Description != "" {
					b.WriteString(fmt.Sprintf("- %s (`%s`)\n", ev.Description, ev.ActivityID))
				} else {
					b.WriteString(fmt.Sprintf("- `%s`\n", ev.ActivityID))
				}
			}
		}
	}

	return b.String()
}

// Derivation renders one derivation as a markdown document, including the
// source-story snapshots so the artifact reads standalone.
func Derivation(d *store.Derivation) string {
	var b strings.Builder

	b.WriteString("---\n")
	b.WriteString(fmt.Sprintf("kind: %s\n", d.Kind))
	b.WriteString(fmt.Sprintf("type: %s\n", d.Type))
	if d.Tone != "" {
		b.WriteString(fmt.Sprintf("tone: %s\n", d.Tone))
	}
	b.WriteString(fmt.Sprintf("words: %d\n", d.WordCount))
	b.WriteString(fmt.Sprintf("speaking_seconds: %d\n", d.SpeakSeconds))
	b.WriteString(fmt.Sprintf("credits: %d\n", d.CreditCost))
	b.WriteString(fmt.Sprintf("created: %s\n", d.CreatedAt.Format("2006-01-02")))
	b.WriteString("---\n\n")

	b.WriteString(d.Content)
	b.WriteString("\n")

	if len(d.Snapshots) > 0 {
		b.WriteString("\n## Sources\n")
		for _, snap := range d.Snapshots {
			b.WriteString(fmt.Sprintf("- %s (%s", snap.Title, snap.Framework))
			if snap.Archetype != "" {
				b.WriteString(", " + snap.Archetype)
			}
			b.WriteString(")\n")
		}
	}

	return b.String()
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sectionLabels(f framework.Framework) map[string]string {
	labels := make(map[string]string)
	for _, sec := range framework.Sections(f) {
		labels[sec.Key] = sec.Label
	}
	return labels
}
