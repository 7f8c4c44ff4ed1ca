package narrative

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmhart/storyarc/internal/cluster"
	"github.com/jmhart/storyarc/internal/framework"
	"github.com/jmhart/storyarc/internal/store"
)

// patternTier derives section summaries heuristically from activity
// titles, descriptions, and references: the earliest activities describe
// the situation, the middle stretch the action, and delta-bearing commits
// and merges the result. No external service involved; it fails only for
// pathological inputs, and even then generation still has the template
// tier behind it.
type patternTier struct{}

func (t *patternTier) Tier() Tier { return TierPattern }

// deltaPattern spots measurable outcomes in activity text: percentages,
// latency figures, multipliers, counts.
var deltaPattern = regexp.MustCompile(`\b\d+(?:\.\d+)?\s*(?:%|ms|s\b|x\b|qps|rps|MB|GB)|\b(?:reduced|improved|increased|cut|eliminated|fixed|resolved)\b`)

var resultWords = []string{"merge", "merged", "release", "released", "ship", "shipped", "deploy", "deployed", "closed", "done", "fixed", "resolved"}

func (t *patternTier) Attempt(_ context.Context, req *Request) (*Draft, error) {
	hyd := req.Hydrated
	acts := hyd.Activities
	if len(acts) == 0 {
		return nil, nil
	}

	opening, action, result := splitPhases(acts)

	draft := &Draft{
		Title:     inferTitle(hyd),
		Role:      req.Persona.Role,
		Framework: req.Options.Framework,
	}

	for _, schema := range framework.Sections(req.Options.Framework) {
		var sec *store.Section
		switch schema.Class {
		case framework.ClassOpening:
			sec = openingSection(schema.Key, opening, hyd.Tools)
		case framework.ClassGoal:
			sec = goalSection(schema.Key, hyd.SharedRefs, hyd.Tools, acts)
		case framework.ClassAction:
			sec = actionSection(schema.Key, action, acts)
		case framework.ClassResult:
			sec = resultSection(schema.Key, result)
		case framework.ClassReflection:
			sec = reflectionSection(schema.Key, acts)
		}
		if sec == nil && schema.Required {
			return nil, fmt.Errorf("pattern tier: no content for section %q", schema.Key)
		}
		if sec != nil {
			draft.Sections = append(draft.Sections, *sec)
		}
	}

	return draft, nil
}

// splitPhases buckets time-sorted activities into opening, action, and
// result phases. Each outer phase gets at least one activity; with fewer
// than three activities the middle bucket borrows from the edges.
func splitPhases(acts []store.Activity) (opening, action, result []store.Activity) {
	n := len(acts)
	switch n {
	case 1:
		return acts, acts, acts
	case 2:
		return acts[:1], acts, acts[1:]
	}

	cut := n / 3
	if cut < 1 {
		cut = 1
	}
	return acts[:cut], acts[cut : n-cut], acts[n-cut:]
}

func openingSection(key string, opening []store.Activity, tools []string) *store.Section {
	first := opening[0]
	summary := fmt.Sprintf("The work began with %s in %s", lowerFirst(trimTitle(first.Title)), first.Source)
	if len(tools) > 1 {
		summary += fmt.Sprintf(", part of an effort spanning %s", joinAnd(tools))
	}
	summary += "."

	sec := &store.Section{Key: key, Summary: summary}
	for _, a := range opening {
		sec.Evidence = append(sec.Evidence, store.Evidence{ActivityID: a.ID, Description: trimTitle(a.Title)})
	}
	return sec
}

func goalSection(key string, sharedRefs, tools []string, acts []store.Activity) *store.Section {
	var summary string
	switch {
	case len(sharedRefs) > 0 && len(tools) > 1:
		summary = fmt.Sprintf("Deliver %s, coordinating work across %s.", sharedRefs[0], joinAnd(tools))
	case len(sharedRefs) > 0:
		summary = fmt.Sprintf("Deliver %s end to end.", sharedRefs[0])
	default:
		summary = fmt.Sprintf("Carry %d related pieces of work through to completion.", len(acts))
	}

	sec := &store.Section{Key: key, Summary: summary}
	if len(sharedRefs) > 0 {
		for _, a := range acts {
			if contains(a.Refs, sharedRefs[0]) {
				sec.Evidence = append(sec.Evidence, store.Evidence{ActivityID: a.ID})
			}
		}
	}
	return sec
}

func actionSection(key string, action []store.Activity, all []store.Activity) *store.Section {
	if len(action) == 0 {
		action = all
	}

	bySource := make(map[string]int)
	for _, a := range action {
		bySource[a.Source]++
	}

	pick := action[len(action)/2]
	summary := fmt.Sprintf("Drove %d changes", len(action))
	if len(bySource) > 1 {
		summary += fmt.Sprintf(" across %d tools", len(bySource))
	}
	summary += fmt.Sprintf(", including %s.", lowerFirst(trimTitle(pick.Title)))

	sec := &store.Section{Key: key, Summary: summary}
	for _, a := range action {
		sec.Evidence = append(sec.Evidence, store.Evidence{ActivityID: a.ID, Description: trimTitle(a.Title)})
	}
	return sec
}

// resultSection prefers activities with a measurable delta or a
// completion word, falling back to the chronologically last activity.
func resultSection(key string, result []store.Activity) *store.Section {
	if len(result) == 0 {
		return nil
	}

	best := result[len(result)-1]
	for _, a := range result {
		text := a.Title + " " + a.Description
		if deltaPattern.MatchString(text) || hasResultWord(text) {
			best = a
			break
		}
	}

	summary := fmt.Sprintf("Concluded with %s.", lowerFirst(trimTitle(best.Title)))
	if delta := deltaPattern.FindString(best.Description); delta != "" && !strings.Contains(summary, delta) {
		summary += fmt.Sprintf(" Measured outcome: %s.", strings.TrimSpace(delta))
	}

	sec := &store.Section{Key: key, Summary: summary}
	for _, a := range result {
		sec.Evidence = append(sec.Evidence, store.Evidence{ActivityID: a.ID, Description: trimTitle(a.Title)})
	}
	return sec
}

// reflectionSection only renders when the activity trail shows a
// fix-after-failure shape; reflection sections are optional in every
// framework that has one.
func reflectionSection(key string, acts []store.Activity) *store.Section {
	for _, a := range acts {
		lower := strings.ToLower(a.Title)
		if strings.Contains(lower, "revert") || strings.Contains(lower, "hotfix") ||
			strings.Contains(lower, "rollback") {
			return &store.Section{
				Key:     key,
				Summary: fmt.Sprintf("The path included a recovery (%s); earlier validation would have caught it sooner.", lowerFirst(trimTitle(a.Title))),
				Evidence: []store.Evidence{
					{ActivityID: a.ID, Description: trimTitle(a.Title)},
				},
			}
		}
	}
	return nil
}

func inferTitle(hyd *cluster.Hydrated) string {
	first := trimTitle(hyd.Activities[0].Title)
	if len(hyd.SharedRefs) > 0 {
		return fmt.Sprintf("%s: %s", hyd.SharedRefs[0], first)
	}
	if hyd.Cluster.Name != "" {
		return hyd.Cluster.Name
	}
	return first
}

// --- Helpers ---

func trimTitle(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx > 0 {
		s = s[:idx]
	}
	if len(s) > 100 {
		s = s[:97] + "..."
	}
	return s
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	// Keep obvious identifiers (PROJ-42, JWT) as-is.
	if len(s) > 1 && s[1] >= 'A' && s[1] <= 'Z' {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func joinAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func hasResultWord(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range resultWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
