// Package refs extracts and normalizes cross-tool reference tokens:
// ticket keys (PROJ-42), pull-request refs (owner/repo#17), and bare
// issue numbers (#17). References are how the clustering engine detects
// that activities from different tools describe the same unit of work.
package refs

import (
	"regexp"
	"sort"
	"strings"
)

var (
	ticketPattern = regexp.MustCompile(`\b[A-Za-z][A-Za-z0-9]{1,9}-\d{1,6}\b`)
	repoPRPattern = regexp.MustCompile(`\b[\w.-]+/[\w.-]+#\d{1,6}\b`)
	barePRPattern = regexp.MustCompile(`(?:^|\s)(#\d{1,6})\b`)
)

// Extract finds all reference tokens in the given text fragments.
// Results are normalized, deduplicated, and sorted.
func Extract(texts ...string) []string {
	seen := make(map[string]bool)

	for _, text := range texts {
		if text == "" {
			continue
		}
		for _, m := range ticketPattern.FindAllString(text, -1) {
			seen[Normalize(m)] = true
		}
		for _, m := range repoPRPattern.FindAllString(text, -1) {
			seen[Normalize(m)] = true
		}
		for _, groups := range barePRPattern.FindAllStringSubmatch(text, -1) {
			seen[Normalize(groups[1])] = true
		}
	}

	if len(seen) == 0 {
		return nil
	}

	out := make([]string, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Normalize canonicalizes a single reference token. Ticket keys are
// uppercased (jira keys are case-insensitive); repo refs keep their case
// since repository names are case-sensitive on most forges.
func Normalize(ref string) string {
	ref = strings.TrimSpace(ref)
	if strings.Contains(ref, "#") {
		return ref
	}
	return strings.ToUpper(ref)
}

// Merge combines explicit references (already attached to an activity
// record) with references extracted from its text, normalized and deduped.
func Merge(explicit []string, extracted []string) []string {
	seen := make(map[string]bool)
	for _, r := range explicit {
		if r = Normalize(r); r != "" {
			seen[r] = true
		}
	}
	for _, r := range extracted {
		if r != "" {
			seen[r] = true
		}
	}

	if len(seen) == 0 {
		return nil
	}

	out := make([]string, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Overlap reports whether two reference lists share at least one token.
// Both lists must already be normalized.
func Overlap(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, r := range a {
		set[r] = true
	}
	for _, r := range b {
		if set[r] {
			return true
		}
	}
	return false
}
