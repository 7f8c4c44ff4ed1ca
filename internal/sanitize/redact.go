// Package sanitize scrubs secrets and contact data from free text before
// it is embedded in a language-model prompt. Activity payloads come from
// external tools and routinely contain tokens pasted into commit messages
// or ticket comments.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	bearerPattern = regexp.MustCompile(`(?i)\b(bearer|token|authorization)[:= ]+[A-Za-z0-9\-._~+/]{16,}=*`)
	apiKeyPattern = regexp.MustCompile(`\b(sk|pk|ghp|gho|xox[bpas]|AKIA)[-_]?[A-Za-z0-9]{16,}\b`)
	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	urlCredsPat   = regexp.MustCompile(`://[^/\s:@]+:[^/\s:@]+@`)
)

// Redact replaces secret-shaped tokens and e-mail addresses with
// placeholders.
func Redact(text string) string {
	if text == "" {
		return text
	}
	text = bearerPattern.ReplaceAllString(text, "$1 [redacted]")
	text = apiKeyPattern.ReplaceAllString(text, "[redacted-key]")
	text = urlCredsPat.ReplaceAllString(text, "://[redacted]@")
	text = emailPattern.ReplaceAllString(text, "[redacted-email]")
	return text
}

// RedactAll applies Redact to each string, returning a new slice.
func RedactAll(texts []string) []string {
	if len(texts) == 0 {
		return texts
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = Redact(t)
	}
	return out
}

// Clean trims whitespace and collapses runs of blank lines, keeping
// prompts compact.
func Clean(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	var out []string
	blank := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
