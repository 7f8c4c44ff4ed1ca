package derive

import (
	"strings"
	"testing"
)

func TestTextStats(t *testing.T) {
	chars, words, speak := TextStats("")
	if chars != 0 || words != 0 || speak != 0 {
		t.Errorf("empty: %d/%d/%d", chars, words, speak)
	}

	chars, words, speak = TextStats("one two three")
	if chars != 13 || words != 3 {
		t.Errorf("got chars=%d words=%d", chars, words)
	}
	if speak != 1 {
		t.Errorf("short text should round up to 1s, got %d", speak)
	}

	// 300 words at 150 wpm is two minutes.
	_, words, speak = TextStats(strings.Repeat("word ", 300))
	if words != 300 || speak != 120 {
		t.Errorf("got words=%d speak=%d", words, speak)
	}

	// Rune counting, not byte counting.
	chars, _, _ = TextStats("héllo")
	if chars != 5 {
		t.Errorf("got chars=%d, want 5", chars)
	}
}
