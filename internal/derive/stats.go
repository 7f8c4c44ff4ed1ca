package derive

import "strings"

// speakingWPM is the pace used to estimate how long an artifact takes to
// say out loud. 150 words per minute sits in the middle of conversational
// speech.
const speakingWPM = 150

// TextStats computes character count, word count, and estimated speaking
// time in seconds for generated text.
func TextStats(text string) (chars, words, speakSeconds int) {
	chars = len([]rune(text))
	words = len(strings.Fields(text))
	speakSeconds = words * 60 / speakingWPM
	if words > 0 && speakSeconds == 0 {
		speakSeconds = 1
	}
	return chars, words, speakSeconds
}
