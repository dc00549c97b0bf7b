package parse

import (
	"strings"
	"unicode"
)

// maxQuoteLen caps evidence quotes; a quote is a pointer into the source,
// not a transcript of it.
const maxQuoteLen = 240

// sentenceAround returns the sentence of text that contains needle,
// case-insensitively, for use as an evidence quote. Sentences are split on
// '.', '!' and '?'. When needle is not found, the needle itself is
// returned so evidence is never empty.
func sentenceAround(text, needle string) string {
	if text == "" || needle == "" {
		return truncate(needle)
	}

	lowerNeedle := strings.ToLower(needle)
	for _, s := range splitSentences(text) {
		if strings.Contains(strings.ToLower(s), lowerNeedle) {
			return truncate(s)
		}
	}
	return truncate(needle)
}

// splitSentences naively splits on sentence delimiters, keeping the
// delimiter attached.
func splitSentences(text string) []string {
	estimated := len(text) / 50
	if estimated < 1 {
		estimated = 1
	}
	sentences := make([]string, 0, estimated)

	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			end := i + 1
			for end < len(text) && unicode.IsSpace(rune(text[end])) {
				end++
			}
			if s := strings.TrimSpace(text[start:end]); s != "" {
				sentences = append(sentences, s)
			}
			start = end
		}
	}
	if start < len(text) {
		if s := strings.TrimSpace(text[start:]); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxQuoteLen {
		return s
	}
	return s[:maxQuoteLen]
}
