package tts

import "strings"

// maxUtteranceLen caps the text sent in a single synthesis request.
// Longer prompts are split at sentence boundaries so the first sentence
// starts playing while the rest is still being synthesized.
const maxUtteranceLen = 300

// SplitUtterance breaks response text into synthesis-sized pieces at
// sentence boundaries. Short text comes back as a single element.
func SplitUtterance(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= maxUtteranceLen {
		return []string{text}
	}

	var (
		pieces  []string
		current strings.Builder
	)
	for _, sentence := range splitSentences(text) {
		if current.Len() > 0 && current.Len()+len(sentence)+1 > maxUtteranceLen {
			pieces = append(pieces, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		pieces = append(pieces, strings.TrimSpace(current.String()))
	}
	return pieces
}

// splitSentences splits on sentence-ending punctuation, keeping the
// punctuation with its sentence. Abbreviation handling covers "Dr.",
// the one that actually occurs in our prompts.
func splitSentences(text string) []string {
	var (
		sentences []string
		start     int
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if c == '.' && isAbbreviation(text, i) {
			continue
		}
		// Consume trailing punctuation runs ("?!", "...").
		end := i + 1
		for end < len(text) && (text[end] == '.' || text[end] == '!' || text[end] == '?') {
			end++
		}
		s := strings.TrimSpace(text[start:end])
		if s != "" {
			sentences = append(sentences, s)
		}
		start = end
		i = end - 1
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

func isAbbreviation(text string, dot int) bool {
	for _, abbr := range []string{"Dr", "Mr", "Mrs", "Ms", "St"} {
		if dot >= len(abbr) && strings.EqualFold(text[dot-len(abbr):dot], abbr) {
			// Word boundary before the abbreviation.
			if dot == len(abbr) || text[dot-len(abbr)-1] == ' ' {
				return true
			}
		}
	}
	return false
}
