package ingest

import (
	"strings"
	"unicode/utf8"
)

// MaxChunkBytes bounds the text of one published chunk, well below the default
// Kafka message size limit.
const MaxChunkBytes = 256 * 1024

// SplitText cuts text into pieces of at most max bytes. A piece ends after the
// last newline that fits; a line longer than max is cut at a rune boundary.
// Concatenating the pieces yields text.
func SplitText(text string, max int) []string {
	if text == "" {
		return nil
	}
	if max <= 0 || len(text) <= max {
		return []string{text}
	}

	var pieces []string
	for len(text) > max {
		cut := strings.LastIndexByte(text[:max], '\n') + 1
		if cut == 0 {
			cut = max
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				// A single rune wider than max.
				_, size := utf8.DecodeRuneInString(text)
				cut = size
			}
		}
		pieces = append(pieces, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		pieces = append(pieces, text)
	}
	return pieces
}
