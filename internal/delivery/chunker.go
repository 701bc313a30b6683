package delivery

import (
	"unicode/utf16"

	"github.com/marketplace-card-bot/internal/models"
)

// Split cuts text into consecutive pieces of at most maxSize characters as
// Telegram counts them (UTF-16 code units). Words may be split, runes never
// are. Empty text yields the NoAnswer sentinel.
func Split(text string, maxSize int) []string {
	if text == "" {
		text = models.NoAnswer
	}

	if maxSize <= 0 || UTF16Len(text) <= maxSize {
		return []string{text}
	}

	var chunks []string
	start, units := 0, 0
	for i, r := range text {
		n := runeUnits(r)
		// A single rune wider than maxSize still gets its own chunk
		if units+n > maxSize && i > start {
			chunks = append(chunks, text[start:i])
			start, units = i, 0
		}
		units += n
	}
	chunks = append(chunks, text[start:])

	return chunks
}

// UTF16Len returns the length of s in UTF-16 code units
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

func runeUnits(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}
