package canonical

import (
	"regexp"
	"strings"
)

// Package-level compiled regex patterns for segmentation
var (
	// Matches parenthetical qualifiers whose contents are only word
	// characters, whitespace, commas, percent signs, or hyphens, e.g.
	// "(getrocknet, 4%)". Unrelated punctuation inside parens is left alone.
	parentheticalPattern = regexp.MustCompile(`\s*\([\p{L}\p{N}_\s,%-]+\)`)

	// Ingredient list delimiters: comma, percent sign, bullet, semicolon.
	delimiterPattern = regexp.MustCompile(`[,%•;]`)
)

// Segment splits a raw ingredient-list string into cleaned, lowercase
// segments. Parenthetical qualifiers are stripped first, then the text is
// split on delimiters; each piece is trimmed and lowercased and empty pieces
// are discarded. A string with no delimiters yields a single segment; an
// empty or whitespace-only string yields none.
func Segment(raw string) []string {
	cleaned := parentheticalPattern.ReplaceAllString(raw, "")

	var segments []string
	for _, piece := range delimiterPattern.Split(cleaned, -1) {
		piece = strings.ToLower(strings.TrimSpace(piece))
		if piece == "" {
			continue
		}
		segments = append(segments, piece)
	}
	return segments
}
