package orchestrator

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/vetsupport/companion/pkg/types"
)

// parseAnalysis decodes provider output into a MoodAnalysis. Models often
// wrap JSON in markdown code fences, so those are stripped first. Output
// that still fails to decode is wrapped verbatim into Summary; a malformed
// provider response is handled locally, never retried.
func parseAnalysis(text string) *types.MoodAnalysis {
	candidate := stripCodeFence(text)

	var analysis types.MoodAnalysis
	if err := json.Unmarshal([]byte(candidate), &analysis); err == nil && analysis.Summary != "" {
		return &analysis
	}

	return &types.MoodAnalysis{
		Summary:     strings.TrimSpace(text),
		Emotions:    []string{},
		Triggers:    []string{},
		Suggestions: []string{},
	}
}

// stripCodeFence removes a surrounding markdown code fence, if present.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop an optional language tag on the opening fence ("```json").
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// listMarkers are the leading bullet/numbering characters stripped from
// free-text list items.
const listMarkers = "-•*0123456789.) \t"

// parseList extracts list items from free-text provider output by detecting
// leading bullet or numbering markers and stripping them.
func parseList(text string) []string {
	var items []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// The bullet may be a multi-byte rune ("•"), so decode the first
		// rune instead of slicing the first byte.
		first, _ := utf8.DecodeRuneInString(line)
		if !strings.ContainsRune("-•*0123456789", first) {
			continue
		}

		clean := strings.TrimLeft(line, listMarkers)
		clean = strings.TrimSpace(clean)
		if clean != "" {
			items = append(items, clean)
		}
	}

	return items
}
