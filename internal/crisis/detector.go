// Package crisis implements heuristic crisis-language detection.
//
// The detector is a stateless scoring function over raw text: cheap enough
// to run inline on every inbound message. It augments the pipeline rather
// than gating it, so callers treat a detection error as "not detected"
// (fail open) instead of blocking message processing.
package crisis

import (
	"strings"

	"github.com/vetsupport/companion/pkg/types"
)

// Detector scores a message for crisis language. The keyword implementation
// is a known-naive placeholder; the interface exists so a model-based
// classifier can replace it without touching callers.
type Detector interface {
	Detect(text string) (types.CrisisSignal, error)
}

// Built-in per-locale keyword tables. Matching is substring-based, not
// tokenized: simple, but a known source of false positives ("I do NOT want
// to die" still matches) and false negatives.
var builtinKeywords = map[string][]string{
	"uk": {
		"самогубство", "покінчити з життям", "не хочу жити", "краще б помер",
		"немає сенсу", "все безнадійно", "нікому не потрібен", "хочу померти",
	},
	"en": {
		"suicide", "kill myself", "don't want to live", "better off dead",
		"no point", "hopeless", "nobody cares", "want to die",
	},
}

// KeywordDetector matches lowercased input against per-locale keyword lists.
type KeywordDetector struct {
	keywords map[string][]string
}

// NewKeywordDetector builds a detector from the built-in locale tables plus
// optional per-language additions from configuration.
func NewKeywordDetector(extra map[string][]string) *KeywordDetector {
	keywords := make(map[string][]string, len(builtinKeywords))
	for lang, list := range builtinKeywords {
		keywords[lang] = append([]string(nil), list...)
	}
	for lang, list := range extra {
		keywords[lang] = append(keywords[lang], list...)
	}
	return &KeywordDetector{keywords: keywords}
}

// Detect scores the text. Every locale list is scanned regardless of the
// user's configured language: a Ukrainian speaker may still type English
// crisis phrases.
func (d *KeywordDetector) Detect(text string) (types.CrisisSignal, error) {
	lowered := strings.ToLower(text)

	var matched []string
	for _, list := range d.keywords {
		for _, keyword := range list {
			if strings.Contains(lowered, strings.ToLower(keyword)) {
				matched = append(matched, keyword)
			}
		}
	}

	wordCount := len(strings.Fields(text))
	if wordCount < 1 {
		wordCount = 1
	}

	return types.CrisisSignal{
		Detected:                   len(matched) > 0,
		Confidence:                 float64(len(matched)) / float64(wordCount),
		MatchedTerms:               matched,
		RequiresImmediateAttention: len(matched) >= 2,
	}, nil
}

// ExcerptLimit caps the message excerpt included in admin notifications.
const ExcerptLimit = 200

// Excerpt returns the first ExcerptLimit runes of text for inclusion in a
// notification payload.
func Excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= ExcerptLimit {
		return text
	}
	return string(runes[:ExcerptLimit])
}
