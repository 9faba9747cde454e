package crisis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectUkrainianPhrase(t *testing.T) {
	d := NewKeywordDetector(nil)

	signal, err := d.Detect("Я більше не хочу жити")
	require.NoError(t, err)

	assert.True(t, signal.Detected)
	assert.Contains(t, signal.MatchedTerms, "не хочу жити")
	assert.Greater(t, signal.Confidence, 0.0)
}

func TestDetectCrossLocale(t *testing.T) {
	// A Ukrainian-configured user typing English crisis phrases must still
	// be detected: every locale list is scanned.
	d := NewKeywordDetector(nil)

	signal, err := d.Detect("sometimes I just want to die")
	require.NoError(t, err)

	assert.True(t, signal.Detected)
	assert.Contains(t, signal.MatchedTerms, "want to die")
}

func TestDetectImmediateAttention(t *testing.T) {
	d := NewKeywordDetector(nil)

	tests := []struct {
		name      string
		text      string
		immediate bool
	}{
		{"single match", "everything feels hopeless today", false},
		{"two matches", "it all feels hopeless, I want to die", true},
		{"no match", "had a decent day at work", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signal, err := d.Detect(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.immediate, signal.RequiresImmediateAttention)
		})
	}
}

func TestDetectBenignText(t *testing.T) {
	d := NewKeywordDetector(nil)

	signal, err := d.Detect("Сьогодні був гарний день, гуляв у парку")
	require.NoError(t, err)

	assert.False(t, signal.Detected)
	assert.Equal(t, 0.0, signal.Confidence)
	assert.Empty(t, signal.MatchedTerms)
	assert.False(t, signal.RequiresImmediateAttention)
}

func TestDetectConfidenceScaling(t *testing.T) {
	d := NewKeywordDetector(nil)

	// One match in four words.
	signal, err := d.Detect("everything is hopeless here")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, signal.Confidence, 0.001)
}

func TestDetectCaseInsensitive(t *testing.T) {
	d := NewKeywordDetector(nil)

	signal, err := d.Detect("SUICIDE")
	require.NoError(t, err)
	assert.True(t, signal.Detected)
}

func TestExtraKeywords(t *testing.T) {
	d := NewKeywordDetector(map[string][]string{
		"en": {"custom phrase"},
	})

	signal, err := d.Detect("this contains the custom phrase exactly")
	require.NoError(t, err)
	assert.True(t, signal.Detected)
	assert.Contains(t, signal.MatchedTerms, "custom phrase")
}

func TestExcerptTruncation(t *testing.T) {
	long := strings.Repeat("ї", ExcerptLimit+50)

	excerpt := Excerpt(long)
	assert.Equal(t, ExcerptLimit, len([]rune(excerpt)))

	short := "short message"
	assert.Equal(t, short, Excerpt(short))
}
