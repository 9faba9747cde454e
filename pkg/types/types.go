// Package types defines shared types used across all companion modules.
package types

import "time"

// ═══════════════════════════════════════════════════════════════════════════════
// MOOD SCALE
// ═══════════════════════════════════════════════════════════════════════════════

// Mood levels are integers on a 1-10 scale. Buckets follow the product's
// low/mid/high split used for prompts, canned analyses and emoji.
const (
	MoodMin = 1
	MoodMax = 10

	// LowMoodCeiling is the highest level that still counts as "low mood"
	// and triggers the support-escalation marker on check-in completion.
	LowMoodCeiling = 3

	// HighMoodFloor is the lowest level that counts as "high mood".
	HighMoodFloor = 8
)

// MoodBucket classifies a level into the low/mid/high bands.
type MoodBucket string

const (
	BucketLow  MoodBucket = "low"  // 1-3
	BucketMid  MoodBucket = "mid"  // 4-7
	BucketHigh MoodBucket = "high" // 8-10
)

// BucketFor returns the bucket for a mood level.
func BucketFor(level int) MoodBucket {
	switch {
	case level <= LowMoodCeiling:
		return BucketLow
	case level >= HighMoodFloor:
		return BucketHigh
	default:
		return BucketMid
	}
}

// MoodEmoji returns the emoji shown next to a mood level.
// The thresholds intentionally differ from BucketFor: the neutral face
// covers 4-6 so that 7 already reads as positive.
func MoodEmoji(level int) string {
	switch {
	case level <= 3:
		return "😢"
	case level <= 6:
		return "😐"
	default:
		return "😊"
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// USERS
// ═══════════════════════════════════════════════════════════════════════════════

// User is the slice of the external account record the core reads as context.
// The account system owns the full record; the pipeline only needs language,
// the veteran flag and an optional timezone for calendar-day arithmetic.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username,omitempty"`
	Language  string    `json:"language"` // BCP 47 primary subtag, "uk" or "en"
	Timezone  string    `json:"timezone,omitempty"`
	IsVeteran bool      `json:"is_veteran"`
	CreatedAt time.Time `json:"created_at"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// CHECK-INS
// ═══════════════════════════════════════════════════════════════════════════════

// MoodCheckIn is one authoritative mood record per user per calendar day.
// Same-day resubmissions overwrite rather than append.
type MoodCheckIn struct {
	ID                 string        `json:"id"`
	UserID             int64         `json:"user_id"`
	Level              int           `json:"level"` // 1-10 inclusive
	Note               string        `json:"note,omitempty"`
	Timestamp          time.Time     `json:"timestamp"`
	Analysis           *MoodAnalysis `json:"analysis,omitempty"`
	RecommendedActions []string      `json:"recommended_actions,omitempty"`
}

// MoodAnalysis is the structured result of analyzing a check-in note.
// When provider output cannot be parsed as structured data the raw text is
// wrapped into Summary and the lists stay empty.
type MoodAnalysis struct {
	Summary     string   `json:"summary"`
	Emotions    []string `json:"emotions"`
	Triggers    []string `json:"triggers"`
	Suggestions []string `json:"suggestions"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// STATISTICS
// ═══════════════════════════════════════════════════════════════════════════════

// Trend classifies the recent-vs-older mood direction.
type Trend string

const (
	TrendImproving    Trend = "improving"
	TrendStable       Trend = "stable"
	TrendDeclining    Trend = "declining"
	TrendInsufficient Trend = "insufficient_data" // fewer than 5 check-ins
)

// Stability classifies recent mood volatility by variance.
type Stability string

const (
	StabilityStable   Stability = "stable"   // variance < 2.0
	StabilityVariable Stability = "variable" // variance >= 2.0
)

// UserStats is the exclusively-system-owned aggregate, one row per user.
// It is a materialized view over the check-in log, mutated only by the stats
// engine immediately after a check-in is durably stored.
type UserStats struct {
	UserID        int64      `json:"user_id"`
	TotalCheckIns int        `json:"total_check_ins"`
	AverageMood   float64    `json:"average_mood"`
	StreakDays    int        `json:"streak_days"`
	LastCheckInAt *time.Time `json:"last_check_in_at,omitempty"`
	// LastCheckInLevel is carried so same-day overwrites can recompute the
	// running average by replacement instead of re-scanning history.
	LastCheckInLevel int   `json:"last_check_in_level"`
	ChatCount        int   `json:"chat_count"`
	VoiceChatCount   int   `json:"voice_chat_count"`
}

// StatsReport is the full getStats response: the stored aggregate plus the
// on-demand trend/stability classification over the recent history window.
type StatsReport struct {
	UserStats
	Trend         Trend     `json:"trend"`
	Stability     Stability `json:"stability"`
	RecentAverage float64   `json:"recent_average"`
	Variance      float64   `json:"variance"`
	BestDay       *DayMood  `json:"best_day,omitempty"`
	WorstDay      *DayMood  `json:"worst_day,omitempty"`
	Insights      []string  `json:"insights,omitempty"`
}

// DayMood is a single (day, level) point from the history window.
type DayMood struct {
	Level     int       `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// CHAT
// ═══════════════════════════════════════════════════════════════════════════════

// AIChatRecord is one stored chat exchange. Immutable once written;
// CrisisFlag is derived at write time and never recomputed retroactively.
type AIChatRecord struct {
	ID           string    `json:"id"`
	UserID       int64     `json:"user_id"`
	Message      string    `json:"message"`
	Response     string    `json:"response"`
	ProviderUsed string    `json:"provider_used"`
	IsVoice      bool      `json:"is_voice"`
	CrisisFlag   bool      `json:"crisis_flag"`
	Timestamp    time.Time `json:"timestamp"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// CRISIS
// ═══════════════════════════════════════════════════════════════════════════════

// CrisisSignal is the ephemeral per-message heuristic output. It is attached
// to the chat record as a flag and optionally forwarded to the admin
// notification sink; it is never persisted as its own entity.
type CrisisSignal struct {
	Detected                  bool     `json:"detected"`
	Confidence                float64  `json:"confidence"` // matches / max(words, 1)
	MatchedTerms              []string `json:"matched_terms,omitempty"`
	RequiresImmediateAttention bool    `json:"requires_immediate_attention"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// RECOMMENDATIONS
// ═══════════════════════════════════════════════════════════════════════════════

// Recommendation is one catalog entry for activity selection.
type Recommendation struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	Category        string `json:"category"`
	Language        string `json:"language"`
	TargetMoodMin   int    `json:"target_mood_min"`
	TargetMoodMax   int    `json:"target_mood_max"`
	DurationMinutes int    `json:"duration_minutes"`
}

// InRange reports whether a mood level falls inside the entry's target range.
func (r *Recommendation) InRange(level int) bool {
	return level >= r.TargetMoodMin && level <= r.TargetMoodMax
}
