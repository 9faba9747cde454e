package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vetsupport/companion/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ═══════════════════════════════════════════════════════════════════════════════
// USER OPERATIONS
// ═══════════════════════════════════════════════════════════════════════════════

// UpsertUser inserts or updates a user profile record.
func (s *Store) UpsertUser(ctx context.Context, user *types.User) error {
	if user.ID == 0 {
		return fmt.Errorf("user ID cannot be zero")
	}

	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO users (id, username, language, timezone, is_veteran, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			language = excluded.language,
			timezone = excluded.timezone,
			is_veteran = excluded.is_veteran
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID, nullString(user.Username), user.Language, nullString(user.Timezone),
		user.IsVeteran, createdAt,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by ID. Returns ErrNotFound if absent.
func (s *Store) GetUser(ctx context.Context, userID int64) (*types.User, error) {
	query := `
		SELECT id, username, language, timezone, is_veteran, created_at
		FROM users
		WHERE id = ?
	`

	var user types.User
	var username, timezone sql.NullString

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID, &username, &user.Language, &timezone, &user.IsVeteran, &user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	user.Username = username.String
	user.Timezone = timezone.String

	return &user, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// CHECK-IN OPERATIONS
// ═══════════════════════════════════════════════════════════════════════════════

// GetCheckInForDay retrieves the check-in for a (user, day) pair, where day is
// a YYYY-MM-DD key in the user's timezone. Returns ErrNotFound if absent.
func (s *Store) GetCheckInForDay(ctx context.Context, userID int64, day string) (*types.MoodCheckIn, error) {
	query := `
		SELECT id, user_id, level, note, timestamp, analysis, recommended_actions
		FROM mood_checkins
		WHERE user_id = ? AND day = ?
	`

	row := s.db.QueryRowContext(ctx, query, userID, day)
	checkIn, err := scanCheckIn(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query check-in for day: %w", err)
	}

	return checkIn, nil
}

// UpsertCheckIn stores a check-in as the authoritative record for its day.
// A same-day resubmission replaces the previous record in place.
func (s *Store) UpsertCheckIn(ctx context.Context, checkIn *types.MoodCheckIn, day string) error {
	if checkIn.ID == "" {
		return fmt.Errorf("check-in ID cannot be empty")
	}
	if checkIn.Level < types.MoodMin || checkIn.Level > types.MoodMax {
		return fmt.Errorf("check-in level %d out of range", checkIn.Level)
	}

	var analysisJSON interface{}
	if checkIn.Analysis != nil {
		data, err := json.Marshal(checkIn.Analysis)
		if err != nil {
			return fmt.Errorf("marshal analysis: %w", err)
		}
		analysisJSON = string(data)
	}

	var actionsJSON interface{}
	if len(checkIn.RecommendedActions) > 0 {
		data, err := json.Marshal(checkIn.RecommendedActions)
		if err != nil {
			return fmt.Errorf("marshal recommended actions: %w", err)
		}
		actionsJSON = string(data)
	}

	query := `
		INSERT INTO mood_checkins (id, user_id, day, level, note, timestamp, analysis, recommended_actions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, day) DO UPDATE SET
			level = excluded.level,
			note = excluded.note,
			timestamp = excluded.timestamp,
			analysis = excluded.analysis,
			recommended_actions = excluded.recommended_actions
	`

	_, err := s.db.ExecContext(ctx, query,
		checkIn.ID, checkIn.UserID, day, checkIn.Level, nullString(checkIn.Note),
		checkIn.Timestamp, analysisJSON, actionsJSON,
	)
	if err != nil {
		return fmt.Errorf("upsert check-in: %w", err)
	}

	return nil
}

// GetMoodHistory retrieves check-ins from the last `days` days, newest first.
func (s *Store) GetMoodHistory(ctx context.Context, userID int64, days int) ([]*types.MoodCheckIn, error) {
	since := time.Now().AddDate(0, 0, -days)

	query := `
		SELECT id, user_id, level, note, timestamp, analysis, recommended_actions
		FROM mood_checkins
		WHERE user_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("query mood history: %w", err)
	}
	defer rows.Close()

	var history []*types.MoodCheckIn
	for rows.Next() {
		checkIn, err := scanCheckIn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan check-in: %w", err)
		}
		history = append(history, checkIn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mood history: %w", err)
	}

	return history, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCheckIn(row rowScanner) (*types.MoodCheckIn, error) {
	var checkIn types.MoodCheckIn
	var note, analysisJSON, actionsJSON sql.NullString

	err := row.Scan(
		&checkIn.ID, &checkIn.UserID, &checkIn.Level, &note,
		&checkIn.Timestamp, &analysisJSON, &actionsJSON,
	)
	if err != nil {
		return nil, err
	}

	checkIn.Note = note.String

	if analysisJSON.Valid && analysisJSON.String != "" {
		var analysis types.MoodAnalysis
		if err := json.Unmarshal([]byte(analysisJSON.String), &analysis); err != nil {
			return nil, fmt.Errorf("unmarshal analysis: %w", err)
		}
		checkIn.Analysis = &analysis
	}

	if actionsJSON.Valid && actionsJSON.String != "" {
		if err := json.Unmarshal([]byte(actionsJSON.String), &checkIn.RecommendedActions); err != nil {
			return nil, fmt.Errorf("unmarshal recommended actions: %w", err)
		}
	}

	return &checkIn, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// STATS OPERATIONS
// ═══════════════════════════════════════════════════════════════════════════════

// GetStats retrieves the materialized aggregate for a user.
// Returns a zero-valued aggregate (not an error) when no row exists yet.
func (s *Store) GetStats(ctx context.Context, userID int64) (*types.UserStats, error) {
	query := `
		SELECT user_id, total_check_ins, average_mood, streak_days,
			last_check_in_at, last_check_in_level, chat_count, voice_chat_count
		FROM user_stats
		WHERE user_id = ?
	`

	var stats types.UserStats
	var lastCheckInAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.UserID, &stats.TotalCheckIns, &stats.AverageMood, &stats.StreakDays,
		&lastCheckInAt, &stats.LastCheckInLevel, &stats.ChatCount, &stats.VoiceChatCount,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return &types.UserStats{UserID: userID}, nil
		}
		return nil, fmt.Errorf("query user stats: %w", err)
	}

	if lastCheckInAt.Valid {
		stats.LastCheckInAt = &lastCheckInAt.Time
	}

	return &stats, nil
}

// UpsertStats writes the full aggregate row for a user.
func (s *Store) UpsertStats(ctx context.Context, stats *types.UserStats) error {
	var lastCheckInAt interface{}
	if stats.LastCheckInAt != nil {
		lastCheckInAt = *stats.LastCheckInAt
	}

	query := `
		INSERT INTO user_stats (user_id, total_check_ins, average_mood, streak_days,
			last_check_in_at, last_check_in_level, chat_count, voice_chat_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			total_check_ins = excluded.total_check_ins,
			average_mood = excluded.average_mood,
			streak_days = excluded.streak_days,
			last_check_in_at = excluded.last_check_in_at,
			last_check_in_level = excluded.last_check_in_level,
			chat_count = excluded.chat_count,
			voice_chat_count = excluded.voice_chat_count
	`

	_, err := s.db.ExecContext(ctx, query,
		stats.UserID, stats.TotalCheckIns, stats.AverageMood, stats.StreakDays,
		lastCheckInAt, stats.LastCheckInLevel, stats.ChatCount, stats.VoiceChatCount,
	)
	if err != nil {
		return fmt.Errorf("upsert user stats: %w", err)
	}

	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// CHAT OPERATIONS
// ═══════════════════════════════════════════════════════════════════════════════

// AppendChat stores a chat exchange and bumps the user's chat counters in the
// same transaction so the log and the aggregate cannot drift.
func (s *Store) AppendChat(ctx context.Context, record *types.AIChatRecord) error {
	if record.ID == "" {
		return fmt.Errorf("chat record ID cannot be empty")
	}

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		insert := `
			INSERT INTO ai_chats (id, user_id, message, response, provider_used, is_voice, crisis_flag, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		if _, err := tx.ExecContext(ctx, insert,
			record.ID, record.UserID, record.Message, record.Response,
			record.ProviderUsed, record.IsVoice, record.CrisisFlag, record.Timestamp,
		); err != nil {
			return fmt.Errorf("insert chat record: %w", err)
		}

		voiceIncrement := 0
		if record.IsVoice {
			voiceIncrement = 1
		}

		bump := `
			INSERT INTO user_stats (user_id, chat_count, voice_chat_count)
			VALUES (?, 1, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				chat_count = chat_count + 1,
				voice_chat_count = voice_chat_count + ?
		`
		if _, err := tx.ExecContext(ctx, bump, record.UserID, voiceIncrement, voiceIncrement); err != nil {
			return fmt.Errorf("bump chat counters: %w", err)
		}

		return nil
	})
}

// GetChatHistory retrieves the most recent chat exchanges, newest first.
func (s *Store) GetChatHistory(ctx context.Context, userID int64, limit int) ([]*types.AIChatRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, user_id, message, response, provider_used, is_voice, crisis_flag, timestamp
		FROM ai_chats
		WHERE user_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat history: %w", err)
	}
	defer rows.Close()

	var records []*types.AIChatRecord
	for rows.Next() {
		var record types.AIChatRecord
		if err := rows.Scan(
			&record.ID, &record.UserID, &record.Message, &record.Response,
			&record.ProviderUsed, &record.IsVoice, &record.CrisisFlag, &record.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan chat record: %w", err)
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat history: %w", err)
	}

	return records, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// RECOMMENDATION CATALOG
// ═══════════════════════════════════════════════════════════════════════════════

// ListRecommendations retrieves catalog entries for a language, optionally
// filtered by category. Pass an empty category for the whole language pool.
func (s *Store) ListRecommendations(ctx context.Context, language, category string) ([]*types.Recommendation, error) {
	query := `
		SELECT id, title, content, category, language, target_mood_min, target_mood_max, duration_minutes
		FROM recommendations
		WHERE language = ?
	`
	args := []interface{}{language}

	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	defer rows.Close()

	var entries []*types.Recommendation
	for rows.Next() {
		var rec types.Recommendation
		if err := rows.Scan(
			&rec.ID, &rec.Title, &rec.Content, &rec.Category, &rec.Language,
			&rec.TargetMoodMin, &rec.TargetMoodMax, &rec.DurationMinutes,
		); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		entries = append(entries, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommendations: %w", err)
	}

	return entries, nil
}

// nullString converts an empty string to a NULL database value.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
