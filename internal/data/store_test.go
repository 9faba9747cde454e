// Package data provides tests for Store operations.
package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vetsupport/companion/pkg/types"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewDB(t.TempDir())
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	return store
}

func seedUser(t *testing.T, store *Store, id int64) *types.User {
	t.Helper()
	user := &types.User{ID: id, Username: "tester", Language: "uk"}
	if err := store.UpsertUser(context.Background(), user); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
	return user
}

// ═══════════════════════════════════════════════════════════════════════════════
// USER TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestUpsertAndGetUser(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	user := &types.User{ID: 42, Username: "taras", Language: "uk", Timezone: "Europe/Kyiv", IsVeteran: true}
	if err := store.UpsertUser(ctx, user); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}

	got, err := store.GetUser(ctx, 42)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Username != "taras" || got.Language != "uk" || !got.IsVeteran {
		t.Errorf("unexpected user: %+v", got)
	}

	// Update path must not error and must overwrite profile fields.
	user.Language = "en"
	if err := store.UpsertUser(ctx, user); err != nil {
		t.Fatalf("UpsertUser update failed: %v", err)
	}
	got, _ = store.GetUser(ctx, 42)
	if got.Language != "en" {
		t.Errorf("expected language 'en', got '%s'", got.Language)
	}
}

func TestGetUserNotFound(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	_, err := store.GetUser(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// CHECK-IN TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestUpsertCheckInSameDayOverwrites(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()
	seedUser(t, store, 1)

	day := "2026-08-30"
	first := &types.MoodCheckIn{ID: "ci-1", UserID: 1, Level: 4, Note: "meh", Timestamp: time.Now()}
	if err := store.UpsertCheckIn(ctx, first, day); err != nil {
		t.Fatalf("first UpsertCheckIn failed: %v", err)
	}

	second := &types.MoodCheckIn{ID: "ci-2", UserID: 1, Level: 8, Note: "better now", Timestamp: time.Now()}
	if err := store.UpsertCheckIn(ctx, second, day); err != nil {
		t.Fatalf("second UpsertCheckIn failed: %v", err)
	}

	got, err := store.GetCheckInForDay(ctx, 1, day)
	if err != nil {
		t.Fatalf("GetCheckInForDay failed: %v", err)
	}
	if got.Level != 8 || got.Note != "better now" {
		t.Errorf("expected overwrite, got %+v", got)
	}

	// Only one row survives for the day.
	history, err := store.GetMoodHistory(ctx, 1, 30)
	if err != nil {
		t.Fatalf("GetMoodHistory failed: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected 1 check-in, got %d", len(history))
	}
}

func TestUpsertCheckInRejectsOutOfRange(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	seedUser(t, store, 1)

	for _, level := range []int{0, 11, -1} {
		checkIn := &types.MoodCheckIn{ID: "bad", UserID: 1, Level: level, Timestamp: time.Now()}
		if err := store.UpsertCheckIn(context.Background(), checkIn, "2026-08-30"); err == nil {
			t.Errorf("expected error for level %d", level)
		}
	}
}

func TestCheckInRoundTripsAnalysis(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()
	seedUser(t, store, 1)

	checkIn := &types.MoodCheckIn{
		ID:        "ci-analysis",
		UserID:    1,
		Level:     6,
		Timestamp: time.Now(),
		Analysis: &types.MoodAnalysis{
			Summary:  "doing fine",
			Emotions: []string{"calm"},
		},
		RecommendedActions: []string{"take a walk", "call a friend"},
	}
	if err := store.UpsertCheckIn(ctx, checkIn, "2026-08-30"); err != nil {
		t.Fatalf("UpsertCheckIn failed: %v", err)
	}

	got, err := store.GetCheckInForDay(ctx, 1, "2026-08-30")
	if err != nil {
		t.Fatalf("GetCheckInForDay failed: %v", err)
	}
	if got.Analysis == nil || got.Analysis.Summary != "doing fine" {
		t.Errorf("analysis did not round-trip: %+v", got.Analysis)
	}
	if len(got.RecommendedActions) != 2 {
		t.Errorf("expected 2 actions, got %d", len(got.RecommendedActions))
	}
}

func TestGetMoodHistoryOrderAndWindow(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()
	seedUser(t, store, 1)

	now := time.Now()
	entries := []struct {
		id    string
		level int
		ago   int
	}{
		{"old", 3, 40}, // outside the 30-day window
		{"mid", 5, 10},
		{"recent", 7, 1},
	}
	for _, e := range entries {
		ts := now.AddDate(0, 0, -e.ago)
		checkIn := &types.MoodCheckIn{ID: e.id, UserID: 1, Level: e.level, Timestamp: ts}
		if err := store.UpsertCheckIn(ctx, checkIn, ts.Format("2006-01-02")); err != nil {
			t.Fatalf("UpsertCheckIn %s failed: %v", e.id, err)
		}
	}

	history, err := store.GetMoodHistory(ctx, 1, 30)
	if err != nil {
		t.Fatalf("GetMoodHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 check-ins inside the window, got %d", len(history))
	}
	if history[0].ID != "recent" || history[1].ID != "mid" {
		t.Errorf("expected newest-first ordering, got %s, %s", history[0].ID, history[1].ID)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// STATS TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestGetStatsZeroValueForNewUser(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	stats, err := store.GetStats(context.Background(), 77)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.UserID != 77 || stats.TotalCheckIns != 0 {
		t.Errorf("expected zero-valued stats, got %+v", stats)
	}
}

func TestUpsertStatsRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()
	seedUser(t, store, 1)

	now := time.Now()
	stats := &types.UserStats{
		UserID:           1,
		TotalCheckIns:    3,
		AverageMood:      6.0,
		StreakDays:       3,
		LastCheckInAt:    &now,
		LastCheckInLevel: 8,
	}
	if err := store.UpsertStats(ctx, stats); err != nil {
		t.Fatalf("UpsertStats failed: %v", err)
	}

	got, err := store.GetStats(ctx, 1)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if got.TotalCheckIns != 3 || got.AverageMood != 6.0 || got.LastCheckInLevel != 8 {
		t.Errorf("stats did not round-trip: %+v", got)
	}
	if got.LastCheckInAt == nil {
		t.Error("LastCheckInAt lost")
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// CHAT TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestAppendChatBumpsCounters(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()
	seedUser(t, store, 1)

	records := []*types.AIChatRecord{
		{ID: "c1", UserID: 1, Message: "hi", Response: "hello", ProviderUsed: "gemini", Timestamp: time.Now()},
		{ID: "c2", UserID: 1, Message: "voice", Response: "ok", ProviderUsed: "offline", IsVoice: true, Timestamp: time.Now()},
	}
	for _, r := range records {
		if err := store.AppendChat(ctx, r); err != nil {
			t.Fatalf("AppendChat failed: %v", err)
		}
	}

	stats, err := store.GetStats(ctx, 1)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.ChatCount != 2 {
		t.Errorf("expected chat_count 2, got %d", stats.ChatCount)
	}
	if stats.VoiceChatCount != 1 {
		t.Errorf("expected voice_chat_count 1, got %d", stats.VoiceChatCount)
	}

	history, err := store.GetChatHistory(ctx, 1, 10)
	if err != nil {
		t.Fatalf("GetChatHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("expected 2 chat records, got %d", len(history))
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// RECOMMENDATION CATALOG TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestSeededRecommendations(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	for _, language := range []string{"uk", "en"} {
		recs, err := store.ListRecommendations(ctx, language, "")
		if err != nil {
			t.Fatalf("ListRecommendations(%s) failed: %v", language, err)
		}
		if len(recs) == 0 {
			t.Errorf("expected seeded recommendations for %s", language)
		}
	}

	breathing, err := store.ListRecommendations(ctx, "uk", "breathing")
	if err != nil {
		t.Fatalf("ListRecommendations category failed: %v", err)
	}
	for _, rec := range breathing {
		if rec.Category != "breathing" {
			t.Errorf("category filter leaked: %+v", rec)
		}
	}
}

func TestMigrateIdempotent(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if err := store.Health(); err != nil {
		t.Errorf("Health failed: %v", err)
	}
}
