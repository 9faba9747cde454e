package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetsupport/companion/internal/data"
	"github.com/vetsupport/companion/internal/logging"
	"github.com/vetsupport/companion/pkg/types"
)

func setupEngine(t *testing.T) (*Engine, *data.Store) {
	t.Helper()
	store, err := data.NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logging.New(&logging.Config{Level: "error"})
	return New(store, log), store
}

func day(daysAgo int) time.Time {
	return time.Now().AddDate(0, 0, -daysAgo)
}

func seedUser(t *testing.T, store *data.Store, userID int64) {
	t.Helper()
	require.NoError(t, store.UpsertUser(context.Background(), &types.User{ID: userID, Language: "en"}))
}

func TestRecordCheckInRunningMean(t *testing.T) {
	engine, store := setupEngine(t)
	seedUser(t, store, 1)
	ctx := context.Background()

	levels := []int{4, 6, 8}
	var stats *types.UserStats
	var err error
	for i, level := range levels {
		stats, err = engine.RecordCheckIn(ctx, 1, level, day(len(levels)-1-i), time.UTC)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, stats.TotalCheckIns)
	assert.InDelta(t, 6.0, stats.AverageMood, 0.0001)
	assert.Equal(t, 3, stats.StreakDays, "consecutive days extend the streak")
	assert.Equal(t, 8, stats.LastCheckInLevel)
}

func TestRecordCheckInStreakReset(t *testing.T) {
	engine, store := setupEngine(t)
	seedUser(t, store, 1)
	ctx := context.Background()

	_, err := engine.RecordCheckIn(ctx, 1, 5, day(4), time.UTC)
	require.NoError(t, err)
	stats, err := engine.RecordCheckIn(ctx, 1, 5, day(0), time.UTC)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.StreakDays, "a gap over one day resets the streak")
	assert.Equal(t, 2, stats.TotalCheckIns)
}

func TestRecordCheckInSameDayReplacement(t *testing.T) {
	engine, store := setupEngine(t)
	seedUser(t, store, 1)
	ctx := context.Background()

	_, err := engine.RecordCheckIn(ctx, 1, 4, day(1), time.UTC)
	require.NoError(t, err)
	_, err = engine.RecordCheckIn(ctx, 1, 6, day(0), time.UTC)
	require.NoError(t, err)

	// Resubmit today with a different level: the mean swaps 6 for 8,
	// count and streak stay put.
	stats, err := engine.RecordCheckIn(ctx, 1, 8, day(0), time.UTC)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalCheckIns)
	assert.Equal(t, 2, stats.StreakDays)
	assert.InDelta(t, 6.0, stats.AverageMood, 0.0001) // (4+8)/2
	assert.Equal(t, 8, stats.LastCheckInLevel)
}

func TestRecordCheckInRejectsOutOfRange(t *testing.T) {
	engine, _ := setupEngine(t)

	for _, level := range []int{0, 11, -3} {
		_, err := engine.RecordCheckIn(context.Background(), 1, level, time.Now(), time.UTC)
		assert.Error(t, err, "level %d", level)
	}
}

func seedHistory(t *testing.T, store *data.Store, userID int64, levels []int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.UpsertUser(ctx, &types.User{ID: userID, Language: "en"}))

	// Oldest first: levels[0] is the oldest day.
	for i, level := range levels {
		ts := day(len(levels) - 1 - i)
		checkIn := &types.MoodCheckIn{
			ID:        DayKey(ts, time.UTC) + "-seed",
			UserID:    userID,
			Level:     level,
			Timestamp: ts,
		}
		require.NoError(t, store.UpsertCheckIn(ctx, checkIn, DayKey(ts, time.UTC)))
	}
}

func TestReportInsufficientData(t *testing.T) {
	engine, store := setupEngine(t)
	seedHistory(t, store, 1, []int{5, 6, 5, 6})

	report, err := engine.Report(context.Background(), &types.User{ID: 1, Language: "en"})
	require.NoError(t, err)

	assert.Equal(t, types.TrendInsufficient, report.Trend)
}

func TestReportImprovingTrend(t *testing.T) {
	engine, store := setupEngine(t)
	seedHistory(t, store, 1, []int{4, 4, 4, 4, 4, 4, 4, 6, 6, 6, 6, 6, 6, 6})

	report, err := engine.Report(context.Background(), &types.User{ID: 1, Language: "en"})
	require.NoError(t, err)

	assert.Equal(t, types.TrendImproving, report.Trend)
	assert.InDelta(t, 6.0, report.RecentAverage, 0.0001)
}

func TestReportDecliningTrend(t *testing.T) {
	engine, store := setupEngine(t)
	seedHistory(t, store, 1, []int{8, 8, 8, 8, 8, 8, 8, 5, 5, 5, 5, 5, 5, 5})

	report, err := engine.Report(context.Background(), &types.User{ID: 1, Language: "en"})
	require.NoError(t, err)

	assert.Equal(t, types.TrendDeclining, report.Trend)
}

func TestReportStableWithinThreshold(t *testing.T) {
	engine, store := setupEngine(t)
	seedHistory(t, store, 1, []int{6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6})

	report, err := engine.Report(context.Background(), &types.User{ID: 1, Language: "en"})
	require.NoError(t, err)

	assert.Equal(t, types.TrendStable, report.Trend)
	assert.Equal(t, types.StabilityStable, report.Stability)
	assert.InDelta(t, 0.0, report.Variance, 0.0001)
}

func TestReportExactThresholdStaysStable(t *testing.T) {
	// 8 points: window 4, older [5 5 5 5] avg 5.0, recent [5 6 5 6] avg 5.5.
	// A delta of exactly 0.5 does not cross the threshold.
	engine, store := setupEngine(t)
	seedHistory(t, store, 1, []int{5, 5, 5, 5, 5, 6, 5, 6})

	report, err := engine.Report(context.Background(), &types.User{ID: 1, Language: "en"})
	require.NoError(t, err)

	assert.Equal(t, types.TrendStable, report.Trend)
}

func TestReportSmallSampleHalvesWindow(t *testing.T) {
	// 6 points: window becomes 3, so recent [7 8 9] vs older [3 3 3].
	engine, store := setupEngine(t)
	seedHistory(t, store, 1, []int{3, 3, 3, 7, 8, 9})

	report, err := engine.Report(context.Background(), &types.User{ID: 1, Language: "en"})
	require.NoError(t, err)

	assert.Equal(t, types.TrendImproving, report.Trend)
	assert.InDelta(t, 8.0, report.RecentAverage, 0.0001)
}

func TestReportVariableStability(t *testing.T) {
	engine, store := setupEngine(t)
	seedHistory(t, store, 1, []int{2, 9, 2, 9, 2, 9, 2, 9, 2, 9})

	report, err := engine.Report(context.Background(), &types.User{ID: 1, Language: "en"})
	require.NoError(t, err)

	assert.Equal(t, types.StabilityVariable, report.Stability)
	assert.GreaterOrEqual(t, report.Variance, VarianceCeiling)
}

func TestReportStabilityUsesRecentWindow(t *testing.T) {
	// Volatile two weeks ago, flat this week: stability reflects the recent
	// window, not the old swings.
	engine, store := setupEngine(t)
	seedHistory(t, store, 1, []int{2, 9, 2, 9, 2, 9, 2, 6, 6, 6, 6, 6, 6, 6})

	report, err := engine.Report(context.Background(), &types.User{ID: 1, Language: "en"})
	require.NoError(t, err)

	assert.Equal(t, types.StabilityStable, report.Stability)
	assert.InDelta(t, 0.0, report.Variance, 0.0001)
}

func TestReportBestAndWorstDay(t *testing.T) {
	engine, store := setupEngine(t)
	seedHistory(t, store, 1, []int{5, 2, 8, 6})

	report, err := engine.Report(context.Background(), &types.User{ID: 1, Language: "en"})
	require.NoError(t, err)

	require.NotNil(t, report.BestDay)
	require.NotNil(t, report.WorstDay)
	assert.Equal(t, 8, report.BestDay.Level)
	assert.Equal(t, 2, report.WorstDay.Level)
}

func TestReportInsightsLocalized(t *testing.T) {
	engine, store := setupEngine(t)
	seedHistory(t, store, 1, []int{4, 4, 4, 4, 4, 4, 4, 6, 6, 6, 6, 6, 6, 6})

	ukReport, err := engine.Report(context.Background(), &types.User{ID: 1, Language: "uk"})
	require.NoError(t, err)
	enReport, err := engine.Report(context.Background(), &types.User{ID: 1, Language: "en"})
	require.NoError(t, err)

	require.NotEmpty(t, ukReport.Insights)
	require.NotEmpty(t, enReport.Insights)
	assert.NotEqual(t, ukReport.Insights[0], enReport.Insights[0])
}

func TestCalendarDaysBetween(t *testing.T) {
	loc := time.UTC
	base := time.Date(2026, 8, 30, 23, 50, 0, 0, loc)

	assert.Equal(t, 0, calendarDaysBetween(base, base.Add(5*time.Minute), loc))
	// Ten minutes later but across midnight is a new calendar day.
	assert.Equal(t, 1, calendarDaysBetween(base, base.Add(15*time.Minute), loc))
	assert.Equal(t, 3, calendarDaysBetween(base, base.AddDate(0, 0, 3), loc))
}

func TestCalendarDaysBetweenSpringForward(t *testing.T) {
	kyiv, err := time.LoadLocation("Europe/Kyiv")
	require.NoError(t, err)

	// Clocks jump forward on 2026-03-29, so that local day is only 23h long.
	// It still counts as one calendar day.
	before := time.Date(2026, 3, 28, 22, 0, 0, 0, kyiv)
	after := time.Date(2026, 3, 29, 22, 0, 0, 0, kyiv)

	assert.Equal(t, 1, calendarDaysBetween(before, after, kyiv))
	assert.Equal(t, 2, calendarDaysBetween(before, after.AddDate(0, 0, 1), kyiv))
}
