// Package stats maintains the per-user mood aggregate and classifies recent
// history into trend and stability bands.
package stats

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/vetsupport/companion/internal/data"
	"github.com/vetsupport/companion/internal/logging"
	"github.com/vetsupport/companion/pkg/types"
)

const (
	// MinTrendPoints is the minimum number of check-ins required before a
	// trend direction is reported instead of insufficient_data.
	MinTrendPoints = 5

	// HistoryWindowDays bounds how far back the report looks.
	HistoryWindowDays = 30

	// RecentWindow is the default size of the recent slice compared against
	// the rest of the window. Halved when fewer than 14 points exist.
	RecentWindow = 7

	// TrendThreshold is the recent-vs-older delta that flips the trend
	// from stable to improving or declining.
	TrendThreshold = 0.5

	// VarianceCeiling separates stable from variable mood.
	VarianceCeiling = 2.0
)

// Engine computes and persists per-user mood statistics.
type Engine struct {
	store *data.Store
	log   *logging.Logger
}

// New creates a stats engine backed by the given store.
func New(store *data.Store, log *logging.Logger) *Engine {
	return &Engine{
		store: store,
		log:   log.WithComponent("stats"),
	}
}

// RecordCheckIn folds a durably stored check-in into the user's aggregate.
// A same-calendar-day resubmission replaces the previous level in the running
// average without touching the count or the streak.
func (e *Engine) RecordCheckIn(ctx context.Context, userID int64, level int, ts time.Time, loc *time.Location) (*types.UserStats, error) {
	if level < types.MoodMin || level > types.MoodMax {
		return nil, fmt.Errorf("level %d out of range", level)
	}
	if loc == nil {
		loc = time.UTC
	}

	stats, err := e.store.GetStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}

	sameDay := false
	gapDays := 0
	if stats.LastCheckInAt != nil {
		gapDays = calendarDaysBetween(*stats.LastCheckInAt, ts, loc)
		sameDay = gapDays == 0
	}

	switch {
	case stats.TotalCheckIns == 0:
		stats.TotalCheckIns = 1
		stats.AverageMood = float64(level)
		stats.StreakDays = 1
	case sameDay:
		// Replace today's contribution in the mean. Count and streak
		// already include today.
		n := float64(stats.TotalCheckIns)
		stats.AverageMood += (float64(level) - float64(stats.LastCheckInLevel)) / n
	default:
		n := float64(stats.TotalCheckIns)
		stats.AverageMood = (stats.AverageMood*n + float64(level)) / (n + 1)
		stats.TotalCheckIns++
		if gapDays == 1 {
			stats.StreakDays++
		} else {
			stats.StreakDays = 1
		}
	}

	stats.LastCheckInAt = &ts
	stats.LastCheckInLevel = level

	if err := e.store.UpsertStats(ctx, stats); err != nil {
		return nil, fmt.Errorf("save stats: %w", err)
	}

	e.log.Debug("recorded check-in for user %d: level=%d avg=%.2f streak=%d",
		userID, level, stats.AverageMood, stats.StreakDays)

	return stats, nil
}

// Report builds the full stats response: the stored aggregate plus trend,
// stability and insights computed from the recent history window.
func (e *Engine) Report(ctx context.Context, user *types.User) (*types.StatsReport, error) {
	stats, err := e.store.GetStats(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}

	history, err := e.store.GetMoodHistory(ctx, user.ID, HistoryWindowDays)
	if err != nil {
		return nil, fmt.Errorf("load mood history: %w", err)
	}

	report := &types.StatsReport{
		UserStats: *stats,
		Trend:     types.TrendInsufficient,
		Stability: types.StabilityStable,
	}

	// History arrives newest first; classification wants chronological order.
	levels := make([]float64, len(history))
	for i, checkIn := range history {
		levels[len(history)-1-i] = float64(checkIn.Level)
	}

	if len(levels) > 0 {
		// Stability is classified over the same recent slice the trend
		// split uses, not the whole window.
		recent := levels

		if len(levels) >= MinTrendPoints {
			window := RecentWindow
			if len(levels) < 14 {
				window = len(levels) / 2
			}

			recent = levels[len(levels)-window:]
			older := levels[:len(levels)-window]

			report.RecentAverage = mean(recent)
			delta := report.RecentAverage - mean(older)

			// A delta of exactly the threshold is still stable.
			switch {
			case delta > TrendThreshold:
				report.Trend = types.TrendImproving
			case delta < -TrendThreshold:
				report.Trend = types.TrendDeclining
			default:
				report.Trend = types.TrendStable
			}
		} else {
			report.RecentAverage = mean(levels)
		}

		report.Variance = variance(recent)
		if report.Variance >= VarianceCeiling {
			report.Stability = types.StabilityVariable
		}

		best, worst := history[0], history[0]
		for _, checkIn := range history[1:] {
			if checkIn.Level > best.Level {
				best = checkIn
			}
			if checkIn.Level < worst.Level {
				worst = checkIn
			}
		}
		report.BestDay = &types.DayMood{Level: best.Level, Timestamp: best.Timestamp}
		report.WorstDay = &types.DayMood{Level: worst.Level, Timestamp: worst.Timestamp}
	}

	report.Insights = buildInsights(report, user.Language)

	return report, nil
}

// calendarDaysBetween returns whole calendar days from a to b in loc.
// Same local date yields 0 regardless of wall-clock distance.
func calendarDaysBetween(a, b time.Time, loc *time.Location) int {
	la, lb := a.In(loc), b.In(loc)
	// Anchor the local dates at UTC midnights so the difference is an exact
	// multiple of 24h even across DST transitions in loc.
	da := time.Date(la.Year(), la.Month(), la.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(lb.Year(), lb.Month(), lb.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// DayKey returns the YYYY-MM-DD key for a timestamp in loc.
func DayKey(ts time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return ts.In(loc).Format("2006-01-02")
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance is the population variance of the sample.
func variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

// round1 keeps reported floats to one decimal place for insight text.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
