// Package checkin implements the daily mood check-in flow as a per-user
// state machine: Idle -> AwaitingLevel -> AwaitingNote -> Completed.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vetsupport/companion/internal/data"
	"github.com/vetsupport/companion/internal/logging"
	"github.com/vetsupport/companion/internal/orchestrator"
	"github.com/vetsupport/companion/internal/stats"
	"github.com/vetsupport/companion/pkg/types"
)

// State names the check-in flow positions.
type State string

const (
	StateIdle          State = "idle"
	StateAwaitingLevel State = "awaiting_level"
	StateAwaitingNote  State = "awaiting_note"
)

// ErrNoSession is returned when a step arrives for a user with no
// in-progress check-in.
var ErrNoSession = errors.New("no check-in in progress")

// ValidationError reports client input that failed validation. Callers map
// it to a 4xx response instead of a server failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// session is a single user's in-progress check-in.
type session struct {
	state     State
	level     int
	startedAt time.Time
}

// Result is the outcome of a completed check-in.
type Result struct {
	CheckIn *types.MoodCheckIn `json:"check_in"`
	Stats   *types.UserStats   `json:"stats"`
	// Existing is set when Begin finds today's check-in already stored.
	Existing bool `json:"existing,omitempty"`
	// LowMoodSupport marks completions at level <= 3 so callers can surface
	// extra support content.
	LowMoodSupport bool `json:"low_mood_support,omitempty"`
}

// Service drives the check-in state machine and persists completions.
type Service struct {
	store *data.Store
	stats *stats.Engine
	orch  *orchestrator.Orchestrator
	log   *logging.Logger

	mu       sync.Mutex
	sessions map[int64]*session
	// userLocks serializes the persist+aggregate step per user so concurrent
	// submissions cannot interleave between the check-in write and the
	// stats update.
	userLocks sync.Map
}

// New creates the check-in service.
func New(store *data.Store, statsEngine *stats.Engine, orch *orchestrator.Orchestrator, log *logging.Logger) *Service {
	return &Service{
		store:    store,
		stats:    statsEngine,
		orch:     orch,
		log:      log.WithComponent("checkin"),
		sessions: make(map[int64]*session),
	}
}

func (s *Service) userLock(userID int64) *sync.Mutex {
	lock, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func userLocation(user *types.User) *time.Location {
	if user.Timezone != "" {
		if loc, err := time.LoadLocation(user.Timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

// Begin starts a check-in for the user. If today's check-in already exists it
// is returned with Existing set and a fresh session is still opened, so the
// user can overwrite the earlier entry.
func (s *Service) Begin(ctx context.Context, user *types.User) (*Result, error) {
	loc := userLocation(user)
	day := stats.DayKey(time.Now(), loc)

	existing, err := s.store.GetCheckInForDay(ctx, user.ID, day)
	if err != nil && !errors.Is(err, data.ErrNotFound) {
		return nil, fmt.Errorf("look up today's check-in: %w", err)
	}

	s.mu.Lock()
	s.sessions[user.ID] = &session{state: StateAwaitingLevel, startedAt: time.Now()}
	s.mu.Unlock()

	result := &Result{}
	if existing != nil {
		result.CheckIn = existing
		result.Existing = true
	}

	return result, nil
}

// State returns the user's current flow position.
func (s *Service) State(userID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess.state
	}
	return StateIdle
}

// SubmitLevel records the mood level and advances to the note step.
func (s *Service) SubmitLevel(ctx context.Context, user *types.User, level int) error {
	if level < types.MoodMin || level > types.MoodMax {
		return &ValidationError{
			Field:  "level",
			Reason: fmt.Sprintf("must be between %d and %d, got %d", types.MoodMin, types.MoodMax, level),
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[user.ID]
	if !ok || sess.state != StateAwaitingLevel {
		return ErrNoSession
	}

	sess.level = level
	sess.state = StateAwaitingNote

	return nil
}

// SubmitNote finalizes the check-in with an optional free-text note.
// The record is persisted and folded into the aggregate first; AI analysis
// and recommendations are best-effort enrichment after the durable write.
func (s *Service) SubmitNote(ctx context.Context, user *types.User, note string) (*Result, error) {
	s.mu.Lock()
	sess, ok := s.sessions[user.ID]
	if !ok || sess.state != StateAwaitingNote {
		s.mu.Unlock()
		return nil, ErrNoSession
	}
	level := sess.level
	delete(s.sessions, user.ID)
	s.mu.Unlock()

	loc := userLocation(user)
	now := time.Now()
	day := stats.DayKey(now, loc)

	checkIn := &types.MoodCheckIn{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Level:     level,
		Note:      note,
		Timestamp: now,
	}

	// Enrichment never blocks persistence: failures fall back to the
	// orchestrator's canned content, and a persistence failure below
	// discards the enrichment along with the record. A skipped note gets
	// no analysis; recommendations are produced either way.
	if note != "" {
		checkIn.Analysis = s.orch.AnalyzeNote(ctx, note, level, user.Language)
	}
	checkIn.RecommendedActions = s.orch.Recommend(ctx, level, note, user.Language)

	lock := s.userLock(user.ID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.store.UpsertCheckIn(ctx, checkIn, day); err != nil {
		return nil, fmt.Errorf("store check-in: %w", err)
	}

	userStats, err := s.stats.RecordCheckIn(ctx, user.ID, level, now, loc)
	if err != nil {
		return nil, fmt.Errorf("update stats: %w", err)
	}

	s.log.Info("check-in completed for user %d: level=%d streak=%d", user.ID, level, userStats.StreakDays)

	return &Result{
		CheckIn:        checkIn,
		Stats:          userStats,
		LowMoodSupport: level <= types.LowMoodCeiling,
	}, nil
}

// Cancel discards an in-progress check-in. Cancelling with no session is a
// no-op so the client can always reset.
func (s *Service) Cancel(userID int64) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}
