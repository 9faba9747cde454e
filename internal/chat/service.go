// Package chat routes user messages through crisis screening, the AI
// orchestrator and the chat log.
package chat

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vetsupport/companion/internal/crisis"
	"github.com/vetsupport/companion/internal/data"
	"github.com/vetsupport/companion/internal/logging"
	"github.com/vetsupport/companion/internal/notify"
	"github.com/vetsupport/companion/internal/orchestrator"
	"github.com/vetsupport/companion/pkg/types"
)

// Exchange is the full outcome of one chat turn.
type Exchange struct {
	Response     string             `json:"response"`
	ProviderUsed string             `json:"provider_used"`
	Crisis       types.CrisisSignal `json:"crisis"`
	Record       *types.AIChatRecord `json:"-"`
}

// Service handles one chat turn end to end.
type Service struct {
	store    *data.Store
	orch     *orchestrator.Orchestrator
	detector crisis.Detector
	notifier notify.Notifier
	stats    StatsSource
	log      *logging.Logger
}

// StatsSource supplies the mood context fed into the orchestrator prompt.
// The stats engine satisfies it; tests stub it.
type StatsSource interface {
	Report(ctx context.Context, user *types.User) (*types.StatsReport, error)
}

// New creates the chat service.
func New(store *data.Store, orch *orchestrator.Orchestrator, detector crisis.Detector, notifier notify.Notifier, statsSource StatsSource, log *logging.Logger) *Service {
	return &Service{
		store:    store,
		orch:     orch,
		detector: detector,
		notifier: notifier,
		stats:    statsSource,
		log:      log.WithComponent("chat"),
	}
}

// Handle runs one chat turn: screen for crisis language, build mood context,
// get a response, persist the exchange, and alert the admin sink when the
// message needs immediate attention. Screening failures are logged and
// treated as no-signal so a detector bug can never block the conversation.
func (s *Service) Handle(ctx context.Context, user *types.User, message string, isVoice bool) (*Exchange, error) {
	signal, err := s.detector.Detect(message)
	if err != nil {
		s.log.Err(err, "crisis detection failed for user %d", user.ID)
		signal = types.CrisisSignal{}
	}

	uctx := s.buildContext(ctx, user)

	reply := s.orch.Respond(ctx, message, uctx, user.Language)

	record := &types.AIChatRecord{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		Message:      message,
		Response:     reply.Text,
		ProviderUsed: reply.ProviderUsed,
		IsVoice:      isVoice,
		CrisisFlag:   signal.Detected,
		Timestamp:    time.Now(),
	}

	if err := s.store.AppendChat(ctx, record); err != nil {
		return nil, err
	}

	if signal.RequiresImmediateAttention {
		s.notifier.Notify(ctx, &notify.CrisisAlert{
			Channel:      "chat",
			UserID:       user.ID,
			Confidence:   signal.Confidence,
			MatchedTerms: signal.MatchedTerms,
			Excerpt:      crisis.Excerpt(message),
			Timestamp:    record.Timestamp.UTC().Format(time.RFC3339),
		})
	}

	return &Exchange{
		Response:     reply.Text,
		ProviderUsed: reply.ProviderUsed,
		Crisis:       signal,
		Record:       record,
	}, nil
}

// buildContext assembles the prompt context from the user's aggregate.
// Missing stats degrade to an empty context rather than failing the turn.
func (s *Service) buildContext(ctx context.Context, user *types.User) orchestrator.UserContext {
	uctx := orchestrator.UserContext{IsVeteran: user.IsVeteran}

	report, err := s.stats.Report(ctx, user)
	if err != nil {
		s.log.Err(err, "stats lookup failed for user %d", user.ID)
		return uctx
	}

	if report.LastCheckInAt != nil {
		level := report.LastCheckInLevel
		uctx.CurrentMood = &level
	}
	if report.Trend != types.TrendInsufficient {
		uctx.MoodTrend = report.Trend
	}

	return uctx
}
