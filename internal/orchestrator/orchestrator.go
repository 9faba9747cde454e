// Package orchestrator routes free-text messages through an ordered chain of
// generative-AI providers with deterministic offline fallback.
//
// Every public method follows the same discipline: try each configured
// provider in order under a bounded per-call timeout, take the first success,
// and degrade to localized canned content when the chain is exhausted. None
// of the methods ever return an error to the caller: total provider failure
// is a quality downgrade, not a pipeline failure.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/vetsupport/companion/internal/llm"
	"github.com/vetsupport/companion/internal/logging"
	"github.com/vetsupport/companion/pkg/types"
)

// Token and temperature budgets per operation.
const (
	respondMaxTokens   = 500
	analysisMaxTokens  = 300
	recommendMaxTokens = 400

	respondTemperature   = 0.7
	analysisTemperature  = 0.5
	recommendTemperature = 0.7
)

// MaxRecommendations caps the list returned by Recommend.
const MaxRecommendations = 5

var errAllProvidersFailed = errors.New("all providers failed")

// UserContext carries the per-user fields interpolated into the system prompt.
type UserContext struct {
	CurrentMood *int
	IsVeteran   bool
	MoodTrend   types.Trend
}

// Reply is the result of Respond.
type Reply struct {
	Text         string `json:"text"`
	ProviderUsed string `json:"provider_used"`
}

// Orchestrator iterates the configured provider chain.
type Orchestrator struct {
	providers []llm.Provider
	timeout   time.Duration
	log       *logging.Logger
}

// New creates an Orchestrator over an ordered provider chain. The timeout
// bounds each individual provider call; exceeding it counts as a failure
// and advances to the next provider.
func New(providers []llm.Provider, timeout time.Duration, log *logging.Logger) *Orchestrator {
	return &Orchestrator{
		providers: providers,
		timeout:   timeout,
		log:       log.WithComponent("orchestrator"),
	}
}

// Respond generates a supportive chat reply. The system prompt is built from
// the language template plus the user context. If every provider fails the
// localized offline text (which carries the crisis hotline numbers) is
// returned with ProviderUsed = "offline"; this method never fails.
func (o *Orchestrator) Respond(ctx context.Context, message string, uctx UserContext, language string) *Reply {
	req := &llm.GenerateRequest{
		SystemPrompt: systemPrompt(language, uctx),
		Prompt:       message,
		MaxTokens:    respondMaxTokens,
		Temperature:  respondTemperature,
	}

	text, provider, err := o.generate(ctx, req)
	if err != nil {
		return &Reply{Text: offlineResponse(language), ProviderUsed: llm.OfflineName}
	}

	return &Reply{Text: text, ProviderUsed: provider}
}

// AnalyzeNote produces a short structured analysis of a check-in note.
// Provider output is parsed as JSON; unparseable output is wrapped into the
// minimal expected shape rather than discarded. On total provider failure a
// deterministic canned analysis keyed by mood bucket is returned, so a
// check-in can never fail because the AI layer is unavailable.
func (o *Orchestrator) AnalyzeNote(ctx context.Context, note string, level int, language string) *types.MoodAnalysis {
	req := &llm.GenerateRequest{
		Prompt:      analysisPrompt(note, level, language),
		MaxTokens:   analysisMaxTokens,
		Temperature: analysisTemperature,
	}

	text, _, err := o.generate(ctx, req)
	if err != nil {
		return fallbackAnalysis(level, language)
	}

	return parseAnalysis(text)
}

// Recommend returns 3-5 practical activity suggestions for the given mood.
// List items are extracted from free-text provider output by stripping
// leading bullet/numbering markers; the deterministic fallback returns
// pre-structured lists and skips that step.
func (o *Orchestrator) Recommend(ctx context.Context, level int, note, language string) []string {
	req := &llm.GenerateRequest{
		Prompt:      recommendationsPrompt(level, note, language),
		MaxTokens:   recommendMaxTokens,
		Temperature: recommendTemperature,
	}

	text, _, err := o.generate(ctx, req)
	if err != nil {
		return fallbackRecommendations(level, language)
	}

	items := parseList(text)
	if len(items) == 0 {
		// Unstructured output still beats nothing.
		items = []string{text}
	}
	if len(items) > MaxRecommendations {
		items = items[:MaxRecommendations]
	}
	return items
}

// generate walks the provider chain and returns the first successful
// completion together with the provider's name.
func (o *Orchestrator) generate(ctx context.Context, req *llm.GenerateRequest) (string, string, error) {
	for _, provider := range o.providers {
		if !provider.Available() {
			o.log.Debug("skipping unconfigured provider %s", provider.Name())
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		resp, err := provider.Generate(callCtx, req)
		cancel()

		if err != nil {
			o.log.WithField("provider", provider.Name()).Warn("provider call failed: %v", err)
			continue
		}
		if resp.Text == "" {
			o.log.WithField("provider", provider.Name()).Warn("provider returned empty completion")
			continue
		}

		return resp.Text, provider.Name(), nil
	}

	return "", "", errAllProvidersFailed
}
