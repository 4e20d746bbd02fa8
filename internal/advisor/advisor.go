package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fernwey/atlas-travel-agent/internal/config"
	"github.com/fernwey/atlas-travel-agent/internal/events"
	"github.com/fernwey/atlas-travel-agent/internal/prompts"
	"github.com/fernwey/atlas-travel-agent/internal/usage"
)

// ErrNotConfigured is returned by Answer when no provider is configured.
// Polish never returns it; unpolished drafts ship as-is instead.
var ErrNotConfigured = errors.New("advisor not configured")

// Advisor wraps a provider client with the Atlas persona workflows:
// polishing rendered drafts and answering free-form questions. A nil or
// unconfigured Advisor is safe to call everywhere.
type Advisor struct {
	client   Client
	provider string
	model    string
	timeout  time.Duration
	pricing  map[string]config.PricingEntry
	store    *usage.Store
	bus      *events.Bus
	logger   *slog.Logger
}

// New builds an Advisor from configuration. When cfg names no provider
// the returned Advisor is disabled but usable. store and bus may be nil.
func New(cfg config.AdvisorConfig, store *usage.Store, bus *events.Bus, logger *slog.Logger) (*Advisor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &Advisor{
		model:   cfg.Model,
		timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		pricing: cfg.Pricing,
		store:   store,
		bus:     bus,
		logger:  logger,
	}

	if !cfg.Enabled() {
		logger.Debug("advisor disabled, drafts ship unpolished")
		return a, nil
	}

	switch cfg.Provider {
	case "ollama":
		a.client = NewOllamaClient(cfg.OllamaURL, cfg.MaxTokens, logger)
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("advisor provider anthropic requires api_key")
		}
		a.client = NewAnthropicClient(cfg.APIKey, cfg.MaxTokens, logger)
	default:
		return nil, fmt.Errorf("unknown advisor provider %q", cfg.Provider)
	}
	a.provider = cfg.Provider

	logger.Info("advisor enabled", "provider", a.provider, "model", a.model)
	return a, nil
}

// Enabled reports whether a provider is configured.
func (a *Advisor) Enabled() bool {
	return a != nil && a.client != nil
}

// Provider returns the configured provider name, or "" when disabled.
func (a *Advisor) Provider() string {
	if a == nil {
		return ""
	}
	return a.provider
}

// Model returns the configured model name.
func (a *Advisor) Model() string {
	if a == nil {
		return ""
	}
	return a.model
}

// Polish rewrites a rendered draft into conversational prose. The first
// return value is always usable: when the advisor is disabled, the model
// fails, or the model returns nothing, the draft comes back unchanged.
func (a *Advisor) Polish(ctx context.Context, requestID, conversationID, query, draft string) (string, error) {
	return a.polish(ctx, requestID, conversationID, query, draft, nil)
}

// PolishStream is Polish with incremental tokens delivered to onToken.
func (a *Advisor) PolishStream(ctx context.Context, requestID, conversationID, query, draft string, onToken func(token string)) (string, error) {
	var callback StreamCallback
	if onToken != nil {
		callback = func(ev StreamEvent) {
			if ev.Kind == KindToken {
				onToken(ev.Token)
			}
		}
	}
	return a.polish(ctx, requestID, conversationID, query, draft, callback)
}

func (a *Advisor) polish(ctx context.Context, requestID, conversationID, query, draft string, callback StreamCallback) (string, error) {
	if !a.Enabled() {
		return draft, nil
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	messages := []Message{
		{Role: "system", Content: prompts.BaseSystemPrompt()},
		{Role: "user", Content: prompts.PolishPrompt(query, draft)},
	}

	start := time.Now()
	resp, err := a.client.ChatStream(ctx, a.model, messages, nil, callback)
	if err != nil {
		a.logger.Warn("polish failed, shipping draft", "error", err)
		return draft, fmt.Errorf("polish: %w", err)
	}
	a.record(ctx, requestID, conversationID, "polish", resp, time.Since(start))

	polished := strings.TrimSpace(resp.Message.Content)
	if polished == "" {
		return draft, nil
	}
	return polished, nil
}

// Answer responds to a free-form question with the Atlas persona. Unlike
// Polish there is no draft to fall back on, so callers should check
// Enabled first and keep their own canned fallback.
func (a *Advisor) Answer(ctx context.Context, requestID, conversationID, query string) (string, error) {
	if !a.Enabled() {
		return "", ErrNotConfigured
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	messages := []Message{
		{Role: "system", Content: prompts.BaseSystemPrompt()},
		{Role: "user", Content: query},
	}

	start := time.Now()
	resp, err := a.client.Chat(ctx, a.model, messages, nil)
	if err != nil {
		return "", fmt.Errorf("answer: %w", err)
	}
	a.record(ctx, requestID, conversationID, "chat", resp, time.Since(start))

	return strings.TrimSpace(resp.Message.Content), nil
}

// Ping reports provider reachability. Disabled advisors are trivially
// healthy.
func (a *Advisor) Ping(ctx context.Context) error {
	if !a.Enabled() {
		return nil
	}
	return a.client.Ping(ctx)
}

func (a *Advisor) record(ctx context.Context, requestID, conversationID, role string, resp *ChatResponse, elapsed time.Duration) {
	model := resp.Model
	if model == "" {
		model = a.model
	}
	cost := usage.ComputeCost(model, resp.InputTokens, resp.OutputTokens, a.pricing)

	if a.store != nil {
		rec := usage.Record{
			RequestID:      requestID,
			ConversationID: conversationID,
			Provider:       a.provider,
			Model:          model,
			InputTokens:    resp.InputTokens,
			OutputTokens:   resp.OutputTokens,
			CostUSD:        cost,
			Role:           role,
		}
		if err := a.store.Record(ctx, rec); err != nil {
			a.logger.Warn("record advisor usage", "error", err)
		}
	}

	a.bus.Publish(events.Event{
		Timestamp: time.Now(),
		Source:    events.SourceAdvisor,
		Kind:      events.KindAdvisorCall,
		Data: map[string]any{
			"provider":      a.provider,
			"model":         model,
			"role":          role,
			"input_tokens":  resp.InputTokens,
			"output_tokens": resp.OutputTokens,
			"cost_usd":      cost,
			"duration_ms":   elapsed.Milliseconds(),
		},
	})
}
