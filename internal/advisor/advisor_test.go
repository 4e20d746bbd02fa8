package advisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fernwey/atlas-travel-agent/internal/config"
	"github.com/fernwey/atlas-travel-agent/internal/events"
	"github.com/fernwey/atlas-travel-agent/internal/usage"
)

// fakeClient records what it was asked and replays a canned response.
type fakeClient struct {
	resp         *ChatResponse
	err          error
	streamTokens []string

	gotModel    string
	gotMessages []Message
}

func (f *fakeClient) Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error) {
	return f.ChatStream(ctx, model, messages, tools, nil)
}

func (f *fakeClient) ChatStream(ctx context.Context, model string, messages []Message, tools []map[string]any, callback StreamCallback) (*ChatResponse, error) {
	f.gotModel = model
	f.gotMessages = messages
	if f.err != nil {
		return nil, f.err
	}
	if callback != nil {
		for _, tok := range f.streamTokens {
			callback(StreamEvent{Kind: KindToken, Token: tok})
		}
		callback(StreamEvent{Kind: KindDone, Response: f.resp})
	}
	return f.resp, nil
}

func (f *fakeClient) Ping(ctx context.Context) error {
	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAdvisor(client Client) *Advisor {
	return &Advisor{
		client:   client,
		provider: "ollama",
		model:    "qwen3:4b",
		logger:   discardLogger(),
	}
}

func TestNewDisabled(t *testing.T) {
	cfg := config.AdvisorConfig{Model: "qwen3:4b", TimeoutSec: 5}

	a, err := New(cfg, nil, nil, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Enabled() {
		t.Error("Enabled() = true for empty provider")
	}

	got, err := a.Polish(context.Background(), "req-1", "conv-1", "北京3日游", "草稿内容")
	if err != nil {
		t.Errorf("Polish error: %v", err)
	}
	if got != "草稿内容" {
		t.Errorf("Polish = %q, want draft unchanged", got)
	}

	if _, err := a.Answer(context.Background(), "req-1", "conv-1", "你好"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Answer error = %v, want ErrNotConfigured", err)
	}
	if err := a.Ping(context.Background()); err != nil {
		t.Errorf("Ping = %v, want nil when disabled", err)
	}
}

func TestNilAdvisorSafe(t *testing.T) {
	var a *Advisor

	if a.Enabled() {
		t.Error("nil Advisor must not be enabled")
	}
	if a.Provider() != "" || a.Model() != "" {
		t.Error("nil Advisor accessors should return empty strings")
	}

	got, err := a.Polish(context.Background(), "", "", "查攻略", "原样草稿")
	if err != nil || got != "原样草稿" {
		t.Errorf("Polish = %q, %v; want draft, nil", got, err)
	}
	if _, err := a.Answer(context.Background(), "", "", "你好"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Answer error = %v, want ErrNotConfigured", err)
	}
	if err := a.Ping(context.Background()); err != nil {
		t.Errorf("Ping = %v, want nil", err)
	}
}

func TestNewOllama(t *testing.T) {
	cfg := config.AdvisorConfig{
		Provider:   "ollama",
		Model:      "qwen3:4b",
		OllamaURL:  "http://localhost:11434",
		TimeoutSec: 30,
	}

	a, err := New(cfg, nil, nil, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !a.Enabled() {
		t.Error("Enabled() = false, want true")
	}
	if a.Provider() != "ollama" {
		t.Errorf("Provider() = %q", a.Provider())
	}
	if a.Model() != "qwen3:4b" {
		t.Errorf("Model() = %q", a.Model())
	}
}

func TestNewAnthropicRequiresKey(t *testing.T) {
	cfg := config.AdvisorConfig{Provider: "anthropic", Model: "claude-sonnet-4-20250514"}

	if _, err := New(cfg, nil, nil, discardLogger()); err == nil {
		t.Fatal("expected error for anthropic without api_key")
	}
}

func TestNewUnknownProvider(t *testing.T) {
	cfg := config.AdvisorConfig{Provider: "openai", Model: "gpt-4o"}

	_, err := New(cfg, nil, nil, discardLogger())
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "openai") {
		t.Errorf("error %q should name the provider", err)
	}
}

func TestPolishRewrites(t *testing.T) {
	fake := &fakeClient{
		resp: &ChatResponse{
			Message: Message{Role: "assistant", Content: "  为您优化后的北京行程安排。\n"},
			Done:    true,
		},
	}
	a := testAdvisor(fake)

	got, err := a.Polish(context.Background(), "req-1", "conv-1", "帮我规划北京3日游", "第1天：故宫。第2天：长城。")
	if err != nil {
		t.Fatalf("Polish: %v", err)
	}
	if got != "为您优化后的北京行程安排。" {
		t.Errorf("Polish = %q, want trimmed reply", got)
	}

	if fake.gotModel != "qwen3:4b" {
		t.Errorf("model = %q", fake.gotModel)
	}
	if len(fake.gotMessages) != 2 {
		t.Fatalf("messages = %d, want system + user", len(fake.gotMessages))
	}
	if fake.gotMessages[0].Role != "system" || !strings.Contains(fake.gotMessages[0].Content, "Atlas") {
		t.Errorf("system message = %+v", fake.gotMessages[0])
	}
	user := fake.gotMessages[1]
	if user.Role != "user" {
		t.Errorf("user message role = %q", user.Role)
	}
	if !strings.Contains(user.Content, "帮我规划北京3日游") {
		t.Error("user message should carry the original query")
	}
	if !strings.Contains(user.Content, "第1天：故宫。第2天：长城。") {
		t.Error("user message should carry the draft")
	}
}

func TestPolishEmptyReply(t *testing.T) {
	fake := &fakeClient{
		resp: &ChatResponse{Message: Message{Role: "assistant", Content: "  \n"}, Done: true},
	}
	a := testAdvisor(fake)

	got, err := a.Polish(context.Background(), "req-1", "conv-1", "查天气", "三亚今天晴。")
	if err != nil {
		t.Fatalf("Polish: %v", err)
	}
	if got != "三亚今天晴。" {
		t.Errorf("Polish = %q, want draft when model returns nothing", got)
	}
}

func TestPolishErrorShipsDraft(t *testing.T) {
	fake := &fakeClient{err: errors.New("connection refused")}
	a := testAdvisor(fake)

	got, err := a.Polish(context.Background(), "req-1", "conv-1", "查天气", "三亚今天晴。")
	if err == nil {
		t.Fatal("expected error")
	}
	if got != "三亚今天晴。" {
		t.Errorf("Polish = %q, must still return the draft on error", got)
	}
}

func TestPolishRecordsUsage(t *testing.T) {
	store, err := usage.NewStore(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	fake := &fakeClient{
		resp: &ChatResponse{
			Model:        "claude-sonnet-4-20250514",
			Message:      Message{Role: "assistant", Content: "润色结果"},
			Done:         true,
			InputTokens:  1000,
			OutputTokens: 500,
		},
	}
	a := testAdvisor(fake)
	a.provider = "anthropic"
	a.store = store
	a.pricing = map[string]config.PricingEntry{
		"claude-sonnet-4-20250514": {InputPerMillion: 3, OutputPerMillion: 15},
	}

	if _, err := a.Polish(context.Background(), "req-9", "conv-9", "问题", "草稿"); err != nil {
		t.Fatalf("Polish: %v", err)
	}

	now := time.Now().UTC()
	sum, err := store.Summary(now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.TotalRecords != 1 {
		t.Fatalf("TotalRecords = %d, want 1", sum.TotalRecords)
	}
	if sum.TotalInputTokens != 1000 || sum.TotalOutputTokens != 500 {
		t.Errorf("tokens = %d/%d, want 1000/500", sum.TotalInputTokens, sum.TotalOutputTokens)
	}
	// 1000 in at $3/M plus 500 out at $15/M
	wantCost := 0.0105
	if diff := sum.TotalCostUSD - wantCost; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("TotalCostUSD = %v, want %v", sum.TotalCostUSD, wantCost)
	}
}

func TestPolishPublishesEvent(t *testing.T) {
	bus := events.New()
	ch := bus.Subscribe(4)
	defer bus.Unsubscribe(ch)

	fake := &fakeClient{
		resp: &ChatResponse{
			Message:      Message{Role: "assistant", Content: "润色结果"},
			Done:         true,
			InputTokens:  10,
			OutputTokens: 5,
		},
	}
	a := testAdvisor(fake)
	a.bus = bus

	if _, err := a.Polish(context.Background(), "req-1", "conv-1", "问题", "草稿"); err != nil {
		t.Fatalf("Polish: %v", err)
	}

	select {
	case ev := <-ch:
		if ev.Source != events.SourceAdvisor {
			t.Errorf("Source = %q", ev.Source)
		}
		if ev.Kind != events.KindAdvisorCall {
			t.Errorf("Kind = %q", ev.Kind)
		}
		if ev.Data["role"] != "polish" {
			t.Errorf("role = %v, want polish", ev.Data["role"])
		}
		if ev.Data["input_tokens"] != 10 {
			t.Errorf("input_tokens = %v", ev.Data["input_tokens"])
		}
	default:
		t.Fatal("no event published")
	}
}

func TestAnswer(t *testing.T) {
	bus := events.New()
	ch := bus.Subscribe(4)
	defer bus.Unsubscribe(ch)

	fake := &fakeClient{
		resp: &ChatResponse{
			Message: Message{Role: "assistant", Content: " 您好，我是 Atlas。\n"},
			Done:    true,
		},
	}
	a := testAdvisor(fake)
	a.bus = bus

	got, err := a.Answer(context.Background(), "req-1", "conv-1", "你是谁？")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got != "您好，我是 Atlas。" {
		t.Errorf("Answer = %q", got)
	}
	if len(fake.gotMessages) != 2 || fake.gotMessages[1].Content != "你是谁？" {
		t.Errorf("messages = %+v", fake.gotMessages)
	}

	select {
	case ev := <-ch:
		if ev.Data["role"] != "chat" {
			t.Errorf("role = %v, want chat", ev.Data["role"])
		}
	default:
		t.Fatal("no event published")
	}
}

func TestPolishStreamTokens(t *testing.T) {
	fake := &fakeClient{
		resp:         &ChatResponse{Message: Message{Role: "assistant", Content: "为您规划"}, Done: true},
		streamTokens: []string{"为", "您", "规划"},
	}
	a := testAdvisor(fake)

	var tokens []string
	got, err := a.PolishStream(context.Background(), "req-1", "conv-1", "问题", "草稿", func(token string) {
		tokens = append(tokens, token)
	})
	if err != nil {
		t.Fatalf("PolishStream: %v", err)
	}
	if got != "为您规划" {
		t.Errorf("PolishStream = %q", got)
	}
	if len(tokens) != 3 || tokens[0] != "为" || tokens[2] != "规划" {
		t.Errorf("tokens = %v", tokens)
	}
}

func TestPingEnabled(t *testing.T) {
	a := testAdvisor(&fakeClient{})
	if err := a.Ping(context.Background()); err != nil {
		t.Errorf("Ping = %v", err)
	}

	a = testAdvisor(&fakeClient{err: errors.New("unreachable")})
	if err := a.Ping(context.Background()); err == nil {
		t.Error("Ping should surface client error")
	}
}
