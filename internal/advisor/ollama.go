package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fernwey/atlas-travel-agent/internal/httpkit"
)

// OllamaClient is a client for the Ollama chat API.
type OllamaClient struct {
	baseURL    string
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOllamaClient creates a new Ollama client. maxTokens caps the reply
// length via num_predict; zero leaves the model default in place.
func NewOllamaClient(baseURL string, maxTokens int, logger *slog.Logger) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Local models can sit in a load or generation phase for a long time
	// before the first byte arrives. Allow a generous header timeout and
	// leave total-request timing to ctx deadlines.
	t := httpkit.NewTransport()
	t.ResponseHeaderTimeout = 120 * time.Second

	return &OllamaClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		maxTokens: maxTokens,
		logger:    logger.With("provider", "ollama"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(0),
			httpkit.WithTransport(t),
		),
	}
}

// ollamaChatRequest is the request format for the Ollama chat API.
type ollamaChatRequest struct {
	Model    string           `json:"model"`
	Messages []Message        `json:"messages"`
	Stream   bool             `json:"stream"`
	Tools    []map[string]any `json:"tools,omitempty"`
	Options  *ollamaOptions   `json:"options,omitempty"`
}

// ollamaOptions are model parameters.
type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// ollamaWireResponse is the raw chat payload from Ollama. Durations are
// nanosecond integers and created_at is an RFC 3339 string on the wire;
// toChatResponse converts both to proper Go types.
type ollamaWireResponse struct {
	Model     string  `json:"model"`
	CreatedAt string  `json:"created_at"`
	Message   Message `json:"message"`
	Done      bool    `json:"done"`

	// Usage stats (when done=true)
	TotalDuration      int64 `json:"total_duration,omitempty"`
	LoadDuration       int64 `json:"load_duration,omitempty"`
	PromptEvalCount    int   `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64 `json:"prompt_eval_duration,omitempty"`
	EvalCount          int   `json:"eval_count,omitempty"`
	EvalDuration       int64 `json:"eval_duration,omitempty"`
}

func (w *ollamaWireResponse) toChatResponse() *ChatResponse {
	resp := &ChatResponse{
		Model:         w.Model,
		Message:       w.Message,
		Done:          w.Done,
		InputTokens:   w.PromptEvalCount,
		OutputTokens:  w.EvalCount,
		TotalDuration: time.Duration(w.TotalDuration),
		LoadDuration:  time.Duration(w.LoadDuration),
		EvalDuration:  time.Duration(w.EvalDuration),
	}
	if w.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339Nano, w.CreatedAt); err == nil {
			resp.CreatedAt = ts
		}
	}
	return resp
}

// Chat sends a non-streaming chat completion request.
func (c *OllamaClient) Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error) {
	return c.ChatStream(ctx, model, messages, tools, nil)
}

// ChatStream sends a chat request, optionally streaming tokens via callback.
func (c *OllamaClient) ChatStream(ctx context.Context, model string, messages []Message, tools []map[string]any, callback StreamCallback) (*ChatResponse, error) {
	stream := callback != nil

	req := ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   stream,
		Tools:    tools,
	}
	if c.maxTokens > 0 {
		req.Options = &ollamaOptions{NumPredict: c.maxTokens}
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Log(ctx, LevelTrace, "request payload", "json", string(jsonData))

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 4096)
		c.logger.Error("API error", "status", resp.StatusCode, "body", errBody)
		return nil, fmt.Errorf("ollama API error %d: %s", resp.StatusCode, errBody)
	}

	validTools := extractToolNames(tools)

	if !stream {
		var wire ollamaWireResponse
		if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		final := wire.toChatResponse()
		recoverTextToolCalls(final, validTools)
		return final, nil
	}

	// Streaming: newline-delimited JSON chunks, done=true on the last one.
	var (
		finalWire      ollamaWireResponse
		contentBuilder strings.Builder
		toolCalls      []ToolCall
	)
	decoder := json.NewDecoder(resp.Body)
	for {
		var chunk ollamaWireResponse
		if err := decoder.Decode(&chunk); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("decode stream chunk: %w", err)
		}

		if chunk.Message.Content != "" {
			contentBuilder.WriteString(chunk.Message.Content)
			callback(StreamEvent{Kind: KindToken, Token: chunk.Message.Content})
		}

		// Tool calls arrive on the closing chunks.
		for i := range chunk.Message.ToolCalls {
			tc := chunk.Message.ToolCalls[i]
			callback(StreamEvent{Kind: KindToolCallStart, ToolCall: &tc})
			toolCalls = append(toolCalls, tc)
		}

		if chunk.Done {
			finalWire = chunk
			break
		}
	}

	final := finalWire.toChatResponse()
	final.Message.Role = "assistant"
	final.Message.Content = contentBuilder.String()
	final.Message.ToolCalls = toolCalls
	recoverTextToolCalls(final, validTools)

	c.logger.Debug("stream complete",
		"model", final.Model,
		"input_tokens", final.InputTokens,
		"output_tokens", final.OutputTokens,
		"content_len", len(final.Message.Content),
		"tool_calls", len(final.Message.ToolCalls),
	)
	callback(StreamEvent{Kind: KindDone, Response: final})

	return final, nil
}

// recoverTextToolCalls promotes tool calls that arrived as JSON in the
// content body to real tool calls. Several local models ignore the native
// tool_calls field and print the call instead.
func recoverTextToolCalls(resp *ChatResponse, validTools []string) {
	if len(resp.Message.ToolCalls) > 0 || resp.Message.Content == "" {
		return
	}
	if parsed := parseTextToolCalls(resp.Message.Content, validTools); len(parsed) > 0 {
		resp.Message.ToolCalls = parsed
		resp.Message.Content = "" // the content was the tool call
	}
}

// parseTextToolCalls extracts tool calls a model wrote as text. Handled
// formats, in order of preference:
//   - JSON array: [{"name": ..., "arguments": {...}}, ...]
//   - JSON object, including concatenated objects {...}{...} with optional
//     trailing prose
//   - Tagged: <tool_call>{...}</tool_call>, with or without the closing tag
//   - Prefixed: tool_name {...}
//
// When validTools is non-empty, calls naming unknown tools are dropped.
func parseTextToolCalls(content string, validTools []string) []ToolCall {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	// Unwrap <tool_call> tags; preamble before the tag is discarded.
	if start := strings.Index(content, "<tool_call>"); start != -1 {
		inner := content[start+len("<tool_call>"):]
		if end := strings.Index(inner, "</tool_call>"); end != -1 {
			inner = inner[:end]
		}
		content = strings.TrimSpace(inner)
	}

	valid := make(map[string]bool, len(validTools))
	for _, name := range validTools {
		valid[name] = true
	}
	allowed := func(name string) bool {
		if name == "" {
			return false
		}
		return len(valid) == 0 || valid[name]
	}

	type textCall struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}

	if strings.HasPrefix(content, "[") {
		var calls []textCall
		if err := json.Unmarshal([]byte(content), &calls); err != nil {
			return nil
		}
		var result []ToolCall
		for _, c := range calls {
			if allowed(c.Name) {
				result = append(result, newTextToolCall(c.Name, c.Arguments))
			}
		}
		return result
	}

	if strings.HasPrefix(content, "{") {
		// A Decoder consumes concatenated objects one at a time and stops
		// at the first thing that is not JSON (e.g. trailing prose).
		dec := json.NewDecoder(strings.NewReader(content))
		var result []ToolCall
		for {
			var c textCall
			if err := dec.Decode(&c); err != nil {
				break
			}
			if allowed(c.Name) {
				result = append(result, newTextToolCall(c.Name, c.Arguments))
			}
		}
		return result
	}

	// "tool_name {json}" with optional trailing prose.
	if name, rest, ok := strings.Cut(content, " "); ok {
		rest = strings.TrimSpace(rest)
		if allowed(name) && strings.HasPrefix(rest, "{") {
			var args map[string]any
			dec := json.NewDecoder(strings.NewReader(rest))
			if err := dec.Decode(&args); err == nil {
				return []ToolCall{newTextToolCall(name, args)}
			}
		}
	}

	return nil
}

func newTextToolCall(name string, args map[string]any) ToolCall {
	var tc ToolCall
	tc.Function.Name = name
	tc.Function.Arguments = args
	return tc
}

// extractToolNames pulls the function names out of OpenAI-format tool
// definitions, for validating text-parsed tool calls.
func extractToolNames(tools []map[string]any) []string {
	if len(tools) == 0 {
		return nil
	}
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		fn, ok := tool["function"].(map[string]any)
		if !ok {
			continue
		}
		if name, ok := fn["name"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Ping checks if Ollama is reachable.
func (c *OllamaClient) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error %d", resp.StatusCode)
	}

	return nil
}

// ListModels returns the models the Ollama host has available.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	names := make([]string, len(result.Models))
	for i, m := range result.Models {
		names[i] = m.Name
	}
	return names, nil
}
