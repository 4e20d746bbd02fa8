package transcript

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := NewStore(filepath.Join(t.TempDir(), "transcript.db"), logger)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndMessages(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	msgs := []Message{
		{ConversationID: "conv-a", Role: "user", Content: "帮我规划北京3日游", Intent: "plan_trip"},
		{ConversationID: "conv-a", Role: "assistant", Content: "好的，这是您的行程..."},
		{ConversationID: "conv-b", Role: "user", Content: "你好"},
	}
	for _, m := range msgs {
		if err := store.Append(ctx, m); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := store.Messages(ctx, "conv-a", 0)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Messages() returned %d messages, want 2", len(got))
	}
	if got[0].Role != "user" || got[1].Role != "assistant" {
		t.Errorf("message roles = %q, %q, want user, assistant", got[0].Role, got[1].Role)
	}
	if got[0].Content != "帮我规划北京3日游" {
		t.Errorf("content = %q, want original text", got[0].Content)
	}
	if got[0].Intent != "plan_trip" {
		t.Errorf("intent = %q, want plan_trip", got[0].Intent)
	}
	if got[1].Intent != "" {
		t.Errorf("assistant intent = %q, want empty", got[1].Intent)
	}
	if got[0].ID == "" || got[1].ID == "" {
		t.Error("expected auto-generated message IDs")
	}
	if got[0].Timestamp.IsZero() {
		t.Error("expected auto-filled timestamp")
	}
}

func TestMessagesOrderedByTime(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	// Inserted out of order on purpose.
	for _, m := range []Message{
		{ConversationID: "conv-a", Role: "assistant", Content: "second", Timestamp: base.Add(time.Minute)},
		{ConversationID: "conv-a", Role: "user", Content: "third", Timestamp: base.Add(2 * time.Minute)},
		{ConversationID: "conv-a", Role: "user", Content: "first", Timestamp: base},
	} {
		if err := store.Append(ctx, m); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := store.Messages(ctx, "conv-a", 0)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	want := []string{"first", "second", "third"}
	if len(got) != len(want) {
		t.Fatalf("got %d messages, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Content != w {
			t.Errorf("message[%d] = %q, want %q", i, got[i].Content, w)
		}
	}
}

func TestMessagesLimit(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := store.Append(ctx, Message{
			ConversationID: "conv-a",
			Role:           "user",
			Content:        "msg",
			Timestamp:      base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := store.Messages(ctx, "conv-a", 2)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Messages(limit=2) returned %d, want 2", len(got))
	}
}

func TestMessagesUnknownConversation(t *testing.T) {
	store := testStore(t)

	got, err := store.Messages(context.Background(), "no-such-conv", 0)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Messages() returned %d messages, want 0", len(got))
	}
}

func TestConversationsRecentFirst(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for _, m := range []Message{
		{ConversationID: "conv-old", Role: "user", Content: "a", Timestamp: base},
		{ConversationID: "conv-old", Role: "assistant", Content: "b", Timestamp: base.Add(time.Minute)},
		{ConversationID: "conv-new", Role: "user", Content: "c", Timestamp: base.Add(time.Hour)},
	} {
		if err := store.Append(ctx, m); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := store.Conversations(ctx, 0)
	if err != nil {
		t.Fatalf("Conversations() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Conversations() returned %d, want 2", len(got))
	}
	if got[0].ID != "conv-new" || got[1].ID != "conv-old" {
		t.Errorf("conversation order = %q, %q, want conv-new first", got[0].ID, got[1].ID)
	}
	if got[1].Messages != 2 {
		t.Errorf("conv-old message count = %d, want 2", got[1].Messages)
	}
	if !got[1].StartedAt.Equal(base) {
		t.Errorf("conv-old started at %v, want %v", got[1].StartedAt, base)
	}
	if !got[1].LastAt.Equal(base.Add(time.Minute)) {
		t.Errorf("conv-old last at %v, want %v", got[1].LastAt, base.Add(time.Minute))
	}
}

func TestConversationsLimit(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"conv-a", "conv-b", "conv-c"} {
		err := store.Append(ctx, Message{
			ConversationID: id,
			Role:           "user",
			Content:        "hi",
			Timestamp:      base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := store.Conversations(ctx, 2)
	if err != nil {
		t.Fatalf("Conversations() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Conversations(limit=2) returned %d, want 2", len(got))
	}
	if got[0].ID != "conv-c" {
		t.Errorf("most recent conversation = %q, want conv-c", got[0].ID)
	}
}

func TestTotals(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	convs, msgs, err := store.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals() error = %v", err)
	}
	if convs != 0 || msgs != 0 {
		t.Errorf("empty Totals() = %d, %d, want 0, 0", convs, msgs)
	}

	for _, m := range []Message{
		{ConversationID: "conv-a", Role: "user", Content: "a"},
		{ConversationID: "conv-a", Role: "assistant", Content: "b"},
		{ConversationID: "conv-b", Role: "user", Content: "c"},
	} {
		if err := store.Append(ctx, m); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	convs, msgs, err = store.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals() error = %v", err)
	}
	if convs != 2 {
		t.Errorf("Totals() conversations = %d, want 2", convs)
	}
	if msgs != 3 {
		t.Errorf("Totals() messages = %d, want 3", msgs)
	}
}

func TestTimestampsStoredUTC(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	cst := time.FixedZone("CST", 8*3600)
	local := time.Date(2026, 5, 1, 20, 0, 0, 0, cst)
	err := store.Append(ctx, Message{
		ConversationID: "conv-a",
		Role:           "user",
		Content:        "hi",
		Timestamp:      local,
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, err := store.Messages(ctx, "conv-a", 0)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d messages, want 1", len(got))
	}
	if !got[0].Timestamp.Equal(local) {
		t.Errorf("round-tripped timestamp = %v, want instant %v", got[0].Timestamp, local)
	}
	if got[0].Timestamp.Location() != time.UTC {
		t.Errorf("timestamp location = %v, want UTC", got[0].Timestamp.Location())
	}
}

func TestNewStoreInvalidPath(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewStore("/nonexistent/dir/transcript.db", logger)
	if err == nil {
		t.Fatal("expected error for invalid database path")
	}
}
