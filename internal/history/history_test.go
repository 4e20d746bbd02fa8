package history

import (
	"sync"
	"testing"
)

func TestAppendPreservesOrder(t *testing.T) {
	l := New()

	l.Append(RoleUser, "帮我规划北京3日游")
	l.Append(RoleAssistant, "好的，以下是行程安排。")
	l.Append(RoleUser, "预算5000元够吗？")

	got := l.Entries()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Role != RoleUser || got[0].Text != "帮我规划北京3日游" {
		t.Errorf("entry 0 = %+v", got[0])
	}
	if got[1].Role != RoleAssistant {
		t.Errorf("entry 1 role = %q", got[1].Role)
	}
	if got[2].Text != "预算5000元够吗？" {
		t.Errorf("entry 2 = %+v", got[2])
	}
	for i, e := range got {
		if e.At.IsZero() {
			t.Errorf("entry %d has zero timestamp", i)
		}
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	l := New()
	l.Append(RoleUser, "你好")

	got := l.Entries()
	got[0].Text = "mutated"

	if l.Entries()[0].Text != "你好" {
		t.Error("mutating the returned slice must not affect the log")
	}
}

func TestClear(t *testing.T) {
	l := New()
	l.Append(RoleUser, "第一条")
	l.Append(RoleAssistant, "第二条")

	l.Clear()

	if l.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", l.Len())
	}
	if len(l.Entries()) != 0 {
		t.Error("Entries should be empty after Clear")
	}

	// The log stays usable after clearing.
	l.Append(RoleUser, "新会话")
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1", l.Len())
	}
}

func TestConcurrentAppend(t *testing.T) {
	l := New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Append(RoleUser, "消息")
			}
		}()
	}
	wg.Wait()

	if l.Len() != 1000 {
		t.Errorf("Len = %d, want 1000", l.Len())
	}
}
