package router

import (
	"io"
	"log/slog"
	"testing"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRouteIntents(t *testing.T) {
	tests := []struct {
		query string
		want  Intent
	}{
		{"帮我规划上海3日游", IntentPlanTrip},
		{"去三亚玩5天，帮我做个攻略", IntentPlanTrip},
		{"我想去北京玩3天，预算5000元，2个人", IntentPlanTrip},
		{"想去东京，签证怎么办理", IntentVisa},
		{"推荐一下北京的酒店", IntentHotel},
		{"上海有什么美食", IntentFood},
		{"北京有什么好玩的景点", IntentSight},
		{"北京到上海怎么去", IntentTransport},
		{"这趟旅行大概要多少钱", IntentBudget},
		{"明天北京天气怎么样", IntentWeather},
		{"人民币兑换日元的汇率是多少", IntentCurrency},
		{"去日本需要签证吗", IntentVisa},
		{"你好", IntentSmalltalk},
		{"讲个笑话", IntentSmalltalk},
	}

	r := New(discard())
	for _, tt := range tests {
		got, _ := r.Route(tt.query)
		if got != tt.want {
			t.Errorf("Route(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestPlanIntentWinsCompositeQueries(t *testing.T) {
	r := New(discard())

	// Mentions a budget too, but the user wants the whole trip planned.
	intent, decision := r.Route("上海2日游，预算3000，两个人")
	if intent != IntentPlanTrip {
		t.Errorf("intent = %v, want %v", intent, IntentPlanTrip)
	}
	if decision.Complexity != ComplexityComplex {
		t.Errorf("complexity = %v, want complex", decision.Complexity)
	}
}

func TestComplexity(t *testing.T) {
	r := New(discard())

	_, d := r.Route("你好")
	if d.Complexity != ComplexitySimple {
		t.Errorf("greeting complexity = %v, want simple", d.Complexity)
	}

	_, d = r.Route("推荐一下北京的酒店")
	if d.Complexity != ComplexityModerate {
		t.Errorf("lookup complexity = %v, want moderate", d.Complexity)
	}

	// Three distinct topics in one message.
	_, d = r.Route("查一下去北京的高铁，再推荐酒店和美食")
	if d.Complexity != ComplexityComplex {
		t.Errorf("multi-part complexity = %v, want complex", d.Complexity)
	}

	// Three keywords from the same topic stays a single lookup.
	_, d = r.Route("人民币兑换日元的汇率是多少")
	if d.Complexity != ComplexityModerate {
		t.Errorf("single-topic complexity = %v, want moderate", d.Complexity)
	}
}

func TestDecisionFields(t *testing.T) {
	r := New(discard())

	intent, d := r.Route("推荐一下北京的酒店")
	if intent != IntentHotel {
		t.Fatalf("intent = %v, want %v", intent, IntentHotel)
	}
	if d.RequestID == "" {
		t.Error("empty request id")
	}
	if d.QueryLength != 9 {
		t.Errorf("query length = %d, want 9 runes", d.QueryLength)
	}
	if len(d.Matched) != 1 || d.Matched[0] != "酒店" {
		t.Errorf("matched = %v, want [酒店]", d.Matched)
	}
	if d.Reasoning == "" {
		t.Error("empty reasoning")
	}
	if d.Timestamp.IsZero() {
		t.Error("zero timestamp")
	}
}

func TestRecordOutcome(t *testing.T) {
	r := New(discard())

	_, d := r.Route("推荐一下北京的酒店")
	r.RecordOutcome(d.RequestID, 120, true)

	got := r.Explain(d.RequestID)
	if got == nil {
		t.Fatal("Explain returned nil")
	}
	if got.LatencyMs != 120 {
		t.Errorf("latency = %d, want 120", got.LatencyMs)
	}
	if got.Success == nil || !*got.Success {
		t.Error("success not recorded")
	}

	stats := r.GetStats()
	if stats.AvgLatencyMs[string(IntentHotel)] != 120 {
		t.Errorf("avg latency = %d, want 120", stats.AvgLatencyMs[string(IntentHotel)])
	}
}

func TestRecordOutcomeAveragesLatency(t *testing.T) {
	r := New(discard())

	_, d1 := r.Route("推荐一下北京的酒店")
	r.RecordOutcome(d1.RequestID, 100, true)
	_, d2 := r.Route("推荐一下上海的酒店")
	r.RecordOutcome(d2.RequestID, 300, false)

	stats := r.GetStats()
	if got := stats.AvgLatencyMs[string(IntentHotel)]; got != 200 {
		t.Errorf("avg latency = %d, want 200", got)
	}

	failed := r.Explain(d2.RequestID)
	if failed.Success == nil || *failed.Success {
		t.Error("failure not recorded")
	}
}

func TestStatsCounts(t *testing.T) {
	r := New(discard())

	r.Route("帮我规划上海3日游")
	r.Route("推荐一下北京的酒店")
	r.Route("推荐一下上海的酒店")

	stats := r.GetStats()
	if stats.TotalRequests != 3 {
		t.Errorf("total = %d, want 3", stats.TotalRequests)
	}
	if stats.IntentCounts[string(IntentHotel)] != 2 {
		t.Errorf("hotel count = %d, want 2", stats.IntentCounts[string(IntentHotel)])
	}
	if stats.IntentCounts[string(IntentPlanTrip)] != 1 {
		t.Errorf("plan count = %d, want 1", stats.IntentCounts[string(IntentPlanTrip)])
	}
	if stats.ComplexityCounts["complex"] != 1 {
		t.Errorf("complex count = %d, want 1", stats.ComplexityCounts["complex"])
	}
}

func TestGetAuditLog(t *testing.T) {
	r := New(discard())

	r.Route("你好")
	r.Route("推荐一下北京的酒店")
	r.Route("明天北京天气怎么样")

	recent := r.GetAuditLog(2)
	if len(recent) != 2 {
		t.Fatalf("audit log = %d entries, want 2", len(recent))
	}
	if recent[0].Intent != IntentHotel || recent[1].Intent != IntentWeather {
		t.Errorf("audit order = %v, %v", recent[0].Intent, recent[1].Intent)
	}

	all := r.GetAuditLog(0)
	if len(all) != 3 {
		t.Errorf("full audit log = %d entries, want 3", len(all))
	}
}

func TestAuditLogTrimming(t *testing.T) {
	r := New(discard())
	r.maxAuditLog = 2

	r.Route("你好")
	r.Route("推荐一下北京的酒店")
	r.Route("明天北京天气怎么样")

	kept := r.GetAuditLog(0)
	if len(kept) != 2 {
		t.Fatalf("audit log = %d entries, want 2 after trim", len(kept))
	}
	if kept[0].Intent != IntentHotel {
		t.Errorf("oldest kept = %v, want %v", kept[0].Intent, IntentHotel)
	}
}

func TestExplainUnknownID(t *testing.T) {
	r := New(discard())
	if got := r.Explain("no-such-request"); got != nil {
		t.Errorf("Explain() = %v, want nil", got)
	}
}
