// Package router classifies chat messages into travel intents and
// keeps an audit trail of its decisions.
package router

import (
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Intent is the kind of request a message expresses.
type Intent string

const (
	IntentPlanTrip  Intent = "plan_trip"
	IntentHotel     Intent = "find_hotel"
	IntentFood      Intent = "find_food"
	IntentSight     Intent = "find_attraction"
	IntentTransport Intent = "transport_query"
	IntentBudget    Intent = "budget_query"
	IntentWeather   Intent = "weather_query"
	IntentCurrency  Intent = "currency_query"
	IntentVisa      Intent = "visa_query"
	IntentSmalltalk Intent = "smalltalk"
)

// intentKeywords maps intents to their trigger words, in matching
// priority order. Visa outranks everything because 签证 is unambiguous
// even inside a trip request. Trip planning outranks the single-topic
// groups so composite requests ("上海2日游，预算3000") plan the whole
// trip instead of answering one sub-question.
var intentKeywords = []struct {
	intent   Intent
	keywords []string
}{
	{IntentVisa, []string{"签证", "visa"}},
	{IntentPlanTrip, []string{"规划", "计划", "行程", "攻略", "日游", "天游", "想去", "安排一下", "帮我安排"}},
	{IntentCurrency, []string{"汇率", "兑换", "换汇", "美元", "日元", "欧元", "英镑", "韩元", "澳元"}},
	{IntentWeather, []string{"天气", "气温", "温度", "下雨", "下雪"}},
	{IntentHotel, []string{"酒店", "住宿", "旅馆", "宾馆", "民宿", "住哪"}},
	{IntentFood, []string{"美食", "餐厅", "吃什么", "好吃", "小吃", "菜馆"}},
	{IntentSight, []string{"景点", "好玩", "游玩", "必去", "打卡", "景区"}},
	{IntentTransport, []string{"怎么去", "交通", "高铁", "机票", "航班", "火车", "大巴"}},
	{IntentBudget, []string{"预算", "多少钱", "花费", "费用", "价格"}},
}

// Complexity categorizes how much work a message needs.
type Complexity int

const (
	ComplexitySimple   Complexity = iota // greeting or one-word query
	ComplexityModerate                   // single lookup
	ComplexityComplex                    // full plan or multi-part question
)

func (c Complexity) String() string {
	switch c {
	case ComplexitySimple:
		return "simple"
	case ComplexityModerate:
		return "moderate"
	case ComplexityComplex:
		return "complex"
	default:
		return "unknown"
	}
}

// Decision records how a message was classified.
type Decision struct {
	RequestID   string     `json:"request_id"`
	Timestamp   time.Time  `json:"timestamp"`
	QueryLength int        `json:"query_length"`
	Intent      Intent     `json:"intent"`
	Complexity  Complexity `json:"complexity"`
	Matched     []string   `json:"matched,omitempty"`
	Reasoning   string     `json:"reasoning"`

	// Post-execution, filled in by RecordOutcome.
	LatencyMs int64 `json:"latency_ms,omitempty"`
	Success   *bool `json:"success,omitempty"`
}

// Stats tracks classification counters.
type Stats struct {
	TotalRequests    int64            `json:"total_requests"`
	IntentCounts     map[string]int64 `json:"intent_counts"`
	ComplexityCounts map[string]int64 `json:"complexity_counts"`
	AvgLatencyMs     map[string]int64 `json:"avg_latency_ms"`
}

// Router classifies messages and remembers recent decisions.
type Router struct {
	logger      *slog.Logger
	maxAuditLog int

	mu       sync.RWMutex
	auditLog []Decision
	stats    Stats
}

const defaultMaxAuditLog = 1000

// New creates a router.
func New(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		logger:      logger,
		maxAuditLog: defaultMaxAuditLog,
		stats: Stats{
			IntentCounts:     make(map[string]int64),
			ComplexityCounts: make(map[string]int64),
			AvgLatencyMs:     make(map[string]int64),
		},
	}
}

// Route classifies a message. Messages that match nothing are
// smalltalk.
func (r *Router) Route(query string) (Intent, *Decision) {
	decision := &Decision{
		RequestID:   generateRequestID(),
		Timestamp:   time.Now(),
		QueryLength: utf8.RuneCountInString(query),
	}

	intent, matched, groups := classify(query)
	decision.Intent = intent
	decision.Matched = matched
	decision.Complexity = analyzeComplexity(query, intent, groups)
	decision.Reasoning = reasoning(decision)

	r.recordDecision(*decision)

	r.logger.Info("message routed",
		"request_id", decision.RequestID,
		"intent", intent,
		"complexity", decision.Complexity.String(),
	)

	return intent, decision
}

// classify finds the first intent with a keyword in the query. It also
// returns every keyword that matched and the number of distinct intent
// groups that matched.
func classify(query string) (Intent, []string, int) {
	q := strings.ToLower(query)

	intent := IntentSmalltalk
	var matched []string
	groups := 0
	for _, group := range intentKeywords {
		hit := false
		for _, kw := range group.keywords {
			if strings.Contains(q, kw) {
				if intent == IntentSmalltalk {
					intent = group.intent
				}
				matched = append(matched, kw)
				hit = true
			}
		}
		if hit {
			groups++
		}
	}
	return intent, matched, groups
}

// analyzeComplexity grades the message: full trip plans and multi-part
// questions are complex, short unmatched messages are simple.
func analyzeComplexity(query string, intent Intent, groups int) Complexity {
	if intent == IntentPlanTrip || groups >= 3 {
		return ComplexityComplex
	}
	if intent == IntentSmalltalk && utf8.RuneCountInString(query) < 8 {
		return ComplexitySimple
	}
	return ComplexityModerate
}

func reasoning(d *Decision) string {
	var b strings.Builder
	b.WriteString("classified as " + string(d.Intent))
	if len(d.Matched) > 0 {
		b.WriteString(" via " + strings.Join(d.Matched, ","))
	} else {
		b.WriteString(" (no keywords matched)")
	}
	b.WriteString("; " + d.Complexity.String())
	return b.String()
}

// RecordOutcome updates a decision with execution results.
func (r *Router) RecordOutcome(requestID string, latencyMs int64, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.auditLog) - 1; i >= 0; i-- {
		if r.auditLog[i].RequestID == requestID {
			r.auditLog[i].LatencyMs = latencyMs
			r.auditLog[i].Success = &success

			intent := string(r.auditLog[i].Intent)
			if prev, ok := r.stats.AvgLatencyMs[intent]; ok {
				r.stats.AvgLatencyMs[intent] = (prev + latencyMs) / 2
			} else {
				r.stats.AvgLatencyMs[intent] = latencyMs
			}
			break
		}
	}
}

func (r *Router) recordDecision(d Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.auditLog) >= r.maxAuditLog {
		r.auditLog = r.auditLog[1:]
	}
	r.auditLog = append(r.auditLog, d)

	r.stats.TotalRequests++
	r.stats.IntentCounts[string(d.Intent)]++
	r.stats.ComplexityCounts[d.Complexity.String()]++
}

// GetAuditLog returns the most recent decisions, oldest first.
func (r *Router) GetAuditLog(limit int) []Decision {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.auditLog) {
		limit = len(r.auditLog)
	}
	start := len(r.auditLog) - limit
	result := make([]Decision, limit)
	copy(result, r.auditLog[start:])
	return result
}

// GetStats returns classification counters.
func (r *Router) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := Stats{
		TotalRequests:    r.stats.TotalRequests,
		IntentCounts:     make(map[string]int64, len(r.stats.IntentCounts)),
		ComplexityCounts: make(map[string]int64, len(r.stats.ComplexityCounts)),
		AvgLatencyMs:     make(map[string]int64, len(r.stats.AvgLatencyMs)),
	}
	for k, v := range r.stats.IntentCounts {
		out.IntentCounts[k] = v
	}
	for k, v := range r.stats.ComplexityCounts {
		out.ComplexityCounts[k] = v
	}
	for k, v := range r.stats.AvgLatencyMs {
		out.AvgLatencyMs[k] = v
	}
	return out
}

// Explain returns the decision for a request ID, or nil.
func (r *Router) Explain(requestID string) *Decision {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.auditLog) - 1; i >= 0; i-- {
		if r.auditLog[i].RequestID == requestID {
			d := r.auditLog[i]
			return &d
		}
	}
	return nil
}

func generateRequestID() string {
	return time.Now().Format("20060102-150405.000000")
}
