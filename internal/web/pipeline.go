package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fernwey/atlas-travel-agent/internal/advisor"
	"github.com/fernwey/atlas-travel-agent/internal/catalog"
	"github.com/fernwey/atlas-travel-agent/internal/events"
	"github.com/fernwey/atlas-travel-agent/internal/knowledge"
	"github.com/fernwey/atlas-travel-agent/internal/planner"
	"github.com/fernwey/atlas-travel-agent/internal/render"
	"github.com/fernwey/atlas-travel-agent/internal/router"
	"github.com/fernwey/atlas-travel-agent/internal/tools"
	"github.com/fernwey/atlas-travel-agent/internal/transcript"
)

// StatusPlanning is the progress note sent before itinerary work.
const StatusPlanning = "正在为您规划旅行... ✈️"

// Canned replies for messages the pipeline cannot act on. They are
// normal responses, not errors: the connection carries on.
const (
	fallbackReply = "请告诉我您的具体旅行需求，比如目的地、时间、预算等。我可以为您制定详细的旅行计划！"

	clarifyDestination = "好的，我来帮您规划行程！请告诉我您想去哪个城市？" +
		"例如：我想去北京玩3天，预算5000元，2个人。"
	clarifyCity     = "请告诉我您想查询哪个城市呢？"
	clarifyCurrency = "请告诉我金额和币种，例如：100美元等于多少人民币？"
	clarifyRoute    = "请告诉我出发地和目的地，例如：从北京到上海怎么去？"

	sameCityReply = "市内出行建议地铁、公交或打车，灵活又省心。"
)

// PipelineDeps wires a Pipeline. Router, Planner, Catalog, Renderer,
// and Tools are required; the rest degrade gracefully when nil.
type PipelineDeps struct {
	Router      *router.Router
	Planner     *planner.Planner
	Plans       *planner.Store
	Renderer    *render.Renderer
	Catalog     *catalog.Catalog
	Knowledge   *knowledge.Base
	Tools       *tools.Registry
	Advisor     *advisor.Advisor
	Transcripts *transcript.Store
	Bus         *events.Bus
	Logger      *slog.Logger
}

// Pipeline answers chat messages. It owns no transport: the websocket
// loop, the REST surface, and the one-shot CLI all feed it.
type Pipeline struct {
	router      *router.Router
	planner     *planner.Planner
	plans       *planner.Store
	renderer    *render.Renderer
	catalog     *catalog.Catalog
	knowledge   *knowledge.Base
	tools       *tools.Registry
	advisor     *advisor.Advisor
	transcripts *transcript.Store
	bus         *events.Bus
	logger      *slog.Logger

	cities []string
	now    func() time.Time
}

// NewPipeline assembles a pipeline from its dependencies.
func NewPipeline(d PipelineDeps) *Pipeline {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	p := &Pipeline{
		router:      d.Router,
		planner:     d.Planner,
		plans:       d.Plans,
		renderer:    d.Renderer,
		catalog:     d.Catalog,
		knowledge:   d.Knowledge,
		tools:       d.Tools,
		advisor:     d.Advisor,
		transcripts: d.Transcripts,
		bus:         d.Bus,
		logger:      d.Logger,
		now:         time.Now,
	}
	if d.Catalog != nil {
		p.cities = append(p.cities, d.Catalog.Cities()...)
	}
	p.cities = append(p.cities, fallbackCities...)
	return p
}

// Reply is one answered message.
type Reply struct {
	RequestID string
	Intent    router.Intent
	Text      string
	PlanID    string // set when the answer built a plan
}

// Respond answers one user message. onStatus, when non-nil, receives a
// progress note before long-running work. The error return means the
// message could not be answered at all; the caller turns it into a
// polite error frame and keeps the connection.
func (p *Pipeline) Respond(ctx context.Context, conversationID, text string, onStatus func(note string)) (Reply, error) {
	intent, decision := p.router.Route(text)
	reply := Reply{RequestID: decision.RequestID, Intent: intent}

	p.publish(events.KindRequestStart, map[string]any{
		"request_id":      decision.RequestID,
		"conversation_id": conversationID,
		"intent":          string(intent),
	})
	p.record(ctx, conversationID, "user", text, intent)

	if onStatus != nil && intent == router.IntentPlanTrip {
		onStatus(StatusPlanning)
	}

	start := p.now()
	answer, planID, err := p.answer(ctx, decision.RequestID, conversationID, intent, text)
	latency := time.Since(start).Milliseconds()

	p.router.RecordOutcome(decision.RequestID, latency, err == nil)
	p.publish(events.KindRequestComplete, map[string]any{
		"request_id":      decision.RequestID,
		"conversation_id": conversationID,
		"intent":          string(intent),
		"latency_ms":      latency,
		"success":         err == nil,
	})

	if err != nil {
		return reply, err
	}
	reply.Text = answer
	reply.PlanID = planID
	p.record(ctx, conversationID, "assistant", answer, intent)
	return reply, nil
}

func (p *Pipeline) answer(ctx context.Context, requestID, conversationID string, intent router.Intent, text string) (answer, planID string, err error) {
	ctx = tools.WithConversationID(ctx, conversationID)

	switch intent {
	case router.IntentPlanTrip:
		return p.planTrip(ctx, requestID, conversationID, text)
	case router.IntentHotel:
		answer, err = p.findHotels(ctx, text)
	case router.IntentFood:
		answer, err = p.findCity(ctx, text, "search_restaurants")
	case router.IntentSight:
		answer, err = p.findAttractions(ctx, text)
	case router.IntentTransport:
		answer, err = p.compareTransport(ctx, text)
	case router.IntentWeather:
		answer, err = p.lookupWeather(ctx, text)
	case router.IntentCurrency:
		answer, err = p.convertCurrency(ctx, text)
	case router.IntentVisa:
		answer, err = p.lookupVisa(ctx, text)
	case router.IntentBudget:
		answer = p.adviseBudget(text)
	default:
		answer = p.smalltalk(ctx, requestID, conversationID, text)
	}
	return answer, "", err
}

// planTrip is the full path: extract a request, build the plan, render
// it, and let the advisor polish the draft when one is configured.
func (p *Pipeline) planTrip(ctx context.Context, requestID, conversationID, text string) (string, string, error) {
	req := parseTripRequest(text, p.cities, p.now())
	if !req.Complete() {
		return clarifyDestination, "", nil
	}

	plan, err := p.planner.Build(req)
	if err != nil {
		return "", "", fmt.Errorf("build plan: %w", err)
	}
	if p.plans != nil {
		p.plans.Put(plan)
	}

	rc := plan.RenderContext()
	draft := p.renderer.Plan(&rc, render.LevelFull)

	polished, err := p.advisor.Polish(ctx, requestID, conversationID, text, draft)
	if err != nil {
		p.logger.Warn("polish failed, using draft", "request_id", requestID, "error", err)
	}
	return polished, plan.ID, nil
}

func (p *Pipeline) findHotels(ctx context.Context, text string) (string, error) {
	city := extractCity(text, p.cities)
	if city == "" {
		return clarifyCity, nil
	}

	var answer string
	prefs := hotelPreferences(text)
	if len(prefs) > 0 {
		answer = formatHotelPicks(city, p.planner.RecommendHotels(city, parseBudget(text), prefs))
	} else {
		out, err := p.callTool(ctx, "search_hotels", map[string]any{"city": city})
		if err != nil {
			return "", err
		}
		answer = out
	}

	if wantsFood(text) {
		food, err := p.callTool(ctx, "search_restaurants", map[string]any{"city": city})
		if err != nil {
			return "", err
		}
		answer = strings.TrimRight(answer, "\n") + "\n\n" + food
	}
	return answer, nil
}

// findCity runs a single-city search tool, asking for the city when
// the message names none.
func (p *Pipeline) findCity(ctx context.Context, text, tool string) (string, error) {
	city := extractCity(text, p.cities)
	if city == "" {
		return clarifyCity, nil
	}
	return p.callTool(ctx, tool, map[string]any{"city": city})
}

func (p *Pipeline) findAttractions(ctx context.Context, text string) (string, error) {
	city := extractCity(text, p.cities)
	if city == "" {
		return clarifyCity, nil
	}
	args := map[string]any{"city": city}
	if category := attractionCategory(text); category != "" {
		args["category"] = category
	}
	return p.callTool(ctx, "search_attractions", args)
}

func (p *Pipeline) compareTransport(ctx context.Context, text string) (string, error) {
	origin, dest := extractRoute(text, p.cities)
	if dest == "" {
		return clarifyRoute, nil
	}
	if origin == "" {
		origin = planner.DefaultOrigin
	}
	if origin == dest {
		return sameCityReply, nil
	}

	if strings.Contains(text, "机票") || strings.Contains(text, "航班") {
		return p.callTool(ctx, "compare_flights", map[string]any{"from": origin, "to": dest})
	}

	suggestions := p.planner.TransportSuggestions(origin, dest)
	rc := render.RouteContext{Origin: origin, Destination: dest}
	for _, s := range suggestions {
		rc.Options = append(rc.Options, render.TransportContext{
			Mode:     s.Mode,
			Duration: s.Duration,
			Price:    s.Price,
			Detail:   s.Detail,
		})
	}
	return p.renderer.Route(&rc, render.LevelFull), nil
}

func (p *Pipeline) lookupWeather(ctx context.Context, text string) (string, error) {
	city := extractCity(text, p.cities)
	if city == "" {
		return clarifyCity, nil
	}
	args := map[string]any{"city": city}
	if date := parseStartDate(text, p.now()); !date.IsZero() {
		args["date"] = date.Format("2006-01-02")
	}
	return p.callTool(ctx, "get_weather", args)
}

func (p *Pipeline) convertCurrency(ctx context.Context, text string) (string, error) {
	amount, from, to, ok := parseCurrency(text)
	if !ok {
		return clarifyCurrency, nil
	}
	return p.callTool(ctx, "convert_currency", map[string]any{
		"amount": amount,
		"from":   from,
		"to":     to,
	})
}

func (p *Pipeline) lookupVisa(ctx context.Context, text string) (string, error) {
	return p.callTool(ctx, "search_knowledge", map[string]any{
		"query":    text,
		"category": knowledge.CategoryVisa,
		"limit":    2,
	})
}

// adviseBudget answers a budget question with the same split a full
// plan would use.
func (p *Pipeline) adviseBudget(text string) string {
	total := parseBudget(text)
	if total <= 0 {
		total = planner.DefaultBudget
	}
	days := parseDays(text)
	if days <= 0 {
		days = planner.DefaultDays
	}
	daily := total / float64(days)
	b := planner.Allocate(total)

	var sb strings.Builder
	fmt.Fprintf(&sb, "💰 预算分配建议（总预算¥%.0f，共%d天）：\n", total, days)
	for _, line := range []struct {
		label  string
		amount float64
	}{
		{"住宿", b.Hotel},
		{"餐饮", b.Food},
		{"景点", b.Attractions},
		{"交通", b.Transport},
		{"其他", b.Other},
	} {
		fmt.Fprintf(&sb, "• %s: ¥%.0f (%.0f%%)\n", line.label, line.amount, line.amount/total*100)
	}
	fmt.Fprintf(&sb, "每日预算约¥%.0f，属于%s水平。", daily, planner.BudgetLevel(daily))
	return sb.String()
}

// smalltalk hands the message to the advisor when one is configured
// and falls back to the canned guidance otherwise. Never an error: a
// greeting always gets an answer.
func (p *Pipeline) smalltalk(ctx context.Context, requestID, conversationID, text string) string {
	if p.advisor.Enabled() {
		answer, err := p.advisor.Answer(ctx, requestID, conversationID, text)
		if err == nil && answer != "" {
			return answer
		}
		p.logger.Warn("advisor answer failed, using fallback", "request_id", requestID, "error", err)
	}
	return fallbackReply
}

func (p *Pipeline) callTool(ctx context.Context, name string, args map[string]any) (string, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode %s args: %w", name, err)
	}
	out, err := p.tools.Execute(ctx, name, string(data))
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// formatHotelPicks renders scored recommendations with their reasons.
func formatHotelPicks(city string, picks []planner.HotelPick) string {
	if len(picks) == 0 {
		return fmt.Sprintf("未找到%s符合条件的酒店，可以换个条件再试试。", city)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "为您推荐%s的%d家酒店：\n", city, len(picks))
	for _, pick := range picks {
		fmt.Fprintf(&sb, "- %s：¥%.0f/晚，评分%.1f。%s\n", pick.Name, pick.Price, pick.Rating, pick.Reason)
	}
	return sb.String()
}

func (p *Pipeline) record(ctx context.Context, conversationID, role, content string, intent router.Intent) {
	if p.transcripts == nil || conversationID == "" {
		return
	}
	err := p.transcripts.Append(ctx, transcript.Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Intent:         string(intent),
	})
	if err != nil {
		p.logger.Warn("transcript append failed", "conversation_id", conversationID, "error", err)
	}
}

func (p *Pipeline) publish(kind string, data map[string]any) {
	p.bus.Publish(events.Event{
		Timestamp: p.now(),
		Source:    events.SourceServer,
		Kind:      kind,
		Data:      data,
	})
}
