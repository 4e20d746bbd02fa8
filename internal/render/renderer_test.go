package render

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fernwey/atlas-travel-agent/internal/templates"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fullContext() *PlanContext {
	return &PlanContext{
		Destination: "北京",
		Days:        2,
		StartDate:   "2026-09-01",
		EndDate:     "2026-09-02",
		People:      2,
		Budget:      3000,
		Itineraries: []DayContext{
			{Day: 1, Date: "2026-09-01", Morning: "故宫", Afternoon: "景山公园", Evening: "王府井", Cost: 450},
			{Day: 2, Date: "2026-09-02", Morning: "颐和园", Afternoon: "798艺术区", Evening: "三里屯", Cost: 380},
		},
		Hotel:     &HotelContext{Name: "北京饭店", Price: 600, Rating: 4.6, Reason: "位置好，性价比高"},
		Transport: &TransportContext{Mode: "高铁", Duration: "4.5小时", Price: "¥553", Detail: "建议选上午出发的班次"},
		BudgetLines: []BudgetLine{
			{Label: "住宿", Amount: 1200},
			{Label: "餐饮", Amount: 750},
		},
		Tips: []string{"提前预约故宫门票", "避开周一闭馆日"},
	}
}

func TestParseFormatLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   FormatLevel
		wantOK bool
	}{
		{"full", LevelFull, true},
		{"FULL", LevelFull, true},
		{" simple ", LevelSimple, true},
		{"basic", LevelBasic, true},
		{"extreme", LevelBasic, false},
		{"", LevelBasic, false},
	}
	for _, tt := range tests {
		got, ok := ParseFormatLevel(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseFormatLevel(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestZeroValueLevelIsBasic(t *testing.T) {
	var l FormatLevel
	if l != LevelBasic {
		t.Errorf("zero FormatLevel = %v, want basic", l)
	}
	if l.String() != "basic" {
		t.Errorf("zero level String() = %q, want basic", l.String())
	}
}

func TestPlanFullShowsAllSections(t *testing.T) {
	r := NewRenderer(templates.NewStore(discard()), discard())
	got := r.Plan(fullContext(), LevelFull)

	for _, section := range []string{
		"🎉",
		"🚄 交通方案：高铁",
		"🏨 推荐住宿：北京饭店",
		"💰 预算分配：",
		"住宿：¥1200",
		"💡 旅行建议：",
		"提前预约故宫门票",
	} {
		if !strings.Contains(got, section) {
			t.Errorf("full rendering missing %q:\n%s", section, got)
		}
	}
}

func TestPlanSimpleOmitsOptionalSections(t *testing.T) {
	r := NewRenderer(templates.NewStore(discard()), discard())
	got := r.Plan(fullContext(), LevelSimple)

	if !strings.Contains(got, "北京2日游方案") {
		t.Errorf("simple rendering missing shortened title:\n%s", got)
	}
	for _, section := range []string{"交通方案", "推荐住宿", "预算分配", "旅行建议"} {
		if strings.Contains(got, section) {
			t.Errorf("simple rendering should omit %q:\n%s", section, got)
		}
	}
}

func TestPlanBasicIsMinimal(t *testing.T) {
	r := NewRenderer(templates.NewStore(discard()), discard())
	got := r.Plan(fullContext(), LevelBasic)

	if !strings.Contains(got, "北京2日游") {
		t.Errorf("basic rendering missing destination/duration:\n%s", got)
	}
	if !strings.Contains(got, "第1天：故宫") {
		t.Errorf("basic rendering missing core content:\n%s", got)
	}
	if strings.Contains(got, "📅") {
		t.Errorf("basic rendering should omit date section:\n%s", got)
	}
}

func TestPlanFallsBackToFallbackTemplate(t *testing.T) {
	// Override the full template with one that parses but cannot
	// execute against a plan context; rendering must degrade to the
	// fallback template, invisibly to the caller.
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "plan_full.tmpl"), []byte("{{.DoesNotExist}}"), 0600)

	store := templates.NewStore(discard())
	if err := store.Load(dir); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	r := NewRenderer(store, discard())
	got := r.Plan(fullContext(), LevelFull)

	if strings.Contains(got, "🎉") {
		t.Errorf("broken primary should not render:\n%s", got)
	}
	if !strings.Contains(got, "目的地：北京") {
		t.Errorf("fallback template output missing:\n%s", got)
	}
	if !strings.Contains(got, "行程天数：2") {
		t.Errorf("fallback template output missing days:\n%s", got)
	}
}

func TestPlanConcatenationIsTotal(t *testing.T) {
	// With no store at all, both template tiers fail and the
	// concatenation tier must still produce text for any input.
	r := NewRenderer(nil, discard())

	for _, ctx := range []*PlanContext{nil, {}, fullContext()} {
		got := r.Plan(ctx, LevelFull)
		if got == "" {
			t.Errorf("concatenation tier returned empty text for %+v", ctx)
		}
		if !strings.Contains(got, "旅行方案") {
			t.Errorf("concatenation output unexpected:\n%s", got)
		}
	}
}

func TestPlanConcatenationSafeDefaults(t *testing.T) {
	r := NewRenderer(nil, discard())
	got := r.Plan(&PlanContext{}, LevelBasic)

	if !strings.Contains(got, "行程天数：TBD") {
		t.Errorf("missing days should render TBD:\n%s", got)
	}
	if !strings.Contains(got, "目的地：\n") {
		t.Errorf("missing destination should render empty:\n%s", got)
	}
	if !strings.Contains(got, "每日安排：TBD") {
		t.Errorf("missing itinerary should render TBD:\n%s", got)
	}
}

func TestPlanUnknownLevelStillRenders(t *testing.T) {
	r := NewRenderer(templates.NewStore(discard()), discard())
	level, ok := ParseFormatLevel("deluxe")
	if ok {
		t.Fatal("deluxe should not parse")
	}
	got := r.Plan(fullContext(), level)
	if !strings.Contains(got, "北京2日游") {
		t.Errorf("unknown level should render basic:\n%s", got)
	}
}

func TestItineraryFieldsDegradeToPlaceholder(t *testing.T) {
	r := NewRenderer(templates.NewStore(discard()), discard())
	ctx := &PlanContext{
		Destination: "上海",
		Days:        1,
		Itineraries: []DayContext{{Day: 1, Morning: "外滩"}},
	}
	got := r.Plan(ctx, LevelBasic)

	if !strings.Contains(got, "外滩") {
		t.Errorf("present field missing:\n%s", got)
	}
	if strings.Count(got, "待定") < 2 {
		t.Errorf("missing afternoon/evening should show placeholders:\n%s", got)
	}
}

func TestNormalizeDoesNotMutateCaller(t *testing.T) {
	ctx := &PlanContext{Itineraries: []DayContext{{Morning: "外滩"}}}
	r := NewRenderer(templates.NewStore(discard()), discard())
	r.Plan(ctx, LevelBasic)

	if ctx.Itineraries[0].Afternoon != "" {
		t.Errorf("caller context mutated: %+v", ctx.Itineraries[0])
	}
}

func TestRouteFull(t *testing.T) {
	r := NewRenderer(templates.NewStore(discard()), discard())
	ctx := &RouteContext{
		Origin:      "北京",
		Destination: "上海",
		Options: []TransportContext{
			{Mode: "高铁", Duration: "4.5小时", Price: "¥553"},
			{Mode: "飞机", Duration: "2小时", Price: "¥800"},
		},
	}
	got := r.Route(ctx, LevelFull)

	if !strings.Contains(got, "🚄 北京到上海的交通方案") {
		t.Errorf("full route missing title:\n%s", got)
	}
	if !strings.Contains(got, "- 高铁：约4.5小时，¥553") {
		t.Errorf("full route missing option:\n%s", got)
	}
	if !strings.Contains(got, "💡") {
		t.Errorf("full route missing tip line:\n%s", got)
	}
}

func TestRouteBasicRendersSimple(t *testing.T) {
	// Routes know only full and simple; anything else gets simple.
	r := NewRenderer(templates.NewStore(discard()), discard())
	ctx := &RouteContext{
		Origin:      "北京",
		Destination: "上海",
		Options:     []TransportContext{{Mode: "高铁", Duration: "4.5小时", Price: "¥553"}},
	}
	got := r.Route(ctx, LevelBasic)

	if !strings.Contains(got, "北京到上海：高铁（4.5小时，¥553）") {
		t.Errorf("basic route should render simple template:\n%s", got)
	}
	if strings.Contains(got, "💡") {
		t.Errorf("simple route should omit tip line:\n%s", got)
	}
}

func TestRouteConcatenationIsTotal(t *testing.T) {
	r := NewRenderer(nil, discard())
	got := r.Route(nil, LevelFull)
	if !strings.Contains(got, "TBD") {
		t.Errorf("route concatenation should show TBD with no options:\n%s", got)
	}
}
