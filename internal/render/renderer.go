// Package render turns plan and route contexts into display text.
//
// Rendering walks an ordered list of strategies: the primary template
// for the requested format level, then a designated fallback template
// that uses nothing but substitution, then plain concatenation with
// safe defaults. The last strategy is total, so a caller always gets
// text back; tier transitions are logged and otherwise invisible.
package render

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/fernwey/atlas-travel-agent/internal/templates"
)

// Renderer binds a template store to the fallback chain. The store is
// injected; the renderer never reaches for a global.
type Renderer struct {
	store  *templates.Store
	logger *slog.Logger
}

// NewRenderer creates a renderer over the given store.
func NewRenderer(store *templates.Store, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{store: store, logger: logger}
}

// strategy produces rendered text or an error that sends the chain to
// the next tier.
type strategy func() (string, error)

// run walks the strategies in order and returns the first success.
// The caller arranges for the final strategy to be total.
func (r *Renderer) run(target string, strategies []strategy) string {
	var out string
	var err error
	for tier, s := range strategies {
		out, err = s()
		if err == nil {
			return out
		}
		r.logger.Warn("render tier failed, falling back",
			"target", target,
			"tier", tier+1,
			"error", err,
		)
	}
	// Unreachable while the last strategy stays total.
	return out
}

// Plan renders a travel plan at the requested format level. It cannot
// fail: template trouble degrades through the fallback template down
// to concatenation.
func (r *Renderer) Plan(ctx *PlanContext, level FormatLevel) string {
	ctx = normalizePlan(ctx)
	return r.run("plan", []strategy{
		func() (string, error) { return r.execute(planTemplateName(level), ctx) },
		func() (string, error) { return r.execute("plan_fallback", flattenPlan(ctx)) },
		func() (string, error) { return concatPlan(ctx), nil },
	})
}

// Route renders a transport comparison. Routes know only the full and
// simple levels; anything else renders simple.
func (r *Renderer) Route(ctx *RouteContext, level FormatLevel) string {
	if ctx == nil {
		ctx = &RouteContext{}
	}
	return r.run("route", []strategy{
		func() (string, error) { return r.execute(routeTemplateName(level), ctx) },
		func() (string, error) { return r.execute("route_fallback", flattenRoute(ctx)) },
		func() (string, error) { return concatRoute(ctx), nil },
	})
}

func planTemplateName(level FormatLevel) string {
	switch level {
	case LevelFull:
		return "plan_full"
	case LevelSimple:
		return "plan_simple"
	default:
		return "plan_basic"
	}
}

func routeTemplateName(level FormatLevel) string {
	if level == LevelFull {
		return "route_full"
	}
	return "route_simple"
}

func (r *Renderer) execute(name string, data any) (string, error) {
	if r.store == nil {
		return "", fmt.Errorf("no template store")
	}
	tmpl, ok := r.store.Get(name)
	if !ok {
		return "", fmt.Errorf("template %q not loaded", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %q: %w", name, err)
	}
	return buf.String(), nil
}

// tbd substitutes the safe default for a missing structured value.
const tbd = "TBD"

// concatPlan is the last-resort rendering: plain concatenation that
// holds for any input, including the zero context. Missing string
// fields render empty; missing structured fields render as TBD.
func concatPlan(ctx *PlanContext) string {
	days := tbd
	if ctx.Days > 0 {
		days = strconv.Itoa(ctx.Days)
	}
	dates := tbd
	if ctx.StartDate != "" && ctx.EndDate != "" {
		dates = ctx.StartDate + " 至 " + ctx.EndDate
	}
	budget := tbd
	if ctx.Budget > 0 {
		budget = fmt.Sprintf("¥%.0f", ctx.Budget)
	}

	var b strings.Builder
	b.WriteString("旅行方案\n")
	b.WriteString("目的地：" + ctx.Destination + "\n")
	b.WriteString("行程天数：" + days + "\n")
	b.WriteString("出行日期：" + dates + "\n")
	b.WriteString("预算：" + budget + "\n")
	if len(ctx.Itineraries) == 0 {
		b.WriteString("每日安排：" + tbd + "\n")
		return b.String()
	}
	for _, day := range ctx.Itineraries {
		b.WriteString(fmt.Sprintf("第%d天：%s；%s；%s\n", day.Day, day.Morning, day.Afternoon, day.Evening))
	}
	return b.String()
}

// concatRoute is the route counterpart of concatPlan.
func concatRoute(ctx *RouteContext) string {
	var b strings.Builder
	b.WriteString(ctx.Origin + "到" + ctx.Destination + "的交通方式：")
	if len(ctx.Options) == 0 {
		b.WriteString(tbd)
		return b.String()
	}
	var parts []string
	for _, opt := range ctx.Options {
		parts = append(parts, fmt.Sprintf("%s（%s，%s）", opt.Mode, opt.Duration, opt.Price))
	}
	b.WriteString(strings.Join(parts, "；"))
	return b.String()
}
