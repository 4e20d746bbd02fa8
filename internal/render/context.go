package render

import (
	"fmt"
	"strconv"
	"strings"
)

// PlanContext carries everything the plan templates can show. Optional
// sections are pointers or slices; nil means the section is absent.
type PlanContext struct {
	Title       string
	Destination string
	Days        int
	StartDate   string
	EndDate     string
	People      int
	Budget      float64
	Itineraries []DayContext
	Hotel       *HotelContext
	Transport   *TransportContext
	BudgetLines []BudgetLine
	Tips        []string
}

// DayContext is one day of the itinerary.
type DayContext struct {
	Day       int
	Date      string
	Morning   string
	Afternoon string
	Evening   string
	Cost      float64
}

// HotelContext is the recommended stay.
type HotelContext struct {
	Name   string
	Price  float64
	Rating float64
	Reason string
}

// TransportContext is one way of getting there.
type TransportContext struct {
	Mode     string
	Duration string
	Price    string
	Detail   string
}

// BudgetLine is one row of the budget breakdown.
type BudgetLine struct {
	Label  string
	Amount float64
}

// RouteContext carries a transport comparison between two places.
type RouteContext struct {
	Origin      string
	Destination string
	Options     []TransportContext
}

// placeholder is what a missing itinerary field degrades to. Entries
// are never dropped; each missing field shows this explicitly.
const placeholder = "待定"

// normalizePlan returns a copy of ctx with every itinerary field
// filled, so no tier ever shows a silent hole. The caller's context is
// not mutated.
func normalizePlan(ctx *PlanContext) *PlanContext {
	if ctx == nil {
		return &PlanContext{}
	}
	out := *ctx
	out.Itineraries = make([]DayContext, len(ctx.Itineraries))
	for i, day := range ctx.Itineraries {
		if day.Day == 0 {
			day.Day = i + 1
		}
		if day.Date == "" {
			day.Date = placeholder
		}
		if day.Morning == "" {
			day.Morning = placeholder
		}
		if day.Afternoon == "" {
			day.Afternoon = placeholder
		}
		if day.Evening == "" {
			day.Evening = placeholder
		}
		out.Itineraries[i] = day
	}
	return &out
}

// flatPlan is the tier-two view: every field a pre-formatted string,
// so the fallback template needs nothing but substitution.
type flatPlan struct {
	Title       string
	Destination string
	Days        string
	Dates       string
	Budget      string
	Summary     string
}

func flattenPlan(ctx *PlanContext) flatPlan {
	f := flatPlan{
		Title:       ctx.Title,
		Destination: ctx.Destination,
	}
	if f.Title == "" && ctx.Destination != "" {
		f.Title = ctx.Destination + "旅行方案"
	}
	if ctx.Days > 0 {
		f.Days = strconv.Itoa(ctx.Days)
	}
	if ctx.StartDate != "" && ctx.EndDate != "" {
		f.Dates = ctx.StartDate + " 至 " + ctx.EndDate
	}
	if ctx.Budget > 0 {
		f.Budget = fmt.Sprintf("¥%.0f", ctx.Budget)
	}

	var lines []string
	for _, day := range ctx.Itineraries {
		lines = append(lines, fmt.Sprintf("第%d天：%s", day.Day, day.Morning))
	}
	f.Summary = strings.Join(lines, "\n")
	return f
}

// flatRoute is the tier-two view of a route comparison.
type flatRoute struct {
	Origin      string
	Destination string
	Summary     string
}

func flattenRoute(ctx *RouteContext) flatRoute {
	f := flatRoute{Origin: ctx.Origin, Destination: ctx.Destination}
	var parts []string
	for _, opt := range ctx.Options {
		parts = append(parts, fmt.Sprintf("%s（%s，%s）", opt.Mode, opt.Duration, opt.Price))
	}
	f.Summary = strings.Join(parts, "；")
	return f
}
