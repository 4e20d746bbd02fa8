package planner

import (
	"time"

	"github.com/fernwey/atlas-travel-agent/internal/render"
)

// Budget share per spending category. The shares sum to one; splitBudget
// rescales defensively if they ever do not.
const (
	hotelShare      = 0.40
	foodShare       = 0.25
	attractionShare = 0.15
	transportShare  = 0.15
	otherShare      = 0.05
)

// Breakdown allocates the total budget across spending categories.
type Breakdown struct {
	Hotel       float64 `json:"hotel"`
	Food        float64 `json:"restaurant"`
	Attractions float64 `json:"attractions"`
	Transport   float64 `json:"transport"`
	Other       float64 `json:"other"`
}

// Total sums all categories.
func (b Breakdown) Total() float64 {
	return b.Hotel + b.Food + b.Attractions + b.Transport + b.Other
}

// Allocate splits a total budget across the spending categories using
// the standard shares. Budget-only questions get the same split a full
// plan would.
func Allocate(total float64) Breakdown {
	return splitBudget(total)
}

func splitBudget(total float64) Breakdown {
	b := Breakdown{
		Hotel:       total * hotelShare,
		Food:        total * foodShare,
		Attractions: total * attractionShare,
		Transport:   total * transportShare,
		Other:       total * otherShare,
	}
	if sum := b.Total(); sum > total && sum > 0 {
		scale := total / sum
		b.Hotel *= scale
		b.Food *= scale
		b.Attractions *= scale
		b.Transport *= scale
		b.Other *= scale
	}
	return b
}

// Slot is one part of a day: an attraction to visit and a place to eat.
// Either may be empty when the catalog runs out of material.
type Slot struct {
	Attraction string `json:"attraction,omitempty"`
	Dining     string `json:"dining,omitempty"`
}

// Describe renders the slot as one line of itinerary text. Empty slots
// describe as an empty string so downstream rendering can substitute a
// placeholder.
func (s Slot) Describe() string {
	switch {
	case s.Attraction != "" && s.Dining != "":
		return "游览" + s.Attraction + "，用餐推荐" + s.Dining
	case s.Attraction != "":
		return "游览" + s.Attraction
	case s.Dining != "":
		return "自由活动，用餐推荐" + s.Dining
	default:
		return ""
	}
}

// DayPlan is the schedule for a single day of the trip.
type DayPlan struct {
	Day       int       `json:"day"`
	Date      time.Time `json:"date"`
	Morning   Slot      `json:"morning"`
	Afternoon Slot      `json:"afternoon"`
	Evening   Slot      `json:"evening"`
	Cost      float64   `json:"estimated_cost"`
}

// HotelPick is a scored hotel recommendation.
type HotelPick struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price_per_night"`
	Rating float64 `json:"rating"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// TransportSuggestion is one way to get to the destination.
type TransportSuggestion struct {
	Mode     string `json:"mode"`
	Duration string `json:"duration"`
	Price    string `json:"price"`
	Detail   string `json:"detail,omitempty"`
}

// Plan is a complete assembled trip.
type Plan struct {
	ID          string                `json:"id"`
	Destination string                `json:"destination"`
	Origin      string                `json:"origin"`
	StartDate   time.Time             `json:"start_date"`
	EndDate     time.Time             `json:"end_date"`
	Days        int                   `json:"days"`
	Budget      float64               `json:"budget"`
	People      int                   `json:"people"`
	Level       string                `json:"budget_level"`
	Breakdown   Breakdown             `json:"budget_breakdown"`
	Itinerary   []DayPlan             `json:"itinerary"`
	Transport   []TransportSuggestion `json:"transport,omitempty"`
	Hotel       *HotelPick            `json:"hotel,omitempty"`
	Tips        []string              `json:"tips,omitempty"`
	Status      string                `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

const dateLayout = "2006-01-02"

// RenderContext converts the plan into the renderer's input shape.
func (p *Plan) RenderContext() render.PlanContext {
	ctx := render.PlanContext{
		Destination: p.Destination,
		Days:        p.Days,
		StartDate:   p.StartDate.Format(dateLayout),
		EndDate:     p.EndDate.Format(dateLayout),
		People:      p.People,
		Budget:      p.Budget,
		Tips:        p.Tips,
	}
	for _, d := range p.Itinerary {
		ctx.Itineraries = append(ctx.Itineraries, render.DayContext{
			Day:       d.Day,
			Date:      d.Date.Format(dateLayout),
			Morning:   d.Morning.Describe(),
			Afternoon: d.Afternoon.Describe(),
			Evening:   d.Evening.Describe(),
			Cost:      d.Cost,
		})
	}
	if p.Hotel != nil {
		ctx.Hotel = &render.HotelContext{
			Name:   p.Hotel.Name,
			Price:  p.Hotel.Price,
			Rating: p.Hotel.Rating,
			Reason: p.Hotel.Reason,
		}
	}
	if len(p.Transport) > 0 {
		t := p.Transport[0]
		ctx.Transport = &render.TransportContext{
			Mode:     t.Mode,
			Duration: t.Duration,
			Price:    t.Price,
			Detail:   t.Detail,
		}
	}
	b := p.Breakdown
	ctx.BudgetLines = []render.BudgetLine{
		{Label: "住宿", Amount: b.Hotel},
		{Label: "餐饮", Amount: b.Food},
		{Label: "景点", Amount: b.Attractions},
		{Label: "交通", Amount: b.Transport},
		{Label: "其他", Amount: b.Other},
	}
	return ctx
}

// BudgetLevel grades a daily budget.
func BudgetLevel(daily float64) string {
	switch {
	case daily < 500:
		return "经济"
	case daily < 1500:
		return "中等"
	case daily < 5000:
		return "中高端"
	default:
		return "豪华"
	}
}

// budgetTips suggests spending habits for a daily budget.
func budgetTips(daily float64) []string {
	switch {
	case daily < 200:
		return []string{
			"预算较低，建议选择经济型酒店和快餐",
			"可以寻找免费景点和公园",
			"使用公共交通，避免打车",
		}
	case daily < 500:
		return []string{
			"中等预算，可以选择舒适型酒店和特色餐厅",
			"可以体验一些付费景点",
			"适当使用打车服务",
		}
	default:
		return []string{
			"预算充足，可以选择高档酒店和精品餐厅",
			"可以体验更多特色活动和景点",
			"享受VIP服务和体验",
		}
	}
}
