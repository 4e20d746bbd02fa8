package web

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/fernwey/atlas-travel-agent/internal/planner"
)

// planCalendar renders a plan as an iCalendar feed, one all-day event
// per travel day, so an itinerary drops straight into a phone calendar.
func planCalendar(p *planner.Plan, link string) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Atlas//Travel Agent//CN")

	now := time.Now().UTC()
	for _, day := range p.Itinerary {
		ev := cal.AddEvent(fmt.Sprintf("%s-day%d@atlas", p.ID, day.Day))
		ev.SetCreatedTime(now)
		ev.SetDtStampTime(now)
		ev.SetAllDayStartAt(day.Date)
		// DTEND on an all-day event is exclusive.
		ev.SetAllDayEndAt(day.Date.AddDate(0, 0, 1))
		ev.SetSummary(fmt.Sprintf("%s 第%d天", p.Destination, day.Day))
		ev.SetDescription(dayDescription(day))
		ev.SetLocation(p.Destination)
		if link != "" {
			ev.SetURL(link)
		}
	}
	return cal.Serialize()
}

func dayDescription(day planner.DayPlan) string {
	var lines []string
	for _, part := range []struct {
		label string
		slot  planner.Slot
	}{
		{"上午", day.Morning},
		{"下午", day.Afternoon},
		{"晚上", day.Evening},
	} {
		if text := part.slot.Describe(); text != "" {
			lines = append(lines, part.label+"："+text)
		}
	}
	if day.Cost > 0 {
		lines = append(lines, fmt.Sprintf("当日预算约¥%.0f", day.Cost))
	}
	return strings.Join(lines, "\n")
}
