package planner

import (
	"strings"
	"time"
)

// Defaults applied to underspecified requests.
const (
	DefaultDays   = 3
	DefaultBudget = 3000
	DefaultPeople = 2
	DefaultOrigin = "北京"

	defaultLeadDays = 7
)

// Request describes what the user asked for. Zero values mean the
// field was not given; Build fills them with defaults.
type Request struct {
	Destination string    `json:"destination"`
	Origin      string    `json:"origin,omitempty"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Days        int       `json:"days,omitempty"`
	Budget      float64   `json:"budget,omitempty"`
	People      int       `json:"people,omitempty"`
}

// Complete reports whether the request can be planned at all. Only the
// destination is strictly required; everything else has defaults.
func (r Request) Complete() bool {
	return strings.TrimSpace(r.Destination) != ""
}

// MissingFields names the fields a fully specified request would have.
func (r Request) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(r.Destination) == "" {
		missing = append(missing, "目的地")
	}
	if r.Days <= 0 && (r.StartDate.IsZero() || r.EndDate.IsZero()) {
		missing = append(missing, "旅行天数")
	}
	if r.Budget <= 0 {
		missing = append(missing, "预算")
	}
	if r.People <= 0 {
		missing = append(missing, "人数")
	}
	return missing
}

// withDefaults returns a copy with every unset field filled in.
func (r Request) withDefaults(now time.Time) Request {
	if r.Days <= 0 {
		if !r.StartDate.IsZero() && !r.EndDate.IsZero() {
			r.Days = int(r.EndDate.Sub(r.StartDate).Hours() / 24)
		}
		if r.Days <= 0 {
			r.Days = DefaultDays
		}
	}
	if r.StartDate.IsZero() {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		r.StartDate = today.AddDate(0, 0, defaultLeadDays)
	}
	if r.EndDate.IsZero() {
		r.EndDate = r.StartDate.AddDate(0, 0, r.Days)
	}
	if r.Budget <= 0 {
		r.Budget = DefaultBudget
	}
	if r.People <= 0 {
		r.People = DefaultPeople
	}
	if strings.TrimSpace(r.Origin) == "" {
		r.Origin = DefaultOrigin
	}
	return r
}
