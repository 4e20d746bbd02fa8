// Package planner assembles travel plans from the city catalog: daily
// itineraries, budget allocation, transport suggestions, and a hotel
// recommendation.
package planner

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fernwey/atlas-travel-agent/internal/catalog"
	"github.com/fernwey/atlas-travel-agent/internal/events"
)

// IncompleteRequestError reports a request that cannot be planned.
type IncompleteRequestError struct {
	Missing []string
}

func (e *IncompleteRequestError) Error() string {
	return "旅行请求不完整，缺少: " + strings.Join(e.Missing, ", ")
}

// Planner builds travel plans.
type Planner struct {
	catalog *catalog.Catalog
	bus     *events.Bus
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// New creates a planner over the given catalog. The bus may be nil.
func New(cat *catalog.Catalog, bus *events.Bus, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		catalog: cat,
		bus:     bus,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Build assembles a plan for the request. Missing fields other than the
// destination are filled with defaults; a missing destination is an
// IncompleteRequestError.
func (p *Planner) Build(req Request) (*Plan, error) {
	if !req.Complete() {
		return nil, &IncompleteRequestError{Missing: req.MissingFields()}
	}

	req = req.withDefaults(p.now())
	daily := req.Budget / float64(req.Days)

	if optimized := optimizeDays(req.Destination, req.Days, daily); optimized != req.Days {
		p.logger.Info("trip length adjusted",
			"destination", req.Destination,
			"from", req.Days,
			"to", optimized,
			"reason", durationReason(req.Destination, optimized, daily),
		)
		req.Days = optimized
		req.EndDate = req.StartDate.AddDate(0, 0, req.Days)
		daily = req.Budget / float64(req.Days)
	}

	breakdown := splitBudget(req.Budget)
	now := p.now()

	plan := &Plan{
		ID:          p.newID(),
		Destination: req.Destination,
		Origin:      req.Origin,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Days:        req.Days,
		Budget:      req.Budget,
		People:      req.People,
		Level:       BudgetLevel(daily),
		Breakdown:   breakdown,
		Itinerary:   p.buildItinerary(req),
		Transport:   p.TransportSuggestions(req.Origin, req.Destination),
		Hotel:       p.pickHotel(req.Destination, breakdown.Hotel/float64(req.Days)),
		Tips:        budgetTips(daily),
		Status:      "draft",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	p.logger.Info("travel plan created",
		"plan_id", plan.ID,
		"destination", plan.Destination,
		"days", plan.Days,
		"budget", plan.Budget,
	)
	p.bus.Publish(events.Event{
		Timestamp: now,
		Source:    events.SourcePlanner,
		Kind:      events.KindPlanBuilt,
		Data: map[string]any{
			"plan_id":     plan.ID,
			"destination": plan.Destination,
			"days":        plan.Days,
			"budget":      plan.Budget,
		},
	})
	return plan, nil
}

// optimizeDays adjusts the trip length for the destination type and
// budget. Island and seaside trips want at least five days, nature
// trips at least four; tight budgets cap the length and generous ones
// extend it.
func optimizeDays(destination string, days int, dailyBudget float64) int {
	switch {
	case strings.HasSuffix(destination, "岛"),
		strings.Contains(destination, "海岛"),
		strings.Contains(destination, "海滨"):
		return max(days, 5)
	case strings.Contains(destination, "山"), strings.Contains(destination, "自然"):
		return max(days, 4)
	case dailyBudget < 1000:
		return min(days, 5)
	case dailyBudget > 5000:
		return days + 2
	default:
		return days
	}
}

func durationReason(destination string, days int, dailyBudget float64) string {
	switch {
	case strings.HasSuffix(destination, "岛"),
		strings.Contains(destination, "海岛"),
		strings.Contains(destination, "海滨"):
		return fmt.Sprintf("%s是海岛/海滨目的地，建议至少%d天才能充分体验", destination, days)
	case strings.Contains(destination, "山"), strings.Contains(destination, "自然"):
		return fmt.Sprintf("%s有丰富的自然景观，建议%d天深度游览", destination, days)
	case dailyBudget < 1000:
		return fmt.Sprintf("考虑到预算限制，建议%d天经济型旅行", days)
	case dailyBudget > 5000:
		return fmt.Sprintf("预算充足，建议%d天豪华深度游", days)
	default:
		return fmt.Sprintf("根据您的需求，建议%d天行程", days)
	}
}

// buildItinerary lays out one DayPlan per day. First days lean on
// historical sights, last days on relaxed ones, middle days on scenery.
// Attractions are not repeated across days; when the catalog runs out a
// slot stays empty.
func (p *Planner) buildItinerary(req Request) []DayPlan {
	attractions := p.catalog.SearchAttractions(req.Destination, "")
	restaurants := p.catalog.SearchRestaurants(req.Destination, "", 0)

	used := make(map[string]bool)
	days := make([]DayPlan, 0, req.Days)
	for day := 0; day < req.Days; day++ {
		sights := pickAttractions(attractions, day, req.Days, used)
		dining := pickRestaurants(restaurants, day)

		d := DayPlan{
			Day:  day + 1,
			Date: req.StartDate.AddDate(0, 0, day),
		}
		slots := []*Slot{&d.Morning, &d.Afternoon, &d.Evening}
		for i, s := range slots {
			if i < len(sights) {
				s.Attraction = sights[i].Name
				d.Cost += sights[i].TicketPrice * float64(req.People)
			}
			if i < len(dining) {
				s.Dining = dining[i].Name
				d.Cost += dining[i].AvgPrice * float64(req.People)
			}
		}
		days = append(days, d)
	}
	return days
}

// dayCategories returns the attraction categories preferred for a day.
func dayCategories(day, totalDays int) []string {
	switch {
	case day == 0:
		return []string{"历史文化"}
	case day == totalDays-1:
		return []string{"娱乐休闲", "购物中心"}
	default:
		return []string{"城市景观", "自然风光", "现代建筑"}
	}
}

func pickAttractions(all []catalog.Attraction, day, totalDays int, used map[string]bool) []catalog.Attraction {
	var picked []catalog.Attraction
	for _, category := range dayCategories(day, totalDays) {
		count := 0
		for _, a := range all {
			if len(picked) == 3 || count == 2 {
				break
			}
			if a.Category != category || used[a.Name] {
				continue
			}
			picked = append(picked, a)
			used[a.Name] = true
			count++
		}
	}
	// Nothing in the preferred categories; fall back to anything unseen.
	if len(picked) == 0 {
		for _, a := range all {
			if used[a.Name] {
				continue
			}
			picked = append(picked, a)
			used[a.Name] = true
			if len(picked) == 3 {
				break
			}
		}
	}
	return picked
}

func pickRestaurants(all []catalog.Restaurant, day int) []catalog.Restaurant {
	cuisines := []string{"当地特色"}
	if day > 0 {
		cuisines = []string{"中餐", "当地特色"}
	}

	var filtered []catalog.Restaurant
	for _, cuisine := range cuisines {
		for _, r := range all {
			if r.Cuisine == cuisine {
				filtered = append(filtered, r)
			}
		}
	}
	if len(filtered) == 0 {
		filtered = append(filtered, all...)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Rating > filtered[j].Rating
	})
	if len(filtered) > 3 {
		filtered = filtered[:3]
	}
	return filtered
}

// TransportSuggestions lists ways to reach the destination, cheapest
// first. Without catalog data it falls back to generic rail and air
// suggestions. Trips within the origin city need no transport.
func (p *Planner) TransportSuggestions(from, to string) []TransportSuggestion {
	if from == "" || from == to {
		return nil
	}

	options := p.catalog.FindTransport(from, to)
	if len(options) == 0 {
		return []TransportSuggestion{
			{Mode: "高铁", Duration: "4-6小时", Price: "300-800元", Detail: "推荐高铁，舒适且准时"},
			{Mode: "飞机", Duration: "1-2小时", Price: "500-1500元", Detail: "时间紧张时推荐飞机"},
		}
	}

	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Price < options[j].Price
	})
	if len(options) > 3 {
		options = options[:3]
	}

	out := make([]TransportSuggestion, 0, len(options))
	for _, opt := range options {
		out = append(out, TransportSuggestion{
			Mode:     opt.Mode,
			Duration: formatHours(opt.DurationHours),
			Price:    fmt.Sprintf("¥%.0f", opt.Price),
			Detail:   transportDetail(opt),
		})
	}
	return out
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64) + "小时"
}

func transportDetail(opt catalog.TransportOption) string {
	var parts []string
	if opt.Carrier != "" {
		parts = append(parts, opt.Carrier)
	}
	if opt.Frequency != "" {
		parts = append(parts, opt.Frequency)
	}
	return strings.Join(parts, "，")
}

func (p *Planner) pickHotel(city string, nightlyBudget float64) *HotelPick {
	picks := p.RecommendHotels(city, nightlyBudget, nil)
	if len(picks) == 0 {
		return nil
	}
	top := picks[0]
	return &top
}
