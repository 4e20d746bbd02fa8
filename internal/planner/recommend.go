package planner

import (
	"fmt"
	"slices"
	"sort"

	"github.com/fernwey/atlas-travel-agent/internal/catalog"
)

// RecommendHotels scores hotels in city against a nightly budget and
// optional amenity preferences, best first, at most five.
func (p *Planner) RecommendHotels(city string, nightlyBudget float64, preferences []string) []HotelPick {
	hotels := p.catalog.SearchHotels(city, nightlyBudget, 0)

	picks := make([]HotelPick, 0, len(hotels))
	for _, h := range hotels {
		picks = append(picks, HotelPick{
			Name:   h.Name,
			Price:  h.PricePerNight,
			Rating: h.Rating,
			Score:  scoreHotel(h, nightlyBudget, preferences),
			Reason: hotelReason(h, nightlyBudget),
		})
	}
	sort.SliceStable(picks, func(i, j int) bool {
		return picks[i].Score > picks[j].Score
	})
	if len(picks) > 5 {
		picks = picks[:5]
	}
	return picks
}

// scoreHotel rates a hotel out of 100: a price band worth 10 to 30,
// the guest rating times ten, five per matched amenity, and two per
// star.
func scoreHotel(h catalog.Hotel, nightlyBudget float64, preferences []string) float64 {
	var score float64

	switch {
	case nightlyBudget <= 0:
		score += 10
	case h.PricePerNight/nightlyBudget <= 0.7:
		score += 30
	case h.PricePerNight/nightlyBudget <= 1.0:
		score += 20
	default:
		score += 10
	}

	score += h.Rating * 10

	for _, pref := range preferences {
		if slices.Contains(h.Amenities, pref) {
			score += 5
		}
	}

	score += float64(h.Stars) * 2

	return min(100, score)
}

func hotelReason(h catalog.Hotel, nightlyBudget float64) string {
	band := "价格偏高"
	if nightlyBudget > 0 {
		switch {
		case h.PricePerNight/nightlyBudget <= 0.7:
			band = "价格优惠"
		case h.PricePerNight/nightlyBudget <= 1.0:
			band = "价格合理"
		}
	}

	reason := band + fmt.Sprintf("，评分%.1f", h.Rating)
	if h.Type != "" {
		reason = h.Type + "，" + reason
	}
	return reason
}
