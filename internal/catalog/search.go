package catalog

import "sort"

// SearchHotels returns hotels in city, filtered by the optional
// constraints, sorted by rating descending. A zero maxPrice or
// minRating means no constraint.
func (c *Catalog) SearchHotels(city string, maxPrice, minRating float64) []Hotel {
	var out []Hotel
	for _, h := range c.Hotels {
		if h.City != city {
			continue
		}
		if maxPrice > 0 && h.PricePerNight > maxPrice {
			continue
		}
		if minRating > 0 && h.Rating < minRating {
			continue
		}
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Rating > out[j].Rating
	})
	return out
}

// SearchAttractions returns attractions in city. An empty category
// matches all categories.
func (c *Catalog) SearchAttractions(city, category string) []Attraction {
	var out []Attraction
	for _, a := range c.Attractions {
		if a.City != city {
			continue
		}
		if category != "" && a.Category != category {
			continue
		}
		out = append(out, a)
	}
	return out
}

// SearchRestaurants returns restaurants in city. An empty cuisine
// matches all cuisines; a zero maxPrice means no price constraint.
func (c *Catalog) SearchRestaurants(city, cuisine string, maxPrice float64) []Restaurant {
	var out []Restaurant
	for _, r := range c.Restaurants {
		if r.City != city {
			continue
		}
		if cuisine != "" && r.Cuisine != cuisine {
			continue
		}
		if maxPrice > 0 && r.AvgPrice > maxPrice {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FindTransport returns transport options running from one city to
// another. Both cities are matched exactly.
func (c *Catalog) FindTransport(from, to string) []TransportOption {
	var out []TransportOption
	for _, t := range c.Transport {
		if t.FromCity == from && t.ToCity == to {
			out = append(out, t)
		}
	}
	return out
}

// SearchFlights returns flights from one city to another, cheapest
// first.
func (c *Catalog) SearchFlights(from, to string) []Flight {
	var out []Flight
	for _, f := range c.Flights {
		if f.FromCity == from && f.ToCity == to {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Price < out[j].Price
	})
	return out
}

// Cities returns every city the catalog knows, sorted.
func (c *Catalog) Cities() []string {
	seen := make(map[string]bool)
	for _, h := range c.Hotels {
		seen[h.City] = true
	}
	for _, a := range c.Attractions {
		seen[a.City] = true
	}
	for _, r := range c.Restaurants {
		seen[r.City] = true
	}
	out := make([]string, 0, len(seen))
	for city := range seen {
		out = append(out, city)
	}
	sort.Strings(out)
	return out
}

// City summarizes what the catalog holds for a city. Averages are
// zero when no entries of that kind exist.
func (c *Catalog) City(city string) CityInfo {
	info := CityInfo{City: city}

	var hotelSum float64
	for _, h := range c.Hotels {
		if h.City == city {
			info.Hotels++
			hotelSum += h.PricePerNight
		}
	}
	if info.Hotels > 0 {
		info.AvgHotelPrice = hotelSum / float64(info.Hotels)
	}

	var ticketSum float64
	for _, a := range c.Attractions {
		if a.City == city {
			info.Attractions++
			ticketSum += a.TicketPrice
		}
	}
	if info.Attractions > 0 {
		info.AvgTicketPrice = ticketSum / float64(info.Attractions)
	}

	var mealSum float64
	for _, r := range c.Restaurants {
		if r.City == city {
			info.Restaurants++
			mealSum += r.AvgPrice
		}
	}
	if info.Restaurants > 0 {
		info.AvgMealPrice = mealSum / float64(info.Restaurants)
	}

	return info
}
