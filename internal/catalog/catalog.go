// Package catalog holds the typed city data the assistant draws on:
// hotels, attractions, restaurants, intercity transport, and flight
// schedules.
//
// A Catalog seeds itself from the embedded defaults and overlays any
// operator data directory. Loading is tolerant entry by entry: a row
// that fails to decode or validate is skipped with a warning and its
// siblings still load. The catalog is loaded once at startup and
// read-only afterwards.
package catalog

import (
	"errors"
	"fmt"
)

// Hotel is one bookable stay.
type Hotel struct {
	Name          string   `yaml:"name"`
	City          string   `yaml:"city"`
	District      string   `yaml:"district,omitempty"`
	Address       string   `yaml:"address,omitempty"`
	PricePerNight float64  `yaml:"price_per_night"`
	Rating        float64  `yaml:"rating"`
	Stars         int      `yaml:"stars,omitempty"`
	Type          string   `yaml:"type,omitempty"` // 经济型, 商务型, 豪华型
	Amenities     []string `yaml:"amenities,omitempty"`
	Description   string   `yaml:"description,omitempty"`
}

// Validate reports whether the entry is usable.
func (h Hotel) Validate() error {
	if h.Name == "" {
		return errors.New("hotel missing name")
	}
	if h.City == "" {
		return fmt.Errorf("hotel %q missing city", h.Name)
	}
	if h.PricePerNight <= 0 {
		return fmt.Errorf("hotel %q has bad price %v", h.Name, h.PricePerNight)
	}
	if h.Rating < 0 || h.Rating > 5 {
		return fmt.Errorf("hotel %q has bad rating %v", h.Name, h.Rating)
	}
	return nil
}

// Attraction is one sight worth a visit.
type Attraction struct {
	Name          string  `yaml:"name"`
	City          string  `yaml:"city"`
	District      string  `yaml:"district,omitempty"`
	Category      string  `yaml:"category"` // 历史文化, 自然风光, 城市景观, 现代建筑, 娱乐休闲, 购物中心
	TicketPrice   float64 `yaml:"ticket_price"`
	DurationHours float64 `yaml:"duration_hours"`
	Description   string  `yaml:"description,omitempty"`
	OpeningHours  string  `yaml:"opening_hours,omitempty"`
	BestTime      string  `yaml:"best_time,omitempty"`
	Tips          string  `yaml:"tips,omitempty"`
}

// Validate reports whether the entry is usable.
func (a Attraction) Validate() error {
	if a.Name == "" {
		return errors.New("attraction missing name")
	}
	if a.City == "" {
		return fmt.Errorf("attraction %q missing city", a.Name)
	}
	if a.TicketPrice < 0 {
		return fmt.Errorf("attraction %q has negative ticket price", a.Name)
	}
	return nil
}

// Restaurant is one place to eat.
type Restaurant struct {
	Name         string   `yaml:"name"`
	City         string   `yaml:"city"`
	District     string   `yaml:"district,omitempty"`
	Cuisine      string   `yaml:"cuisine"` // 中餐, 西餐, 日料, 韩料, 泰餐, 当地特色
	AvgPrice     float64  `yaml:"avg_price_per_person"`
	Rating       float64  `yaml:"rating"`
	Specialties  []string `yaml:"specialties,omitempty"`
	OpeningHours string   `yaml:"opening_hours,omitempty"`
	Reservation  bool     `yaml:"reservation_required,omitempty"`
}

// Validate reports whether the entry is usable.
func (r Restaurant) Validate() error {
	if r.Name == "" {
		return errors.New("restaurant missing name")
	}
	if r.City == "" {
		return fmt.Errorf("restaurant %q missing city", r.Name)
	}
	if r.AvgPrice < 0 {
		return fmt.Errorf("restaurant %q has negative price", r.Name)
	}
	return nil
}

// TransportOption is one way between two cities.
type TransportOption struct {
	FromCity      string  `yaml:"from_city"`
	ToCity        string  `yaml:"to_city"`
	Mode          string  `yaml:"mode"` // 高铁, 飞机, 火车, 大巴, 自驾
	DurationHours float64 `yaml:"duration_hours"`
	Price         float64 `yaml:"price"`
	Frequency     string  `yaml:"frequency,omitempty"`
	Departure     string  `yaml:"departure_time,omitempty"`
	Arrival       string  `yaml:"arrival_time,omitempty"`
	Carrier       string  `yaml:"company,omitempty"`
}

// Validate reports whether the entry is usable.
func (t TransportOption) Validate() error {
	if t.FromCity == "" || t.ToCity == "" {
		return errors.New("transport missing cities")
	}
	if t.Mode == "" {
		return fmt.Errorf("transport %s-%s missing mode", t.FromCity, t.ToCity)
	}
	if t.Price < 0 {
		return fmt.Errorf("transport %s-%s has negative price", t.FromCity, t.ToCity)
	}
	return nil
}

// Flight is one scheduled flight, used for airline price comparison.
type Flight struct {
	Number    string  `yaml:"number"`
	Airline   string  `yaml:"airline"`
	FromCity  string  `yaml:"from_city"`
	ToCity    string  `yaml:"to_city"`
	Departure string  `yaml:"departure"`
	Arrival   string  `yaml:"arrival"`
	Duration  string  `yaml:"duration,omitempty"`
	Price     float64 `yaml:"price"`
	Seats     int     `yaml:"seats,omitempty"`
}

// Validate reports whether the entry is usable.
func (f Flight) Validate() error {
	if f.Number == "" {
		return errors.New("flight missing number")
	}
	if f.FromCity == "" || f.ToCity == "" {
		return fmt.Errorf("flight %s missing cities", f.Number)
	}
	if f.Price <= 0 {
		return fmt.Errorf("flight %s has bad price %v", f.Number, f.Price)
	}
	return nil
}

// CityInfo summarizes what the catalog knows about one city.
type CityInfo struct {
	City           string  `json:"city"`
	Hotels         int     `json:"hotels"`
	Attractions    int     `json:"attractions"`
	Restaurants    int     `json:"restaurants"`
	AvgHotelPrice  float64 `json:"avg_hotel_price"`
	AvgTicketPrice float64 `json:"avg_ticket_price"`
	AvgMealPrice   float64 `json:"avg_meal_price"`
}
