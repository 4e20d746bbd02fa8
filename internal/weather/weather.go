// Package weather serves synthesized weather data. Conditions are
// deterministic per city and date so repeated queries and tests agree,
// with a short-lived cache in front.
package weather

import (
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
)

// Info describes the weather for one city on one day.
type Info struct {
	City      string  `json:"city"`
	Date      string  `json:"date"`
	High      float64 `json:"temperature_high"`
	Low       float64 `json:"temperature_low"`
	Condition string  `json:"weather_condition"`
	Humidity  int     `json:"humidity"`
	WindSpeed float64 `json:"wind_speed"`
}

var conditions = []string{"晴朗", "多云", "阴天", "小雨", "晴转多云"}

// Service answers weather queries.
type Service struct {
	cache  *cache.Cache
	logger *slog.Logger
	now    func() time.Time
}

// New creates a weather service with a 30 minute answer cache.
func New(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cache:  cache.New(30*time.Minute, 10*time.Minute),
		logger: logger,
		now:    time.Now,
	}
}

// Current returns today's weather for city.
func (s *Service) Current(city string) Info {
	return s.Forecast(city, s.now())
}

// Forecast returns the weather for city on the given date.
func (s *Service) Forecast(city string, date time.Time) Info {
	day := date.Format("2006-01-02")
	key := city + "|" + day

	if cached, found := s.cache.Get(key); found {
		return cached.(Info)
	}

	info := synthesize(city, date)
	s.cache.Set(key, info, cache.DefaultExpiration)
	s.logger.Debug("weather synthesized", "city", city, "date", day, "condition", info.Condition)
	return info
}

// synthesize derives stable weather from the city name and date. The
// daily high follows the season, everything else follows the hash.
func synthesize(city string, date time.Time) Info {
	h := fnv.New32a()
	h.Write([]byte(city))
	h.Write([]byte(date.Format("2006-01-02")))
	n := h.Sum32()

	base := seasonalHigh(date.Month())
	high := base + float64(n%11) - 5 // base ± 5
	low := high - 8 - float64(n%4)

	return Info{
		City:      city,
		Date:      date.Format("2006-01-02"),
		High:      high,
		Low:       low,
		Condition: conditions[n%uint32(len(conditions))],
		Humidity:  40 + int(n%45),
		WindSpeed: 5 + float64(n%20),
	}
}

func seasonalHigh(m time.Month) float64 {
	switch m {
	case time.December, time.January, time.February:
		return 5
	case time.March, time.April, time.May:
		return 18
	case time.June, time.July, time.August:
		return 30
	default:
		return 20
	}
}
