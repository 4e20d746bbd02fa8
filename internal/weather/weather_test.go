package weather

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestForecastDeterministic(t *testing.T) {
	s := New(discard())
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	a := s.Forecast("北京", date)
	b := s.Forecast("北京", date)
	if a != b {
		t.Errorf("repeated forecast differs: %+v vs %+v", a, b)
	}

	fresh := New(discard())
	c := fresh.Forecast("北京", date)
	if a != c {
		t.Errorf("forecast not stable across services: %+v vs %+v", a, c)
	}
}

func TestForecastFields(t *testing.T) {
	s := New(discard())
	info := s.Forecast("上海", time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC))

	if info.City != "上海" {
		t.Errorf("city = %q", info.City)
	}
	if info.Date != "2026-07-15" {
		t.Errorf("date = %q, want 2026-07-15", info.Date)
	}
	if info.Low >= info.High {
		t.Errorf("low %v not below high %v", info.Low, info.High)
	}
	if info.Condition == "" {
		t.Error("empty condition")
	}
	if info.Humidity < 40 || info.Humidity >= 85 {
		t.Errorf("humidity = %d, want 40..84", info.Humidity)
	}
	if info.WindSpeed < 5 || info.WindSpeed >= 25 {
		t.Errorf("wind = %v, want 5..24", info.WindSpeed)
	}
}

func TestForecastSeasonal(t *testing.T) {
	s := New(discard())

	summer := s.Forecast("北京", time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC))
	winter := s.Forecast("北京", time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))

	if summer.High <= winter.High {
		t.Errorf("summer high %v not above winter high %v", summer.High, winter.High)
	}
}

func TestCurrentUsesToday(t *testing.T) {
	s := New(discard())
	s.now = func() time.Time {
		return time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC)
	}

	info := s.Current("广州")
	if info.Date != "2026-08-25" {
		t.Errorf("date = %q, want 2026-08-25", info.Date)
	}
}
