package catalog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSeedsEmbeddedDefaults(t *testing.T) {
	c := New(discard())

	if len(c.Hotels) == 0 {
		t.Fatal("expected embedded hotels")
	}
	found := false
	for _, h := range c.Hotels {
		if h.Name == "北京王府井希尔顿酒店" {
			found = true
			if h.City != "北京" {
				t.Errorf("city = %q, want 北京", h.City)
			}
			if h.PricePerNight != 800 {
				t.Errorf("price = %v, want 800", h.PricePerNight)
			}
			if h.Stars != 5 {
				t.Errorf("stars = %v, want 5", h.Stars)
			}
		}
	}
	if !found {
		t.Error("embedded hotel 北京王府井希尔顿酒店 missing")
	}

	if len(c.Attractions) == 0 {
		t.Error("expected embedded attractions")
	}
	if len(c.Restaurants) == 0 {
		t.Error("expected embedded restaurants")
	}
	if len(c.Transport) == 0 {
		t.Error("expected embedded transport")
	}
	if len(c.Flights) == 0 {
		t.Error("expected embedded flights")
	}
}

func TestLoadMissingDirKeepsDefaults(t *testing.T) {
	c := New(discard())
	before := len(c.Hotels)

	c.Load(filepath.Join(t.TempDir(), "nope"))

	if len(c.Hotels) != before {
		t.Errorf("hotels = %d after missing dir, want %d", len(c.Hotels), before)
	}
}

func TestLoadOverlayReplacesOneKind(t *testing.T) {
	dir := t.TempDir()
	hotels := `- name: 测试酒店
  city: 成都
  price_per_night: 420
  rating: 4.0
`
	if err := os.WriteFile(filepath.Join(dir, "hotels.yaml"), []byte(hotels), 0644); err != nil {
		t.Fatal(err)
	}

	c := New(discard())
	attractionsBefore := len(c.Attractions)
	c.Load(dir)

	if len(c.Hotels) != 1 {
		t.Fatalf("hotels = %d, want 1", len(c.Hotels))
	}
	if c.Hotels[0].Name != "测试酒店" {
		t.Errorf("hotel = %q, want 测试酒店", c.Hotels[0].Name)
	}
	if len(c.Attractions) != attractionsBefore {
		t.Errorf("attractions changed from %d to %d without an overlay file", attractionsBefore, len(c.Attractions))
	}
}

func TestLoadSkipsBadEntriesKeepsGood(t *testing.T) {
	dir := t.TempDir()
	hotels := `- name: 好酒店
  city: 成都
  price_per_night: 300
  rating: 4.1
- name: 没有城市的酒店
  price_per_night: 200
  rating: 3.9
- name: 另一家好酒店
  city: 成都
  price_per_night: 500
  rating: 4.5
`
	if err := os.WriteFile(filepath.Join(dir, "hotels.yaml"), []byte(hotels), 0644); err != nil {
		t.Fatal(err)
	}

	c := New(discard())
	c.Load(dir)

	if len(c.Hotels) != 2 {
		t.Fatalf("hotels = %d, want 2 (invalid entry skipped)", len(c.Hotels))
	}
	for _, h := range c.Hotels {
		if h.City == "" {
			t.Errorf("entry without city survived: %q", h.Name)
		}
	}
}

func TestLoadMalformedFileYieldsEmptyKind(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "flights.yaml"), []byte("{{{not yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	c := New(discard())
	c.Load(dir)

	if len(c.Flights) != 0 {
		t.Errorf("flights = %d after malformed overlay, want 0", len(c.Flights))
	}
	if len(c.Hotels) == 0 {
		t.Error("hotels should keep embedded defaults")
	}
}

func TestSearchHotels(t *testing.T) {
	c := New(discard())

	got := c.SearchHotels("北京", 0, 0)
	if len(got) < 2 {
		t.Fatalf("hotels in 北京 = %d, want at least 2", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Rating > got[i-1].Rating {
			t.Errorf("hotels not sorted by rating desc: %v before %v", got[i-1].Rating, got[i].Rating)
		}
	}

	cheap := c.SearchHotels("北京", 400, 0)
	for _, h := range cheap {
		if h.PricePerNight > 400 {
			t.Errorf("hotel %q price %v exceeds max 400", h.Name, h.PricePerNight)
		}
	}

	top := c.SearchHotels("北京", 0, 4.5)
	for _, h := range top {
		if h.Rating < 4.5 {
			t.Errorf("hotel %q rating %v below min 4.5", h.Name, h.Rating)
		}
	}

	if got := c.SearchHotels("不存在的城市", 0, 0); len(got) != 0 {
		t.Errorf("hotels in unknown city = %d, want 0", len(got))
	}
}

func TestSearchAttractions(t *testing.T) {
	c := New(discard())

	all := c.SearchAttractions("北京", "")
	if len(all) == 0 {
		t.Fatal("expected attractions in 北京")
	}

	filtered := c.SearchAttractions("北京", "历史文化")
	if len(filtered) == 0 {
		t.Fatal("expected 历史文化 attractions in 北京")
	}
	for _, a := range filtered {
		if a.Category != "历史文化" {
			t.Errorf("attraction %q category = %q", a.Name, a.Category)
		}
	}
	if len(filtered) >= len(all) {
		t.Errorf("category filter did not narrow: %d of %d", len(filtered), len(all))
	}
}

func TestSearchRestaurants(t *testing.T) {
	c := New(discard())

	got := c.SearchRestaurants("上海", "当地特色", 0)
	if len(got) == 0 {
		t.Fatal("expected 当地特色 restaurants in 上海")
	}
	for _, r := range got {
		if r.Cuisine != "当地特色" {
			t.Errorf("restaurant %q cuisine = %q", r.Name, r.Cuisine)
		}
	}

	cheap := c.SearchRestaurants("上海", "", 100)
	for _, r := range cheap {
		if r.AvgPrice > 100 {
			t.Errorf("restaurant %q avg price %v exceeds 100", r.Name, r.AvgPrice)
		}
	}
}

func TestFindTransport(t *testing.T) {
	c := New(discard())

	got := c.FindTransport("北京", "上海")
	if len(got) < 2 {
		t.Fatalf("transport 北京 to 上海 = %d options, want at least 2", len(got))
	}
	modes := make(map[string]bool)
	for _, opt := range got {
		if opt.FromCity != "北京" || opt.ToCity != "上海" {
			t.Errorf("option %s runs %s to %s", opt.Mode, opt.FromCity, opt.ToCity)
		}
		modes[opt.Mode] = true
	}
	if !modes["高铁"] || !modes["飞机"] {
		t.Errorf("modes = %v, want 高铁 and 飞机", modes)
	}

	if got := c.FindTransport("上海", "北京"); len(got) == 0 {
		t.Error("expected return direction 上海 to 北京")
	}
}

func TestSearchFlightsSortedByPrice(t *testing.T) {
	c := New(discard())

	got := c.SearchFlights("北京", "上海")
	if len(got) < 2 {
		t.Fatalf("flights 北京 to 上海 = %d, want at least 2", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Price < got[i-1].Price {
			t.Errorf("flights not sorted by price: %v before %v", got[i-1].Price, got[i].Price)
		}
	}
}

func TestCities(t *testing.T) {
	c := New(discard())

	cities := c.Cities()
	if len(cities) < 2 {
		t.Fatalf("cities = %v, want at least 北京 and 上海", cities)
	}
	for i := 1; i < len(cities); i++ {
		if cities[i] < cities[i-1] {
			t.Errorf("cities not sorted: %q before %q", cities[i-1], cities[i])
		}
	}
	seen := make(map[string]bool)
	for _, city := range cities {
		if seen[city] {
			t.Errorf("duplicate city %q", city)
		}
		seen[city] = true
	}
	if !seen["北京"] || !seen["上海"] {
		t.Errorf("cities = %v, missing 北京 or 上海", cities)
	}
}

func TestCityInfo(t *testing.T) {
	c := New(discard())

	info := c.City("北京")
	if info.Hotels == 0 {
		t.Error("expected hotel count for 北京")
	}
	if info.Attractions == 0 {
		t.Error("expected attraction count for 北京")
	}
	if info.AvgHotelPrice <= 0 {
		t.Errorf("avg hotel price = %v, want positive", info.AvgHotelPrice)
	}

	empty := c.City("不存在的城市")
	if empty.Hotels != 0 || empty.AvgHotelPrice != 0 {
		t.Errorf("unknown city info = %+v, want zeros", empty)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()

	c := New(discard())
	if err := c.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := New(discard())
	reloaded.Load(dir)

	if len(reloaded.Hotels) != len(c.Hotels) {
		t.Errorf("hotels after round trip = %d, want %d", len(reloaded.Hotels), len(c.Hotels))
	}
	if len(reloaded.Flights) != len(c.Flights) {
		t.Errorf("flights after round trip = %d, want %d", len(reloaded.Flights), len(c.Flights))
	}
}
