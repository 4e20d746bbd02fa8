package web

import (
	"reflect"
	"testing"
	"time"
)

var testCities = []string{"北京", "上海", "杭州", "东京", "广州", "桂林"}

func TestParseTripRequest(t *testing.T) {
	now := time.Date(2026, 4, 15, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name        string
		text        string
		destination string
		origin      string
		days        int
		budget      float64
		people      int
		start       time.Time
	}{
		{
			name:        "classic full request",
			text:        "我想去北京玩3天，预算5000元，2个人",
			destination: "北京",
			days:        3,
			budget:      5000,
			people:      2,
		},
		{
			name:        "day trip phrasing",
			text:        "北京5日游，预算8000元，3个人",
			destination: "北京",
			days:        5,
			budget:      8000,
			people:      3,
		},
		{
			name:        "no party size",
			text:        "我想去上海玩2天，预算3000元",
			destination: "上海",
			days:        2,
			budget:      3000,
		},
		{
			name:        "origin marked with cong",
			text:        "从北京到上海玩两天",
			destination: "上海",
			origin:      "北京",
			days:        2,
		},
		{
			name:        "chinese numerals and wan budget",
			text:        "杭州三天两个人预算1万",
			destination: "杭州",
			days:        3,
			budget:      10000,
			people:      2,
		},
		{
			name:        "relative start date",
			text:        "明天从上海飞东京",
			destination: "东京",
			origin:      "上海",
			start:       time.Date(2026, 4, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name:        "ten days written in chinese",
			text:        "去桂林玩十天",
			destination: "桂林",
			days:        10,
		},
		{
			name: "no city at all",
			text: "帮我规划一个行程",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseTripRequest(tt.text, testCities, now)
			if got.Destination != tt.destination {
				t.Errorf("Destination = %q, want %q", got.Destination, tt.destination)
			}
			if got.Origin != tt.origin {
				t.Errorf("Origin = %q, want %q", got.Origin, tt.origin)
			}
			if got.Days != tt.days {
				t.Errorf("Days = %d, want %d", got.Days, tt.days)
			}
			if got.Budget != tt.budget {
				t.Errorf("Budget = %v, want %v", got.Budget, tt.budget)
			}
			if got.People != tt.people {
				t.Errorf("People = %d, want %d", got.People, tt.people)
			}
			if !got.StartDate.Equal(tt.start) {
				t.Errorf("StartDate = %v, want %v", got.StartDate, tt.start)
			}
		})
	}
}

func TestExtractRoute(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		origin string
		dest   string
	}{
		{"cong marks origin", "从北京到上海怎么去", "北京", "上海"},
		{"bare pair with dao", "北京到上海的高铁票价", "北京", "上海"},
		{"pair with qu", "上海去杭州方便吗", "上海", "杭州"},
		{"single city is destination", "去杭州玩", "", "杭州"},
		{"cong alone still needs a destination", "从北京出发", "北京", ""},
		{"no city", "怎么去机场", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origin, dest := extractRoute(tt.text, testCities)
			if origin != tt.origin || dest != tt.dest {
				t.Errorf("extractRoute(%q) = (%q, %q), want (%q, %q)",
					tt.text, origin, dest, tt.origin, tt.dest)
			}
		})
	}
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		amount float64
		from   string
		to     string
		ok     bool
	}{
		{"amount with currency word", "100美元等于多少人民币", 100, "USD", "CNY", true},
		{"bare yuan amount", "1000元能换多少日元", 1000, "CNY", "JPY", true},
		{"wan scales the amount", "1万日元是多少人民币", 10000, "JPY", "CNY", true},
		{"rate question quotes one unit", "美元汇率是多少", 1, "USD", "CNY", true},
		{"pair without amount", "日元对美元的汇率", 1, "JPY", "USD", true},
		{"cny alone is not a conversion", "人民币汇率", 0, "", "", false},
		{"no currency at all", "这个多少钱", 0, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, from, to, ok := parseCurrency(tt.text)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if amount != tt.amount || from != tt.from || to != tt.to {
				t.Errorf("parseCurrency(%q) = (%v, %s, %s), want (%v, %s, %s)",
					tt.text, amount, from, to, tt.amount, tt.from, tt.to)
			}
		})
	}
}

func TestParseStartDate(t *testing.T) {
	now := time.Date(2026, 4, 15, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{"tomorrow", "明天出发", time.Date(2026, 4, 16, 0, 0, 0, 0, time.UTC)},
		{"day after", "后天走", time.Date(2026, 4, 17, 0, 0, 0, 0, time.UTC)},
		{"next week", "下周出发去玩", time.Date(2026, 4, 22, 0, 0, 0, 0, time.UTC)},
		{"month day ahead", "5月1日出发", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"month day passed rolls a year", "3月5号出发", time.Date(2027, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"nonsense month ignored", "13月40号", time.Time{}},
		{"no date", "随便什么时候", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseStartDate(tt.text, now)
			if !got.Equal(tt.want) {
				t.Errorf("parseStartDate(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseZhNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"3", 3},
		{"12", 12},
		{"一", 1},
		{"两", 2},
		{"九", 9},
		{"十", 10},
		{"十五", 15},
		{"二十", 20},
		{"二十一", 21},
		{"", 0},
		{"天", 0},
		{"百十", 0},
	}

	for _, tt := range tests {
		if got := parseZhNumber(tt.in); got != tt.want {
			t.Errorf("parseZhNumber(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestHotelPreferences(t *testing.T) {
	got := hotelPreferences("想住有游泳池和健身房的酒店")
	want := []string{"健身房", "游泳池"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("hotelPreferences = %v, want %v", got, want)
	}

	if prefs := hotelPreferences("推荐广州的酒店和美食"); prefs != nil {
		t.Errorf("plain hotel question got preferences %v", prefs)
	}
}

func TestAttractionCategory(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"北京有什么历史古迹", "历史文化"},
		{"想逛博物馆", "历史文化"},
		{"哪里适合购物", "购物中心"},
		{"杭州西湖周边有什么好玩的？", ""},
	}

	for _, tt := range tests {
		if got := attractionCategory(tt.text); got != tt.want {
			t.Errorf("attractionCategory(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestWantsFood(t *testing.T) {
	if !wantsFood("推荐广州的酒店和美食") {
		t.Error("美食 should read as a food request")
	}
	if wantsFood("推荐北京的酒店") {
		t.Error("plain hotel question should not read as a food request")
	}
}
