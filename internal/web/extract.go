package web

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fernwey/atlas-travel-agent/internal/planner"
)

// fallbackCities covers destinations people ask about that the catalog
// may not stock yet. Catalog cities are always matched first; an
// unknown destination still plans, it just renders with placeholders.
var fallbackCities = []string{
	"广州", "深圳", "成都", "重庆", "西安", "南京", "武汉", "长沙",
	"厦门", "青岛", "大连", "苏州", "天津", "昆明", "桂林", "三亚",
	"丽江", "哈尔滨", "香港", "澳门", "大阪", "首尔", "曼谷", "新加坡",
}

var (
	daysPattern   = regexp.MustCompile(`([0-9一二两三四五六七八九十]+)\s*(?:日游|天)`)
	budgetPattern = regexp.MustCompile(`预算\s*[是为]?\s*([0-9]+(?:\.[0-9]+)?)\s*(万)?`)
	moneyPattern  = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*(万)?\s*[元块]`)
	peoplePattern = regexp.MustCompile(`([0-9一二两三四五六七八九十]+)\s*(?:个人|人)`)
	datePattern   = regexp.MustCompile(`([0-9]{1,2})\s*月\s*([0-9]{1,2})\s*[日号]`)
)

// parseTripRequest pulls a planner request out of free Chinese text:
// destination and origin from the known city list, trip length from
// "N天" or "N日游", budget from "预算N" or "N元", party size from
// "N个人", and a start date from "明天", "后天", "下周", or "M月D日".
// Anything not present stays zero; the planner fills defaults.
func parseTripRequest(text string, cities []string, now time.Time) planner.Request {
	origin, dest := extractRoute(text, cities)
	return planner.Request{
		Destination: dest,
		Origin:      origin,
		Days:        parseDays(text),
		Budget:      parseBudget(text),
		People:      parsePeople(text),
		StartDate:   parseStartDate(text, now),
	}
}

// cityMention is one known city found in a message, at its byte offset.
type cityMention struct {
	name string
	pos  int
}

// findCities lists the known cities mentioned in text, ordered by
// position of first occurrence.
func findCities(text string, cities []string) []cityMention {
	var found []cityMention
	seen := make(map[string]bool, len(cities))
	for _, city := range cities {
		if city == "" || seen[city] {
			continue
		}
		seen[city] = true
		if pos := strings.Index(text, city); pos >= 0 {
			found = append(found, cityMention{name: city, pos: pos})
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].pos != found[j].pos {
			return found[i].pos < found[j].pos
		}
		return len(found[i].name) > len(found[j].name)
	})
	return found
}

// extractCity returns the first known city mentioned in text.
func extractCity(text string, cities []string) string {
	found := findCities(text, cities)
	if len(found) == 0 {
		return ""
	}
	return found[0].name
}

// extractRoute reads an origin and destination out of text. "从X到Y"
// and "X到Y" name both ends; a single mentioned city is the
// destination unless it is marked with 从.
func extractRoute(text string, cities []string) (origin, dest string) {
	found := findCities(text, cities)
	if len(found) == 0 {
		return "", ""
	}

	fromMarked := -1
	for i, m := range found {
		if runeBefore(text, m.pos) == '从' {
			fromMarked = i
			break
		}
	}

	switch {
	case fromMarked >= 0:
		origin = found[fromMarked].name
		for _, m := range found {
			if m.name != origin {
				dest = m.name
				break
			}
		}
	case len(found) >= 2 && connectedAfter(text, found[0]):
		origin, dest = found[0].name, found[1].name
	default:
		dest = found[0].name
	}
	return origin, dest
}

// runeBefore returns the rune that ends immediately at byte offset pos.
func runeBefore(text string, pos int) rune {
	r, _ := utf8.DecodeLastRuneInString(text[:pos])
	return r
}

// connectedAfter reports whether a route connective follows the
// mention, as in 北京到上海 or 上海去杭州.
func connectedAfter(text string, m cityMention) bool {
	rest := text[m.pos+len(m.name):]
	for _, conn := range []string{"到", "去", "飞"} {
		if strings.HasPrefix(rest, conn) {
			return true
		}
	}
	return false
}

func parseDays(text string) int {
	m := daysPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	return parseZhNumber(m[1])
}

func parsePeople(text string) int {
	m := peoplePattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	return parseZhNumber(m[1])
}

// parseBudget prefers an explicit 预算 figure over a bare yuan amount.
// 万 multiplies by ten thousand.
func parseBudget(text string) float64 {
	if m := budgetPattern.FindStringSubmatch(text); m != nil {
		return scaleWan(m[1], m[2])
	}
	if m := moneyPattern.FindStringSubmatch(text); m != nil {
		return scaleWan(m[1], m[2])
	}
	return 0
}

func scaleWan(number, wan string) float64 {
	v, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0
	}
	if wan != "" {
		v *= 10000
	}
	return v
}

// parseStartDate resolves relative day words and M月D日 dates against
// now. A month-day already past this year rolls to next year. The zero
// time means no date was given.
func parseStartDate(text string, now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case strings.Contains(text, "明天"):
		return today.AddDate(0, 0, 1)
	case strings.Contains(text, "后天"):
		return today.AddDate(0, 0, 2)
	case strings.Contains(text, "下周"):
		return today.AddDate(0, 0, 7)
	}
	if m := datePattern.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			d := time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, now.Location())
			if d.Before(today) {
				d = d.AddDate(1, 0, 0)
			}
			return d
		}
	}
	return time.Time{}
}

// parseZhNumber reads an integer written in ASCII digits or simple
// Chinese numerals (一 through 十, 两, and compounds like 十五 or
// 二十). Unreadable input parses as zero.
func parseZhNumber(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}

	digits := map[rune]int{
		'一': 1, '二': 2, '两': 2, '三': 3, '四': 4,
		'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
	}
	single := func(part string) int {
		runes := []rune(part)
		if len(runes) != 1 {
			return 0
		}
		return digits[runes[0]]
	}

	before, after, hasTen := strings.Cut(s, "十")
	if !hasTen {
		return single(s)
	}
	tens := 1
	if before != "" {
		if tens = single(before); tens == 0 {
			return 0
		}
	}
	units := 0
	if after != "" {
		if units = single(after); units == 0 {
			return 0
		}
	}
	return tens*10 + units
}

// currencyNames maps the Chinese currency words to their codes, in
// match order.
var currencyNames = []struct {
	name string
	code string
}{
	{"人民币", "CNY"},
	{"美元", "USD"},
	{"日元", "JPY"},
	{"欧元", "EUR"},
	{"英镑", "GBP"},
	{"韩元", "KRW"},
	{"澳元", "AUD"},
	{"加元", "CAD"},
}

var amountCurrencyPattern = regexp.MustCompile(
	`([0-9]+(?:\.[0-9]+)?)\s*(万)?\s*(人民币|美元|日元|欧元|英镑|韩元|澳元|加元)`)

// parseCurrency turns a conversion question into Convert arguments.
// An amount attached to a currency word fixes the source; a bare yuan
// amount converts from CNY; a rate question with no amount quotes one
// unit of the mentioned currency in CNY.
func parseCurrency(text string) (amount float64, from, to string, ok bool) {
	type hit struct {
		code string
		pos  int
	}
	var hits []hit
	for _, c := range currencyNames {
		if pos := strings.Index(text, c.name); pos >= 0 {
			hits = append(hits, hit{code: c.code, pos: pos})
		}
	}
	if len(hits) == 0 {
		return 0, "", "", false
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	amount = 1
	switch {
	case amountCurrencyPattern.MatchString(text):
		m := amountCurrencyPattern.FindStringSubmatch(text)
		amount = scaleWan(m[1], m[2])
		from = currencyCode(m[3])
	case moneyPattern.MatchString(text):
		m := moneyPattern.FindStringSubmatch(text)
		amount = scaleWan(m[1], m[2])
		from = "CNY"
	default:
		// A rate question with no amount quotes one unit of the first
		// foreign currency mentioned.
		for _, h := range hits {
			if h.code != "CNY" {
				from = h.code
				break
			}
		}
		if from == "" {
			return 0, "", "", false
		}
	}

	for _, h := range hits {
		if h.code != from {
			to = h.code
			break
		}
	}
	if to == "" {
		to = "CNY"
	}
	if from == to {
		return 0, "", "", false
	}
	return amount, from, to, true
}

func currencyCode(name string) string {
	for _, c := range currencyNames {
		if c.name == name {
			return c.code
		}
	}
	return ""
}

// amenityPreferences are the catalog amenity terms a hotel question
// can ask for by name.
var amenityPreferences = []string{
	"健身房", "游泳池", "餐厅", "SPA", "商务中心", "早餐", "WiFi", "行李寄存",
}

// hotelPreferences lists the amenities a message asks for.
func hotelPreferences(text string) []string {
	var prefs []string
	for _, a := range amenityPreferences {
		if strings.Contains(text, a) {
			prefs = append(prefs, a)
		}
	}
	return prefs
}

// wantsFood reports whether a message also asks about eating.
func wantsFood(text string) bool {
	for _, kw := range []string{"美食", "餐厅", "小吃", "吃"} {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// attractionCategory maps strong interest words to a catalog category.
// Weak signals return "" so the search stays unfiltered.
func attractionCategory(text string) string {
	switch {
	case strings.Contains(text, "历史"), strings.Contains(text, "古迹"),
		strings.Contains(text, "博物馆"), strings.Contains(text, "文化"):
		return "历史文化"
	case strings.Contains(text, "购物"):
		return "购物中心"
	default:
		return ""
	}
}
