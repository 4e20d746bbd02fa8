// Package knowledge holds the document base behind travel tips, visa
// answers, and knowledge search. Entries come from built-in guides plus
// markdown and HTML files loaded from the knowledge directory, and are
// ranked by keyword relevance.
package knowledge

import (
	"log/slog"
	"sort"
	"strings"
)

// Categories used by the built-in entries. Loaded files take their
// category from their subdirectory.
const (
	CategoryGuides = "旅行攻略"
	CategoryVisa   = "签证信息"
	CategoryFood   = "美食推荐"
)

// Entry is one document in the base.
type Entry struct {
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Source   string            `json:"source"`
	Category string            `json:"category"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Result is an entry with its relevance score for a query.
type Result struct {
	Entry
	Score float64 `json:"score"`
}

// Base is the in-memory document collection. Read-only after startup
// loading.
type Base struct {
	entries []Entry
	logger  *slog.Logger
}

// New creates a base seeded with the built-in entries.
func New(logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	return &Base{
		entries: builtinEntries(),
		logger:  logger,
	}
}

// Add appends an entry to the base.
func (b *Base) Add(e Entry) {
	b.entries = append(b.entries, e)
}

// Len reports how many entries the base holds.
func (b *Base) Len() int {
	return len(b.entries)
}

// Search returns entries relevant to query, best first. An empty
// category searches everything; limit <= 0 means no limit. Entries
// that score zero are excluded.
func (b *Base) Search(query, category string, limit int) []Result {
	var results []Result
	for _, e := range b.entries {
		if category != "" && e.Category != category {
			continue
		}
		if s := score(query, e); s > 0 {
			results = append(results, Result{Entry: e, Score: s})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Tips returns up to three entries relevant to travelling in city. An
// empty topic defaults to general travel.
func (b *Base) Tips(city, topic string) []Result {
	if topic == "" {
		topic = "旅行"
	}
	return b.Search(city+" "+topic, "", 3)
}

// VisaInfo returns the best visa entry for a country, if any.
func (b *Base) VisaInfo(country string) (Result, bool) {
	results := b.Search(country+" 签证", CategoryVisa, 1)
	if len(results) == 0 {
		return Result{}, false
	}
	return results[0], true
}

// score rates an entry against a query. Each query word found in the
// title counts 10, in the content 5; each metadata value contained in
// the query counts 8.
func score(query string, e Entry) float64 {
	q := strings.ToLower(query)
	title := strings.ToLower(e.Title)
	content := strings.ToLower(e.Content)

	var s float64
	for _, word := range strings.Fields(q) {
		if strings.Contains(title, word) {
			s += 10
		}
	}
	for _, word := range strings.Fields(q) {
		if strings.Contains(content, word) {
			s += 5
		}
	}
	for _, value := range e.Metadata {
		if value != "" && strings.Contains(q, strings.ToLower(value)) {
			s += 8
		}
	}
	return s
}
