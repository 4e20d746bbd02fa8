package render

import "strings"

// FormatLevel selects how rich a rendered plan is. The zero value is
// LevelBasic so an unset field degrades to the most conservative
// output instead of the richest.
type FormatLevel int

const (
	// LevelBasic renders destination, duration, and the core daily
	// content only.
	LevelBasic FormatLevel = iota
	// LevelSimple renders the core fields with a shortened title.
	LevelSimple
	// LevelFull renders every optional section: extended tips,
	// transport detail, accommodation detail, budget breakdown.
	LevelFull
)

// String returns the level's wire name.
func (l FormatLevel) String() string {
	switch l {
	case LevelFull:
		return "full"
	case LevelSimple:
		return "simple"
	default:
		return "basic"
	}
}

// ParseFormatLevel maps a level name to its FormatLevel. Matching is
// case-insensitive and trims whitespace. Unknown names fail closed:
// the result is LevelBasic and ok is false so the caller can log the
// odd input. There is deliberately no error return.
func ParseFormatLevel(s string) (level FormatLevel, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full":
		return LevelFull, true
	case "simple":
		return LevelSimple, true
	case "basic":
		return LevelBasic, true
	default:
		return LevelBasic, false
	}
}
