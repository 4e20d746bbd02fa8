package markup

import "strings"

// Keyword pairs a literal term with the markup that replaces it.
type Keyword struct {
	Term    string
	Replace string
}

// Highlighter decorates converted markup by substituting vocabulary
// terms, case-sensitively, in vocabulary order. It operates on the
// final markup string, so a term could in principle match inside a
// tag the converter emitted; with the default emoji vocabulary that
// cannot happen, but custom vocabularies should pick terms that do
// not collide with tag text. The substitution is a plain string
// replace and never fails.
type Highlighter struct {
	vocab []Keyword
}

// NewHighlighter builds a highlighter over the given vocabulary.
// A nil or empty vocabulary yields a pass-through highlighter.
func NewHighlighter(vocab []Keyword) *Highlighter {
	return &Highlighter{vocab: vocab}
}

// Apply substitutes every vocabulary term in s. Each term is replaced
// in a single pass, so a replacement containing its own term is not
// rescanned.
func (h *Highlighter) Apply(s string) string {
	if h == nil {
		return s
	}
	for _, kw := range h.vocab {
		if kw.Term == "" {
			continue
		}
		s = strings.ReplaceAll(s, kw.Term, kw.Replace)
	}
	return s
}

// DefaultVocabulary styles the assistant's emoji markers with sized
// spans: the celebration emoji slightly larger than the section
// markers.
func DefaultVocabulary() []Keyword {
	vocab := []Keyword{
		{Term: "🎉", Replace: `<span style="font-size: 20px;">🎉</span>`},
	}
	for _, emoji := range []string{"📍", "📅", "💰", "👥", "📊", "🚄", "📋", "💡"} {
		vocab = append(vocab, Keyword{
			Term:    emoji,
			Replace: `<span style="font-size: 18px;">` + emoji + `</span>`,
		})
	}
	return vocab
}
