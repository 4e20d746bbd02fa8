// Package markup converts assistant markdown into display HTML.
//
// Conversion runs four fixed passes in order: tables, lists, inline
// emphasis, then newline breaks. Each pass is a plain substitution over
// lines or text; there is no block parser and no nesting. The passes
// are deliberately forgiving: any input that does not match a pattern
// passes through unchanged, so conversion never fails.
package markup

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	boldRe   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe = regexp.MustCompile(`\*([^*]+)\*`)
	codeRe   = regexp.MustCompile("`([^`]+)`")

	numberedRe  = regexp.MustCompile(`^\d+\.\s+(.*)$`)
	bulletRe    = regexp.MustCompile(`^[-•]\s+(.*)$`)
	separatorRe = regexp.MustCompile(`^[-:]*$`)
)

// Convert renders markdown to HTML. Pass order matters: tables first
// (so their pipes survive intact), then lists, then inline emphasis,
// and newline breaks last.
func Convert(md string) string {
	lines := strings.Split(md, "\n")
	lines = passTables(lines)
	lines = passLists(lines)

	text := strings.Join(lines, "\n")
	text = passEmphasis(text)
	return strings.ReplaceAll(text, "\n", "<br>")
}

// passTables converts maximal runs of table lines into <table> blocks.
// A table line contains at least one pipe and splits into at least two
// non-empty cells. Separator rows (cells solely dashes, colons, and
// whitespace) are dropped; the first surviving row becomes the header.
func passTables(lines []string) []string {
	var out []string
	for i := 0; i < len(lines); {
		if !isTableLine(lines[i]) {
			out = append(out, lines[i])
			i++
			continue
		}

		var rows [][]string
		for i < len(lines) && isTableLine(lines[i]) {
			cells := splitCells(lines[i])
			if !isSeparatorRow(cells) {
				rows = append(rows, cells)
			}
			i++
		}
		if len(rows) == 0 {
			// Run was all separators, nothing to show.
			continue
		}
		out = append(out, renderTable(rows))
	}
	return out
}

func isTableLine(line string) bool {
	if !strings.Contains(line, "|") {
		return false
	}
	nonEmpty := 0
	for _, c := range splitCells(line) {
		if c != "" {
			nonEmpty++
		}
	}
	return nonEmpty >= 2
}

// splitCells splits a line on pipes, trims each cell, and strips the
// empty edge cells produced by leading/trailing pipes. Interior empty
// cells are kept.
func splitCells(line string) []string {
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if !separatorRe.MatchString(c) {
			return false
		}
	}
	return len(cells) > 0
}

// renderTable emits the whole table as one output line so the break
// pass cannot inject <br> between rows.
func renderTable(rows [][]string) string {
	var b strings.Builder
	b.WriteString("<table>")
	for i, row := range rows {
		tag := "td"
		if i == 0 {
			tag = "th"
		}
		b.WriteString("<tr>")
		for _, cell := range row {
			fmt.Fprintf(&b, "<%s>%s</%s>", tag, cell, tag)
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return b.String()
}

// passLists wraps runs of list-item lines into a single <ol> or <ul>
// element. The match is per-line, not block-aware: indented
// continuations are ordinary text.
func passLists(lines []string) []string {
	var out []string
	for i := 0; i < len(lines); {
		switch {
		case numberedRe.MatchString(lines[i]):
			var b strings.Builder
			b.WriteString("<ol>")
			for i < len(lines) && numberedRe.MatchString(lines[i]) {
				m := numberedRe.FindStringSubmatch(lines[i])
				b.WriteString("<li>" + m[1] + "</li>")
				i++
			}
			b.WriteString("</ol>")
			out = append(out, b.String())
		case bulletRe.MatchString(lines[i]):
			var b strings.Builder
			b.WriteString("<ul>")
			for i < len(lines) && bulletRe.MatchString(lines[i]) {
				m := bulletRe.FindStringSubmatch(lines[i])
				b.WriteString("<li>" + m[1] + "</li>")
				i++
			}
			b.WriteString("</ul>")
			out = append(out, b.String())
		default:
			out = append(out, lines[i])
			i++
		}
	}
	return out
}

// passEmphasis converts inline spans. Bold runs before italic so a
// ** pair is never half-eaten as two italics; unpaired asterisks pass
// through literally.
func passEmphasis(text string) string {
	text = boldRe.ReplaceAllString(text, "<strong>$1</strong>")
	text = italicRe.ReplaceAllString(text, "<em>$1</em>")
	text = codeRe.ReplaceAllString(text, "<code>$1</code>")
	return text
}
