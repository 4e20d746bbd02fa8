package main

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/fernwey/atlas-travel-agent/internal/history"
	"github.com/fernwey/atlas-travel-agent/internal/markup"
)

// renderEntry formats one history entry for the timeline: a styled role
// label with timestamp, then the body. User text is shown verbatim;
// assistant text runs through the markup converter and the HTML walker,
// the same pipeline the web page applies.
func renderEntry(e history.Entry, width int, th chatTheme, hl *markup.Highlighter) string {
	stamp := e.At.Format("15:04")
	if e.Role == history.RoleUser {
		label := th.userLabel.Render("你 · " + stamp)
		return label + "\n" + wrapANSI(e.Text, width)
	}
	label := th.assistantLabel.Render("Atlas · " + stamp)
	body := renderHTML(hl.Apply(markup.Convert(e.Text)), th)
	return label + "\n" + wrapANSI(body, width)
}

// renderHTML converts the display HTML the markup package emits into
// terminal text: bold and italic become ANSI attributes, lists become
// numbered or bulleted lines, tables flatten to pipe-joined rows, and
// break markers become newlines. Unknown elements contribute their text
// content, so no words are ever lost.
func renderHTML(fragment string, th chatTheme) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.Trim(renderNode(doc, th), "\n")
}

func renderNode(n *html.Node, th chatTheme) string {
	switch n.Type {
	case html.TextNode:
		return n.Data
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Strong, atom.B:
			return th.bold.Render(renderChildren(n, th))
		case atom.Em, atom.I:
			return th.italic.Render(renderChildren(n, th))
		case atom.Code:
			return th.code.Render(renderChildren(n, th))
		case atom.Br:
			return "\n"
		case atom.Ol:
			return renderFlatList(n, th, true)
		case atom.Ul:
			return renderFlatList(n, th, false)
		case atom.Table:
			return renderFlatTable(n, th)
		case atom.Head, atom.Script, atom.Style:
			return ""
		}
	}
	return renderChildren(n, th)
}

func renderChildren(n *html.Node, th chatTheme) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(renderNode(c, th))
	}
	return b.String()
}

// renderFlatList numbers or bullets the direct li children. The
// converter never nests lists, so one level is all there is.
func renderFlatList(n *html.Node, th chatTheme, numbered bool) string {
	var items []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li {
			continue
		}
		text := renderChildren(c, th)
		if numbered {
			items = append(items, fmt.Sprintf("%d. %s", len(items)+1, text))
		} else {
			items = append(items, "• "+text)
		}
	}
	return strings.Join(items, "\n")
}

// renderFlatTable flattens a table to one line per row with cells
// joined by pipes; the header row keeps its emphasis.
func renderFlatTable(n *html.Node, th chatTheme) string {
	var rows []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.DataAtom != atom.Tr {
				// thead/tbody wrappers the parser inserts
				walk(c)
				continue
			}
			var cells []string
			header := false
			for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
				if cell.Type != html.ElementNode {
					continue
				}
				switch cell.DataAtom {
				case atom.Th:
					header = true
					cells = append(cells, renderChildren(cell, th))
				case atom.Td:
					cells = append(cells, renderChildren(cell, th))
				}
			}
			line := strings.Join(cells, " | ")
			if header {
				line = th.tableHead.Render(line)
			}
			rows = append(rows, line)
		}
	}
	walk(n)
	return strings.Join(rows, "\n")
}

var sgrSeq = regexp.MustCompile("\x1b\\[[0-9;]*m")

// wrapANSI hard-wraps text at the given display width. Widths are
// measured in terminal cells, so CJK characters count as two, and SGR
// escape sequences count as zero and are never split.
func wrapANSI(text string, width int) string {
	if width <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, wrapLine(line, width)...)
	}
	return strings.Join(out, "\n")
}

func wrapLine(line string, width int) []string {
	if lipgloss.Width(line) <= width {
		return []string{line}
	}
	var wrapped []string
	var b strings.Builder
	used := 0
	for line != "" {
		if loc := sgrSeq.FindStringIndex(line); loc != nil && loc[0] == 0 {
			b.WriteString(line[:loc[1]])
			line = line[loc[1]:]
			continue
		}
		_, size := utf8.DecodeRuneInString(line)
		w := lipgloss.Width(line[:size])
		if used+w > width && used > 0 {
			wrapped = append(wrapped, b.String())
			b.Reset()
			used = 0
		}
		b.WriteString(line[:size])
		used += w
		line = line[size:]
	}
	if b.Len() > 0 {
		wrapped = append(wrapped, b.String())
	}
	return wrapped
}
