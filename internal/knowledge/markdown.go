package knowledge

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	headingRe = regexp.MustCompile(`^(#{1,3})\s+(.+)$`)
	fenceRe   = regexp.MustCompile("^```")
	slugRe    = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// parseMarkdownFile splits a markdown document into one entry per
// heading section. Headings up to level three start a new section;
// fenced code blocks are kept verbatim inside their section.
func parseMarkdownFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return parseMarkdown(f, filepath.Base(path)), nil
}

func parseMarkdown(r io.Reader, name string) []Entry {
	var entries []Entry
	var body strings.Builder
	var title string
	var keys [3]string // slug per heading level

	flush := func() {
		content := strings.TrimSpace(body.String())
		body.Reset()
		if content == "" || title == "" {
			return
		}
		entries = append(entries, Entry{
			Title:    title,
			Content:  content,
			Source:   name + "#" + joinKeys(keys),
			Metadata: map[string]string{"file": name},
		})
	}

	inFence := false
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		if fenceRe.MatchString(line) {
			inFence = !inFence
			body.WriteString(line + "\n")
			continue
		}
		if inFence {
			body.WriteString(line + "\n")
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			flush()
			level := len(m[1])
			title = strings.TrimSpace(m[2])
			keys[level-1] = slugify(title)
			for i := level; i < len(keys); i++ {
				keys[i] = ""
			}
			continue
		}

		if line != "" || body.Len() > 0 {
			body.WriteString(line + "\n")
		}
	}
	flush()

	return entries
}

func joinKeys(keys [3]string) string {
	var parts []string
	for _, k := range keys {
		if k != "" {
			parts = append(parts, k)
		}
	}
	return strings.Join(parts, "/")
}

// slugify turns a heading into a stable key. Letters and digits in any
// script survive; runs of everything else become a single dash.
func slugify(s string) string {
	s = strings.ToLower(s)
	s = slugRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
