package knowledge

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LoadDir ingests markdown and HTML files under dir into the base.
// Files in a subdirectory take the subdirectory name as their
// category; top-level files default to the guides category. A missing
// directory is not an error. Returns the number of entries added.
func (b *Base) LoadDir(dir string) int {
	if dir == "" {
		return 0
	}
	if _, err := os.Stat(dir); err != nil {
		b.logger.Debug("no knowledge directory", "dir", dir)
		return 0
	}

	added := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			b.logger.Warn("knowledge walk error", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}

		var entries []Entry
		var perr error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".markdown":
			entries, perr = parseMarkdownFile(path)
		case ".html", ".htm":
			entries, perr = parseHTMLFile(path)
		default:
			return nil
		}
		if perr != nil {
			b.logger.Warn("skipping knowledge file", "path", path, "error", perr)
			return nil
		}

		category := fileCategory(dir, path)
		for _, e := range entries {
			e.Category = category
			b.Add(e)
			added++
		}
		return nil
	})
	if err != nil {
		b.logger.Warn("knowledge directory walk failed", "dir", dir, "error", err)
	}

	if added > 0 {
		b.logger.Info("knowledge loaded", "dir", dir, "entries", added, "total", b.Len())
	}
	return added
}

// fileCategory derives an entry category from the file's location
// under the knowledge root.
func fileCategory(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return CategoryGuides
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) > 1 {
		return parts[0]
	}
	return CategoryGuides
}
