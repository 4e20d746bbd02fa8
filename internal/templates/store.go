// Package templates loads and serves the named response templates.
//
// A Store seeds itself from the embedded defaults compiled into the
// binary, then overlays any operator-provided template directory, so a
// fresh install renders without a single file on disk. Templates are
// swapped atomically: a reload that fails to parse leaves the previous
// version serving.
package templates

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	defaulttemplates "github.com/fernwey/atlas-travel-agent/templates"
)

// ext is the template file extension; the template name is the file
// name with ext stripped.
const ext = ".tmpl"

// DirError reports a template directory that could not be read.
// Individual bad templates inside a readable directory are skipped
// with a warning instead.
type DirError struct {
	Dir string
	Err error
}

func (e *DirError) Error() string {
	return fmt.Sprintf("template directory %q unreadable: %v", e.Dir, e.Err)
}

func (e *DirError) Unwrap() error { return e.Err }

// funcs are the helpers available to all templates.
var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("¥%.0f", v) },
}

// source records where a template's text lives so Reload can find it.
type source struct {
	path     string // disk path when loaded from a directory
	embedded bool
}

// Store holds the parsed template set behind a lock. All methods are
// safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	set     map[string]*template.Template
	sources map[string]source
	logger  *slog.Logger
}

// NewStore creates a store seeded with the embedded default templates.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		set:     make(map[string]*template.Template),
		sources: make(map[string]source),
		logger:  logger,
	}
	s.loadEmbedded()
	return s
}

func (s *Store) loadEmbedded() {
	entries, err := fs.ReadDir(defaulttemplates.FS, ".")
	if err != nil {
		// The embedded FS is compiled in; this cannot happen outside
		// a broken build.
		s.logger.Error("embedded templates unreadable", "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		data, err := fs.ReadFile(defaulttemplates.FS, entry.Name())
		if err != nil {
			s.logger.Error("embedded template unreadable", "file", entry.Name(), "error", err)
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ext)
		tmpl, err := parse(name, string(data))
		if err != nil {
			s.logger.Error("embedded template malformed", "name", name, "error", err)
			continue
		}
		s.set[name] = tmpl
		s.sources[name] = source{embedded: true}
	}
}

func parse(name, text string) (*template.Template, error) {
	return template.New(name).Funcs(funcs).Parse(text)
}

// Load overlays templates from dir onto the store. Only an unreadable
// directory is an error; a template that fails to parse is skipped
// with a warning and its siblings still load.
func (s *Store) Load(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &DirError{Dir: dir, Err: err}
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		name := strings.TrimSuffix(entry.Name(), ext)
		if err := s.loadFile(name, path); err != nil {
			s.logger.Warn("skipping malformed template", "name", name, "path", path, "error", err)
			continue
		}
		loaded++
	}

	s.logger.Info("templates loaded", "dir", dir, "count", loaded)
	return nil
}

func (s *Store) loadFile(name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tmpl, err := parse(name, string(data))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.set[name] = tmpl
	s.sources[name] = source{path: path}
	s.mu.Unlock()
	return nil
}

// Get returns the named template. The returned template is safe to
// execute concurrently.
func (s *Store) Get(name string) (*template.Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.set[name]
	return t, ok
}

// Reload re-parses one template from its source and swaps it in. On
// any failure the previously loaded version stays in effect and the
// error is returned.
func (s *Store) Reload(name string) error {
	s.mu.RLock()
	src, ok := s.sources[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}

	var text string
	if src.embedded {
		data, err := fs.ReadFile(defaulttemplates.FS, name+ext)
		if err != nil {
			return fmt.Errorf("reload %q: %w", name, err)
		}
		text = string(data)
	} else {
		data, err := os.ReadFile(src.path)
		if err != nil {
			return fmt.Errorf("reload %q: %w", name, err)
		}
		text = string(data)
	}

	tmpl, err := parse(name, text)
	if err != nil {
		return fmt.Errorf("reload %q: %w", name, err)
	}

	s.mu.Lock()
	s.set[name] = tmpl
	s.mu.Unlock()
	s.logger.Debug("template reloaded", "name", name)
	return nil
}

// ReloadAll reloads every known template. Individual failures do not
// stop the sweep; they are joined into the returned error, one per
// failed name. Templates that fail keep serving their previous
// version.
func (s *Store) ReloadAll() error {
	var errs []error
	for _, name := range s.List() {
		if err := s.Reload(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// List returns the names of loaded templates in sorted order.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.set))
	for name := range s.set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
