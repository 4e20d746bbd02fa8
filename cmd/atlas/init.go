package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	defaultdata "github.com/fernwey/atlas-travel-agent/data"
	"github.com/fernwey/atlas-travel-agent/internal/defaults"
	defaulttemplates "github.com/fernwey/atlas-travel-agent/templates"
)

// runInit initializes an Atlas working directory with default files.
// It creates the directory layout and copies the bundled config, city
// catalog, and response templates. Existing files are never overwritten.
func runInit(w io.Writer, dir string) error {
	fmt.Fprintf(w, "Initializing Atlas workspace in %s\n", dir)

	for _, sub := range []string{"data", "templates", "knowledge"} {
		path := filepath.Join(dir, sub)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
	}

	// The config holds SMTP and API credentials once edited, so it is
	// created private.
	if err := writeIfMissing(w, filepath.Join(dir, "config.yaml"), defaults.ConfigYAML, 0o600); err != nil {
		return err
	}

	if err := installEmbedded(w, defaultdata.FS, filepath.Join(dir, "data")); err != nil {
		return fmt.Errorf("install catalog: %w", err)
	}
	if err := installEmbedded(w, defaulttemplates.FS, filepath.Join(dir, "templates")); err != nil {
		return fmt.Errorf("install templates: %w", err)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Edit config.yaml to customize your installation.")
	fmt.Fprintln(w, "Files under data/ and templates/ override the bundled copies.")
	return nil
}

// installEmbedded copies every file in src into destDir, skipping files
// that already exist on disk.
func installEmbedded(w io.Writer, src fs.FS, destDir string) error {
	return fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		content, err := fs.ReadFile(src, path)
		if err != nil {
			return fmt.Errorf("read embedded %s: %w", path, err)
		}

		return writeIfMissing(w, filepath.Join(destDir, d.Name()), content, 0o644)
	})
}

// writeIfMissing writes data to path with the given permissions unless the
// file already exists, so init never clobbers user customizations. A status
// line goes to w either way; the output accounts for every bundled file.
func writeIfMissing(w io.Writer, path string, data []byte, mode os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if errors.Is(err, fs.ErrExist) {
		fmt.Fprintf(w, "  - %s exists, skipping\n", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Fprintf(w, "  ✓ %s\n", path)
	return nil
}
