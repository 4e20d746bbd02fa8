package catalog

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	defaultdata "github.com/fernwey/atlas-travel-agent/data"
)

// File names inside a data directory. The embedded defaults use the
// same names, so an operator file replaces the whole shipped list for
// that kind.
const (
	hotelsFile      = "hotels.yaml"
	attractionsFile = "attractions.yaml"
	restaurantsFile = "restaurants.yaml"
	transportFile   = "transport.yaml"
	flightsFile     = "flights.yaml"
)

// Catalog is the loaded city data.
type Catalog struct {
	Hotels      []Hotel
	Attractions []Attraction
	Restaurants []Restaurant
	Transport   []TransportOption
	Flights     []Flight

	logger *slog.Logger
}

// New creates a catalog seeded with the embedded defaults.
func New(logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{logger: logger}

	c.Hotels = decodeEntries[Hotel](c.logger, readEmbedded(c.logger, hotelsFile), hotelsFile)
	c.Attractions = decodeEntries[Attraction](c.logger, readEmbedded(c.logger, attractionsFile), attractionsFile)
	c.Restaurants = decodeEntries[Restaurant](c.logger, readEmbedded(c.logger, restaurantsFile), restaurantsFile)
	c.Transport = decodeEntries[TransportOption](c.logger, readEmbedded(c.logger, transportFile), transportFile)
	c.Flights = decodeEntries[Flight](c.logger, readEmbedded(c.logger, flightsFile), flightsFile)
	return c
}

// Load overlays catalog files from dir. A missing directory or a
// missing file keeps the embedded defaults for that kind; a file that
// is present replaces the shipped list entirely. Entries that fail to
// decode or validate are skipped with a warning.
func (c *Catalog) Load(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); err != nil {
		c.logger.Debug("no catalog directory, using embedded data", "dir", dir)
		return
	}

	if data, ok := readFile(c.logger, filepath.Join(dir, hotelsFile)); ok {
		c.Hotels = decodeEntries[Hotel](c.logger, data, hotelsFile)
	}
	if data, ok := readFile(c.logger, filepath.Join(dir, attractionsFile)); ok {
		c.Attractions = decodeEntries[Attraction](c.logger, data, attractionsFile)
	}
	if data, ok := readFile(c.logger, filepath.Join(dir, restaurantsFile)); ok {
		c.Restaurants = decodeEntries[Restaurant](c.logger, data, restaurantsFile)
	}
	if data, ok := readFile(c.logger, filepath.Join(dir, transportFile)); ok {
		c.Transport = decodeEntries[TransportOption](c.logger, data, transportFile)
	}
	if data, ok := readFile(c.logger, filepath.Join(dir, flightsFile)); ok {
		c.Flights = decodeEntries[Flight](c.logger, data, flightsFile)
	}

	c.logger.Info("catalog loaded",
		"dir", dir,
		"hotels", len(c.Hotels),
		"attractions", len(c.Attractions),
		"restaurants", len(c.Restaurants),
		"transport", len(c.Transport),
		"flights", len(c.Flights),
	)
}

func readEmbedded(logger *slog.Logger, name string) []byte {
	data, err := fs.ReadFile(defaultdata.FS, name)
	if err != nil {
		// Embedded files are compiled in; this indicates a broken build.
		logger.Error("embedded catalog file unreadable", "file", name, "error", err)
		return nil
	}
	return data
}

func readFile(logger *slog.Logger, path string) ([]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("catalog file unreadable", "path", path, "error", err)
		}
		return nil, false
	}
	return data, true
}

// validator is implemented by every catalog entry type.
type validator interface {
	Validate() error
}

// decodeEntries parses a YAML list entry by entry so one bad row
// cannot sink the file.
func decodeEntries[T validator](logger *slog.Logger, data []byte, file string) []T {
	if len(data) == 0 {
		return nil
	}

	var nodes []yaml.Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		logger.Warn("catalog file malformed, skipping", "file", file, "error", err)
		return nil
	}

	var out []T
	for i, node := range nodes {
		var entry T
		if err := node.Decode(&entry); err != nil {
			logger.Warn("skipping catalog entry", "file", file, "index", i, "error", err)
			continue
		}
		if err := entry.Validate(); err != nil {
			logger.Warn("skipping invalid catalog entry", "file", file, "index", i, "error", err)
			continue
		}
		out = append(out, entry)
	}
	return out
}

// Save writes the catalog's YAML files to dir, creating it if needed.
// Used by the importer and by atlas init.
func (c *Catalog) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}

	files := []struct {
		name string
		data any
	}{
		{hotelsFile, c.Hotels},
		{attractionsFile, c.Attractions},
		{restaurantsFile, c.Restaurants},
		{transportFile, c.Transport},
		{flightsFile, c.Flights},
	}
	for _, f := range files {
		raw, err := yaml.Marshal(f.data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", f.name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, f.name), raw, 0644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return nil
}
