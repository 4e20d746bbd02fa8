// Command atlas-import seeds a catalog data directory from CSV exports.
//
// City data tends to start life in a spreadsheet. This tool turns the
// spreadsheet's CSV exports into the YAML files the assistant loads, so
// adding a city is an export and one command rather than hand-written
// YAML.
//
// Usage:
//
//	atlas-import -csv /path/to/exports -data ./data
//
// It looks for hotels.csv, attractions.csv, restaurants.csv,
// transport.csv, and flights.csv in the export directory. Column names
// match the YAML keys (name, city, price_per_night and so on); column
// order does not matter and unknown columns are ignored. List columns
// such as amenities split on | or 、. Rows that fail validation are
// skipped with a warning. New rows merge into the shipped data by
// default; -replace makes each CSV replace its kind entirely.
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fernwey/atlas-travel-agent/internal/catalog"
)

func main() {
	csvDir := flag.String("csv", "", "Path to the directory holding CSV exports")
	dataDir := flag.String("data", "", "Path to the catalog data directory to write")
	dryRun := flag.Bool("dry-run", false, "Parse and report without writing YAML")
	replace := flag.Bool("replace", false, "Each CSV replaces its kind instead of merging")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	if *csvDir == "" || *dataDir == "" {
		fmt.Fprintf(os.Stderr, "Usage: atlas-import -csv /path/to/exports -data ./data\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	if _, err := os.Stat(*csvDir); os.IsNotExist(err) {
		logger.Error("csv directory not found", "path", *csvDir)
		os.Exit(1)
	}

	// Start from what the assistant would see today: the shipped data
	// overlaid with whatever the data directory already holds. A re-run
	// then merges into its own previous output instead of duplicating.
	cat := catalog.New(logger)
	cat.Load(*dataDir)

	var results []kindResult
	if res, ok := importKind(*csvDir, "hotels.csv", &cat.Hotels, hotelFromRow, hotelKey, *replace, logger); ok {
		results = append(results, res)
	}
	if res, ok := importKind(*csvDir, "attractions.csv", &cat.Attractions, attractionFromRow, attractionKey, *replace, logger); ok {
		results = append(results, res)
	}
	if res, ok := importKind(*csvDir, "restaurants.csv", &cat.Restaurants, restaurantFromRow, restaurantKey, *replace, logger); ok {
		results = append(results, res)
	}
	if res, ok := importKind(*csvDir, "transport.csv", &cat.Transport, transportFromRow, transportKey, *replace, logger); ok {
		results = append(results, res)
	}
	if res, ok := importKind(*csvDir, "flights.csv", &cat.Flights, flightFromRow, flightKey, *replace, logger); ok {
		results = append(results, res)
	}

	if len(results) == 0 {
		logger.Error("no recognized csv files",
			"dir", *csvDir,
			"expected", "hotels.csv, attractions.csv, restaurants.csv, transport.csv, flights.csv",
		)
		os.Exit(1)
	}

	var added, dups, bad int
	for _, r := range results {
		added += r.added()
		dups += r.dups
		bad += r.bad
	}
	logger.Info("csv files parsed",
		"files", len(results),
		"new", added,
		"duplicates", dups,
		"bad_rows", bad,
	)

	if *dryRun {
		fmt.Printf("\n=== Dry Run Summary ===\n")
		for _, r := range results {
			fmt.Printf("  %-12s %3d rows: %d new, %d duplicate, %d bad\n",
				r.kind, r.rows, r.added(), r.dups, r.bad)
		}
		fmt.Printf("\nCatalog after import:\n")
		for _, city := range cat.Cities() {
			ci := cat.City(city)
			fmt.Printf("  %s  %d hotels, %d attractions, %d restaurants\n",
				ci.City, ci.Hotels, ci.Attractions, ci.Restaurants)
		}
		return
	}

	if err := cat.Save(*dataDir); err != nil {
		logger.Error("failed to write catalog", "error", err)
		os.Exit(1)
	}

	logger.Info("import complete",
		"data_dir", *dataDir,
		"hotels", len(cat.Hotels),
		"attractions", len(cat.Attractions),
		"restaurants", len(cat.Restaurants),
		"transport", len(cat.Transport),
		"flights", len(cat.Flights),
	)

	fmt.Printf("\n=== Import Complete ===\n")
	fmt.Printf("Data dir:    %s\n", *dataDir)
	fmt.Printf("Hotels:      %d\n", len(cat.Hotels))
	fmt.Printf("Attractions: %d\n", len(cat.Attractions))
	fmt.Printf("Restaurants: %d\n", len(cat.Restaurants))
	fmt.Printf("Transport:   %d\n", len(cat.Transport))
	fmt.Printf("Flights:     %d\n", len(cat.Flights))
}

// --- Parsing ---

// kindResult tallies one CSV file.
type kindResult struct {
	kind string
	rows int // data rows in the file
	ok   int // rows that decoded and validated
	bad  int // rows skipped with a warning
	dups int // valid rows already present
}

func (r kindResult) added() int { return r.ok - r.dups }

// validator is implemented by every catalog entry type.
type validator interface{ Validate() error }

// importKind reads one CSV file, if present, and folds its rows into
// dest. Returns false when the file does not exist or cannot be read.
func importKind[T validator](dir, file string, dest *[]T, build func(row) (T, error), key func(T) string, replace bool, logger *slog.Logger) (kindResult, bool) {
	path := filepath.Join(dir, file)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Debug("no csv for kind", "file", file)
		return kindResult{}, false
	}

	entries, res, err := readCSV(path, build, logger)
	if err != nil {
		logger.Warn("skipping unreadable csv", "file", file, "error", err)
		return kindResult{}, false
	}
	res.kind = strings.TrimSuffix(file, ".csv")

	base := *dest
	if replace {
		base = nil
	}
	merged, dups := mergeByKey(base, entries, key)
	*dest = merged
	res.dups = dups

	logger.Debug("csv parsed",
		"file", file,
		"rows", res.rows,
		"new", res.added(),
		"duplicates", res.dups,
		"bad", res.bad,
	)
	return res, true
}

// readCSV parses one CSV export. The first row is the header; rows
// that fail to parse or validate are skipped with a warning.
func readCSV[T validator](path string, build func(row) (T, error), logger *slog.Logger) ([]T, kindResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, kindResult{}, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	header, err := cr.Read()
	if err != nil {
		return nil, kindResult{}, fmt.Errorf("read header: %w", err)
	}
	cols := headerIndex(header)

	file := filepath.Base(path)
	var entries []T
	var res kindResult
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		res.rows++
		if err != nil {
			logger.Warn("skipping malformed row", "file", file, "row", res.rows, "error", err)
			res.bad++
			continue
		}

		entry, err := build(row{cols: cols, rec: rec})
		if err != nil {
			logger.Warn("skipping row", "file", file, "row", res.rows, "error", err)
			res.bad++
			continue
		}
		if err := entry.Validate(); err != nil {
			logger.Warn("skipping invalid row", "file", file, "row", res.rows, "error", err)
			res.bad++
			continue
		}
		entries = append(entries, entry)
		res.ok++
	}
	return entries, res, nil
}

// headerIndex maps normalized column names to positions. Excel exports
// start with a BOM and people capitalize headers freely, so names are
// lowercased, trimmed, and spaces become underscores.
func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\uFEFF")
		name = strings.ToLower(strings.TrimSpace(name))
		name = strings.ReplaceAll(name, " ", "_")
		if name != "" {
			cols[name] = i
		}
	}
	return cols
}

// row is one CSV record with access to fields by column name. A column
// that is absent or empty reads as the zero value.
type row struct {
	cols map[string]int
	rec  []string
}

func (r row) str(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

func (r row) float(name string) (float64, error) {
	s := r.str(name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %q is not a number", name, s)
	}
	return v, nil
}

func (r row) integer(name string) (int, error) {
	s := r.str(name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("column %s: %q is not an integer", name, s)
	}
	return v, nil
}

// boolean accepts Go's usual spellings plus 是 and 否.
func (r row) boolean(name string) (bool, error) {
	s := r.str(name)
	switch s {
	case "":
		return false, nil
	case "是":
		return true, nil
	case "否":
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("column %s: %q is not a boolean", name, s)
	}
	return v, nil
}

// list splits a multi-value cell on | or 、.
func (r row) list(name string) []string {
	s := r.str(name)
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(c rune) bool { return c == '|' || c == '、' })
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// --- Row builders ---

// Column names match the YAML keys in the catalog files.

func hotelFromRow(r row) (catalog.Hotel, error) {
	h := catalog.Hotel{
		Name:        r.str("name"),
		City:        r.str("city"),
		District:    r.str("district"),
		Address:     r.str("address"),
		Type:        r.str("type"),
		Amenities:   r.list("amenities"),
		Description: r.str("description"),
	}
	var err error
	if h.PricePerNight, err = r.float("price_per_night"); err != nil {
		return catalog.Hotel{}, err
	}
	if h.Rating, err = r.float("rating"); err != nil {
		return catalog.Hotel{}, err
	}
	if h.Stars, err = r.integer("stars"); err != nil {
		return catalog.Hotel{}, err
	}
	return h, nil
}

func attractionFromRow(r row) (catalog.Attraction, error) {
	a := catalog.Attraction{
		Name:         r.str("name"),
		City:         r.str("city"),
		District:     r.str("district"),
		Category:     r.str("category"),
		Description:  r.str("description"),
		OpeningHours: r.str("opening_hours"),
		BestTime:     r.str("best_time"),
		Tips:         r.str("tips"),
	}
	var err error
	if a.TicketPrice, err = r.float("ticket_price"); err != nil {
		return catalog.Attraction{}, err
	}
	if a.DurationHours, err = r.float("duration_hours"); err != nil {
		return catalog.Attraction{}, err
	}
	return a, nil
}

func restaurantFromRow(r row) (catalog.Restaurant, error) {
	re := catalog.Restaurant{
		Name:         r.str("name"),
		City:         r.str("city"),
		District:     r.str("district"),
		Cuisine:      r.str("cuisine"),
		Specialties:  r.list("specialties"),
		OpeningHours: r.str("opening_hours"),
	}
	var err error
	if re.AvgPrice, err = r.float("avg_price_per_person"); err != nil {
		return catalog.Restaurant{}, err
	}
	if re.Rating, err = r.float("rating"); err != nil {
		return catalog.Restaurant{}, err
	}
	if re.Reservation, err = r.boolean("reservation_required"); err != nil {
		return catalog.Restaurant{}, err
	}
	return re, nil
}

func transportFromRow(r row) (catalog.TransportOption, error) {
	t := catalog.TransportOption{
		FromCity:  r.str("from_city"),
		ToCity:    r.str("to_city"),
		Mode:      r.str("mode"),
		Frequency: r.str("frequency"),
		Departure: r.str("departure_time"),
		Arrival:   r.str("arrival_time"),
		Carrier:   r.str("company"),
	}
	var err error
	if t.DurationHours, err = r.float("duration_hours"); err != nil {
		return catalog.TransportOption{}, err
	}
	if t.Price, err = r.float("price"); err != nil {
		return catalog.TransportOption{}, err
	}
	return t, nil
}

func flightFromRow(r row) (catalog.Flight, error) {
	f := catalog.Flight{
		Number:    r.str("number"),
		Airline:   r.str("airline"),
		FromCity:  r.str("from_city"),
		ToCity:    r.str("to_city"),
		Departure: r.str("departure"),
		Arrival:   r.str("arrival"),
		Duration:  r.str("duration"),
	}
	var err error
	if f.Price, err = r.float("price"); err != nil {
		return catalog.Flight{}, err
	}
	if f.Seats, err = r.integer("seats"); err != nil {
		return catalog.Flight{}, err
	}
	return f, nil
}

// --- Merging ---

// Duplicate keys. Hotels, attractions, and restaurants are unique by
// name within a city; transport by route and mode; flights by number.

func hotelKey(h catalog.Hotel) string           { return h.City + "/" + h.Name }
func attractionKey(a catalog.Attraction) string { return a.City + "/" + a.Name }
func restaurantKey(r catalog.Restaurant) string { return r.City + "/" + r.Name }

func transportKey(t catalog.TransportOption) string {
	return t.FromCity + "/" + t.ToCity + "/" + t.Mode
}

func flightKey(f catalog.Flight) string { return f.Number }

// mergeByKey appends entries whose key is not already present, in
// input order. Duplicates within the new entries collapse too, so a
// re-run of the same export is a no-op.
func mergeByKey[T any](base, add []T, key func(T) string) ([]T, int) {
	seen := make(map[string]bool, len(base)+len(add))
	for _, e := range base {
		seen[key(e)] = true
	}
	merged := base
	dups := 0
	for _, e := range add {
		k := key(e)
		if seen[k] {
			dups++
			continue
		}
		seen[k] = true
		merged = append(merged, e)
	}
	return merged, dups
}
