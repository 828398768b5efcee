// Package dataset loads the merged energy/temperature table for the dashboard.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/climate-impact-dashboard/internal/merge"
	"github.com/kjstillabower/climate-impact-dashboard/internal/models"
	"github.com/kjstillabower/climate-impact-dashboard/internal/observability"
	"github.com/kjstillabower/climate-impact-dashboard/internal/table"
)

// DefaultPath is where the merge job writes its output.
const DefaultPath = merge.OutputPath

// ErrMergedFileMissing is returned by Load when the merged file does not exist.
var ErrMergedFileMissing = errors.New("merged data file missing")

// Dataset is an immutable, loaded merged table. It is shared read-only
// between all requests.
type Dataset struct {
	path      string
	records   []models.DashboardRecord
	minYear   int
	maxYear   int
	countries []string
}

// New builds a Dataset from already-derived records.
func New(path string, records []models.DashboardRecord) *Dataset {
	d := &Dataset{path: path, records: records}
	seen := make(map[string]struct{})
	for i, r := range records {
		if i == 0 || r.Year < d.minYear {
			d.minYear = r.Year
		}
		if i == 0 || r.Year > d.maxYear {
			d.maxYear = r.Year
		}
		if _, ok := seen[r.Country]; !ok {
			seen[r.Country] = struct{}{}
			d.countries = append(d.countries, r.Country)
		}
	}
	sort.Strings(d.countries)
	return d
}

// Path is the file the dataset was loaded from.
func (d *Dataset) Path() string { return d.path }

// Len is the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// Records returns the loaded rows. Callers must not modify the slice.
func (d *Dataset) Records() []models.DashboardRecord { return d.records }

// YearRange returns the smallest and largest year present. ok is false for an empty dataset.
func (d *Dataset) YearRange() (min, max int, ok bool) {
	return d.minYear, d.maxYear, len(d.records) > 0
}

// Countries returns the sorted distinct country names.
func (d *Dataset) Countries() []string {
	out := make([]string, len(d.countries))
	copy(out, d.countries)
	return out
}

// HasCountry reports whether any record belongs to country.
func (d *Dataset) HasCountry(country string) bool {
	i := sort.SearchStrings(d.countries, country)
	return i < len(d.countries) && d.countries[i] == country
}

// Head returns up to n leading records.
func (d *Dataset) Head(n int) []models.DashboardRecord {
	if n < 0 {
		n = 0
	}
	if n > len(d.records) {
		n = len(d.records)
	}
	return d.records[:n]
}

// Read parses a merged table and derives temp_anomaly_f for every row.
func Read(r io.Reader) ([]models.DashboardRecord, error) {
	tr, err := table.NewReader(r, merge.ColCountry, merge.ColYear, merge.ColEnergyPerCapita, merge.ColTempAnomaly)
	if err != nil {
		return nil, err
	}
	var out []models.DashboardRecord
	for {
		row, err := tr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		year, err := row.Int(merge.ColYear)
		if err != nil {
			return nil, err
		}
		energy, err := row.Float(merge.ColEnergyPerCapita)
		if err != nil {
			return nil, err
		}
		anomaly, err := row.Float(merge.ColTempAnomaly)
		if err != nil {
			return nil, err
		}
		out = append(out, models.NewDashboardRecord(row.String(merge.ColCountry), year, energy, anomaly))
	}
}

// Opener opens a file for reading. Tests substitute it to count reads.
type Opener func(path string) (io.ReadCloser, error)

func openFile(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Loader memoizes loaded datasets by path for the lifetime of the process.
// Entries are never refreshed: a file changed on disk is only picked up after
// a restart. Failed loads are not cached.
type Loader struct {
	mu      sync.Mutex
	open    Opener
	logger  *zap.Logger
	entries map[string]*Dataset
}

// NewLoader returns a Loader reading from the local filesystem.
func NewLoader(logger *zap.Logger) *Loader {
	return NewLoaderWithOpener(openFile, logger)
}

// NewLoaderWithOpener returns a Loader that reads through open.
func NewLoaderWithOpener(open Opener, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{open: open, logger: logger, entries: make(map[string]*Dataset)}
}

// Load returns the dataset at path, reading the file only on the first
// successful call for that path. Returns ErrMergedFileMissing if the file
// does not exist.
func (l *Loader) Load(path string) (*Dataset, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if d, ok := l.entries[path]; ok {
		observability.DatasetCacheHitsTotal.Inc()
		return d, nil
	}

	f, err := l.open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			observability.DatasetLoadsTotal.WithLabelValues("missing").Inc()
			return nil, fmt.Errorf("%w: %s", ErrMergedFileMissing, path)
		}
		observability.DatasetLoadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := Read(f)
	if err != nil {
		observability.DatasetLoadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	d := New(path, records)
	l.entries[path] = d
	observability.DatasetLoadsTotal.WithLabelValues("success").Inc()

	minYear, maxYear, _ := d.YearRange()
	l.logger.Info("dataset loaded",
		zap.String("path", path),
		zap.Int("records", d.Len()),
		zap.Int("countries", len(d.countries)),
		zap.Int("min_year", minYear),
		zap.Int("max_year", maxYear))
	return d, nil
}
