// Package merge joins the energy and temperature source tables on
// (country, year) and writes the merged table consumed by the dashboard.
package merge

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/kjstillabower/climate-impact-dashboard/internal/models"
	"github.com/kjstillabower/climate-impact-dashboard/internal/table"
)

// Fixed file locations, relative to the working directory.
const (
	EnergyPath      = "owid-energy-data.csv"
	TemperaturePath = "temperature_data.csv"
	OutputPath      = "data/merged_energy_temp.csv"
)

// Column names shared by the sources and the merged file.
const (
	ColCountry         = "country"
	ColYear            = "year"
	ColEnergyPerCapita = "energy_per_capita"
	ColTempAnomaly     = "temp_anomaly"
)

// ErrSourceFileMissing is returned when either input CSV does not exist.
var ErrSourceFileMissing = errors.New("source file missing")

// Paths names the inputs and output of a merge run.
type Paths struct {
	Energy      string
	Temperature string
	Output      string
}

// DefaultPaths returns the fixed paths the merge binary uses.
func DefaultPaths() Paths {
	return Paths{Energy: EnergyPath, Temperature: TemperaturePath, Output: OutputPath}
}

// MissingSourceHint tells the user where the merge job looks for its inputs.
func MissingSourceHint(paths Paths) string {
	return fmt.Sprintf("source data missing; place %s and %s in the working directory", paths.Energy, paths.Temperature)
}

// Result summarizes a merge run.
type Result struct {
	EnergyRows         int
	EnergyDropped      int
	TemperatureRows    int
	TemperatureDropped int
	MergedRows         int
	Output             string
}

// Run loads both sources, drops rows with a null metric, inner-joins them and
// overwrites the output file. The write is not atomic.
func Run(paths Paths, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	energy, err := loadEnergy(paths.Energy)
	if err != nil {
		return Result{}, err
	}
	temps, err := loadTemperature(paths.Temperature)
	if err != nil {
		return Result{}, err
	}

	keptEnergy := DropNullEnergy(energy)
	keptTemps := DropNullTemperature(temps)
	logger.Info("sources loaded",
		zap.Int("energy_rows", len(energy)),
		zap.Int("energy_dropped", len(energy)-len(keptEnergy)),
		zap.Int("temperature_rows", len(temps)),
		zap.Int("temperature_dropped", len(temps)-len(keptTemps)))

	merged := Join(keptEnergy, keptTemps)

	if err := writeOutput(paths.Output, merged); err != nil {
		return Result{}, err
	}
	logger.Info("merged dataset written", zap.String("path", paths.Output), zap.Int("merged_rows", len(merged)))

	return Result{
		EnergyRows:         len(energy),
		EnergyDropped:      len(energy) - len(keptEnergy),
		TemperatureRows:    len(temps),
		TemperatureDropped: len(temps) - len(keptTemps),
		MergedRows:         len(merged),
		Output:             paths.Output,
	}, nil
}

// DropNullEnergy keeps rows whose energy_per_capita is present, preserving order.
func DropNullEnergy(rows []models.SourceEnergyRecord) []models.SourceEnergyRecord {
	out := make([]models.SourceEnergyRecord, 0, len(rows))
	for _, r := range rows {
		if r.EnergyPerCapita.Valid {
			out = append(out, r)
		}
	}
	return out
}

// DropNullTemperature keeps rows whose temp_anomaly is present, preserving order.
func DropNullTemperature(rows []models.SourceTemperatureRecord) []models.SourceTemperatureRecord {
	out := make([]models.SourceTemperatureRecord, 0, len(rows))
	for _, r := range rows {
		if r.TempAnomaly.Valid {
			out = append(out, r)
		}
	}
	return out
}

// Join inner-joins the two tables on (country, year). Output follows the order
// of energy rows; a key duplicated on either side yields every pairing of its
// rows. Rows with a null metric are skipped even if the caller did not drop them.
func Join(energy []models.SourceEnergyRecord, temps []models.SourceTemperatureRecord) []models.MergedRecord {
	byKey := make(map[models.Key][]float64, len(temps))
	for _, t := range temps {
		if !t.TempAnomaly.Valid {
			continue
		}
		byKey[t.Key()] = append(byKey[t.Key()], t.TempAnomaly.Value)
	}

	var out []models.MergedRecord
	for _, e := range energy {
		if !e.EnergyPerCapita.Valid {
			continue
		}
		for _, anomaly := range byKey[e.Key()] {
			out = append(out, models.MergedRecord{
				Country:         e.Country,
				Year:            e.Year,
				EnergyPerCapita: e.EnergyPerCapita.Value,
				TempAnomaly:     anomaly,
			})
		}
	}
	return out
}

// ReadEnergy parses an energy table. Only country, year and energy_per_capita are read.
func ReadEnergy(r io.Reader) ([]models.SourceEnergyRecord, error) {
	tr, err := table.NewReader(r, ColCountry, ColYear, ColEnergyPerCapita)
	if err != nil {
		return nil, err
	}
	var out []models.SourceEnergyRecord
	for {
		row, err := tr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		year, err := row.Int(ColYear)
		if err != nil {
			return nil, err
		}
		energy, err := row.Float(ColEnergyPerCapita)
		if err != nil {
			return nil, err
		}
		out = append(out, models.SourceEnergyRecord{Country: row.String(ColCountry), Year: year, EnergyPerCapita: energy})
	}
}

// ReadTemperature parses a temperature table. Only country, year and temp_anomaly are read.
func ReadTemperature(r io.Reader) ([]models.SourceTemperatureRecord, error) {
	tr, err := table.NewReader(r, ColCountry, ColYear, ColTempAnomaly)
	if err != nil {
		return nil, err
	}
	var out []models.SourceTemperatureRecord
	for {
		row, err := tr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		year, err := row.Int(ColYear)
		if err != nil {
			return nil, err
		}
		anomaly, err := row.Float(ColTempAnomaly)
		if err != nil {
			return nil, err
		}
		out = append(out, models.SourceTemperatureRecord{Country: row.String(ColCountry), Year: year, TempAnomaly: anomaly})
	}
}

// WriteMerged writes the merged table with a header row and no index column.
func WriteMerged(w io.Writer, rows []models.MergedRecord) error {
	tw, err := table.NewWriter(w, ColCountry, ColYear, ColEnergyPerCapita, ColTempAnomaly)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := tw.Write(r.Country, strconv.Itoa(r.Year), table.FormatFloat(r.EnergyPerCapita), table.FormatFloat(r.TempAnomaly)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func loadEnergy(path string) ([]models.SourceEnergyRecord, error) {
	f, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := ReadEnergy(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

func loadTemperature(path string) ([]models.SourceTemperatureRecord, error) {
	f, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := ReadTemperature(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

func openSource(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceFileMissing, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func writeOutput(path string, rows []models.MergedRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteMerged(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
