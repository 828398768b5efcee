package models

import (
	"encoding/json"
	"math"
	"strconv"
)

// FahrenheitPerCelsius rescales a Celsius anomaly into a Fahrenheit anomaly.
// Anomalies are deltas, so no +32 offset applies.
const FahrenheitPerCelsius = 1.8

// NullFloat is a float64 that may be missing in the source table.
type NullFloat struct {
	Value float64
	Valid bool
}

// Float returns a valid NullFloat holding v.
func Float(v float64) NullFloat {
	return NullFloat{Value: v, Valid: true}
}

// MarshalJSON encodes missing and non-finite values as null, as JSON has no
// representation for them.
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid || math.IsInf(n.Value, 0) || math.IsNaN(n.Value) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Value, 'g', -1, 64)), nil
}

// UnmarshalJSON accepts null or a number.
func (n *NullFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Float(v)
	return nil
}

// Key identifies a country-year observation; it is the join key of the merge.
type Key struct {
	Country string
	Year    int
}

// SourceEnergyRecord is one row of owid-energy-data.csv projected to the merge columns.
type SourceEnergyRecord struct {
	Country         string
	Year            int
	EnergyPerCapita NullFloat
}

// Key returns the join key.
func (r SourceEnergyRecord) Key() Key { return Key{Country: r.Country, Year: r.Year} }

// SourceTemperatureRecord is one row of temperature_data.csv projected to the merge columns.
type SourceTemperatureRecord struct {
	Country     string
	Year        int
	TempAnomaly NullFloat
}

// Key returns the join key.
func (r SourceTemperatureRecord) Key() Key { return Key{Country: r.Country, Year: r.Year} }

// MergedRecord is a joined country-year row with both metrics present.
type MergedRecord struct {
	Country         string  `json:"country"`
	Year            int     `json:"year"`
	EnergyPerCapita float64 `json:"energy_per_capita"`
	TempAnomaly     float64 `json:"temp_anomaly"`
}

// DashboardRecord is a row of the merged file as loaded by the dashboard.
// Metrics stay nullable because the merged file is read back from disk and
// the views filter missing values themselves.
type DashboardRecord struct {
	Country         string    `json:"country"`
	Year            int       `json:"year"`
	EnergyPerCapita NullFloat `json:"energy_per_capita"`
	TempAnomaly     NullFloat `json:"temp_anomaly"`
	// TempAnomalyF is TempAnomaly scaled by FahrenheitPerCelsius. It is a
	// Fahrenheit delta, not an absolute Fahrenheit reading.
	TempAnomalyF NullFloat `json:"temp_anomaly_f"`
}

// NewDashboardRecord derives TempAnomalyF from the merged columns.
func NewDashboardRecord(country string, year int, energy, anomaly NullFloat) DashboardRecord {
	rec := DashboardRecord{
		Country:         country,
		Year:            year,
		EnergyPerCapita: energy,
		TempAnomaly:     anomaly,
	}
	if anomaly.Valid {
		rec.TempAnomalyF = Float(anomaly.Value * FahrenheitPerCelsius)
	}
	return rec
}
