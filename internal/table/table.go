// Package table reads and writes header-addressed CSV files.
//
// Missing values are recognized with the same token set pandas uses by
// default, so files produced by either toolchain round-trip.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/kjstillabower/climate-impact-dashboard/internal/models"
)

// ErrMissingColumn is returned when a required column is absent from the header.
var ErrMissingColumn = errors.New("missing column")

var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsNA reports whether a raw cell denotes a missing value.
func IsNA(s string) bool {
	_, ok := naTokens[strings.TrimSpace(s)]
	return ok
}

// Reader yields rows of a CSV file addressed by column name.
type Reader struct {
	csv   *csv.Reader
	index map[string]int
	line  int
}

// NewReader consumes the header row and checks that every required column is present.
func NewReader(r io.Reader, required ...string) (*Reader, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("read header: empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		index[strings.TrimSpace(h)] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	return &Reader{csv: cr, index: index, line: 1}, nil
}

// Next returns the next row, or io.EOF when the file is exhausted.
func (r *Reader) Next() (Row, error) {
	fields, err := r.csv.Read()
	if err != nil {
		return Row{}, err
	}
	r.line++
	return Row{fields: fields, index: r.index, line: r.line}, nil
}

// Row is a single data row.
type Row struct {
	fields []string
	index  map[string]int
	line   int
}

// Line is the 1-based line number of the row, counting the header.
func (row Row) Line() int { return row.line }

// String returns the raw value of col. Callers must have required col in NewReader.
func (row Row) String(col string) string {
	i, ok := row.index[col]
	if !ok || i >= len(row.fields) {
		return ""
	}
	return row.fields[i]
}

// Int parses col as an integer. Integral floats such as "2020.0" are accepted.
func (row Row) Int(col string) (int, error) {
	raw := strings.TrimSpace(row.String(col))
	if IsNA(raw) {
		return 0, fmt.Errorf("line %d: %s is missing", row.line, col)
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("line %d: %s %q is not an integer", row.line, col, raw)
	}
	return int(f), nil
}

// Float parses col as a nullable float.
func (row Row) Float(col string) (models.NullFloat, error) {
	raw := strings.TrimSpace(row.String(col))
	if IsNA(raw) {
		return models.NullFloat{}, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return models.NullFloat{}, fmt.Errorf("line %d: %s %q is not a number", row.line, col, raw)
	}
	if math.IsNaN(f) {
		return models.NullFloat{}, nil
	}
	return models.Float(f), nil
}

// FormatFloat renders f the way pandas writes floats (Python float repr):
// shortest round-trip digits, integral values keep a ".0", exponent notation
// below 1e-4 and from 1e16 up, "inf" for infinities and an empty cell for NaN.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ""
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if exp := decimalExponent(f); f != 0 && (exp < -4 || exp >= 16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// decimalExponent returns the base-10 exponent of f's shortest representation.
func decimalExponent(f float64) int {
	e := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	return exp
}

// Writer writes a header row followed by data rows.
type Writer struct {
	csv *csv.Writer
}

// NewWriter writes the header immediately.
func NewWriter(w io.Writer, header ...string) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &Writer{csv: cw}, nil
}

// Write appends one row.
func (w *Writer) Write(fields ...string) error {
	return w.csv.Write(fields)
}

// Flush flushes buffered rows and reports any write error.
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}
