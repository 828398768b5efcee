package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"

	"github.com/kjstillabower/climate-impact-dashboard/internal/dataset"
	"github.com/kjstillabower/climate-impact-dashboard/internal/models"
	"github.com/kjstillabower/climate-impact-dashboard/internal/table"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	dashboardPage = template.Must(template.ParseFS(templateFS, "templates/dashboard.html", "templates/layout.html"))
	missingPage   = template.Must(template.ParseFS(templateFS, "templates/missing.html", "templates/layout.html"))
)

// MissingDataMessage tells the user how to produce the merged file.
const MissingDataMessage = "Merged data not found. Please run: go run ./cmd/merge"

var previewColumns = []string{"country", "year", "energy_per_capita", "temp_anomaly", "temp_anomaly_f"}

type countryOption struct {
	Name     string
	Selected bool
}

type dashboardData struct {
	Columns   []string
	Preview   [][]string
	HasYears  bool
	MinYear   int
	MaxYear   int
	Year      int
	Countries []countryOption
}

type missingData struct {
	Message string
}

func newDashboardData(d *dataset.Dataset, previewRows, year int, selected []string) dashboardData {
	data := dashboardData{Columns: previewColumns, Year: year}
	for _, r := range d.Head(previewRows) {
		data.Preview = append(data.Preview, previewRow(r))
	}
	data.MinYear, data.MaxYear, data.HasYears = d.YearRange()

	isSelected := make(map[string]bool, len(selected))
	for _, c := range selected {
		isSelected[c] = true
	}
	for _, c := range d.Countries() {
		data.Countries = append(data.Countries, countryOption{Name: c, Selected: isSelected[c]})
	}
	return data
}

func previewRow(r models.DashboardRecord) []string {
	return []string{
		r.Country,
		strconv.Itoa(r.Year),
		formatCell(r.EnergyPerCapita),
		formatCell(r.TempAnomaly),
		formatCell(r.TempAnomalyF),
	}
}

func formatCell(v models.NullFloat) string {
	if !v.Valid {
		return "NaN"
	}
	return table.FormatFloat(v.Value)
}

// writePage renders t fully before writing so a template error never leaves a partial page.
func writePage(w http.ResponseWriter, status int, t *template.Template, data interface{}) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
