// Package views turns a loaded dataset and the current control values into
// renderable chart views. Every function here is pure: the same dataset and
// selection always produce the same View, so a control change simply calls
// the function again.
package views

import (
	"fmt"
	"sort"

	"github.com/kjstillabower/climate-impact-dashboard/internal/dataset"
	"github.com/kjstillabower/climate-impact-dashboard/internal/models"
)

// State is the render state of a view.
type State string

const (
	// StateEmpty means nothing matched the selection; only a notice is shown.
	StateEmpty State = "empty"
	// StatePopulated means a chart is rendered.
	StatePopulated State = "populated"
)

// View names.
const (
	ScatterView = "scatter"
	LineView    = "line"
)

const (
	NoticeNoYearData    = "No data available for the selected year."
	NoticeNoCountryData = "No data available for selected countries."
)

const (
	labelEnergy  = "Energy per Capita (log scale)"
	labelAnomaly = "Temperature Anomaly (°F)"
	labelYear    = "Year"
)

// View is the output of a render. Figure is nil exactly when State is StateEmpty.
type View struct {
	Name   string  `json:"view"`
	State  State   `json:"state"`
	Notice string  `json:"notice,omitempty"`
	Figure *Figure `json:"figure,omitempty"`
}

// Empty reports whether the view rendered no chart.
func (v View) Empty() bool { return v.State == StateEmpty }

// series groups records by country in order of first appearance.
type series struct {
	country string
	records []models.DashboardRecord
}

func groupByCountry(records []models.DashboardRecord) []series {
	index := make(map[string]int)
	var out []series
	for _, r := range records {
		i, ok := index[r.Country]
		if !ok {
			i = len(out)
			index[r.Country] = i
			out = append(out, series{country: r.Country})
		}
		out[i].records = append(out[i].records, r)
	}
	return out
}

// FilterYear returns records for year with both energy_per_capita and
// temp_anomaly_f present.
func FilterYear(d *dataset.Dataset, year int) []models.DashboardRecord {
	var out []models.DashboardRecord
	for _, r := range d.Records() {
		if r.Year == year && r.EnergyPerCapita.Valid && r.TempAnomalyF.Valid {
			out = append(out, r)
		}
	}
	return out
}

// FilterCountries returns every record, across all years, whose country is selected.
func FilterCountries(d *dataset.Dataset, countries []string) []models.DashboardRecord {
	selected := make(map[string]struct{}, len(countries))
	for _, c := range countries {
		selected[c] = struct{}{}
	}
	var out []models.DashboardRecord
	for _, r := range d.Records() {
		if _, ok := selected[r.Country]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Scatter renders energy per capita (log x) against the Fahrenheit anomaly for
// one year, one colored series per country.
func Scatter(d *dataset.Dataset, year int) View {
	rows := FilterYear(d, year)
	if len(rows) == 0 {
		return View{Name: ScatterView, State: StateEmpty, Notice: NoticeNoYearData}
	}

	groups := groupByCountry(rows)
	traces := make([]Trace, 0, len(groups))
	for i, g := range groups {
		t := Trace{
			Type:          "scatter",
			Mode:          "markers",
			Name:          g.country,
			LegendGroup:   g.country,
			HoverTemplate: "<b>%{hovertext}</b><br><br>" + labelEnergy + "=%{x}<br>" + labelAnomaly + "=%{y}<extra></extra>",
			Marker: &Marker{
				Color: colorAt(i),
				Size:  10,
				Line:  &LineStyle{Color: "white", Width: 1.5},
			},
		}
		for _, r := range g.records {
			t.X = append(t.X, r.EnergyPerCapita)
			t.Y = append(t.Y, r.TempAnomalyF)
			t.HoverText = append(t.HoverText, r.Country)
		}
		traces = append(traces, t)
	}

	layout := baseLayout(fmt.Sprintf("Energy per Capita vs Temperature Anomaly (°F) in %d", year))
	layout.XAxis = Axis{Title: Title{Text: labelEnergy}, Type: "log"}
	layout.YAxis = Axis{Title: Title{Text: labelAnomaly}}
	layout.Legend = Legend{Title: Title{Text: "country"}}
	layout.HoverMode = "closest"

	return View{Name: ScatterView, State: StatePopulated, Figure: &Figure{Data: traces, Layout: layout}}
}

// Line renders the Fahrenheit anomaly over all years, one line-with-markers
// series per selected country, with a range slider under the x axis.
func Line(d *dataset.Dataset, countries []string) View {
	rows := FilterCountries(d, countries)
	if len(rows) == 0 {
		return View{Name: LineView, State: StateEmpty, Notice: NoticeNoCountryData}
	}

	groups := groupByCountry(rows)
	traces := make([]Trace, 0, len(groups))
	for i, g := range groups {
		sort.SliceStable(g.records, func(a, b int) bool { return g.records[a].Year < g.records[b].Year })
		color := colorAt(i)
		t := Trace{
			Type:          "scatter",
			Mode:          "lines+markers",
			Name:          g.country,
			LegendGroup:   g.country,
			HoverTemplate: "country=" + g.country + "<br>" + labelYear + "=%{x}<br>" + labelAnomaly + "=%{y}<extra></extra>",
			Marker:        &Marker{Color: color},
			Line:          &LineStyle{Color: color},
		}
		for _, r := range g.records {
			t.X = append(t.X, models.Float(float64(r.Year)))
			t.Y = append(t.Y, r.TempAnomalyF)
		}
		traces = append(traces, t)
	}

	layout := baseLayout("Temperature Anomaly (°F) Over Time")
	layout.XAxis = Axis{Title: Title{Text: labelYear}, RangeSlider: &RangeSlider{Visible: true}}
	layout.YAxis = Axis{Title: Title{Text: "Anomaly (°F)"}}
	layout.Legend = Legend{Title: Title{Text: "Country"}}
	layout.HoverMode = "x unified"

	return View{Name: LineView, State: StatePopulated, Figure: &Figure{Data: traces, Layout: layout}}
}
