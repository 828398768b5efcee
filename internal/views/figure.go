package views

import "github.com/kjstillabower/climate-impact-dashboard/internal/models"

// Figure is a Plotly-compatible chart description: the browser passes it
// unchanged to Plotly.newPlot.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is one series.
type Trace struct {
	Type          string             `json:"type"`
	Mode          string             `json:"mode"`
	Name          string             `json:"name"`
	LegendGroup   string             `json:"legendgroup"`
	X             []models.NullFloat `json:"x"`
	Y             []models.NullFloat `json:"y"`
	HoverText     []string           `json:"hovertext,omitempty"`
	HoverTemplate string             `json:"hovertemplate,omitempty"`
	Marker        *Marker            `json:"marker,omitempty"`
	Line          *LineStyle         `json:"line,omitempty"`
}

type Marker struct {
	Color string     `json:"color,omitempty"`
	Size  float64    `json:"size,omitempty"`
	Line  *LineStyle `json:"line,omitempty"`
}

type LineStyle struct {
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width,omitempty"`
}

type Layout struct {
	Title        Title  `json:"title"`
	XAxis        Axis   `json:"xaxis"`
	YAxis        Axis   `json:"yaxis"`
	Legend       Legend `json:"legend"`
	Margin       Margin `json:"margin"`
	PlotBGColor  string `json:"plot_bgcolor"`
	PaperBGColor string `json:"paper_bgcolor"`
	Font         Font   `json:"font"`
	HoverMode    string `json:"hovermode"`
}

type Title struct {
	Text string `json:"text"`
	Font *Font  `json:"font,omitempty"`
}

type Font struct {
	Color string `json:"color,omitempty"`
}

type Axis struct {
	Title       Title        `json:"title"`
	Type        string       `json:"type,omitempty"`
	RangeSlider *RangeSlider `json:"rangeslider,omitempty"`
}

type RangeSlider struct {
	Visible bool `json:"visible"`
}

type Legend struct {
	Title Title `json:"title"`
}

type Margin struct {
	L int `json:"l"`
	R int `json:"r"`
	T int `json:"t"`
	B int `json:"b"`
}

const (
	backgroundColor = "#0a0a0a"
	accentColor     = "#00f0ff"
)

// Plotly's default qualitative sequence, assigned to series in order.
var palette = []string{
	"#636EFA", "#EF553B", "#00CC96", "#AB63FA", "#FFA15A",
	"#19D3F3", "#FF6692", "#B6E880", "#FF97FF", "#FECB52",
}

func colorAt(i int) string {
	return palette[i%len(palette)]
}

func baseLayout(title string) Layout {
	return Layout{
		Title:        Title{Text: title, Font: &Font{Color: accentColor}},
		Margin:       Margin{L: 40, R: 40, T: 60, B: 40},
		PlotBGColor:  backgroundColor,
		PaperBGColor: backgroundColor,
		Font:         Font{Color: accentColor},
	}
}
