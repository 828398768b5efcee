package views

import "github.com/kjstillabower/climate-impact-dashboard/internal/dataset"

// Initial control values.
const DefaultYear = 2020

// DefaultCountries is the initial multi-select value.
var DefaultCountries = []string{"United States", "China"}

// ClampYear bounds year to the dataset's year range. An empty dataset leaves year unchanged.
func ClampYear(d *dataset.Dataset, year int) int {
	minYear, maxYear, ok := d.YearRange()
	if !ok {
		return year
	}
	if year < minYear {
		return minYear
	}
	if year > maxYear {
		return maxYear
	}
	return year
}

// AvailableCountries keeps the countries present in the dataset, in the given order.
func AvailableCountries(d *dataset.Dataset, countries []string) []string {
	out := make([]string, 0, len(countries))
	for _, c := range countries {
		if d.HasCountry(c) {
			out = append(out, c)
		}
	}
	return out
}
