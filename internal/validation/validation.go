package validation

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

// ErrYearEmpty is returned when the year parameter is blank.
var ErrYearEmpty = errors.New("year is required")

// ErrYearInvalid is returned when the year is not an integer.
var ErrYearInvalid = errors.New("year must be an integer")

// ErrYearOutOfRange is returned when the year lies outside the slider bounds.
var ErrYearOutOfRange = errors.New("year out of range")

// ErrTooManyCountries is returned when more countries are selected than allowed.
var ErrTooManyCountries = errors.New("too many countries selected")

// ErrCountryTooLong is returned when a country name exceeds the maximum length.
var ErrCountryTooLong = errors.New("country name too long")

// ErrCountryInvalidChars is returned when a country name contains control characters.
var ErrCountryInvalidChars = errors.New("country name contains invalid characters")

// ValidateYear parses a slider value and enforces the inclusive [minYear, maxYear] bounds.
func ValidateYear(input string, minYear, maxYear int) (int, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, ErrYearEmpty
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrYearInvalid
	}
	if year < minYear || year > maxYear {
		return 0, ErrYearOutOfRange
	}
	return year, nil
}

// ValidateCountries trims multi-select values, drops blanks and duplicates
// (first occurrence wins), and enforces count and length limits (0 disables a
// limit). Country names are free text: letters, punctuation and spaces all
// occur in real names, so only control characters are rejected. An empty
// result is valid and means nothing is selected.
func ValidateCountries(inputs []string, maxCount, maxLen int) ([]string, error) {
	seen := make(map[string]struct{}, len(inputs))
	out := make([]string, 0, len(inputs))
	for _, in := range inputs {
		s := strings.TrimSpace(in)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		if maxLen > 0 && len([]rune(s)) > maxLen {
			return nil, ErrCountryTooLong
		}
		for _, r := range s {
			if unicode.IsControl(r) {
				return nil, ErrCountryInvalidChars
			}
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if maxCount > 0 && len(out) > maxCount {
		return nil, ErrTooManyCountries
	}
	return out, nil
}
