// Package fiscal resolves which fiscal year and month a report should cover.
//
// A fiscal year is currently the calendar year of a transaction date; no
// fiscal-year offset is applied.
package fiscal

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// AllMonths is the month value meaning "no month filter".
const AllMonths = 0

// Selection is the effective reporting period together with the years a user
// can choose from.
type Selection struct {
	Year  int   `json:"year"`
	Month int   `json:"month"`
	Years []int `json:"years"`
}

// AllMonths reports whether the selection spans the whole year.
func (s Selection) AllMonths() bool {
	return s.Month == AllMonths
}

// Resolve picks the effective (year, month) for a report.
//
// With no known years the current calendar year is used. Otherwise a requested
// year wins, even one outside known, so empty periods can still be viewed; the
// fallback is the most recent known year. A month outside 1..12 (or nil) means
// all months.
func Resolve(known []int, year, month *int, now time.Time) Selection {
	years := SortedYears(known)

	sel := Selection{Years: years, Month: AllMonths}
	switch {
	case len(years) == 0:
		sel.Year = now.Year()
	case year != nil:
		sel.Year = *year
	default:
		sel.Year = years[0]
	}

	if month != nil && *month >= 1 && *month <= 12 {
		sel.Month = *month
	}
	return sel
}

// SortedYears returns the distinct years in known, most recent first.
// The result is never nil.
func SortedYears(known []int) []int {
	seen := make(map[int]struct{}, len(known))
	years := make([]int, 0, len(known))
	for _, y := range known {
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// ParseParams converts raw query values into optional year and month.
// Blank or non-numeric values are treated as absent.
func ParseParams(yearRaw, monthRaw string) (year, month *int) {
	return parseOptionalInt(yearRaw), parseOptionalInt(monthRaw)
}

func parseOptionalInt(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}
