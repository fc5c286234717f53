package queryunderstanding

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/intelligencedev/clinical-core/internal/model"
)

var (
	reLastN       = regexp.MustCompile(`(?i)last\s+(\d+)\s+(day|days|week|weeks|month|months|year|years)`)
	reSinceDate   = regexp.MustCompile(`(?i)since\s+(\d{4}-\d{2}-\d{2})`)
	reISODate     = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	reISORange    = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s*(?:to|-|through)\s*(\d{4}-\d{2}-\d{2})`)
)

// ParseTemporal recognizes relative phrases, absolute ISO dates, and ranges,
// returning {timeReference, dateFrom, dateTo} inclusive on both sides,
// relative to now. Returns nil when no temporal expression is found.
func ParseTemporal(query string, now time.Time) *model.TemporalFilter {
	q := strings.ToLower(query)

	if m := reISORange.FindStringSubmatch(q); m != nil {
		from, _ := time.Parse("2006-01-02", m[1])
		to, _ := time.Parse("2006-01-02", m[2])
		return &model.TemporalFilter{TimeReference: m[0], DateFrom: &from, DateTo: &to}
	}

	if strings.Contains(q, "yesterday") {
		from := startOfDay(now.AddDate(0, 0, -1))
		to := endOfDay(from)
		return &model.TemporalFilter{TimeReference: "yesterday", DateFrom: &from, DateTo: &to}
	}
	if strings.Contains(q, "today") {
		from := startOfDay(now)
		to := endOfDay(now)
		return &model.TemporalFilter{TimeReference: "today", DateFrom: &from, DateTo: &to}
	}

	if m := reLastN.FindStringSubmatch(q); m != nil {
		n, _ := strconv.Atoi(m[1])
		unit := strings.TrimSuffix(m[2], "s")
		from := subtractUnit(now, n, unit)
		to := now
		return &model.TemporalFilter{TimeReference: m[0], DateFrom: &from, DateTo: &to}
	}

	if m := reSinceDate.FindStringSubmatch(q); m != nil {
		from, err := time.Parse("2006-01-02", m[1])
		if err == nil {
			to := now
			return &model.TemporalFilter{TimeReference: m[0], DateFrom: &from, DateTo: &to}
		}
	}

	if m := reISODate.FindString(q); m != "" {
		d, err := time.Parse("2006-01-02", m)
		if err == nil {
			from := startOfDay(d)
			to := endOfDay(d)
			return &model.TemporalFilter{TimeReference: m, DateFrom: &from, DateTo: &to}
		}
	}

	return nil
}

func subtractUnit(t time.Time, n int, unit string) time.Time {
	switch unit {
	case "day":
		return t.AddDate(0, 0, -n)
	case "week":
		return t.AddDate(0, 0, -7*n)
	case "month":
		return t.AddDate(0, -n, 0)
	case "year":
		return t.AddDate(-n, 0, 0)
	default:
		return t
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
