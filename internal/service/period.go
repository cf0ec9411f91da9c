package service

import (
	"strings"
	"time"

	"cafe-pos/internal/models"
)

// Period labels
const (
	PeriodToday  = "today"
	PeriodWeek   = "week"
	PeriodMonth  = "month"
	PeriodCustom = "custom"
	PeriodAll    = "all"
)

// PeriodQuery is the raw period selection of a request. StartDate and
// EndDate take precedence over Period when both are set.
type PeriodQuery struct {
	Period    string `form:"period"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}

// Period is a resolved, inclusive time window. The "all" period has zero
// bounds.
type Period struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsAll reports whether the period is unbounded
func (p Period) IsAll() bool {
	return p.Label == PeriodAll
}

// ResolvePeriod turns a query into a concrete window relative to now, using
// calendar semantics in loc: weeks start on Sunday, months are calendar
// months.
func ResolvePeriod(q PeriodQuery, now time.Time, loc *time.Location) (Period, error) {
	now = now.In(loc)

	if q.StartDate != "" || q.EndDate != "" {
		if q.StartDate == "" || q.EndDate == "" {
			return Period{}, models.ValidationError("startDate and endDate are both required for a custom period")
		}
		start, _, err := parseDate(q.StartDate, loc)
		if err != nil {
			return Period{}, models.ValidationError("invalid startDate %q", q.StartDate)
		}
		end, dateOnly, err := parseDate(q.EndDate, loc)
		if err != nil {
			return Period{}, models.ValidationError("invalid endDate %q", q.EndDate)
		}
		if dateOnly {
			end = endOfDay(end)
		}
		if end.Before(start) {
			return Period{}, models.ValidationError("endDate must not be before startDate")
		}
		return Period{Label: PeriodCustom, Start: start, End: end}, nil
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch strings.ToLower(strings.TrimSpace(q.Period)) {
	case PeriodToday:
		return Period{Label: PeriodToday, Start: midnight, End: endOfDay(midnight)}, nil
	case PeriodWeek:
		start := midnight.AddDate(0, 0, -int(midnight.Weekday()))
		return Period{Label: PeriodWeek, Start: start, End: lastInstantBefore(start.AddDate(0, 0, 7))}, nil
	case PeriodMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return Period{Label: PeriodMonth, Start: start, End: lastInstantBefore(start.AddDate(0, 1, 0))}, nil
	case "", PeriodAll:
		return Period{Label: PeriodAll}, nil
	case PeriodCustom:
		return Period{}, models.ValidationError("a custom period requires startDate and endDate")
	default:
		return Period{}, models.ValidationError("unknown period %q", q.Period)
	}
}

// parseDate accepts YYYY-MM-DD or RFC 3339. dateOnly is true for the first.
func parseDate(raw string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	if t, err = time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		return t, true, nil
	}
	t, err = time.Parse(time.RFC3339, raw)
	return t, false, err
}

func endOfDay(day time.Time) time.Time {
	return lastInstantBefore(day.AddDate(0, 0, 1))
}

// lastInstantBefore steps back one microsecond, the resolution of a
// PostgreSQL timestamp. A nanosecond step would be rounded up to t.
func lastInstantBefore(t time.Time) time.Time {
	return t.Add(-time.Microsecond)
}
