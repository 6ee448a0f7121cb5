package staff

import (
	"fmt"
	"strings"
	"time"
)

const DayLayout = "2006-01-02"

// Day is a calendar date in YYYY-MM-DD form. Every date that enters the
// system is converted to a Day before bucketing or filtering sees it.
type Day string

// fallback layouts seen in older exports; the calendar date is taken as written.
var looseDayLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon Jan 02 2006",
	"Jan 2, 2006",
	"01/02/2006",
	"1/2/2006",
}

// ParseDay accepts YYYY-MM-DD optionally followed by a time-of-day and zone
// (RFC3339 or a space separated time). The written calendar date is kept, the
// time and offset are discarded.
func ParseDay(raw string) (Day, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("empty date")
	}
	if len(value) >= 10 {
		prefix, rest := value[:10], value[10:]
		if rest == "" || rest[0] == 'T' || rest[0] == 't' || rest[0] == ' ' {
			if parsed, err := time.Parse(DayLayout, prefix); err == nil {
				return Day(parsed.Format(DayLayout)), nil
			}
		}
	}
	for _, layout := range looseDayLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return Day(parsed.Format(DayLayout)), nil
		}
	}
	if idx := strings.Index(value, " GMT"); idx > 0 {
		// JavaScript Date.toString output: "Fri Mar 01 2024 00:00:00 GMT+0000 (...)"
		if parsed, err := time.Parse("Mon Jan 02 2006 15:04:05", value[:idx]); err == nil {
			return Day(parsed.Format(DayLayout)), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", raw)
}

// DayOf returns the UTC calendar date of t.
func DayOf(t time.Time) Day {
	if t.IsZero() {
		return ""
	}
	return Day(t.UTC().Format(DayLayout))
}

func (d Day) IsZero() bool {
	return d == ""
}

func (d Day) String() string {
	return string(d)
}

// Time returns UTC midnight of the day, or the zero time for an empty Day.
func (d Day) Time() time.Time {
	if d.IsZero() {
		return time.Time{}
	}
	parsed, err := time.Parse(DayLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// Month returns the YYYY-MM prefix.
func (d Day) Month() string {
	if len(d) < 7 {
		return ""
	}
	return string(d[:7])
}

// Label renders the day for display, e.g. "Fri, Mar 1".
func (d Day) Label() string {
	t := d.Time()
	if t.IsZero() {
		return ""
	}
	return t.Format("Mon, Jan 2")
}

// Period is an inclusive range of days.
type Period struct {
	From Day `json:"from"`
	To   Day `json:"to"`
}

func DayPeriod(d Day) Period {
	return Period{From: d, To: d}
}

func MonthPeriod(year int, month time.Month) Period {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return Period{From: DayOf(first), To: DayOf(last)}
}

// ParsePeriod accepts "YYYY-MM" for a whole month or any value ParseDay accepts
// for a single day.
func ParsePeriod(raw string) (Period, error) {
	value := strings.TrimSpace(raw)
	if len(value) == 7 {
		parsed, err := time.Parse("2006-01", value)
		if err != nil {
			return Period{}, fmt.Errorf("invalid month %q", raw)
		}
		return MonthPeriod(parsed.Year(), parsed.Month()), nil
	}
	day, err := ParseDay(value)
	if err != nil {
		return Period{}, err
	}
	return DayPeriod(day), nil
}

func (p Period) IsZero() bool {
	return p.From.IsZero() && p.To.IsZero()
}

// Contains reports whether d falls inside the period. An empty Day is never
// contained; an open bound matches everything on that side.
func (p Period) Contains(d Day) bool {
	if d.IsZero() {
		return false
	}
	if !p.From.IsZero() && d < p.From {
		return false
	}
	if !p.To.IsZero() && d > p.To {
		return false
	}
	return true
}
