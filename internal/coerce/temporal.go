package coerce

import (
	"strings"
	"time"

	"etlcore/internal/schema"

	"github.com/golang-sql/civil"
)

// Layouts tried in order for text values. Values without a zone are UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"2006/01/02",
	"2006/01/02 15:04:05",
}

// Storage ranges of the SQL Server temporal types.
var (
	minDateTime      = time.Date(1753, 1, 1, 0, 0, 0, 0, time.UTC)
	minSmallDateTime = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	maxSmallDateTime = time.Date(2079, 6, 6, 23, 59, 0, 0, time.UTC)
	minDate          = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	maxDate          = time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC)
)

func temporalConverter(t schema.ColumnType) converter {
	lo, hi := minDate, maxDate
	switch t {
	case schema.DateTime:
		lo = minDateTime
	case schema.SmallDateTime:
		lo, hi = minSmallDateTime, maxSmallDateTime
	}
	return func(v any) (any, error) {
		ts, err := toTime(v)
		if err != nil || ts == nil {
			return nil, err
		}
		tm := ts.(time.Time)
		if t == schema.Date {
			tm = time.Date(tm.Year(), tm.Month(), tm.Day(), 0, 0, 0, 0, time.UTC)
		}
		if u := tm.UTC(); u.Before(lo) || u.After(hi) {
			return nil, errBadValue
		}
		return tm, nil
	}
}

func toTime(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return x, nil
	case civil.Date:
		if !x.IsValid() {
			return nil, errBadValue
		}
		return x.In(time.UTC), nil
	case civil.DateTime:
		if !x.IsValid() {
			return nil, errBadValue
		}
		return x.In(time.UTC), nil
	case string:
		return parseTime(x)
	case []byte:
		return parseTime(string(x))
	default:
		if isKnownValue(v) {
			return nil, errBadValue
		}
		return nil, errUnsupportedKind
	}
}

func parseTime(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	// civil covers the ISO forms without a zone, including fractional seconds.
	if dt, err := civil.ParseDateTime(s); err == nil {
		return dt.In(time.UTC), nil
	}
	if d, err := civil.ParseDate(s); err == nil {
		return d.In(time.UTC), nil
	}
	for _, layout := range timeLayouts {
		if tm, err := time.Parse(layout, s); err == nil {
			return tm, nil
		}
	}
	return nil, errBadValue
}
