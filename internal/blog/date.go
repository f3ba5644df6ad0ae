package blog

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/goodsign/monday"
)

// InvalidDate is what FormatDate returns for input it cannot parse.
const InvalidDate = "Invalid Date"

const (
	longDateLayout = "January 2, 2006"
	dateLocale     = monday.LocaleEnUS
)

// ParseDate reads the header date forms authors actually write
// (2025-03-01, RFC 3339, "March 1, 2025", ...). Zone-less input is UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// FormatDate renders s as a long-form en_US date, e.g. "March 1, 2025".
// It never fails: unparseable input yields InvalidDate.
func FormatDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return InvalidDate
	}
	return monday.Format(t, longDateLayout, dateLocale)
}
