package schedule

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/relvacode/iso8601"
)

// dateLayouts are tried in order before the fallback parsers.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"01/02/2006",
	"02/01/2006",
	"02-01-2006",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"20060102",
}

var fallbackLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"1/2/2006",
	time.RFC1123,
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
}

// ParseDate parses a schedule date. Empty or unparsable input returns nil.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	if t, err := iso8601.ParseString(s); err == nil {
		return &t
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

var decimalStripper = strings.NewReplacer("₩", "", "$", "", "€", "", "£", "", "¥", "", ",", "", " ", "")

// ParseDecimal strips currency symbols and thousands separators.
func ParseDecimal(s string) *float64 {
	s = decimalStripper.Replace(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ParsePercent accepts "45", "45%" or "45.5 %".
func ParsePercent(s string) *float64 {
	return ParseDecimal(strings.ReplaceAll(s, "%", ""))
}

// ParseDays parses a duration column, rounding fractional days.
func ParseDays(s string) (int, bool) {
	v := ParseDecimal(s)
	if v == nil {
		return 0, false
	}
	return int(math.Round(*v)), true
}
