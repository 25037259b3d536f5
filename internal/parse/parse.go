// Package parse holds the locale-tolerant scalar parsing used at every
// collaborator boundary. Upstream systems deliver numbers as strings with
// mixed thousands/decimal separators ("5 782,00", "1,234.56", " ")
// and dates in several YYYY-M-D spellings; bad values resolve to safe
// defaults instead of erroring so one dirty row never aborts a batch.
package parse

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dayRe     = regexp.MustCompile(`(\d{4})[/\-.](\d{1,2})[/\-.](\d{1,2})`)
	nonNumRe  = regexp.MustCompile(`[^0-9,.\-]`)
	emptyLike = map[string]bool{"": true, "-": true, "—": true, "NaN": true, "None": true, "null": true}
)

// Float converts a free-form numeric string to a float64. Comma decimals,
// dot or comma thousands separators, embedded spaces and NBSP are all
// accepted; anything unparseable yields 0.
func Float(v string) float64 {
	s := strings.TrimSpace(v)
	if emptyLike[s] {
		return 0
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	s = nonNumRe.ReplaceAllString(s, "")

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			// dot is thousands, comma is decimal
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		s = strings.ReplaceAll(s, ",", ".")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Int converts via Float and rounds to the nearest integer.
func Int(v string) int {
	return int(math.Round(Float(v)))
}

// Day extracts a calendar day from a date or timestamp string and returns
// it as the canonical "YYYY-MM-DD" key. Returns "" when no date can be
// found, which callers treat as "outside any window".
func Day(v string) string {
	m := dayRe.FindStringSubmatch(v)
	if m == nil {
		return ""
	}
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return ""
	}
	return m[1] + "-" + pad2(month) + "-" + pad2(day)
}

// DayTime parses a canonical day key into a time at midnight UTC.
func DayTime(day string) (time.Time, error) {
	return time.Parse("2006-01-02", day)
}

// DayFromMillis converts a millisecond epoch (the collaboration platform's
// date cell encoding) into a day key in the given location.
func DayFromMillis(ms int64, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(ms).In(loc).Format("2006-01-02")
}

// DayToMillis converts a day key to the millisecond epoch of its midnight
// in loc. Returns 0 for an unparseable key.
func DayToMillis(day string, loc *time.Location) int64 {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}

// DayRange expands an inclusive [from, to] day-key range into the list of
// day keys it covers. Both ends must be valid day keys.
func DayRange(from, to string) ([]string, error) {
	start, err := DayTime(from)
	if err != nil {
		return nil, err
	}
	end, err := DayTime(to)
	if err != nil {
		return nil, err
	}
	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format("2006-01-02"))
	}
	return days, nil
}

// Stringify renders a scalar the way upstream documents spell it: integers
// without a decimal point, floats in plain notation, nil as "".
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(v)
	}
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
