package shipping

import (
	"fmt"
	"math"
	"strings"
)

// HoursSample is one delivery-time observation tied to a calendar day,
// either from the accrual ledger or from the collaboration hour table.
type HoursSample struct {
	Day   string
	Hours float64
}

// DailyAvgHours averages the positive hour samples per day, rounding to the
// nearest integer hour. Every requested day must end up with at least one
// valid sample; days without one are reported together as a fatal error.
func DailyAvgHours(samples []HoursSample, days []string) (map[string]int, error) {
	sums := make(map[string]float64, len(days))
	counts := make(map[string]int, len(days))
	wanted := make(map[string]bool, len(days))
	for _, d := range days {
		wanted[d] = true
	}

	for _, s := range samples {
		if !wanted[s.Day] || s.Hours <= 0 {
			continue
		}
		sums[s.Day] += s.Hours
		counts[s.Day]++
	}

	out := make(map[string]int, len(days))
	var missing []string
	for _, d := range days {
		if counts[d] == 0 {
			missing = append(missing, d)
			continue
		}
		out[d] = int(math.Round(sums[d] / float64(counts[d])))
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("no valid average delivery hours for days: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// HoursForDates selects the requested days out of a prebuilt day->hours
// table, failing with the full list of days the table does not cover.
func HoursForDates(table map[string]int, days []string) (map[string]int, error) {
	out := make(map[string]int, len(days))
	var missing []string
	for _, d := range days {
		h, ok := table[d]
		if !ok {
			missing = append(missing, d)
			continue
		}
		out[d] = h
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("hour table has no entry for days: %s", strings.Join(missing, ", "))
	}
	return out, nil
}
