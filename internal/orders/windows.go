package orders

import (
	"fmt"
	"sort"

	"ozon-reports/internal/parse"
)

// SummarizeWindows sums line quantities over several lookback windows in a
// single scan. A window of length w anchored on refDay covers the inclusive
// day range [refDay-(w-1), refDay]. Lines are filtered once against the
// largest window; each shorter window's sum accumulates conditionally on the
// line's day being at or past that window's start.
func SummarizeWindows(lines []Line, refDay string, windows []int, g Grouping) ([]WindowSums, error) {
	if len(windows) == 0 {
		return nil, fmt.Errorf("windows must be a non-empty list of positive day counts")
	}
	ref, err := parse.DayTime(refDay)
	if err != nil {
		return nil, fmt.Errorf("invalid reference day %q: %w", refDay, err)
	}

	maxW := 0
	starts := make(map[int]string, len(windows))
	for _, w := range windows {
		if w <= 0 {
			return nil, fmt.Errorf("invalid window length %d", w)
		}
		starts[w] = ref.AddDate(0, 0, -(w - 1)).Format("2006-01-02")
		if w > maxW {
			maxW = w
		}
	}
	minDay := starts[maxW]

	// Canonical day keys compare correctly as strings.
	byKey := make(map[Key]map[int]float64)
	for _, l := range lines {
		if l.Day == "" || l.Day < minDay || l.Day > refDay {
			continue
		}
		k := g.KeyOf(l)
		sums, ok := byKey[k]
		if !ok {
			sums = make(map[int]float64, len(windows))
			byKey[k] = sums
		}
		for _, w := range windows {
			if l.Day >= starts[w] {
				sums[w] += l.Quantity
			}
		}
	}

	out := make([]WindowSums, 0, len(byKey))
	for k, sums := range byKey {
		out = append(out, WindowSums{Key: k, Sums: sums})
	}
	sort.Slice(out, func(i, j int) bool { return keyLess(out[i].Key, out[j].Key) })
	return out, nil
}

// PeakDailySales finds, per group, the highest single-day quantity total
// within the lookback window [refDay-(daysBack-1), refDay].
func PeakDailySales(lines []Line, refDay string, daysBack int, g Grouping) ([]PeakSales, error) {
	if daysBack <= 0 {
		return nil, fmt.Errorf("daysBack must be positive, got %d", daysBack)
	}
	ref, err := parse.DayTime(refDay)
	if err != nil {
		return nil, fmt.Errorf("invalid reference day %q: %w", refDay, err)
	}
	minDay := ref.AddDate(0, 0, -(daysBack - 1)).Format("2006-01-02")

	type dayKey struct {
		key Key
		day string
	}
	dailySum := make(map[dayKey]float64)
	for _, l := range lines {
		if l.Day == "" || l.Day < minDay || l.Day > refDay {
			continue
		}
		dailySum[dayKey{g.KeyOf(l), l.Day}] += l.Quantity
	}

	peaks := make(map[Key]float64)
	for dk, sum := range dailySum {
		if sum > peaks[dk.key] {
			peaks[dk.key] = sum
		}
	}

	out := make([]PeakSales, 0, len(peaks))
	for k, p := range peaks {
		out = append(out, PeakSales{Key: k, Peak: p})
	}
	sort.Slice(out, func(i, j int) bool { return keyLess(out[i].Key, out[j].Key) })
	return out, nil
}
