package orders

import (
	"sort"
)

// DynamicDailySales estimates units sold per day for each group using
// dynamically derived window weights. The window sums are first re-grouped
// onto g (usually the full grouping minus the product code). For each group
// every window's per-day rate is sum/w; the topK windows by rate share the
// weight in proportion to their rates and the rest get zero. A group with no
// sales in any top window gets a zero estimate.
func DynamicDailySales(rows []WindowSums, windows []int, g Grouping, topK int) []DailySales {
	grouped := regroup(rows, windows, g)

	out := make([]DailySales, 0, len(grouped))
	for _, ws := range grouped {
		rates := make(map[int]float64, len(windows))
		for _, w := range windows {
			rates[w] = ws.Sums[w] / float64(w)
		}

		// Rank windows by rate, highest first. Ties keep the declared
		// window order.
		ranked := append([]int(nil), windows...)
		sort.SliceStable(ranked, func(i, j int) bool {
			return rates[ranked[i]] > rates[ranked[j]]
		})
		k := topK
		if k > len(ranked) {
			k = len(ranked)
		}
		top := ranked[:k]

		var totalTop float64
		for _, w := range top {
			totalTop += rates[w]
		}

		var daily float64
		if totalTop > 0 {
			for _, w := range top {
				weight := rates[w] / totalTop
				daily += rates[w] * weight
			}
		}
		out = append(out, DailySales{Key: ws.Key, Daily: daily})
	}
	sort.Slice(out, func(i, j int) bool { return keyLess(out[i].Key, out[j].Key) })
	return out
}

// WeightedDailySales is the fixed-weight estimator kept alongside the
// dynamic one: daily = sum over windows of (sum_w / w) * weight_w, then
// summed per group. A window missing from weights defaults to 1.0.
func WeightedDailySales(rows []WindowSums, windows []int, weights map[int]float64, g Grouping) []DailySales {
	totals := make(map[Key]float64)
	for _, ws := range rows {
		var daily float64
		for _, w := range windows {
			weight, ok := weights[w]
			if !ok {
				weight = 1.0
			}
			daily += ws.Sums[w] / float64(w) * weight
		}
		totals[g.Reduce(ws.Key)] += daily
	}

	out := make([]DailySales, 0, len(totals))
	for k, d := range totals {
		out = append(out, DailySales{Key: k, Daily: d})
	}
	sort.Slice(out, func(i, j int) bool { return keyLess(out[i].Key, out[j].Key) })
	return out
}

// regroup re-aggregates window sums onto a coarser grouping.
func regroup(rows []WindowSums, windows []int, g Grouping) []WindowSums {
	byKey := make(map[Key]map[int]float64)
	for _, ws := range rows {
		k := g.Reduce(ws.Key)
		sums, ok := byKey[k]
		if !ok {
			sums = make(map[int]float64, len(windows))
			byKey[k] = sums
		}
		for _, w := range windows {
			sums[w] += ws.Sums[w]
		}
	}
	out := make([]WindowSums, 0, len(byKey))
	for k, sums := range byKey {
		out = append(out, WindowSums{Key: k, Sums: sums})
	}
	sort.Slice(out, func(i, j int) bool { return keyLess(out[i].Key, out[j].Key) })
	return out
}
