package orders

import (
	"fmt"
	"sort"
)

// SummaryConfig carries the shared parameters of the order summary flow.
type SummaryConfig struct {
	Windows      []int
	TopK         int
	PeakDaysBack int
}

// SummaryGenerator chains the window, daily-sales and peak stages into one
// per-group summary table.
type SummaryGenerator struct {
	cfg SummaryConfig
}

// NewSummaryGenerator creates a generator with the given parameters.
func NewSummaryGenerator(cfg SummaryConfig) *SummaryGenerator {
	return &SummaryGenerator{cfg: cfg}
}

// Run produces the joined summary for one grouping:
//  1. window sums per full group key
//  2. dynamic daily sales per reduced key (product code dropped)
//  3. peak single-day sales per reduced key
//
// Daily sales join back onto every window row sharing the reduced key. The
// peak column is merged the same way, except for cluster groupings where the
// per-cluster peak is not meaningful and is left at zero.
func (sg *SummaryGenerator) Run(lines []Line, refDay string, g Grouping) ([]SummaryRow, error) {
	windows, err := SummarizeWindows(lines, refDay, sg.cfg.Windows, g)
	if err != nil {
		return nil, fmt.Errorf("window aggregation: %w", err)
	}

	dailyGroup := g.DropProductCode()
	daily := DynamicDailySales(windows, sg.cfg.Windows, dailyGroup, sg.cfg.TopK)
	dailyByKey := make(map[Key]float64, len(daily))
	for _, d := range daily {
		dailyByKey[d.Key] = d.Daily
	}

	peakByKey := make(map[Key]float64)
	if !g.ByCluster {
		peaks, err := PeakDailySales(lines, refDay, sg.cfg.PeakDaysBack, dailyGroup)
		if err != nil {
			return nil, fmt.Errorf("peak daily sales: %w", err)
		}
		for _, p := range peaks {
			peakByKey[p.Key] = p.Peak
		}
	}

	out := make([]SummaryRow, 0, len(windows))
	for _, ws := range windows {
		reduced := dailyGroup.Reduce(ws.Key)
		out = append(out, SummaryRow{
			Key:           ws.Key,
			Sums:          ws.Sums,
			DailySales:    dailyByKey[reduced],
			MaxDailySales: peakByKey[reduced],
		})
	}
	sort.Slice(out, func(i, j int) bool { return keyLess(out[i].Key, out[j].Key) })
	return out, nil
}

// BySKUAndOzonID runs the summary on the (product code, Ozon ID) grouping.
func (sg *SummaryGenerator) BySKUAndOzonID(lines []Line, refDay string) ([]SummaryRow, error) {
	return sg.Run(lines, refDay, GroupSKUOzonID)
}

// BySKUOzonIDAndCluster runs the summary split by delivery cluster.
func (sg *SummaryGenerator) BySKUOzonIDAndCluster(lines []Line, refDay string) ([]SummaryRow, error) {
	return sg.Run(lines, refDay, GroupSKUOzonIDCluster)
}
