package orders

import (
	"math"
	"testing"
)

func floatEquals(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

var stdWindows = []int{7, 14, 28, 60, 90}

func TestSummarizeWindows(t *testing.T) {
	lines := []Line{
		{Day: "2025-08-01", OzonID: "A1", ProductCode: "P1", Quantity: 10},
		{Day: "2025-08-05", OzonID: "A1", ProductCode: "P1", Quantity: 5},
		{Day: "2025-07-01", OzonID: "A1", ProductCode: "P1", Quantity: 3},  // inside 60/90 only
		{Day: "2025-08-08", OzonID: "A1", ProductCode: "P1", Quantity: 99}, // after reference day
		{Day: "", OzonID: "A1", ProductCode: "P1", Quantity: 99},           // unparseable day
	}

	rows, err := SummarizeWindows(lines, "2025-08-07", stdWindows, GroupSKUOzonID)
	if err != nil {
		t.Fatalf("SummarizeWindows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 group, got %d", len(rows))
	}

	got := rows[0].Sums
	want := map[int]float64{7: 15, 14: 15, 28: 15, 60: 18, 90: 18}
	for w, expected := range want {
		if got[w] != expected {
			t.Errorf("sum_%d = %v, want %v", w, got[w], expected)
		}
	}
}

func TestSummarizeWindowsInclusiveBounds(t *testing.T) {
	// A 7-day window on 2025-08-07 covers 2025-08-01 through 2025-08-07.
	lines := []Line{
		{Day: "2025-08-01", OzonID: "A1", Quantity: 1},
		{Day: "2025-08-07", OzonID: "A1", Quantity: 1},
		{Day: "2025-07-31", OzonID: "A1", Quantity: 1},
	}
	rows, err := SummarizeWindows(lines, "2025-08-07", []int{7}, Grouping{ByOzonID: true})
	if err != nil {
		t.Fatalf("SummarizeWindows: %v", err)
	}
	if rows[0].Sums[7] != 2 {
		t.Errorf("sum_7 = %v, want 2 (both endpoint days in, day before out)", rows[0].Sums[7])
	}
}

func TestSummarizeWindowsMonotonic(t *testing.T) {
	lines := []Line{
		{Day: "2025-08-07", OzonID: "A1", Quantity: 2},
		{Day: "2025-07-20", OzonID: "A1", Quantity: 4},
		{Day: "2025-06-15", OzonID: "A1", Quantity: 8},
		{Day: "2025-05-20", OzonID: "A1", Quantity: 16},
	}
	rows, err := SummarizeWindows(lines, "2025-08-07", stdWindows, Grouping{ByOzonID: true})
	if err != nil {
		t.Fatalf("SummarizeWindows: %v", err)
	}
	sums := rows[0].Sums
	for i := 1; i < len(stdWindows); i++ {
		prev, cur := stdWindows[i-1], stdWindows[i]
		if sums[cur] < sums[prev] {
			t.Errorf("sum_%d (%v) < sum_%d (%v); longer window lost sales", cur, sums[cur], prev, sums[prev])
		}
	}
}

func TestSummarizeWindowsRejectsBadInput(t *testing.T) {
	if _, err := SummarizeWindows(nil, "2025-08-07", nil, GroupSKUOzonID); err == nil {
		t.Error("expected error for empty window list")
	}
	if _, err := SummarizeWindows(nil, "not-a-day", stdWindows, GroupSKUOzonID); err == nil {
		t.Error("expected error for bad reference day")
	}
	if _, err := SummarizeWindows(nil, "2025-08-07", []int{7, 0}, GroupSKUOzonID); err == nil {
		t.Error("expected error for zero window length")
	}
}

func TestDynamicDailySales(t *testing.T) {
	rows := []WindowSums{
		{
			Key:  Key{ProductCode: "P1", OzonID: "A1"},
			Sums: map[int]float64{7: 15, 14: 15, 28: 15, 60: 15, 90: 15},
		},
	}

	daily := DynamicDailySales(rows, stdWindows, Grouping{ByOzonID: true}, 3)
	if len(daily) != 1 {
		t.Fatalf("expected 1 group, got %d", len(daily))
	}
	// Rates: 15/7, 15/14, 15/28, 15/60, 15/90. Top 3 are the 7/14/28
	// windows; weights are their rates normalized; the estimate is the
	// weighted mean of the top rates.
	r7, r14, r28 := 15.0/7, 15.0/14, 15.0/28
	total := r7 + r14 + r28
	want := r7*r7/total + r14*r14/total + r28*r28/total
	if !floatEquals(daily[0].Daily, want, 1e-9) {
		t.Errorf("daily = %v, want %v", daily[0].Daily, want)
	}
	if daily[0].Key.ProductCode != "" {
		t.Errorf("product code should be dropped from the daily key, got %q", daily[0].Key.ProductCode)
	}
}

func TestDynamicDailySalesWeightsNormalize(t *testing.T) {
	// With a single window carrying all sales, its weight is 1 and the
	// estimate equals that window's rate exactly.
	rows := []WindowSums{
		{Key: Key{OzonID: "A1"}, Sums: map[int]float64{7: 21, 14: 0, 28: 0, 60: 0, 90: 0}},
	}
	daily := DynamicDailySales(rows, stdWindows, Grouping{ByOzonID: true}, 3)
	if !floatEquals(daily[0].Daily, 3.0, 1e-9) {
		t.Errorf("daily = %v, want 3.0", daily[0].Daily)
	}
}

func TestDynamicDailySalesZeroRates(t *testing.T) {
	rows := []WindowSums{
		{Key: Key{OzonID: "A1"}, Sums: map[int]float64{7: 0, 14: 0, 28: 0, 60: 0, 90: 0}},
	}
	daily := DynamicDailySales(rows, stdWindows, Grouping{ByOzonID: true}, 3)
	if daily[0].Daily != 0 {
		t.Errorf("daily = %v, want 0 for all-zero windows", daily[0].Daily)
	}
}

func TestDynamicDailySalesRegroupsAcrossProductCodes(t *testing.T) {
	// Two product codes on the same Ozon ID merge before estimation.
	rows := []WindowSums{
		{Key: Key{ProductCode: "P1", OzonID: "A1"}, Sums: map[int]float64{7: 7, 14: 7, 28: 7, 60: 7, 90: 7}},
		{Key: Key{ProductCode: "P2", OzonID: "A1"}, Sums: map[int]float64{7: 7, 14: 7, 28: 7, 60: 7, 90: 7}},
	}
	daily := DynamicDailySales(rows, stdWindows, Grouping{ByOzonID: true}, 1)
	if len(daily) != 1 {
		t.Fatalf("expected 1 merged group, got %d", len(daily))
	}
	// Combined sum_7 is 14, top-1 weight is 1, so daily is 14/7.
	if !floatEquals(daily[0].Daily, 2.0, 1e-9) {
		t.Errorf("daily = %v, want 2.0", daily[0].Daily)
	}
}

func TestWeightedDailySales(t *testing.T) {
	rows := []WindowSums{
		{Key: Key{ProductCode: "P1", OzonID: "A1"}, Sums: map[int]float64{7: 14, 14: 28}},
	}
	weights := map[int]float64{7: 0.6, 14: 0.4}
	daily := WeightedDailySales(rows, []int{7, 14}, weights, Grouping{ByOzonID: true})
	// (14/7)*0.6 + (28/14)*0.4 = 1.2 + 0.8 = 2.0
	if !floatEquals(daily[0].Daily, 2.0, 1e-9) {
		t.Errorf("daily = %v, want 2.0", daily[0].Daily)
	}
}

func TestWeightedDailySalesDefaultWeight(t *testing.T) {
	rows := []WindowSums{
		{Key: Key{OzonID: "A1"}, Sums: map[int]float64{7: 7}},
	}
	daily := WeightedDailySales(rows, []int{7}, nil, Grouping{ByOzonID: true})
	if !floatEquals(daily[0].Daily, 1.0, 1e-9) {
		t.Errorf("daily = %v, want 1.0 with default weight", daily[0].Daily)
	}
}

func TestPeakDailySales(t *testing.T) {
	lines := []Line{
		{Day: "2025-08-01", OzonID: "A1", Quantity: 4},
		{Day: "2025-08-01", OzonID: "A1", Quantity: 6}, // same day, sums to 10
		{Day: "2025-08-05", OzonID: "A1", Quantity: 5},
		{Day: "2025-07-01", OzonID: "A1", Quantity: 99}, // outside 28-day lookback
	}
	peaks, err := PeakDailySales(lines, "2025-08-07", 28, Grouping{ByOzonID: true})
	if err != nil {
		t.Fatalf("PeakDailySales: %v", err)
	}
	if len(peaks) != 1 {
		t.Fatalf("expected 1 group, got %d", len(peaks))
	}
	if peaks[0].Peak != 10 {
		t.Errorf("peak = %v, want 10", peaks[0].Peak)
	}
}

func TestSummaryGeneratorRoundTrip(t *testing.T) {
	lines := []Line{
		{Day: "2025-08-01", ProductCode: "P1", OzonID: "A1", Quantity: 10},
		{Day: "2025-08-05", ProductCode: "P1", OzonID: "A1", Quantity: 5},
	}
	gen := NewSummaryGenerator(SummaryConfig{Windows: stdWindows, TopK: 3, PeakDaysBack: 28})

	rows, err := gen.BySKUAndOzonID(lines, "2025-08-07")
	if err != nil {
		t.Fatalf("BySKUAndOzonID: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 summary row, got %d", len(rows))
	}
	row := rows[0]
	if row.Sums[7] != 15 {
		t.Errorf("sum_7 = %v, want 15", row.Sums[7])
	}
	if row.MaxDailySales != 10 {
		t.Errorf("max daily sales = %v, want 10", row.MaxDailySales)
	}
	if row.DailySales <= 0 {
		t.Errorf("daily sales = %v, want > 0", row.DailySales)
	}
}

func TestSummaryGeneratorClusterSkipsPeak(t *testing.T) {
	lines := []Line{
		{Day: "2025-08-01", ProductCode: "P1", OzonID: "A1", Cluster: "Moscow", Quantity: 10},
		{Day: "2025-08-05", ProductCode: "P1", OzonID: "A1", Cluster: "Siberia", Quantity: 5},
	}
	gen := NewSummaryGenerator(SummaryConfig{Windows: stdWindows, TopK: 3, PeakDaysBack: 28})

	rows, err := gen.BySKUOzonIDAndCluster(lines, "2025-08-07")
	if err != nil {
		t.Fatalf("BySKUOzonIDAndCluster: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 cluster rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.MaxDailySales != 0 {
			t.Errorf("cluster grouping must not carry a peak, got %v", row.MaxDailySales)
		}
		if row.DailySales <= 0 {
			t.Errorf("daily sales = %v, want > 0", row.DailySales)
		}
	}
}
