package inventory

import (
	"math"
	"testing"
)

func TestDaysOfCover(t *testing.T) {
	tests := []struct {
		name     string
		quantity float64
		daily    float64
		want     int
	}{
		{"exact", 30, 3, 10},
		{"floors", 31, 3, 10},
		{"zero daily", 100, 0, 0},
		{"negative daily", 100, -2, 0},
		{"zero stock", 0, 5, 0},
		{"nan daily", 10, math.NaN(), 0},
		{"negative stock", -5, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysOfCover(tt.quantity, tt.daily); got != tt.want {
				t.Errorf("DaysOfCover(%v, %v) = %d, want %d", tt.quantity, tt.daily, got, tt.want)
			}
		})
	}
}

func TestComputeCumulativeMonotonic(t *testing.T) {
	e := NewEngine(AllTiers(), Params{SafetyStockDays: 45, OverseasSafeDays: 30, InboundSafeDays: 7})
	row := SKURow{
		OzonID:     "A1",
		DailySales: 2,
		Quantities: map[Tier]float64{
			TierFBOShelf:     10,
			TierFBOCrossDock: 4,
			TierOverseas:     20,
			TierInboundFast:  6,
			TierInboundSlow:  0,
			TierLocal:        8,
			TierPurchased:    40,
		},
	}
	m := e.Compute(row)

	prev := 0
	for _, tier := range AllTiers().Ordered() {
		if m.Cumulative[tier] < m.Cover[tier] {
			t.Errorf("%s: cumulative %d < own cover %d", tier, m.Cumulative[tier], m.Cover[tier])
		}
		if m.Cumulative[tier] < prev {
			t.Errorf("%s: cumulative %d decreased from %d", tier, m.Cumulative[tier], prev)
		}
		prev = m.Cumulative[tier]
	}
	// 5 + 2 + 10 + 3 + 0 + 4 + 20 days.
	if m.TotalCover != 44 {
		t.Errorf("total cover = %d, want 44", m.TotalCover)
	}
}

func TestComputeRequiredPurchase(t *testing.T) {
	e := NewEngine(AllTiers(), Params{SafetyStockDays: 45, OverseasSafeDays: 30, InboundSafeDays: 7})
	row := SKURow{
		OzonID:      "A1",
		DailySales:  2,
		Peak28Sales: 5,
		Quantities:  map[Tier]float64{TierFBOShelf: 20}, // 10 days of cover
	}
	m := e.Compute(row)

	// overseas 5*30 + fbo (45-10)*2 + inbound 2*7 = 150 + 70 + 14.
	if m.RequiredPurchase != 234 {
		t.Errorf("required purchase = %v, want 234", m.RequiredPurchase)
	}
	if m.Promotable != 0 {
		t.Errorf("promotable = %v, want 0 below the safety threshold", m.Promotable)
	}
}

func TestComputeRequiredPurchaseClampsAtZero(t *testing.T) {
	e := NewEngine(AllTiers(), Params{SafetyStockDays: 10, OverseasSafeDays: 0, InboundSafeDays: 0})
	row := SKURow{
		OzonID:     "A1",
		DailySales: 1,
		Quantities: map[Tier]float64{TierFBOShelf: 100}, // 100 days, far above safety
	}
	m := e.Compute(row)
	if m.RequiredPurchase != 0 {
		t.Errorf("required purchase = %v, want 0", m.RequiredPurchase)
	}
	// (100 - 10) * 1 units can be promoted.
	if m.Promotable != 90 {
		t.Errorf("promotable = %v, want 90", m.Promotable)
	}
}

func TestComputeZeroDailySales(t *testing.T) {
	e := NewEngine(AllTiers(), Params{SafetyStockDays: 45, OverseasSafeDays: 30, InboundSafeDays: 7})
	row := SKURow{OzonID: "A1", Quantities: map[Tier]float64{TierFBOShelf: 100}}
	m := e.Compute(row)
	if m.TotalCover != 0 {
		t.Errorf("total cover = %d, want 0 with no sales", m.TotalCover)
	}
	if m.RequiredPurchase != 0 {
		t.Errorf("required purchase = %v, want 0 with no sales", m.RequiredPurchase)
	}
}

func TestOptionalTierAbsent(t *testing.T) {
	// A table without the inbound-slow tier skips it entirely.
	tiers := NewTierSet(TierFBOShelf, TierFBOCrossDock, TierOverseas,
		TierInboundFast, TierLocal, TierPurchased)
	e := NewEngine(tiers, Params{SafetyStockDays: 45})
	row := SKURow{
		OzonID:     "A1",
		DailySales: 1,
		Quantities: map[Tier]float64{TierFBOShelf: 5, TierInboundSlow: 999},
	}
	m := e.Compute(row)
	if _, ok := m.Cover[TierInboundSlow]; ok {
		t.Error("absent tier must not appear in the metrics")
	}
	if m.TotalCover != 5 {
		t.Errorf("total cover = %d, want 5 (absent tier ignored)", m.TotalCover)
	}
}

func TestComputeAllMissingJoinKey(t *testing.T) {
	e := NewEngine(AllTiers(), Params{SafetyStockDays: 45})
	rows := []SKURow{{OzonID: "A1", DailySales: 1}, {DailySales: 1}}
	if _, err := e.ComputeAll(rows); err == nil {
		t.Fatal("expected error for a row without the join key")
	}
}

func TestCrossJoinClusters(t *testing.T) {
	rows := []SKURow{{OzonID: "A1"}, {OzonID: "A2"}}
	joined, err := CrossJoinClusters(rows, []string{"Moscow", "Siberia", "Urals"})
	if err != nil {
		t.Fatalf("CrossJoinClusters: %v", err)
	}
	if len(joined) != 6 {
		t.Fatalf("expected 6 rows (2 SKUs x 3 clusters), got %d", len(joined))
	}
	if _, err := CrossJoinClusters(rows, nil); err == nil {
		t.Fatal("expected error for an empty cluster dictionary")
	}
}

func TestComputeClusterCombinesFBO(t *testing.T) {
	e := NewEngine(ClusterTiers(), Params{SafetyStockDays: 45, OverseasSafeDays: 0, InboundSafeDays: 0})
	row := ClusterRow{
		Cluster: "Moscow",
		SKURow: SKURow{
			OzonID:     "A1",
			DailySales: 1,
			Quantities: map[Tier]float64{TierFBOShelf: 10, TierFBOCrossDock: 5},
		},
	}
	m := e.ComputeCluster(row, nil)
	if m.Cover[TierFBOShelf] != 15 {
		t.Errorf("combined FBO cover = %d, want 15", m.Cover[TierFBOShelf])
	}
	if _, ok := m.Cover[TierFBOCrossDock]; ok {
		t.Error("cross-dock must merge into the combined FBO tier")
	}
}

func TestComputeClusterSafetyLookup(t *testing.T) {
	e := NewEngine(ClusterTiers(), Params{SafetyStockDays: 45, OverseasSafeDays: 0, InboundSafeDays: 0})
	row := ClusterRow{
		Cluster: "Moscow",
		SKURow: SKURow{
			OzonID:     "A1",
			DailySales: 2,
			Quantities: map[Tier]float64{TierFBOShelf: 20}, // 10 days
		},
	}

	// Per-cluster threshold overrides the default.
	m := e.ComputeCluster(row, ClusterSafetyDays{"Moscow": 20})
	if m.RequiredPurchase != 20 { // (20-10)*2
		t.Errorf("required purchase = %v, want 20 with the cluster threshold", m.RequiredPurchase)
	}

	// Unlisted cluster falls back to the engine default.
	m = e.ComputeCluster(row, ClusterSafetyDays{"Siberia": 20})
	if m.RequiredPurchase != 70 { // (45-10)*2
		t.Errorf("required purchase = %v, want 70 with the default threshold", m.RequiredPurchase)
	}
}
