// Package orders implements the sales aggregation stage: multi-window
// quantity sums per SKU grouping, the dynamic daily-sales estimate derived
// from them, and the peak single-day sales scan.
package orders

// Line is one order line after day normalization. Cancelled lines are
// filtered out by the store layer before they reach this package.
type Line struct {
	Day           string // processing day, "YYYY-MM-DD"
	ShipmentID    string
	OzonID        string
	ProductCode   string
	Cluster       string
	Quantity      float64
	ShippedAmount float64
}

// Key identifies a group. Fields not selected by the Grouping stay "".
type Key struct {
	ProductCode string
	OzonID      string
	Cluster     string
}

// Grouping selects which Line dimensions form the group key.
type Grouping struct {
	ByProductCode bool
	ByOzonID      bool
	ByCluster     bool
}

var (
	// GroupSKUOzonID groups by product code and Ozon ID.
	GroupSKUOzonID = Grouping{ByProductCode: true, ByOzonID: true}
	// GroupSKUOzonIDCluster additionally splits by delivery cluster.
	GroupSKUOzonIDCluster = Grouping{ByProductCode: true, ByOzonID: true, ByCluster: true}
)

// KeyOf projects a line onto the group key.
func (g Grouping) KeyOf(l Line) Key {
	var k Key
	if g.ByProductCode {
		k.ProductCode = l.ProductCode
	}
	if g.ByOzonID {
		k.OzonID = l.OzonID
	}
	if g.ByCluster {
		k.Cluster = l.Cluster
	}
	return k
}

// DropProductCode returns the grouping used for the daily-sales and peak
// stages: the same dimensions minus the product code. Several product codes
// can share one Ozon ID, and the estimate is per listing, not per code.
func (g Grouping) DropProductCode() Grouping {
	out := g
	out.ByProductCode = false
	return out
}

// Reduce projects a full key onto a coarser grouping.
func (g Grouping) Reduce(k Key) Key {
	var out Key
	if g.ByProductCode {
		out.ProductCode = k.ProductCode
	}
	if g.ByOzonID {
		out.OzonID = k.OzonID
	}
	if g.ByCluster {
		out.Cluster = k.Cluster
	}
	return out
}

// WindowSums holds the per-window quantity totals for one group.
type WindowSums struct {
	Key  Key
	Sums map[int]float64 // window length in days -> summed quantity
}

// DailySales is the estimated units sold per day for one group.
type DailySales struct {
	Key   Key
	Daily float64
}

// PeakSales is the highest single-day quantity total for one group.
type PeakSales struct {
	Key  Key
	Peak float64
}

// SummaryRow is the joined output of the three stages for one full group.
type SummaryRow struct {
	Key           Key
	Sums          map[int]float64
	DailySales    float64
	MaxDailySales float64
}

func keyLess(a, b Key) bool {
	if a.ProductCode != b.ProductCode {
		return a.ProductCode < b.ProductCode
	}
	if a.OzonID != b.OzonID {
		return a.OzonID < b.OzonID
	}
	return a.Cluster < b.Cluster
}
