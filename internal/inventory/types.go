// Package inventory derives per-SKU availability days and replenishment
// quantities from the chained stock tiers: FBO warehouse stock, overseas
// stock, inbound transfers, local stock and purchased goods in transit.
package inventory

// Tier enumerates the stock tiers in their fixed precedence order. The
// order is the order stock becomes sellable: what is already on the shelf
// covers demand first, purchases still in transit cover it last.
type Tier int

const (
	TierFBOShelf Tier = iota
	TierFBOCrossDock
	TierOverseas
	TierInboundFast
	TierInboundSlow
	TierLocal
	TierPurchased

	numTiers
)

var tierNames = [numTiers]string{
	"fbo_shelf",
	"fbo_cross_dock",
	"overseas",
	"inbound_fast",
	"inbound_slow",
	"local",
	"purchased",
}

func (t Tier) String() string {
	if t < 0 || t >= numTiers {
		return "unknown"
	}
	return tierNames[t]
}

// TierSet declares which tiers an input table carries. Optional tiers
// (inbound-slow in particular) are simply absent; iteration always follows
// the declared precedence order.
type TierSet struct {
	present [numTiers]bool
}

// NewTierSet declares the present tiers.
func NewTierSet(tiers ...Tier) TierSet {
	var ts TierSet
	for _, t := range tiers {
		ts.present[t] = true
	}
	return ts
}

// AllTiers is the full seven-tier set.
func AllTiers() TierSet {
	return NewTierSet(TierFBOShelf, TierFBOCrossDock, TierOverseas,
		TierInboundFast, TierInboundSlow, TierLocal, TierPurchased)
}

// Has reports whether the tier is declared present.
func (ts TierSet) Has(t Tier) bool { return ts.present[t] }

// Ordered returns the present tiers in precedence order.
func (ts TierSet) Ordered() []Tier {
	out := make([]Tier, 0, numTiers)
	for t := Tier(0); t < numTiers; t++ {
		if ts.present[t] {
			out = append(out, t)
		}
	}
	return out
}

// SKURow is one SKU's stock position plus its sales estimates.
type SKURow struct {
	OzonID      string
	ProductCode string
	Quantities  map[Tier]float64
	DailySales  float64
	Peak28Sales float64
}

// Metrics is the computed availability and replenishment result for a row.
type Metrics struct {
	// Cover is the per-tier days of cover, Cumulative the running sum in
	// precedence order. Both hold entries only for present tiers.
	Cover      map[Tier]int
	Cumulative map[Tier]int
	// TotalCover is the cumulative cover at the last present tier.
	TotalCover       int
	RequiredPurchase float64
	Promotable       float64
}
