package inventory

import (
	"fmt"
	"sort"
)

// ClusterRow is one SKU in one delivery cluster.
type ClusterRow struct {
	Cluster string
	SKURow
}

// ClusterSafetyDays maps a delivery cluster to its safety-stock threshold.
// Clusters absent from the map use the engine's default.
type ClusterSafetyDays map[string]int

// CrossJoinClusters replicates every SKU row once per cluster (cartesian
// product against the cluster dictionary). Per-cluster quantities and sales
// are filled in afterwards by the caller; the join only sets up the shape.
func CrossJoinClusters(rows []SKURow, clusters []string) ([]ClusterRow, error) {
	if len(clusters) == 0 {
		return nil, fmt.Errorf("cluster dictionary is empty")
	}
	sorted := append([]string(nil), clusters...)
	sort.Strings(sorted)

	out := make([]ClusterRow, 0, len(rows)*len(sorted))
	for _, row := range rows {
		for _, c := range sorted {
			cr := ClusterRow{Cluster: c, SKURow: row}
			// Quantities are per cluster; the replicated row starts empty.
			cr.Quantities = make(map[Tier]float64, len(row.Quantities))
			out = append(out, cr)
		}
	}
	return out, nil
}

// CombineFBO folds the two FBO sub-tiers into the shelf tier. The cluster
// variant reports one combined FBO can-sell figure instead of keeping shelf
// and cross-dock apart.
func CombineFBO(row SKURow) SKURow {
	q := make(map[Tier]float64, len(row.Quantities))
	for t, v := range row.Quantities {
		q[t] = v
	}
	q[TierFBOShelf] += q[TierFBOCrossDock]
	delete(q, TierFBOCrossDock)
	row.Quantities = q
	return row
}

// ClusterTiers is the tier set of the cluster variant: the combined FBO
// tier plus the shared downstream tiers.
func ClusterTiers() TierSet {
	return NewTierSet(TierFBOShelf, TierOverseas, TierInboundFast,
		TierInboundSlow, TierLocal, TierPurchased)
}

// ComputeCluster computes metrics for one cluster row, looking the
// safety-stock threshold up per cluster and falling back to the engine
// default for clusters the table does not list.
func (e *Engine) ComputeCluster(row ClusterRow, safety ClusterSafetyDays) Metrics {
	days := e.params.SafetyStockDays
	if d, ok := safety[row.Cluster]; ok {
		days = d
	}
	return e.compute(CombineFBO(row.SKURow), days)
}

// ComputeAllClusters runs ComputeCluster over a cross-joined table.
func (e *Engine) ComputeAllClusters(rows []ClusterRow, safety ClusterSafetyDays) ([]Metrics, error) {
	out := make([]Metrics, 0, len(rows))
	for i, row := range rows {
		if row.OzonID == "" {
			return nil, fmt.Errorf("row %d is missing the join column \"Ozon ID\"", i)
		}
		out = append(out, e.ComputeCluster(row, safety))
	}
	return out, nil
}
