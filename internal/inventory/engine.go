package inventory

import (
	"fmt"
	"math"
)

// Params carries the safety-day thresholds of the replenishment rules.
type Params struct {
	// SafetyStockDays is the minimum total days of cover; falling below
	// it triggers replenishment.
	SafetyStockDays int
	// OverseasSafeDays sizes the overseas restock against peak demand.
	OverseasSafeDays int
	// InboundSafeDays sizes the inbound buffer against average demand.
	InboundSafeDays int
}

// Engine computes availability and replenishment metrics over a declared
// tier set.
type Engine struct {
	tiers  TierSet
	params Params
}

// NewEngine creates an engine for the given tier set and thresholds.
func NewEngine(tiers TierSet, params Params) *Engine {
	return &Engine{tiers: tiers, params: params}
}

// DaysOfCover converts a tier quantity into whole days of cover. Zero or
// negative daily sales, and any non-finite ratio, yield 0.
func DaysOfCover(quantity, dailySales float64) int {
	if dailySales <= 0 {
		return 0
	}
	d := quantity / dailySales
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return 0
	}
	return int(math.Floor(d))
}

// Compute derives per-tier cover, cumulative cover and the replenishment
// quantities for one SKU row, using the engine's safety thresholds.
func (e *Engine) Compute(row SKURow) Metrics {
	return e.compute(row, e.params.SafetyStockDays)
}

func (e *Engine) compute(row SKURow, safetyDays int) Metrics {
	m := Metrics{
		Cover:      make(map[Tier]int),
		Cumulative: make(map[Tier]int),
	}

	// 1. Per-tier days of cover, then the running cumulative sum in
	// precedence order.
	cum := 0
	for _, t := range e.tiers.Ordered() {
		cover := DaysOfCover(row.Quantities[t], row.DailySales)
		cum += cover
		m.Cover[t] = cover
		m.Cumulative[t] = cum
	}
	m.TotalCover = cum

	// 2. Required purchase: overseas restock against the 28-day peak,
	// FBO restock against the safety gap, inbound buffer. The total is
	// clamped at zero; individual components may be negative.
	overseas := row.Peak28Sales * float64(e.params.OverseasSafeDays)
	fbo := float64(safetyDays-m.TotalCover) * row.DailySales
	inbound := row.DailySales * float64(e.params.InboundSafeDays)
	m.RequiredPurchase = math.Max(0, overseas+fbo+inbound)

	// 3. Stock above the safety buffer can be promoted.
	m.Promotable = math.Max(0, float64(m.TotalCover-safetyDays)*row.DailySales)

	return m
}

// ComputeAll runs Compute over a table. Every row must carry the join key
// linking the stock table to the sales table.
func (e *Engine) ComputeAll(rows []SKURow) ([]Metrics, error) {
	out := make([]Metrics, 0, len(rows))
	for i, row := range rows {
		if row.OzonID == "" {
			return nil, fmt.Errorf("row %d is missing the join column \"Ozon ID\"", i)
		}
		out = append(out, e.Compute(row))
	}
	return out, nil
}
