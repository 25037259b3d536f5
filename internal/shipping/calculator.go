package shipping

import (
	"fmt"
	"math"
	"sort"
)

// ShipLine is one shipped order line entering the fee engine.
type ShipLine struct {
	Day           string // order processing day, "YYYY-MM-DD"
	ShipmentID    string
	OzonID        string
	Quantity      int
	ShippedAmount float64
	// Volume is the packed volume in liters. When the SKU has no
	// dimension data VolumeKnown is false and the fallback assumes 1.0 L.
	Volume      float64
	VolumeKnown bool
	// ActualLogistics is the summed logistics charge already observed for
	// this shipment in the accrual ledger; 0 means none recorded.
	ActualLogistics float64
}

// GroupFee is the per-(day, Ozon ID) logistics roll-up.
type GroupFee struct {
	Day           string
	OzonID        string
	Quantity      int
	ShippedAmount float64
	AvgPrice      float64
	Fee           float64
	AvgFee        float64
}

// Calculator applies the fee rules to shipped lines.
type Calculator struct {
	rules   Rules
	minHour int
	maxHour int
}

// NewCalculator builds a calculator, filling unset rules from the defaults.
func NewCalculator(rules Rules) *Calculator {
	r := rules.withDefaults()
	first := true
	var lo, hi int
	for h := range r.HourRules {
		if first {
			lo, hi = h, h
			first = false
			continue
		}
		if h < lo {
			lo = h
		}
		if h > hi {
			hi = h
		}
	}
	return &Calculator{rules: r, minHour: lo, maxHour: hi}
}

// CoeffAndPct looks up the (coefficient, percent) pair for an average
// delivery time, clamping hours into the table's covered range.
func (c *Calculator) CoeffAndPct(avgHours int) (float64, float64) {
	h := avgHours
	if h < c.minHour {
		h = c.minHour
	}
	if h > c.maxHour {
		h = c.maxHour
	}
	pair := c.rules.HourRules[h]
	return pair[0], pair[1]
}

// BaseFeeByVolume resolves the new-schedule base fee for a volume in liters.
// Brackets match inclusively on both ends with a 1e-9 epsilon; a volume
// beyond every bracket falls back to the last bracket's fee.
func (c *Calculator) BaseFeeByVolume(volumeLiters float64) float64 {
	v := math.Max(volumeLiters, 0)
	for _, b := range c.rules.VolumeBrackets {
		if v+1e-9 >= b[0] && v-1e-9 <= b[1] {
			return b[2]
		}
	}
	if n := len(c.rules.VolumeBrackets); n > 0 {
		return c.rules.VolumeBrackets[n-1][2]
	}
	return 0
}

// FallbackFee estimates the logistics fee for a line with no recorded
// charge: base fee (old or new schedule by rule mode and order day) times
// the hour coefficient, plus the percent cut of the shipped amount.
func (c *Calculator) FallbackFee(l ShipLine, avgHours int) float64 {
	coeff, pct := c.CoeffAndPct(avgHours)

	vol := l.Volume
	if !l.VolumeKnown {
		vol = 1.0
	}
	vol = math.Max(vol, 0)

	var useNew bool
	switch c.rules.RuleMode {
	case "new":
		useNew = true
	case "old":
		useNew = false
	default: // auto
		useNew = l.Day != "" && l.Day >= c.rules.BoundaryDay
	}

	var base float64
	if useNew {
		base = c.BaseFeeByVolume(vol)
	} else {
		// Old schedule: first liter flat, each started extra liter adds
		// a fixed step.
		extra := math.Max(0, math.Ceil(vol-1.0))
		base = c.rules.OldBase1L + c.rules.OldExtraPerL*extra
	}
	return base*coeff + l.ShippedAmount*pct/100.0
}

// LineFee decides the fee for one line. Light-small listings are billed
// flat per unit; otherwise a positive recorded logistics charge wins over
// the computed fallback.
func (c *Calculator) LineFee(l ShipLine, avgHours int) float64 {
	if c.rules.LightSmallIDs[l.OzonID] {
		return float64(l.Quantity) * c.rules.LightSmallFeePerUnit
	}
	if l.ActualLogistics > 0 {
		return l.ActualLogistics
	}
	return c.FallbackFee(l, avgHours)
}

// GroupFees prices every line with its day's average delivery hours and
// rolls the fees up by (day, Ozon ID). A line whose day has no hour entry
// is a fatal input error.
func (c *Calculator) GroupFees(lines []ShipLine, hoursByDay map[string]int) ([]GroupFee, error) {
	type gkey struct{ day, ozonID string }
	groups := make(map[gkey]*GroupFee)

	for _, l := range lines {
		hours, ok := hoursByDay[l.Day]
		if !ok {
			return nil, fmt.Errorf("no average delivery hours for day %s", l.Day)
		}
		fee := c.LineFee(l, hours)

		k := gkey{l.Day, l.OzonID}
		g, ok := groups[k]
		if !ok {
			g = &GroupFee{Day: l.Day, OzonID: l.OzonID}
			groups[k] = g
		}
		g.Quantity += l.Quantity
		g.ShippedAmount += l.ShippedAmount
		g.Fee += fee
	}

	out := make([]GroupFee, 0, len(groups))
	for _, g := range groups {
		if g.Quantity > 0 {
			g.AvgPrice = g.ShippedAmount / float64(g.Quantity)
			g.AvgFee = g.Fee / float64(g.Quantity)
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].OzonID < out[j].OzonID
	})
	return out, nil
}
