// Package shipping implements the logistics fee engine: the delivery-hour
// coefficient table, the volume-bracket base fee schedules and the per-line
// fee decision, plus the per-day grouping that feeds the financial roll-up.
package shipping

import "math"

// Rules parameterizes the fee engine. Zero-value tables fall back to the
// published defaults below.
type Rules struct {
	// HourRules maps average delivery hours to (base fee coefficient,
	// percent of shipped amount). Hours outside the table clamp to its
	// nearest edge.
	HourRules map[int][2]float64
	// LightSmallIDs are Ozon IDs billed at a flat per-unit fee regardless
	// of actual or computed logistics cost.
	LightSmallIDs        map[string]bool
	LightSmallFeePerUnit float64
	// VolumeBrackets are (low, high, fee) rows for the new schedule,
	// matched inclusively on both ends with a small epsilon.
	VolumeBrackets [][3]float64
	// RuleMode selects the base-fee schedule: "old", "new", or "auto"
	// which switches on the order day against BoundaryDay.
	RuleMode    string
	BoundaryDay string

	OldBase1L    float64
	OldExtraPerL float64
}

// DefaultHourRules is the published hours table, 29h through 61h.
func DefaultHourRules() map[int][2]float64 {
	return map[int][2]float64{
		29: {1.00, 0.00}, 30: {1.05, 0.25}, 31: {1.11, 0.55}, 32: {1.16, 0.80}, 33: {1.23, 1.15},
		34: {1.28, 1.40}, 35: {1.32, 1.60}, 36: {1.36, 1.80}, 37: {1.40, 2.00}, 38: {1.44, 2.20},
		39: {1.48, 2.40}, 40: {1.51, 2.55}, 41: {1.54, 2.70}, 42: {1.57, 2.85}, 43: {1.60, 3.00},
		44: {1.63, 3.15}, 45: {1.66, 3.30}, 46: {1.69, 3.45}, 47: {1.71, 3.55}, 48: {1.73, 3.65},
		49: {1.75, 3.75}, 50: {1.76, 3.80}, 51: {1.77, 3.85}, 52: {1.774, 3.87}, 53: {1.78, 3.90},
		54: {1.784, 3.92}, 55: {1.788, 3.94}, 56: {1.79, 3.95}, 57: {1.792, 3.96}, 58: {1.794, 3.97},
		59: {1.796, 3.98}, 60: {1.798, 3.99}, 61: {1.80, 4.00},
	}
}

// DefaultLightSmallIDs are the listings billed flat per unit.
func DefaultLightSmallIDs() map[string]bool {
	ids := []string{
		"1701596112", "1774221575", "1774223800", "1794079622", "1795311329",
		"2272692781", "2369643012", "2371489844", "2382829229", "2383634361",
		"2383641082", "2383687594", "2423621133", "2423655359", "2423694063",
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

// DefaultVolumeBrackets is the new-schedule base fee table in liters.
func DefaultVolumeBrackets() [][3]float64 {
	return [][3]float64{
		{0.0, 0.2, 17}, {0.201, 0.4, 19}, {0.401, 0.6, 21}, {0.601, 0.8, 22}, {0.801, 1.0, 23},
		{1.001, 1.25, 25}, {1.251, 1.5, 26}, {1.501, 1.75, 27}, {1.751, 2.0, 29},
		{2.001, 3.0, 31}, {3.001, 4.0, 35}, {4.001, 5.0, 38}, {5.001, 6.0, 42}, {6.001, 7.0, 57},
		{7.001, 8.0, 61}, {8.001, 9.0, 64}, {9.001, 10.0, 68}, {10.001, 11.0, 78},
		{11.001, 12.0, 82}, {12.001, 13.0, 86}, {13.001, 14.0, 91}, {14.001, 15.0, 95},
		{15.001, 17.0, 100}, {17.001, 20.0, 109}, {20.001, 25.0, 117}, {25.001, 30.0, 129},
		{30.001, 35.0, 144}, {35.001, 40.0, 154}, {40.001, 45.0, 173}, {45.001, 50.0, 186},
		{50.001, 60.0, 204}, {60.001, 70.0, 227}, {70.001, 80.0, 245}, {80.001, 90.0, 270},
		{90.001, 100.0, 280}, {100.001, 125.0, 326}, {125.001, 150.0, 375}, {150.001, 175.0, 429},
		{175.001, 190.0, 476}, {190.001, math.Inf(1), 792},
	}
}

// DefaultRules returns the full published rule set with rule_mode "auto"
// switching to the new schedule on 2025-09-01.
func DefaultRules() Rules {
	return Rules{
		HourRules:            DefaultHourRules(),
		LightSmallIDs:        DefaultLightSmallIDs(),
		LightSmallFeePerUnit: 11.0,
		VolumeBrackets:       DefaultVolumeBrackets(),
		RuleMode:             "auto",
		BoundaryDay:          "2025-09-01",
		OldBase1L:            46.0,
		OldExtraPerL:         10.0,
	}
}

// withDefaults fills every unset table or constant from the defaults.
func (r Rules) withDefaults() Rules {
	def := DefaultRules()
	if len(r.HourRules) == 0 {
		r.HourRules = def.HourRules
	}
	if len(r.LightSmallIDs) == 0 {
		r.LightSmallIDs = def.LightSmallIDs
	}
	if r.LightSmallFeePerUnit == 0 {
		r.LightSmallFeePerUnit = def.LightSmallFeePerUnit
	}
	if len(r.VolumeBrackets) == 0 {
		r.VolumeBrackets = def.VolumeBrackets
	}
	if r.RuleMode == "" {
		r.RuleMode = def.RuleMode
	}
	if r.BoundaryDay == "" {
		r.BoundaryDay = def.BoundaryDay
	}
	if r.OldBase1L == 0 {
		r.OldBase1L = def.OldBase1L
	}
	if r.OldExtraPerL == 0 {
		r.OldExtraPerL = def.OldExtraPerL
	}
	return r
}
