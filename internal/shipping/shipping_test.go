package shipping

import (
	"math"
	"strings"
	"testing"
)

func floatEquals(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestCoeffAndPctClamping(t *testing.T) {
	c := NewCalculator(Rules{})

	tests := []struct {
		hours     int
		wantCoeff float64
		wantPct   float64
	}{
		{29, 1.00, 0.00},
		{45, 1.66, 3.30},
		{61, 1.80, 4.00},
		{10, 1.00, 0.00},  // below table, clamps to 29
		{100, 1.80, 4.00}, // above table, clamps to 61
	}
	for _, tt := range tests {
		coeff, pct := c.CoeffAndPct(tt.hours)
		if coeff != tt.wantCoeff || pct != tt.wantPct {
			t.Errorf("CoeffAndPct(%d) = (%v, %v), want (%v, %v)",
				tt.hours, coeff, pct, tt.wantCoeff, tt.wantPct)
		}
	}
}

func TestBaseFeeByVolumeBrackets(t *testing.T) {
	c := NewCalculator(Rules{})

	tests := []struct {
		volume float64
		want   float64
	}{
		{0.0, 17},
		{0.2, 17},
		{0.201, 19},
		{0.3, 19},
		{1.0, 23},
		{1.001, 25},
		{5.0, 38},
		{100.0, 280},
		{190.0, 476},
		{190.001, 792},
		{500.0, 792}, // beyond the table, last bracket fee
		{-3.0, 17},   // negative clamps to zero
	}
	for _, tt := range tests {
		if got := c.BaseFeeByVolume(tt.volume); got != tt.want {
			t.Errorf("BaseFeeByVolume(%v) = %v, want %v", tt.volume, got, tt.want)
		}
	}
}

func TestBaseFeeByVolumeSingleMatch(t *testing.T) {
	// Every volume in [0, 190] must match exactly one bracket.
	c := NewCalculator(Rules{})
	brackets := DefaultVolumeBrackets()
	for v := 0.0; v <= 190.0; v += 0.05 {
		matches := 0
		for _, b := range brackets {
			if v+1e-9 >= b[0] && v-1e-9 <= b[1] {
				matches++
			}
		}
		if matches != 1 {
			t.Fatalf("volume %v matches %d brackets, want 1", v, matches)
		}
		_ = c
	}
}

func TestFallbackFeeRuleBoundary(t *testing.T) {
	c := NewCalculator(Rules{})
	line := ShipLine{ShippedAmount: 0, Volume: 1.0, VolumeKnown: true}

	// Hours 29 gives coefficient 1.0 and percent 0, isolating the base fee.
	line.Day = "2025-08-31"
	if got := c.FallbackFee(line, 29); got != 46 {
		t.Errorf("old schedule fee = %v, want 46", got)
	}
	line.Day = "2025-09-01"
	if got := c.FallbackFee(line, 29); got != 23 {
		t.Errorf("new schedule fee = %v, want 23", got)
	}
}

func TestFallbackFeeOldScheduleSteps(t *testing.T) {
	c := NewCalculator(Rules{RuleMode: "old"})

	tests := []struct {
		volume float64
		want   float64
	}{
		{0.5, 46},  // up to 1 liter is flat
		{1.0, 46},
		{1.1, 56},  // one started extra liter
		{2.5, 66},  // two started extra liters
		{3.0, 66},
	}
	for _, tt := range tests {
		line := ShipLine{Day: "2025-10-01", Volume: tt.volume, VolumeKnown: true}
		if got := c.FallbackFee(line, 29); got != tt.want {
			t.Errorf("old fee for %vL = %v, want %v", tt.volume, got, tt.want)
		}
	}
}

func TestFallbackFeeDefaultsVolume(t *testing.T) {
	// A SKU with no dimension data is priced as one liter.
	c := NewCalculator(Rules{RuleMode: "new"})
	line := ShipLine{Day: "2025-09-05", VolumeKnown: false}
	if got := c.FallbackFee(line, 29); got != 23 {
		t.Errorf("fee = %v, want 23 for the 1L default", got)
	}
}

func TestFallbackFeePercentComponent(t *testing.T) {
	c := NewCalculator(Rules{RuleMode: "new"})
	// 61h: coefficient 1.80, percent 4.00.
	line := ShipLine{Day: "2025-09-05", ShippedAmount: 1000, Volume: 1.0, VolumeKnown: true}
	want := 23*1.80 + 1000*0.04
	if got := c.FallbackFee(line, 61); !floatEquals(got, want, 1e-9) {
		t.Errorf("fee = %v, want %v", got, want)
	}
}

func TestLineFeePriority(t *testing.T) {
	c := NewCalculator(Rules{})

	// Light-small listing: flat per unit, even with a recorded charge.
	light := ShipLine{Day: "2025-09-05", OzonID: "1701596112", Quantity: 3, ActualLogistics: 500}
	if got := c.LineFee(light, 29); got != 33 {
		t.Errorf("light-small fee = %v, want 33", got)
	}

	// Recorded logistics charge wins over the fallback.
	actual := ShipLine{Day: "2025-09-05", OzonID: "X", Quantity: 1, ActualLogistics: 123.45, Volume: 1, VolumeKnown: true}
	if got := c.LineFee(actual, 29); got != 123.45 {
		t.Errorf("fee = %v, want recorded 123.45", got)
	}

	// No recorded charge falls through to the computed fee.
	fallback := ShipLine{Day: "2025-09-05", OzonID: "X", Quantity: 1, Volume: 1, VolumeKnown: true}
	if got := c.LineFee(fallback, 29); got != 23 {
		t.Errorf("fee = %v, want computed 23", got)
	}
}

func TestGroupFees(t *testing.T) {
	c := NewCalculator(Rules{})
	lines := []ShipLine{
		{Day: "2025-09-05", OzonID: "A", Quantity: 2, ShippedAmount: 200, ActualLogistics: 40},
		{Day: "2025-09-05", OzonID: "A", Quantity: 2, ShippedAmount: 100, ActualLogistics: 20},
		{Day: "2025-09-05", OzonID: "B", Quantity: 1, ShippedAmount: 50, ActualLogistics: 10},
	}
	hours := map[string]int{"2025-09-05": 29}

	groups, err := c.GroupFees(lines, hours)
	if err != nil {
		t.Fatalf("GroupFees: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	a := groups[0]
	if a.OzonID != "A" || a.Quantity != 4 || a.Fee != 60 {
		t.Errorf("group A = %+v", a)
	}
	if !floatEquals(a.AvgPrice, 75, 1e-9) {
		t.Errorf("avg price = %v, want 75", a.AvgPrice)
	}
	if !floatEquals(a.AvgFee, 15, 1e-9) {
		t.Errorf("avg fee = %v, want 15", a.AvgFee)
	}
}

func TestGroupFeesMissingDay(t *testing.T) {
	c := NewCalculator(Rules{})
	lines := []ShipLine{{Day: "2025-09-06", OzonID: "A", Quantity: 1}}
	if _, err := c.GroupFees(lines, map[string]int{"2025-09-05": 29}); err == nil {
		t.Fatal("expected error for a day with no hour entry")
	}
}

func TestDailyAvgHours(t *testing.T) {
	samples := []HoursSample{
		{Day: "2025-09-05", Hours: 30},
		{Day: "2025-09-05", Hours: 33},
		{Day: "2025-09-05", Hours: 0},  // non-positive samples are skipped
		{Day: "2025-09-06", Hours: 40.4},
	}
	got, err := DailyAvgHours(samples, []string{"2025-09-05", "2025-09-06"})
	if err != nil {
		t.Fatalf("DailyAvgHours: %v", err)
	}
	if got["2025-09-05"] != 32 { // (30+33)/2 = 31.5 rounds to 32
		t.Errorf("hours for 09-05 = %d, want 32", got["2025-09-05"])
	}
	if got["2025-09-06"] != 40 {
		t.Errorf("hours for 09-06 = %d, want 40", got["2025-09-06"])
	}
}

func TestDailyAvgHoursMissingDays(t *testing.T) {
	samples := []HoursSample{{Day: "2025-09-05", Hours: 30}}
	_, err := DailyAvgHours(samples, []string{"2025-09-05", "2025-09-06", "2025-09-07"})
	if err == nil {
		t.Fatal("expected error for days without samples")
	}
	for _, d := range []string{"2025-09-06", "2025-09-07"} {
		if !strings.Contains(err.Error(), d) {
			t.Errorf("error should name missing day %s: %v", d, err)
		}
	}
}

func TestHoursForDates(t *testing.T) {
	table := map[string]int{"2025-09-05": 31}
	got, err := HoursForDates(table, []string{"2025-09-05"})
	if err != nil {
		t.Fatalf("HoursForDates: %v", err)
	}
	if got["2025-09-05"] != 31 {
		t.Errorf("hours = %d, want 31", got["2025-09-05"])
	}
	if _, err := HoursForDates(table, []string{"2025-09-06"}); err == nil {
		t.Fatal("expected error for uncovered day")
	}
}
