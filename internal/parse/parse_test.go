package parse

import "testing"

func TestFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1234.56", 1234.56},
		{"1234,56", 1234.56},
		{"1,234.56", 1234.56},
		{"1.234,56", 1234.56},
		{"5 782,00", 5782.00},
		{"5 782,00", 5782.00},
		{"  42  ", 42},
		{"-17.5", -17.5},
		{"1 234 567", 1234567},
		{"", 0},
		{"-", 0},
		{"—", 0},
		{"NaN", 0},
		{"None", 0},
		{"null", 0},
		{"abc", 0},
		{"₽ 99,90", 99.90},
	}
	for _, tt := range tests {
		if got := Float(tt.in); got != tt.want {
			t.Errorf("Float(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"3", 3},
		{"3.4", 3},
		{"3.5", 4},
		{"2,6", 3},
		{"", 0},
		{"-2.5", -3},
	}
	for _, tt := range tests {
		if got := Int(tt.in); got != tt.want {
			t.Errorf("Int(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDay(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2025-08-07", "2025-08-07"},
		{"2025/8/7", "2025-08-07"},
		{"2025.08.07", "2025-08-07"},
		{"2025-08-07 13:45:00", "2025-08-07"},
		{"shipped on 2025-8-7 late", "2025-08-07"},
		{"2025-13-01", ""}, // month out of range
		{"2025-02-99", ""}, // day out of range
		{"not a date", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Day(tt.in); got != tt.want {
			t.Errorf("Day(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDayRange(t *testing.T) {
	days, err := DayRange("2025-08-30", "2025-09-02")
	if err != nil {
		t.Fatalf("DayRange: %v", err)
	}
	want := []string{"2025-08-30", "2025-08-31", "2025-09-01", "2025-09-02"}
	if len(days) != len(want) {
		t.Fatalf("got %d days, want %d", len(days), len(want))
	}
	for i := range want {
		if days[i] != want[i] {
			t.Errorf("days[%d] = %s, want %s", i, days[i], want[i])
		}
	}

	if _, err := DayRange("bogus", "2025-09-02"); err == nil {
		t.Error("expected error for invalid start day")
	}
}

func TestDayMillisRoundTrip(t *testing.T) {
	ms := DayToMillis("2025-08-07", nil)
	if ms == 0 {
		t.Fatal("DayToMillis returned 0 for a valid day")
	}
	if got := DayFromMillis(ms, nil); got != "2025-08-07" {
		t.Errorf("round trip = %s, want 2025-08-07", got)
	}
	if DayToMillis("bogus", nil) != 0 {
		t.Error("DayToMillis should return 0 for an unparseable key")
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{float64(2.5), "2.5"},
		{float64(15000000), "15000000"},
		{int64(42), "42"},
		{true, "true"},
	}
	for _, tt := range tests {
		if got := Stringify(tt.in); got != tt.want {
			t.Errorf("Stringify(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
