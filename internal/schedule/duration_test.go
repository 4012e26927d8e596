package schedule

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"PT1H", 60},
		{"PT30M", 30},
		{"PT1H30M", 90},
		{"PT2H0M", 120},
		{"PT45S", 1},
		{"PT1M30S", 2}, // seconds round up to the next whole minute
		{"PT1H30M59S", 91},
		{"pt1h15m", 75},
		{"  PT10M", 10},
		{"PT10MXYZ", 10}, // unsupported trailing fields are ignored
		{"", 0},
		{"   ", 0},
		{"garbage", 0},
		{"P1D", 0},
		{"PT", 0},
	}
	for _, tc := range cases {
		if got := ParseDuration(tc.in); got != tc.want {
			t.Errorf("ParseDuration(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseDurationGrid(t *testing.T) {
	for h := 0; h <= 3; h++ {
		for m := 0; m <= 59; m += 13 {
			for s := 0; s <= 120; s += 30 {
				in := formatISO(h, m, s)
				want := h*60 + m + (s+59)/60
				if got := ParseDuration(in); got != want {
					t.Fatalf("ParseDuration(%q) = %d, want %d", in, got, want)
				}
			}
		}
	}
}

func formatISO(h, m, s int) string {
	out := "PT"
	if h > 0 {
		out += itoa(h) + "H"
	}
	out += itoa(m) + "M"
	out += itoa(s) + "S"
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{90, "1h 30m"},
		{45, "45m"},
		{120, "2h"},
		{0, "0m"},
		{-10, "0m"},
		{61, "1h 1m"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.in); got != tc.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveShiftBounds(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)

	t.Run("primary schema", func(t *testing.T) {
		s, e, ok := ResolveShiftBounds(Shift{StartTime: "2026-03-02T08:00:00Z", EndTime: "2026-03-02T16:00:00Z"})
		if !ok || !s.Equal(start) || !e.Equal(end) {
			t.Fatalf("got (%s, %s, %v)", s, e, ok)
		}
	})

	t.Run("alias schema", func(t *testing.T) {
		s, e, ok := ResolveShiftBounds(Shift{MinStartTime: "2026-03-02T08:00:00Z", MaxEndTime: "2026-03-02T16:00:00Z"})
		if !ok || !s.Equal(start) || !e.Equal(end) {
			t.Fatalf("got (%s, %s, %v)", s, e, ok)
		}
	})

	t.Run("primary wins over alias", func(t *testing.T) {
		s, _, ok := ResolveShiftBounds(Shift{
			StartTime:    "2026-03-02T09:00:00Z",
			EndTime:      "2026-03-02T16:00:00Z",
			MinStartTime: "2026-03-02T07:00:00Z",
			MaxEndTime:   "2026-03-02T15:00:00Z",
		})
		if !ok || s.Hour() != 9 {
			t.Fatalf("got start %s, ok=%v", s, ok)
		}
	})

	t.Run("mixed schemas resolve per field", func(t *testing.T) {
		_, e, ok := ResolveShiftBounds(Shift{StartTime: "2026-03-02T08:00:00Z", MaxEndTime: "2026-03-02T16:00:00Z"})
		if !ok || !e.Equal(end) {
			t.Fatalf("got (%s, %v)", e, ok)
		}
	})

	t.Run("incomplete or inverted shifts are skipped", func(t *testing.T) {
		bad := []Shift{
			{},
			{StartTime: "2026-03-02T08:00:00Z"},
			{EndTime: "2026-03-02T16:00:00Z"},
			{StartTime: "not a time", EndTime: "2026-03-02T16:00:00Z"},
			{StartTime: "2026-03-02T16:00:00Z", EndTime: "2026-03-02T08:00:00Z"},
			{StartTime: "2026-03-02T08:00:00Z", EndTime: "2026-03-02T08:00:00Z"},
		}
		for i, sh := range bad {
			if _, _, ok := ResolveShiftBounds(sh); ok {
				t.Errorf("shift %d resolved unexpectedly", i)
			}
		}
	})
}

func TestResolveLocationLabel(t *testing.T) {
	if got := ResolveLocationLabel(nil); got != "" {
		t.Errorf("nil location = %q, want empty", got)
	}
	if got := ResolveLocationLabel(&Location{Address: "12 Rue de la Paix"}); got != "12 Rue de la Paix" {
		t.Errorf("address = %q", got)
	}
	if got := ResolveLocationLabel(&Location{Coordinates: []float64{48.8566, 2.3522}}); got != "48.85660, 2.35220" {
		t.Errorf("coordinates = %q", got)
	}
	if got := ResolveLocationLabel(&Location{}); got != "" {
		t.Errorf("empty location = %q, want empty", got)
	}
}

func TestLocationUnmarshalBothSchemas(t *testing.T) {
	var fromArray Location
	if err := fromArray.UnmarshalJSON([]byte("[48.8566, 2.3522]")); err != nil {
		t.Fatalf("array form: %v", err)
	}
	if len(fromArray.Coordinates) != 2 || fromArray.Coordinates[0] != 48.8566 {
		t.Fatalf("array coordinates = %v", fromArray.Coordinates)
	}

	var fromObject Location
	if err := fromObject.UnmarshalJSON([]byte(`{"address":"5 Avenue Victor Hugo"}`)); err != nil {
		t.Fatalf("object form: %v", err)
	}
	if fromObject.Address != "5 Avenue Victor Hugo" {
		t.Fatalf("object address = %q", fromObject.Address)
	}
}
