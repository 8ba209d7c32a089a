package util

import (
	"testing"

	"threshold/internal/model"
)

func TestNormalizeLabel(t *testing.T) {
	if got := NormalizeLabel("  Wake   UP\t"); got != "wake up" {
		t.Fatalf("got %q", got)
	}
}

func TestParseDays(t *testing.T) {
	tests := map[string]model.DaySet{
		"":            model.Everyday,
		"Everyday":    model.Everyday,
		"weekdays":    model.Weekdays,
		"weekends":    model.Weekend,
		"none":        0,
		"wed,fri":     model.NewDaySet(3, 5),
		"Mon, 3, sat": model.NewDaySet(1, 3, 6),
		"0,0,sunday":  model.NewDaySet(0),
	}
	for in, want := range tests {
		got, err := ParseDays(in)
		if err != nil || got != want {
			t.Fatalf("ParseDays(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"7", "someday", "-1"} {
		if _, err := ParseDays(in); err == nil {
			t.Fatalf("ParseDays(%q): expected error", in)
		}
	}
}
