package format

import (
	"errors"
	"testing"
)

func TestLookupKnownFormats(t *testing.T) {
	tests := []struct {
		name         string
		deckSize     int
		copyLimit    int
		singleton    bool
		legendaryMax int
		landRatio    float64
	}{
		{"Standard", 60, 4, false, 3, 0.40},
		{"Modern", 60, 4, false, 3, 0.40},
		{"Pioneer", 60, 4, false, 3, 0.40},
		{"Legacy", 60, 4, false, 3, 0.40},
		{"Vintage", 60, 4, false, 3, 0.40},
		{"Brawl", 60, 4, false, 1, 0.40},
		{"Commander", 100, 1, true, 1, 0.37},
	}
	for _, tt := range tests {
		r, err := Lookup(tt.name)
		if err != nil {
			t.Fatalf("Lookup(%s) failed: %v", tt.name, err)
		}
		if r.DeckSize != tt.deckSize || r.CopyLimit != tt.copyLimit ||
			r.Singleton != tt.singleton || r.LegendaryMax != tt.legendaryMax ||
			r.LandRatio != tt.landRatio {
			t.Errorf("Lookup(%s) = %+v, want %+v", tt.name, r, tt)
		}
	}
}

func TestLookupCaseInsensitive(t *testing.T) {
	for _, name := range []string{"standard", "STANDARD", " Standard ", "sTaNdArD"} {
		r, err := Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q) failed: %v", name, err)
		}
		if r.Name != "Standard" {
			t.Errorf("Lookup(%q).Name = %s, want Standard", name, r.Name)
		}
	}
}

func TestLookupUnknownFormat(t *testing.T) {
	_, err := Lookup("Pauper")
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Lookup(Pauper) error = %v, want ErrUnknownFormat", err)
	}
	if _, err := Lookup(""); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Lookup(\"\") error = %v, want ErrUnknownFormat", err)
	}
}

func TestLandCount(t *testing.T) {
	tests := []struct {
		format    string
		archetype string
		want      int
	}{
		{"Standard", "Aggro", 22},
		{"Standard", "Midrange", 24},
		{"Standard", "Control", 26},
		{"Standard", "Combo", 23},
		{"Standard", "aggro", 22},
		{"Standard", "Tempo", 24}, // unknown archetype -> midrange
		{"Standard", "", 24},
		{"Commander", "Aggro", 35},
		{"Commander", "Midrange", 36},
		{"Commander", "Control", 38},
		{"Brawl", "Control", 26},
	}
	for _, tt := range tests {
		got, err := LandCount(tt.format, tt.archetype)
		if err != nil {
			t.Fatalf("LandCount(%s, %s) failed: %v", tt.format, tt.archetype, err)
		}
		if got != tt.want {
			t.Errorf("LandCount(%s, %s) = %d, want %d", tt.format, tt.archetype, got, tt.want)
		}
	}
}

func TestCurve(t *testing.T) {
	std, err := Curve("Standard")
	if err != nil {
		t.Fatal(err)
	}
	if std.TwoToThree != 0.40 {
		t.Errorf("Standard 2-3 bracket = %v, want 0.40", std.TwoToThree)
	}

	cmd, err := Curve("Commander")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.SixPlus != 0.27 {
		t.Errorf("Commander 6+ bracket = %v, want 0.27", cmd.SixPlus)
	}
}

func TestCurveIdealSumsToOne(t *testing.T) {
	sum := 0.0
	for cmc := 0; cmc <= 6; cmc++ {
		sum += CurveIdeal()[cmc]
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("curve ideal distribution sums to %v, want 1.0", sum)
	}
}

func TestDeckSize(t *testing.T) {
	n, err := DeckSize("commander")
	if err != nil {
		t.Fatal(err)
	}
	if n != 100 {
		t.Errorf("DeckSize(commander) = %d, want 100", n)
	}
}
