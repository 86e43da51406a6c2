// Package format is the static rules engine for deck construction: deck
// sizes, copy limits, singleton and legendary caps, land ratios, archetype
// land counts, and mana-curve targets. Every rule the core needs is a pure
// lookup against the tables in this file; there is no runtime configuration.
package format

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFormat is returned for formats outside the supported table.
var ErrUnknownFormat = errors.New("unknown format")

// Rules holds the construction constraints for one format.
type Rules struct {
	Name         string
	DeckSize     int
	CopyLimit    int
	Singleton    bool
	LegendaryMax int
	LandRatio    float64
}

// CurveTargets maps CMC brackets to the ideal share of nonland cards.
type CurveTargets struct {
	ZeroToOne  float64
	TwoToThree float64
	FourToFive float64
	SixPlus    float64
}

var formats = map[string]Rules{
	"standard":  {Name: "Standard", DeckSize: 60, CopyLimit: 4, Singleton: false, LegendaryMax: 3, LandRatio: 0.40},
	"modern":    {Name: "Modern", DeckSize: 60, CopyLimit: 4, Singleton: false, LegendaryMax: 3, LandRatio: 0.40},
	"pioneer":   {Name: "Pioneer", DeckSize: 60, CopyLimit: 4, Singleton: false, LegendaryMax: 3, LandRatio: 0.40},
	"legacy":    {Name: "Legacy", DeckSize: 60, CopyLimit: 4, Singleton: false, LegendaryMax: 3, LandRatio: 0.40},
	"vintage":   {Name: "Vintage", DeckSize: 60, CopyLimit: 4, Singleton: false, LegendaryMax: 3, LandRatio: 0.40},
	"brawl":     {Name: "Brawl", DeckSize: 60, CopyLimit: 4, Singleton: false, LegendaryMax: 1, LandRatio: 0.40},
	"commander": {Name: "Commander", DeckSize: 100, CopyLimit: 1, Singleton: true, LegendaryMax: 1, LandRatio: 0.37},
}

var (
	sixtyCardCurve = CurveTargets{ZeroToOne: 0.15, TwoToThree: 0.40, FourToFive: 0.25, SixPlus: 0.10}
	commanderCurve = CurveTargets{ZeroToOne: 0.08, TwoToThree: 0.25, FourToFive: 0.30, SixPlus: 0.27}
)

var (
	sixtyCardLands = map[string]int{"aggro": 22, "midrange": 24, "control": 26, "combo": 23}
	commanderLands = map[string]int{"aggro": 35, "midrange": 36, "control": 38, "combo": 35}
)

// curveIdeal is the per-integer-CMC ideal distribution the verifier scores
// against (CMC >= 7 is folded into the 6 bucket by the caller).
var curveIdeal = map[int]float64{0: 0.05, 1: 0.15, 2: 0.25, 3: 0.25, 4: 0.15, 5: 0.10, 6: 0.05}

// Lookup returns the rules for a format, case-insensitively.
func Lookup(name string) (Rules, error) {
	r, ok := formats[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Rules{}, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return r, nil
}

// MustLookup is Lookup for callers that already validated the format.
// It panics on unknown formats; use only after a Lookup has succeeded.
func MustLookup(name string) Rules {
	r, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return r
}

// DeckSize returns the target deck size for a format.
func DeckSize(name string) (int, error) {
	r, err := Lookup(name)
	if err != nil {
		return 0, err
	}
	return r.DeckSize, nil
}

// LandCount returns the recommended land count for a format and archetype.
// Unknown archetypes fall back to midrange.
func LandCount(formatName, archetype string) (int, error) {
	r, err := Lookup(formatName)
	if err != nil {
		return 0, err
	}
	table := sixtyCardLands
	if r.DeckSize == 100 {
		table = commanderLands
	}
	if n, ok := table[strings.ToLower(strings.TrimSpace(archetype))]; ok {
		return n, nil
	}
	return table["midrange"], nil
}

// Curve returns the bracketed mana-curve targets for a format.
func Curve(name string) (CurveTargets, error) {
	r, err := Lookup(name)
	if err != nil {
		return CurveTargets{}, err
	}
	if r.DeckSize == 100 {
		return commanderCurve, nil
	}
	return sixtyCardCurve, nil
}

// CurveIdeal returns the per-CMC ideal distribution used for scoring.
// The returned map must not be mutated.
func CurveIdeal() map[int]float64 {
	return curveIdeal
}

// Names returns the supported format names in display casing.
func Names() []string {
	out := make([]string, 0, len(formats))
	for _, r := range formats {
		out = append(out, r.Name)
	}
	return out
}

// Archetypes returns the archetypes with tabled land counts.
func Archetypes() []string {
	return []string{"Aggro", "Midrange", "Control", "Combo"}
}
