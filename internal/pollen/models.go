// Package pollen provides the daily pollen forecast model and its risk levels.
package pollen

import (
	"errors"
	"strings"
	"time"
)

// ErrUnknownType is returned when a pollen type name is not recognized.
var ErrUnknownType = errors.New("unknown pollen type")

// Type represents a category of pollen.
type Type string

const (
	PollenGrass Type = "GRASS"
	PollenTree  Type = "TREE"
	PollenWeed  Type = "WEED"
)

// AllTypes returns all supported pollen types.
func AllTypes() []Type {
	return []Type{PollenGrass, PollenTree, PollenWeed}
}

// ParseType parses a pollen type name case-insensitively ("grass", "TREE").
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case PollenGrass, PollenTree, PollenWeed:
		return t, nil
	default:
		return "", ErrUnknownType
	}
}

// RiskLevel represents the pollen risk level.
type RiskLevel string

const (
	RiskNone     RiskLevel = "NONE"
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskVeryHigh RiskLevel = "VERY_HIGH"
)

// RiskLevelFromIndex converts a numeric index (0-5 scale) to RiskLevel.
func RiskLevelFromIndex(index float64) RiskLevel {
	switch {
	case index <= 0:
		return RiskNone
	case index <= 1:
		return RiskLow
	case index <= 2:
		return RiskModerate
	case index <= 3:
		return RiskHigh
	default:
		return RiskVeryHigh
	}
}

// AtLeast reports whether r is as severe as other or more.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return riskOrder[r] >= riskOrder[other]
}

var riskOrder = map[RiskLevel]int{
	RiskNone:     0,
	RiskLow:      1,
	RiskModerate: 2,
	RiskHigh:     3,
	RiskVeryHigh: 4,
}

// DailySeries holds parallel per-day pollen indices. Index i of every slice refers to Time[i].
type DailySeries struct {
	Time  []time.Time `json:"time"`
	Grass []float64   `json:"grass_pollen"`
	Tree  []float64   `json:"tree_pollen"`
	Weed  []float64   `json:"weed_pollen"`
}

// Len returns the number of usable days, clamped to the shortest series.
func (d *DailySeries) Len() int {
	if d == nil {
		return 0
	}
	n := len(d.Time)
	for _, l := range []int{len(d.Grass), len(d.Tree), len(d.Weed)} {
		if l < n {
			n = l
		}
	}
	return n
}

// Index returns the index of one pollen type on day i.
func (d *DailySeries) Index(t Type, i int) (float64, bool) {
	if i < 0 || i >= d.Len() {
		return 0, false
	}
	switch t {
	case PollenGrass:
		return d.Grass[i], true
	case PollenTree:
		return d.Tree[i], true
	case PollenWeed:
		return d.Weed[i], true
	default:
		return 0, false
	}
}

// Reading is one pollen type's index and risk for a single day.
type Reading struct {
	Type  Type      `json:"type"`
	Index float64   `json:"index"`
	Risk  RiskLevel `json:"risk"`
}

// Forecast is the daily pollen forecast.
type Forecast struct {
	// Daily is nil when the upstream response carried no daily block.
	Daily *DailySeries `json:"daily,omitempty"`

	FetchedAt time.Time `json:"fetchedAt"`
}

// Today returns the readings of the first forecast day, or nil if there is none.
func (f *Forecast) Today() []Reading {
	if f == nil || f.Daily.Len() == 0 {
		return nil
	}

	readings := make([]Reading, 0, len(AllTypes()))
	for _, t := range AllTypes() {
		idx, _ := f.Daily.Index(t, 0)
		readings = append(readings, Reading{
			Type:  t,
			Index: idx,
			Risk:  RiskLevelFromIndex(idx),
		})
	}
	return readings
}

// FallbackDays is the length of the placeholder forecast.
const FallbackDays = 7

var (
	fallbackGrass = []float64{2, 3, 3, 2, 1, 2, 3}
	fallbackTree  = []float64{1, 1, 2, 2, 1, 0, 1}
	fallbackWeed  = []float64{0, 1, 1, 1, 2, 1, 0}
)

// FallbackForecast returns a static seven day forecast starting on the day of now.
func FallbackForecast(now time.Time) *Forecast {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	daily := &DailySeries{
		Time:  make([]time.Time, FallbackDays),
		Grass: append([]float64(nil), fallbackGrass...),
		Tree:  append([]float64(nil), fallbackTree...),
		Weed:  append([]float64(nil), fallbackWeed...),
	}
	for i := range daily.Time {
		daily.Time[i] = day.AddDate(0, 0, i)
	}

	return &Forecast{
		Daily:     daily,
		FetchedAt: now,
	}
}
