// =============================================================================
// FEWS-RORB Adapter - Hydrological Formulas
// =============================================================================
//
// Pure numeric procedures shared by the RORB input formatters:
//   - baseflow decay recursion
//   - snowpack density and the fixed elevation-zone weighting
//   - priority-based selection of observation values
//   - sample-count computation from a civil date-time range
//   - reservoir elevation -> storage interpolation
//
// Everything here is deterministic and free of I/O so the formulas can be
// tested in isolation.
//
// =============================================================================

package rorbfmt

import (
	"fmt"
	"math"
	"time"
)

// civilLayout is the date-time layout used across FEWS run metadata.
const civilLayout = "2006-01-02 15:04:05"

// =============================================================================
// BASEFLOW
// =============================================================================

// Baseflow produces the baseflow hydrograph for one gauge.
//
// The sequence holds the constant value up to (exclusive) the truncated start
// index; from the start index on, each value is the previous value times the
// decay multiplier. A start of 0 yields the pure geometric sequence
// const, const*multi, const*multi^2, ...; a start at or beyond the length
// yields a constant sequence. Both start and length are truncated to
// integers before use.
func Baseflow(constant, multi, start, length float64) []float64 {
	startIdx := int(start)
	n := int(length)
	if n <= 0 {
		return nil
	}

	out := make([]float64, n)
	for i := range out {
		switch {
		case i < startIdx:
			out[i] = constant
		case i == 0:
			out[i] = constant
		default:
			out[i] = out[i-1] * multi
		}
	}
	return out
}

// =============================================================================
// SNOWPACK
// =============================================================================

// elezoneWeights is the fixed equal weighting applied across the nine
// elevation zones of the catchment. This table is a constant of the model
// setup, not user-configurable.
var elezoneWeights = map[string]float64{
	"1": 1.0 / 9, "2": 1.0 / 9, "3": 1.0 / 9,
	"4": 1.0 / 9, "5": 1.0 / 9, "6": 1.0 / 9,
	"7": 1.0 / 9, "8": 1.0 / 9, "9": 1.0 / 9,
}

// SnowpackDensity derives density from snow depth and water content.
// A zero water depth yields 0 rather than an error; missing snow courses are
// a normal condition outside the season.
func SnowpackDensity(sd, wd float64) float64 {
	if wd == 0 {
		return 0
	}
	return sd / wd
}

// WeightedSnowpackDensity sums density[zone] * weight[zone] over the fixed
// nine-zone weighting table. Zones absent from the input contribute nothing.
func WeightedSnowpackDensity(densityByZone map[string]float64) float64 {
	var total float64
	for zone, density := range densityByZone {
		total += density * elezoneWeights[zone]
	}
	return total
}

// Missing is the sentinel used for absent observation values in compiled
// state data.
var Missing = math.NaN()

// IsMissing reports whether a value is the missing sentinel.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// SelectByPriority returns the first candidate that is not missing, walking
// the list in priority order. ok is false when every candidate is missing;
// the caller substitutes its default and logs which entity fell back.
func SelectByPriority(candidates []float64) (value float64, ok bool) {
	for _, c := range candidates {
		if !IsMissing(c) {
			return c, true
		}
	}
	return Missing, false
}

// =============================================================================
// TIME
// =============================================================================

// ParseCivil localizes a civil date-time ("2006-01-02 15:04:05") to the
// named time zone.
func ParseCivil(dateTime, timezone string) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("unknown timezone %q: %w", timezone, err)
	}
	t, err := time.ParseInLocation(civilLayout, dateTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse datetime %q: %w", dateTime, err)
	}
	return t, nil
}

// SampleCount computes the number of samples between two civil date-times,
// inclusive of both endpoints.
//
// Both date-times ("2006-01-02 15:04:05") are localized to the named time
// zone, the elapsed minutes divided by the timestep and truncated, plus one.
func SampleCount(startDateTime, endDateTime, timezone string, timestepMinutes int) (int, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return 0, fmt.Errorf("unknown timezone %q: %w", timezone, err)
	}

	start, err := time.ParseInLocation(civilLayout, startDateTime, loc)
	if err != nil {
		return 0, fmt.Errorf("parse start datetime %q: %w", startDateTime, err)
	}
	end, err := time.ParseInLocation(civilLayout, endDateTime, loc)
	if err != nil {
		return 0, fmt.Errorf("parse end datetime %q: %w", endDateTime, err)
	}

	if timestepMinutes <= 0 {
		return 0, fmt.Errorf("invalid timestep %d minutes", timestepMinutes)
	}

	totalMinutes := end.Sub(start).Minutes()
	return int(totalMinutes/float64(timestepMinutes)) + 1, nil
}

// =============================================================================
// STORAGE INTERPOLATION
// =============================================================================

// LevelStorage is one (elevation, storage) pair of a reservoir's
// storage-elevation curve. Elevations must be monotonically increasing for
// the interpolation to be meaningful.
type LevelStorage struct {
	Elevation float64
	Storage   float64
}

// InterpolateStorage performs a piecewise-linear lookup of storage at the
// query elevation and rounds the result to the nearest integer. Queries
// outside the curve are extrapolated along the nearest segment's slope.
func InterpolateStorage(curve []LevelStorage, elevation float64) (int, error) {
	if len(curve) == 0 {
		return 0, fmt.Errorf("empty storage-elevation curve")
	}
	if len(curve) == 1 {
		return int(math.Round(curve[0].Storage)), nil
	}

	// Pick the segment containing the query, or the nearest boundary
	// segment when the query lies outside the curve.
	seg := 0
	for seg < len(curve)-2 && elevation > curve[seg+1].Elevation {
		seg++
	}

	a, b := curve[seg], curve[seg+1]
	if b.Elevation == a.Elevation {
		return 0, fmt.Errorf("degenerate storage-elevation segment at %.3f", a.Elevation)
	}

	slope := (b.Storage - a.Storage) / (b.Elevation - a.Elevation)
	storage := a.Storage + slope*(elevation-a.Elevation)
	return int(math.Round(storage)), nil
}
