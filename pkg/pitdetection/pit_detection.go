// Package pitdetection infers pit stops from lap timing alone. Timing exports
// rarely carry an explicit in-lap/out-lap marker, so a stop is inferred from a
// lap that is much slower than the driver's previous one, or from a lap whose
// sector splits were not recorded because the car left the track via the pit
// lane.
package pitdetection

import (
	"errors"
	"math"
)

// DefaultDeltaThreshold is the lap-to-lap slowdown, in seconds, beyond which a
// lap is treated as containing a pit stop.
const DefaultDeltaThreshold = 10.0

var ErrInvalidThreshold = errors.New("pitdetection: delta threshold must be a positive number")

type Detector struct {
	// DeltaThreshold is compared against lap time minus the previous lap
	// time of the same driver.
	DeltaThreshold float64

	// MissingSectors marks a timed lap with any unrecorded sector as a pit lap.
	MissingSectors bool
}

func NewDetector(deltaThreshold float64, missingSectors bool) (*Detector, error) {
	if math.IsNaN(deltaThreshold) || deltaThreshold <= 0 {
		return nil, ErrInvalidThreshold
	}

	return &Detector{
		DeltaThreshold: deltaThreshold,
		MissingSectors: missingSectors,
	}, nil
}

// LapTiming is the subset of a lap the detector looks at. Missing values are NaN.
type LapTiming struct {
	LapTime float64
	Delta   float64
	Sectors []float64
}

// Reason explains why a lap was classed as a pit lap.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonDelta
	ReasonMissingSectors
)

func (r Reason) String() string {
	switch r {
	case ReasonDelta:
		return "delta"
	case ReasonMissingSectors:
		return "missing sectors"
	default:
		return "none"
	}
}

// IsPitLap reports whether the lap looks like it contained a pit stop. A
// missing delta (first lap of a driver) never triggers the delta rule.
func (d *Detector) IsPitLap(lap LapTiming) (bool, Reason) {
	if !math.IsNaN(lap.Delta) && lap.Delta > d.DeltaThreshold {
		return true, ReasonDelta
	}

	if d.MissingSectors && !math.IsNaN(lap.LapTime) {
		for _, sector := range lap.Sectors {
			if math.IsNaN(sector) {
				return true, ReasonMissingSectors
			}
		}
	}

	return false, ReasonNone
}
