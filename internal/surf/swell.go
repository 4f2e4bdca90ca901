package surf

import (
	"math"
	"sort"
	"time"
)

const (
	gravity      = 9.81
	metersToFeet = 3.28084

	// Depth-limited breaking fraction (McCowan). Empirical; see also the
	// 0.6-0.8 range quoted in most nearshore texts.
	breakingGamma = 0.78

	// Shoaling amplification bounds. Below 1 the spot is effectively deep
	// water for that component; above 2 linear theory has long since
	// stopped being a useful approximation.
	shoalingMin = 1.0
	shoalingMax = 2.0

	// Bounds on the bottom-slope adjustment.
	slopeFactorMin = 0.85
	slopeFactorMax = 1.25
)

// SwellComponent is a single wave train at an offshore model point: height
// and period of the train plus the compass direction it travels toward.
type SwellComponent struct {
	HeightM      float64
	PeriodS      float64
	DirectionDeg float64
}

// Energy returns the relative energy of the component (proportional to
// height squared times period).
func (c SwellComponent) Energy() float64 {
	return c.HeightM * c.HeightM * c.PeriodS
}

// SwellComponentSet is the set of simultaneous swell trains at one forecast
// instant, ordered by energy descending.
type SwellComponentSet struct {
	Timestamp  time.Time
	Components []SwellComponent
}

// NewSwellComponentSet builds a set from unordered components, sorting by
// energy descending.
func NewSwellComponentSet(ts time.Time, components []SwellComponent) SwellComponentSet {
	sorted := make([]SwellComponent, len(components))
	copy(sorted, components)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Energy() > sorted[j].Energy()
	})
	return SwellComponentSet{Timestamp: ts, Components: sorted}
}

// BathymetryProfile holds the static nearshore parameters for one spot.
// DepthM is the typical breaking depth in meters, ShoreAngleDeg the compass
// bearing the beach faces, Slope the dimensionless bottom gradient.
type BathymetryProfile struct {
	DepthM        float64
	ShoreAngleDeg float64
	Slope         float64
}

// WaveEstimate is the nearshore breaking estimate for one forecast instant.
// Available is false when no usable swell components were supplied; the
// height is then meaningless and must not be rendered as zero feet.
type WaveEstimate struct {
	Timestamp        time.Time
	BreakingHeightFt float64
	PeriodS          float64
	Available        bool
}

// Estimate converts a set of offshore swell components into a single breaking
// wave estimate for the given spot profile. The computation is pure: identical
// inputs always produce identical outputs, so calls may run concurrently
// across spots and forecast instants.
//
// Components with non-positive period or negative height are skipped rather
// than failing the estimate; an entirely empty or invalid set yields an
// unavailable estimate.
func Estimate(set SwellComponentSet, profile BathymetryProfile) WaveEstimate {
	var sumSquares float64
	var dominantPeriod, dominantEnergy float64
	kept := 0

	for _, c := range set.Components {
		if c.PeriodS <= 0 || c.HeightM < 0 {
			continue
		}
		shoaled := c.HeightM * shoalingCoefficient(c.PeriodS, profile.DepthM)
		attenuated := shoaled * refractionFactor(c.DirectionDeg, profile.ShoreAngleDeg)
		sumSquares += attenuated * attenuated

		if e := c.Energy(); e > dominantEnergy {
			dominantEnergy = e
			dominantPeriod = c.PeriodS
		}
		kept++
	}

	if kept == 0 {
		return WaveEstimate{Timestamp: set.Timestamp}
	}

	// Energy adds across simultaneous trains; amplitude does not.
	combined := math.Sqrt(sumSquares)

	combined *= slopeFactor(profile.Slope)

	// Waves break when height approaches a fraction of the local depth,
	// regardless of how much energy arrived from offshore. The ceiling is
	// applied after the slope adjustment so nothing can push past it.
	if ceiling := breakingGamma * profile.DepthM; combined > ceiling {
		combined = ceiling
	}

	return WaveEstimate{
		Timestamp:        set.Timestamp,
		BreakingHeightFt: combined * metersToFeet,
		PeriodS:          dominantPeriod,
		Available:        true,
	}
}

// EstimateSeries applies Estimate independently to each forecast instant.
// No state is carried between instants.
func EstimateSeries(sets []SwellComponentSet, profile BathymetryProfile) []WaveEstimate {
	estimates := make([]WaveEstimate, 0, len(sets))
	for _, set := range sets {
		estimates = append(estimates, Estimate(set, profile))
	}
	return estimates
}

// shoalingCoefficient approximates the shallow-water amplification of a wave
// of the given period approaching the breaking depth, from linear wave
// theory: Ks = sqrt(Cg0/Cg) with deep-water group velocity Cg0 = g*T/(4*pi)
// and shallow-water group velocity Cg = sqrt(g*d).
func shoalingCoefficient(periodS, depthM float64) float64 {
	if depthM <= 0 {
		return shoalingMin
	}
	deepGroupVel := gravity * periodS / (4 * math.Pi)
	shallowGroupVel := math.Sqrt(gravity * depthM)
	ks := math.Sqrt(deepGroupVel / shallowGroupVel)
	return clamp(ks, shoalingMin, shoalingMax)
}

// refractionFactor reduces a component's contribution by the cosine of the
// angle between its travel direction and the incoming shore-normal (the
// beach-facing bearing rotated 180 degrees). Components arriving more than
// 90 degrees off-normal are shadowed and contribute nothing.
func refractionFactor(travelDeg, shoreAngleDeg float64) float64 {
	incomingNormal := math.Mod(shoreAngleDeg+180, 360)
	diff := angularDifference(travelDeg, incomingNormal)
	return clamp(math.Cos(diff*math.Pi/180), 0, 1)
}

// slopeFactor is a bounded multiplicative adjustment: steeper bottoms pitch
// a slightly higher peak, flatter bottoms spill earlier and lower.
func slopeFactor(slope float64) float64 {
	return clamp(1+2*slope, slopeFactorMin, slopeFactorMax)
}

// angularDifference returns the absolute difference between two compass
// bearings, in [0, 180].
func angularDifference(a, b float64) float64 {
	diff := math.Mod(a-b, 360)
	if diff < -180 {
		diff += 360
	}
	if diff > 180 {
		diff -= 360
	}
	return math.Abs(diff)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
