package surf

import (
	"database/sql"
	"time"
)

const mphToKnots = 0.868976

// WindReading is a passthrough buoy wind observation.
type WindReading struct {
	Time         time.Time
	SpeedMph     float64
	DirectionDeg float64
}

// TempReading is a passthrough buoy water temperature observation.
type TempReading struct {
	Time       time.Time
	WaterTempF float64
}

// SurfConditionsRecord is the assembled per-spot output: current conditions
// plus the forecast series. Every numeric field is either a valid finite
// value or invalid ("no data") -- a zero with Valid=false must never be
// rendered as a physical zero, since zero feet and zero knots are real
// readings.
type SurfConditionsRecord struct {
	GeneratedAt time.Time

	WaveHeightFt sql.NullFloat64
	WavePeriodS  sql.NullFloat64

	TideHeightFt sql.NullFloat64
	TideTrend    sql.NullString
	NextTide     *TideEvent

	WindSpeedMph sql.NullFloat64
	WindSpeedKts sql.NullFloat64
	WindDirDeg   sql.NullFloat64
	WindCompass  sql.NullString
	WindStrength sql.NullString

	WaterTempF sql.NullFloat64
	WaterTempC sql.NullFloat64

	Forecast []WaveEstimate
}

// Assemble merges the engine and analyzer outputs with optional passthrough
// readings into one record. It is a pure merge: no I/O, no retries, no
// clock reads -- the caller supplies the reference instant. Missing inputs
// (nil tide/wind/temp, or an unavailable wave estimate at the matching
// instant) propagate as invalid fields while the rest of the record stays
// populated.
func Assemble(now time.Time, waves []WaveEstimate, tide *TideState, wind *WindReading, temp *TempReading) SurfConditionsRecord {
	rec := SurfConditionsRecord{
		GeneratedAt: now,
		Forecast:    append([]WaveEstimate(nil), waves...),
	}

	if est := closestEstimate(waves, now); est != nil && est.Available {
		rec.WaveHeightFt = sql.NullFloat64{Float64: est.BreakingHeightFt, Valid: true}
		rec.WavePeriodS = sql.NullFloat64{Float64: est.PeriodS, Valid: true}
	}

	if tide != nil {
		rec.TideHeightFt = sql.NullFloat64{Float64: tide.HeightFt, Valid: true}
		rec.TideTrend = sql.NullString{String: string(tide.Trend), Valid: true}
		if tide.NextEvent != nil {
			ev := *tide.NextEvent
			rec.NextTide = &ev
		}
	}

	if wind != nil {
		rec.WindSpeedMph = sql.NullFloat64{Float64: wind.SpeedMph, Valid: true}
		rec.WindSpeedKts = sql.NullFloat64{Float64: wind.SpeedMph * mphToKnots, Valid: true}
		rec.WindDirDeg = sql.NullFloat64{Float64: wind.DirectionDeg, Valid: true}
		rec.WindCompass = sql.NullString{String: Compass(wind.DirectionDeg), Valid: true}
		rec.WindStrength = sql.NullString{String: WindStrength(wind.SpeedMph), Valid: true}
	}

	if temp != nil {
		rec.WaterTempF = sql.NullFloat64{Float64: temp.WaterTempF, Valid: true}
		rec.WaterTempC = sql.NullFloat64{Float64: (temp.WaterTempF - 32) * 5 / 9, Valid: true}
	}

	return rec
}

// closestEstimate returns the estimate whose timestamp is nearest to now,
// or nil for an empty series.
func closestEstimate(waves []WaveEstimate, now time.Time) *WaveEstimate {
	var best *WaveEstimate
	var bestDiff time.Duration
	for i := range waves {
		diff := absDuration(waves[i].Timestamp.Sub(now))
		if best == nil || diff < bestDiff {
			best = &waves[i]
			bestDiff = diff
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
