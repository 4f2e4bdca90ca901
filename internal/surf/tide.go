package surf

import (
	"errors"
	"sort"
	"time"
)

// TideTrend is the direction the tide is moving at a query instant.
type TideTrend string

const (
	TrendRising  TideTrend = "rising"
	TrendFalling TideTrend = "falling"
	TrendSlack   TideTrend = "slack"
)

// TideEventKind distinguishes high from low tide events.
type TideEventKind string

const (
	TideHigh TideEventKind = "high"
	TideLow  TideEventKind = "low"
)

// Height change below this (in feet, over the lookback interval) is
// reported as slack water.
const slackEpsilonFt = 0.05

// Trend lookback never exceeds this, however sparse the curve is.
const maxTrendLookback = 30 * time.Minute

// TideSample is a single predicted water level.
type TideSample struct {
	Time     time.Time
	HeightFt float64
}

// TideCurve is a sequence of predicted tide samples ordered by strictly
// increasing timestamp. It is immutable input to AnalyzeTide.
type TideCurve []TideSample

// TideEvent is a predicted high or low tide.
type TideEvent struct {
	Kind     TideEventKind
	Time     time.Time
	HeightFt float64
}

// TideState is the derived tide picture at one query instant. NextEvent is
// nil when the curve ends before the next extremum; height and trend remain
// valid in that case.
type TideState struct {
	HeightFt  float64
	Trend     TideTrend
	NextEvent *TideEvent
}

var (
	// ErrEmptyCurve is returned when the curve has no samples.
	ErrEmptyCurve = errors.New("tide curve is empty")

	// ErrOutOfRange is returned when the query time falls outside the
	// curve's span. Callers must supply a curve covering the query time;
	// extrapolating past the ends would fabricate data.
	ErrOutOfRange = errors.New("query time outside tide curve range")
)

// AnalyzeTide derives the instantaneous tide height, trend, and next
// high/low event from a predicted curve at the given instant.
//
// Height is linearly interpolated between the two bracketing samples, an
// approximation whose error grows with the square of the sample spacing;
// six-minute or hourly CO-OPS predictions keep it well under display
// precision. The query time must lie within the curve's span.
func AnalyzeTide(curve TideCurve, at time.Time) (TideState, error) {
	if len(curve) == 0 {
		return TideState{}, ErrEmptyCurve
	}
	first, last := curve[0].Time, curve[len(curve)-1].Time
	if at.Before(first) || at.After(last) {
		return TideState{}, ErrOutOfRange
	}

	height := interpolate(curve, at)

	state := TideState{
		HeightFt:  height,
		Trend:     trendAt(curve, at, height),
		NextEvent: nextExtremum(curve, at),
	}
	return state, nil
}

// interpolate returns the linearly interpolated height at t, which must lie
// within the curve's span.
func interpolate(curve TideCurve, t time.Time) float64 {
	// First sample strictly after t.
	i := sort.Search(len(curve), func(i int) bool {
		return curve[i].Time.After(t)
	})
	if i == 0 {
		return curve[0].HeightFt
	}
	if i == len(curve) {
		return curve[len(curve)-1].HeightFt
	}

	prev, next := curve[i-1], curve[i]
	span := next.Time.Sub(prev.Time).Seconds()
	if span <= 0 {
		return prev.HeightFt
	}
	progress := t.Sub(prev.Time).Seconds() / span
	return prev.HeightFt + (next.HeightFt-prev.HeightFt)*progress
}

// trendAt classifies the tide direction by comparing the interpolated height
// against a point one sample-interval back (capped), with a small epsilon
// band reported as slack.
func trendAt(curve TideCurve, at time.Time, height float64) TideTrend {
	lookback := sampleInterval(curve, at)
	if lookback > maxTrendLookback {
		lookback = maxTrendLookback
	}
	back := at.Add(-lookback)
	if back.Before(curve[0].Time) {
		back = curve[0].Time
	}

	delta := height - interpolate(curve, back)
	switch {
	case delta > slackEpsilonFt:
		return TrendRising
	case delta < -slackEpsilonFt:
		return TrendFalling
	default:
		return TrendSlack
	}
}

// sampleInterval returns the spacing of the samples bracketing t, falling
// back to the curve's first interval at the edges.
func sampleInterval(curve TideCurve, t time.Time) time.Duration {
	i := sort.Search(len(curve), func(i int) bool {
		return curve[i].Time.After(t)
	})
	if i > 0 && i < len(curve) {
		return curve[i].Time.Sub(curve[i-1].Time)
	}
	if len(curve) > 1 {
		return curve[1].Time.Sub(curve[0].Time)
	}
	return maxTrendLookback
}

// nextExtremum scans forward from at for the first local maximum or minimum,
// whichever comes first chronologically. Detection is by sign change of the
// discrete slope between consecutive samples; flat stretches are skipped
// until a strict inequality resolves the extremum, so plateaus do not
// produce false events. Returns nil when the curve ends before an extremum
// is found.
func nextExtremum(curve TideCurve, at time.Time) *TideEvent {
	prevSign := 0
	for i := 0; i+1 < len(curve); i++ {
		s := slopeSign(curve[i].HeightFt, curve[i+1].HeightFt)
		if s == 0 {
			continue
		}
		if prevSign != 0 && s != prevSign && curve[i].Time.After(at) {
			kind := TideLow
			if prevSign > 0 {
				kind = TideHigh
			}
			return &TideEvent{Kind: kind, Time: curve[i].Time, HeightFt: curve[i].HeightFt}
		}
		prevSign = s
	}
	return nil
}

func slopeSign(a, b float64) int {
	switch {
	case b > a:
		return 1
	case b < a:
		return -1
	default:
		return 0
	}
}
