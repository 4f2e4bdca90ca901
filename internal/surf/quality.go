package surf

import "time"

// Quality is a categorized surf rating for a forecast day.
type Quality string

const (
	QualityGood     Quality = "Good"
	QualityFair     Quality = "Fair"
	QualityPoorFair Quality = "Poor-Fair"
	QualityPoor     Quality = "Poor"
)

// DailySummary aggregates a wave series over one local calendar day.
type DailySummary struct {
	Date        time.Time
	DayName     string
	MinHeightFt float64
	MaxHeightFt float64
	AvgHeightFt float64
	AvgPeriodS  float64
	Quality     Quality
}

// RateQuality categorizes a day's surf from its average breaking height and
// dominant period.
func RateQuality(avgHeightFt, avgPeriodS float64) Quality {
	switch {
	case avgHeightFt >= 4.0 && avgPeriodS >= 12:
		return QualityGood
	case avgHeightFt >= 2.5 && avgPeriodS >= 10:
		return QualityFair
	case avgHeightFt >= 1.5:
		return QualityPoorFair
	default:
		return QualityPoor
	}
}

// SummarizeDays groups a wave series by local calendar day and rates each
// day. Unavailable estimates are excluded from the averages; a day with no
// usable estimates is dropped entirely.
func SummarizeDays(waves []WaveEstimate, loc *time.Location) []DailySummary {
	type acc struct {
		date       time.Time
		minH, maxH float64
		sumH, sumP float64
		count      int
	}
	var days []*acc
	var current *acc

	for _, w := range waves {
		if !w.Available {
			continue
		}
		local := w.Timestamp.In(loc)
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		if current == nil || !current.date.Equal(day) {
			current = &acc{date: day}
			days = append(days, current)
		}
		if current.count == 0 || w.BreakingHeightFt < current.minH {
			current.minH = w.BreakingHeightFt
		}
		if w.BreakingHeightFt > current.maxH {
			current.maxH = w.BreakingHeightFt
		}
		current.sumH += w.BreakingHeightFt
		current.sumP += w.PeriodS
		current.count++
	}

	summaries := make([]DailySummary, 0, len(days))
	for _, d := range days {
		if d.count == 0 {
			continue
		}
		avgH := d.sumH / float64(d.count)
		avgP := d.sumP / float64(d.count)
		summaries = append(summaries, DailySummary{
			Date:        d.date,
			DayName:     d.date.Format("Monday"),
			MinHeightFt: d.minH,
			MaxHeightFt: d.maxH,
			AvgHeightFt: avgH,
			AvgPeriodS:  avgP,
			Quality:     RateQuality(avgH, avgP),
		})
	}
	return summaries
}

var compassPoints = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// Compass converts a bearing in degrees to a 16-point compass direction.
func Compass(degrees float64) string {
	idx := int(degrees/22.5+0.5) % 16
	if idx < 0 {
		idx += 16
	}
	return compassPoints[idx]
}

// WindStrength buckets a wind speed in mph into a descriptive label.
func WindStrength(speedMph float64) string {
	switch {
	case speedMph < 5:
		return "Light"
	case speedMph < 15:
		return "Moderate"
	case speedMph < 25:
		return "Strong"
	default:
		return "Very Strong"
	}
}

// TideEventQuality labels a predicted high or low tide by how pronounced it
// is: big highs and drained lows are the interesting ones.
func TideEventQuality(kind TideEventKind, heightFt float64) string {
	if kind == TideHigh {
		switch {
		case heightFt > 6.0:
			return "Excellent"
		case heightFt > 5.0:
			return "Good"
		case heightFt > 4.0:
			return "Fair"
		default:
			return "Poor"
		}
	}
	switch {
	case heightFt < 0.5:
		return "Excellent"
	case heightFt < 1.0:
		return "Good"
	case heightFt < 1.5:
		return "Fair"
	default:
		return "Poor"
	}
}
