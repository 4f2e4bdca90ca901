package api

import (
	"time"

	"github.com/saltcreek/surfcast/internal/models"
	"github.com/saltcreek/surfcast/internal/surf"
)

// SpotSummary is the listing entry for a configured spot.
type SpotSummary struct {
	Name          string  `json:"name"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	County        string  `json:"county,omitempty"`
	TideStationID string  `json:"tide_station_id,omitempty"`
	BuoyPrimary   string  `json:"buoy_primary,omitempty"`
	StreamURL     string  `json:"stream_url,omitempty"`
}

// CurrentConditions is the JSON shape for a spot's latest assembled record.
// Pointer fields are null when the underlying input was missing or stale at
// assembly time; zero is a real reading and is never used as a placeholder.
type CurrentConditions struct {
	Spot        string    `json:"spot"`
	GeneratedAt time.Time `json:"generated_at"`

	WaveHeightFt *float64 `json:"wave_height_ft"`
	WavePeriodS  *float64 `json:"wave_period_s"`

	TideHeightFt *float64   `json:"tide_height_ft"`
	TideTrend    *string    `json:"tide_trend"`
	NextTide     *TideEvent `json:"next_tide"`

	WindSpeedMph *float64 `json:"wind_speed_mph"`
	WindSpeedKts *float64 `json:"wind_speed_kts"`
	WindDirDeg   *float64 `json:"wind_dir_deg"`
	WindCompass  *string  `json:"wind_compass"`
	WindStrength *string  `json:"wind_strength"`

	WaterTempF *float64 `json:"water_temp_f"`
	WaterTempC *float64 `json:"water_temp_c"`
}

type TideEvent struct {
	Time     time.Time `json:"time"`
	Kind     string    `json:"kind"`
	HeightFt float64   `json:"height_ft"`
	Quality  string    `json:"quality"`
}

// ForecastData is the JSON shape for a spot's forecast: daily summaries plus
// parallel hourly arrays for charting.
type ForecastData struct {
	Spot       string       `json:"spot"`
	Days       []DaySummary `json:"days"`
	ChartTimes []time.Time  `json:"chart_times"`
	ChartFt    []*float64   `json:"chart_ft"`
	TideEvents []TideEvent  `json:"tide_events"`
}

type DaySummary struct {
	Date        string  `json:"date"`
	MinHeightFt float64 `json:"min_height_ft"`
	MaxHeightFt float64 `json:"max_height_ft"`
	AvgHeightFt float64 `json:"avg_height_ft"`
	AvgPeriodS  float64 `json:"avg_period_s"`
	Quality     string  `json:"quality"`
}

func spotSummaryFrom(sp models.Spot) SpotSummary {
	out := SpotSummary{
		Name:          sp.Name,
		Latitude:      sp.Latitude,
		Longitude:     sp.Longitude,
		County:        sp.County,
		TideStationID: sp.TideStationID,
		BuoyPrimary:   sp.BuoyPrimary,
	}
	if sp.StreamURL.Valid {
		out.StreamURL = sp.StreamURL.String
	}
	return out
}

// currentConditionsFrom maps a stored row to the API shape, deriving the
// display fields (compass, strength, knots, Celsius) from the raw values.
func currentConditionsFrom(rec models.ConditionsRecord) CurrentConditions {
	out := CurrentConditions{
		Spot:        rec.SpotName,
		GeneratedAt: rec.GeneratedAt,
	}

	if rec.WaveHeightFt.Valid {
		out.WaveHeightFt = ptr(rec.WaveHeightFt.Float64)
	}
	if rec.WavePeriodS.Valid {
		out.WavePeriodS = ptr(rec.WavePeriodS.Float64)
	}
	if rec.TideHeightFt.Valid {
		out.TideHeightFt = ptr(rec.TideHeightFt.Float64)
	}
	if rec.TideTrend.Valid {
		trend := rec.TideTrend.String
		out.TideTrend = &trend
	}
	if rec.NextTideKind.Valid && rec.NextTideAt.Valid && rec.NextTideFt.Valid {
		out.NextTide = &TideEvent{
			Time:     rec.NextTideAt.Time,
			Kind:     rec.NextTideKind.String,
			HeightFt: rec.NextTideFt.Float64,
			Quality:  surf.TideEventQuality(surf.TideEventKind(rec.NextTideKind.String), rec.NextTideFt.Float64),
		}
	}
	if rec.WindSpeedMph.Valid {
		mph := rec.WindSpeedMph.Float64
		out.WindSpeedMph = ptr(mph)
		out.WindSpeedKts = ptr(mph * 0.868976)
		strength := surf.WindStrength(mph)
		out.WindStrength = &strength
	}
	if rec.WindDirDeg.Valid {
		out.WindDirDeg = ptr(rec.WindDirDeg.Float64)
		compass := surf.Compass(rec.WindDirDeg.Float64)
		out.WindCompass = &compass
	}
	if rec.WaterTempF.Valid {
		f := rec.WaterTempF.Float64
		out.WaterTempF = ptr(f)
		out.WaterTempC = ptr((f - 32) * 5 / 9)
	}
	return out
}

func ptr(f float64) *float64 {
	return &f
}
