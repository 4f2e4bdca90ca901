package models

import (
	"database/sql"
	"time"
)

// Spot is a configured surf break: where it is, which upstream stations feed
// it, and the static bathymetry the wave engine uses.
type Spot struct {
	Name          string
	Latitude      float64
	Longitude     float64
	County        string
	GridOffice    string // NOAA forecast office, e.g. "SGX"
	GridX         int
	GridY         int
	TideStationID string // CO-OPS station, e.g. "9410230"
	BuoyPrimary   string // NDBC station, e.g. "46225"
	BuoyFallback  string
	DepthM        float64
	ShoreAngleDeg float64
	Slope         float64
	Timezone      string
	StreamURL     sql.NullString
	Active        bool
}

// SwellReading is one stored swell component at one forecast instant. Rows
// sharing (spot, forecast_at) reconstruct the component set for that instant.
type SwellReading struct {
	ID           int64
	SpotName     string
	ForecastAt   time.Time
	Rank         int // energy order within the instant, 0 = dominant
	HeightM      float64
	PeriodS      float64
	DirectionDeg float64
	FetchedAt    time.Time
}

// TidePrediction is one stored continuous water-level prediction.
type TidePrediction struct {
	ID        int64
	StationID string
	TimeUTC   time.Time
	HeightFt  float64
	FetchedAt time.Time
}

// TideEventRecord is a stored predicted high or low tide.
type TideEventRecord struct {
	ID        int64
	StationID string
	TimeUTC   time.Time
	Kind      string // "high" or "low"
	HeightFt  float64
	FetchedAt time.Time
}

// BuoyObservation is the latest reading from an NDBC buoy. Fields the buoy
// did not report stay invalid rather than defaulting to zero.
type BuoyObservation struct {
	ID           int64
	StationID    string
	ObservedAt   time.Time
	WindSpeedMph sql.NullFloat64
	WindDirDeg   sql.NullFloat64
	WaveHeightM  sql.NullFloat64
	WaterTempF   sql.NullFloat64
	CreatedAt    time.Time
}

// ConditionsRecord is a persisted assembled surf report for one spot.
type ConditionsRecord struct {
	ID           int64
	SpotName     string
	GeneratedAt  time.Time
	WaveHeightFt sql.NullFloat64
	WavePeriodS  sql.NullFloat64
	TideHeightFt sql.NullFloat64
	TideTrend    sql.NullString
	NextTideKind sql.NullString
	NextTideAt   sql.NullTime
	NextTideFt   sql.NullFloat64
	WindSpeedMph sql.NullFloat64
	WindDirDeg   sql.NullFloat64
	WaterTempF   sql.NullFloat64
	RawJSON      string
	CreatedAt    time.Time
}
