package store

import (
	"database/sql"
	"time"

	"github.com/saltcreek/surfcast/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) UpsertSpot(sp models.Spot) error {
	_, err := s.db.Exec(`
		INSERT INTO spots (name, latitude, longitude, county, grid_office, grid_x, grid_y,
			tide_station_id, buoy_primary, buoy_fallback, depth_m, shore_angle_deg, slope,
			timezone, stream_url, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			county = excluded.county,
			grid_office = excluded.grid_office,
			grid_x = excluded.grid_x,
			grid_y = excluded.grid_y,
			tide_station_id = excluded.tide_station_id,
			buoy_primary = excluded.buoy_primary,
			buoy_fallback = excluded.buoy_fallback,
			depth_m = excluded.depth_m,
			shore_angle_deg = excluded.shore_angle_deg,
			slope = excluded.slope,
			timezone = excluded.timezone,
			stream_url = excluded.stream_url,
			active = excluded.active
	`, sp.Name, sp.Latitude, sp.Longitude, sp.County, sp.GridOffice, sp.GridX, sp.GridY,
		sp.TideStationID, sp.BuoyPrimary, sp.BuoyFallback, sp.DepthM, sp.ShoreAngleDeg, sp.Slope,
		sp.Timezone, sp.StreamURL, sp.Active)
	return err
}

func (s *Store) GetActiveSpots() ([]models.Spot, error) {
	rows, err := s.db.Query(`
		SELECT name, latitude, longitude, county, grid_office, grid_x, grid_y,
			tide_station_id, buoy_primary, buoy_fallback, depth_m, shore_angle_deg, slope,
			timezone, stream_url, active
		FROM spots WHERE active = TRUE ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spots []models.Spot
	for rows.Next() {
		var sp models.Spot
		if err := rows.Scan(&sp.Name, &sp.Latitude, &sp.Longitude, &sp.County,
			&sp.GridOffice, &sp.GridX, &sp.GridY, &sp.TideStationID,
			&sp.BuoyPrimary, &sp.BuoyFallback, &sp.DepthM, &sp.ShoreAngleDeg,
			&sp.Slope, &sp.Timezone, &sp.StreamURL, &sp.Active); err != nil {
			return nil, err
		}
		spots = append(spots, sp)
	}
	return spots, rows.Err()
}

func (s *Store) GetSpot(name string) (*models.Spot, error) {
	var sp models.Spot
	err := s.db.QueryRow(`
		SELECT name, latitude, longitude, county, grid_office, grid_x, grid_y,
			tide_station_id, buoy_primary, buoy_fallback, depth_m, shore_angle_deg, slope,
			timezone, stream_url, active
		FROM spots WHERE name = ?
	`, name).Scan(&sp.Name, &sp.Latitude, &sp.Longitude, &sp.County,
		&sp.GridOffice, &sp.GridX, &sp.GridY, &sp.TideStationID,
		&sp.BuoyPrimary, &sp.BuoyFallback, &sp.DepthM, &sp.ShoreAngleDeg,
		&sp.Slope, &sp.Timezone, &sp.StreamURL, &sp.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

// ReplaceSwellReadings swaps out a spot's stored swell forecast for a fresh
// fetch, atomically, so readers never see a half-replaced horizon.
func (s *Store) ReplaceSwellReadings(spotName string, readings []models.SwellReading) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM swell_readings WHERE spot_name = ?`, spotName); err != nil {
		tx.Rollback()
		return err
	}
	for _, r := range readings {
		if _, err := tx.Exec(`
			INSERT INTO swell_readings (spot_name, forecast_at, rank, height_m, period_s, direction_deg, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, spotName, r.ForecastAt.UTC(), r.Rank, r.HeightM, r.PeriodS, r.DirectionDeg, r.FetchedAt.UTC()); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetSwellReadings returns a spot's stored components ordered by forecast
// instant then rank, within [from, to].
func (s *Store) GetSwellReadings(spotName string, from, to time.Time) ([]models.SwellReading, error) {
	rows, err := s.db.Query(`
		SELECT id, spot_name, forecast_at, rank, height_m, period_s, direction_deg, fetched_at
		FROM swell_readings
		WHERE spot_name = ? AND forecast_at >= ? AND forecast_at <= ?
		ORDER BY forecast_at, rank
	`, spotName, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []models.SwellReading
	for rows.Next() {
		var r models.SwellReading
		if err := rows.Scan(&r.ID, &r.SpotName, &r.ForecastAt, &r.Rank,
			&r.HeightM, &r.PeriodS, &r.DirectionDeg, &r.FetchedAt); err != nil {
			return nil, err
		}
		r.ForecastAt = r.ForecastAt.UTC()
		r.FetchedAt = r.FetchedAt.UTC()
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

func (s *Store) ReplaceTidePredictions(stationID string, preds []models.TidePrediction) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM tide_predictions WHERE station_id = ?`, stationID); err != nil {
		tx.Rollback()
		return err
	}
	for _, p := range preds {
		if _, err := tx.Exec(`
			INSERT INTO tide_predictions (station_id, time_utc, height_ft, fetched_at)
			VALUES (?, ?, ?, ?)
		`, stationID, p.TimeUTC.UTC(), p.HeightFt, p.FetchedAt.UTC()); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) GetTidePredictions(stationID string, from, to time.Time) ([]models.TidePrediction, error) {
	rows, err := s.db.Query(`
		SELECT id, station_id, time_utc, height_ft, fetched_at
		FROM tide_predictions
		WHERE station_id = ? AND time_utc >= ? AND time_utc <= ?
		ORDER BY time_utc
	`, stationID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var preds []models.TidePrediction
	for rows.Next() {
		var p models.TidePrediction
		if err := rows.Scan(&p.ID, &p.StationID, &p.TimeUTC, &p.HeightFt, &p.FetchedAt); err != nil {
			return nil, err
		}
		p.TimeUTC = p.TimeUTC.UTC()
		p.FetchedAt = p.FetchedAt.UTC()
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

func (s *Store) UpsertTideEvent(ev models.TideEventRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO tide_events (station_id, time_utc, kind, height_ft, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(station_id, time_utc) DO UPDATE SET
			kind = excluded.kind,
			height_ft = excluded.height_ft,
			fetched_at = excluded.fetched_at
	`, ev.StationID, ev.TimeUTC.UTC(), ev.Kind, ev.HeightFt, ev.FetchedAt.UTC())
	return err
}

func (s *Store) GetTideEvents(stationID string, from, to time.Time) ([]models.TideEventRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, station_id, time_utc, kind, height_ft, fetched_at
		FROM tide_events
		WHERE station_id = ? AND time_utc >= ? AND time_utc <= ?
		ORDER BY time_utc
	`, stationID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.TideEventRecord
	for rows.Next() {
		var ev models.TideEventRecord
		if err := rows.Scan(&ev.ID, &ev.StationID, &ev.TimeUTC, &ev.Kind, &ev.HeightFt, &ev.FetchedAt); err != nil {
			return nil, err
		}
		ev.TimeUTC = ev.TimeUTC.UTC()
		ev.FetchedAt = ev.FetchedAt.UTC()
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *Store) InsertBuoyObservation(obs models.BuoyObservation) error {
	_, err := s.db.Exec(`
		INSERT INTO buoy_observations (station_id, observed_at, wind_speed_mph, wind_dir_deg, wave_height_m, water_temp_f)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(station_id, observed_at) DO NOTHING
	`, obs.StationID, obs.ObservedAt.UTC(), obs.WindSpeedMph, obs.WindDirDeg, obs.WaveHeightM, obs.WaterTempF)
	return err
}

func (s *Store) GetLatestBuoyObservation(stationID string) (*models.BuoyObservation, error) {
	var obs models.BuoyObservation
	err := s.db.QueryRow(`
		SELECT id, station_id, observed_at, wind_speed_mph, wind_dir_deg, wave_height_m, water_temp_f, created_at
		FROM buoy_observations
		WHERE station_id = ?
		ORDER BY observed_at DESC
		LIMIT 1
	`, stationID).Scan(&obs.ID, &obs.StationID, &obs.ObservedAt, &obs.WindSpeedMph,
		&obs.WindDirDeg, &obs.WaveHeightM, &obs.WaterTempF, &obs.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	obs.ObservedAt = obs.ObservedAt.UTC()
	return &obs, nil
}

func (s *Store) InsertConditions(rec models.ConditionsRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO conditions (spot_name, generated_at, wave_height_ft, wave_period_s,
			tide_height_ft, tide_trend, next_tide_kind, next_tide_at, next_tide_ft,
			wind_speed_mph, wind_dir_deg, water_temp_f, raw_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(spot_name, generated_at) DO NOTHING
	`, rec.SpotName, rec.GeneratedAt.UTC(), rec.WaveHeightFt, rec.WavePeriodS,
		rec.TideHeightFt, rec.TideTrend, rec.NextTideKind, rec.NextTideAt, rec.NextTideFt,
		rec.WindSpeedMph, rec.WindDirDeg, rec.WaterTempF, rec.RawJSON)
	return err
}

func (s *Store) GetLatestConditions(spotName string) (*models.ConditionsRecord, error) {
	var rec models.ConditionsRecord
	err := s.db.QueryRow(`
		SELECT id, spot_name, generated_at, wave_height_ft, wave_period_s,
			tide_height_ft, tide_trend, next_tide_kind, next_tide_at, next_tide_ft,
			wind_speed_mph, wind_dir_deg, water_temp_f, raw_json, created_at
		FROM conditions
		WHERE spot_name = ?
		ORDER BY generated_at DESC
		LIMIT 1
	`, spotName).Scan(&rec.ID, &rec.SpotName, &rec.GeneratedAt, &rec.WaveHeightFt,
		&rec.WavePeriodS, &rec.TideHeightFt, &rec.TideTrend, &rec.NextTideKind,
		&rec.NextTideAt, &rec.NextTideFt, &rec.WindSpeedMph, &rec.WindDirDeg,
		&rec.WaterTempF, &rec.RawJSON, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.GeneratedAt = rec.GeneratedAt.UTC()
	return &rec, nil
}

// PruneConditions drops assembled records older than the cutoff.
func (s *Store) PruneConditions(before time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM conditions WHERE generated_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
