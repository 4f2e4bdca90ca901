package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS spots (
    name TEXT PRIMARY KEY,
    latitude REAL,
    longitude REAL,
    county TEXT,
    grid_office TEXT,
    grid_x INTEGER,
    grid_y INTEGER,
    tide_station_id TEXT,
    buoy_primary TEXT,
    buoy_fallback TEXT,
    depth_m REAL,
    shore_angle_deg REAL,
    slope REAL,
    timezone TEXT,
    stream_url TEXT,
    active BOOLEAN DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS swell_readings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    spot_name TEXT NOT NULL,
    forecast_at DATETIME NOT NULL,
    rank INTEGER NOT NULL,
    height_m REAL NOT NULL,
    period_s REAL NOT NULL,
    direction_deg REAL NOT NULL,
    fetched_at DATETIME NOT NULL,
    UNIQUE(spot_name, forecast_at, rank)
);

CREATE TABLE IF NOT EXISTS tide_predictions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    station_id TEXT NOT NULL,
    time_utc DATETIME NOT NULL,
    height_ft REAL NOT NULL,
    fetched_at DATETIME NOT NULL,
    UNIQUE(station_id, time_utc)
);

CREATE TABLE IF NOT EXISTS tide_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    station_id TEXT NOT NULL,
    time_utc DATETIME NOT NULL,
    kind TEXT NOT NULL,
    height_ft REAL NOT NULL,
    fetched_at DATETIME NOT NULL,
    UNIQUE(station_id, time_utc)
);

CREATE TABLE IF NOT EXISTS buoy_observations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    station_id TEXT NOT NULL,
    observed_at DATETIME NOT NULL,
    wind_speed_mph REAL,
    wind_dir_deg REAL,
    wave_height_m REAL,
    water_temp_f REAL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(station_id, observed_at)
);

CREATE TABLE IF NOT EXISTS conditions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    spot_name TEXT NOT NULL,
    generated_at DATETIME NOT NULL,
    wave_height_ft REAL,
    wave_period_s REAL,
    tide_height_ft REAL,
    tide_trend TEXT,
    next_tide_kind TEXT,
    next_tide_at DATETIME,
    next_tide_ft REAL,
    wind_speed_mph REAL,
    wind_dir_deg REAL,
    water_temp_f REAL,
    raw_json TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(spot_name, generated_at)
);

CREATE TABLE IF NOT EXISTS ingest_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at DATETIME NOT NULL,
    finished_at DATETIME,
    source TEXT NOT NULL,
    endpoint TEXT NOT NULL,
    station_id TEXT,
    spot_name TEXT,
    http_status INTEGER,
    records_parsed INTEGER,
    records_stored INTEGER,
    success BOOLEAN DEFAULT FALSE,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_swell_spot_time ON swell_readings(spot_name, forecast_at);
CREATE INDEX IF NOT EXISTS idx_tide_pred_station_time ON tide_predictions(station_id, time_utc);
CREATE INDEX IF NOT EXISTS idx_tide_events_station_time ON tide_events(station_id, time_utc);
CREATE INDEX IF NOT EXISTS idx_buoy_station_time ON buoy_observations(station_id, observed_at);
CREATE INDEX IF NOT EXISTS idx_conditions_spot_time ON conditions(spot_name, generated_at);
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
