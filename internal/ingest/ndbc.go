package ingest

import (
	"bufio"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/saltcreek/surfcast/internal/httputil"
	"github.com/saltcreek/surfcast/internal/models"
)

const msToMph = 2.23694

// BuoyClient reads NDBC realtime2 standard meteorological feeds. The feed is
// a fixed-column text table, newest observation first, with "MM" marking
// missing values.
type BuoyClient struct {
	baseURL string
	client  *http.Client
}

func NewBuoyClient() *BuoyClient {
	return &BuoyClient{
		baseURL: "https://www.ndbc.noaa.gov/data/realtime2",
		client:  httputil.NewClient(),
	}
}

// FetchLatest returns the most recent observation from the station.
func (c *BuoyClient) FetchLatest(stationID string) (*models.BuoyObservation, *FetchResult, error) {
	url := fmt.Sprintf("%s/%s.txt", c.baseURL, stationID)
	result := &FetchResult{}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, result, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", httputil.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, result, fmt.Errorf("fetch buoy %s: %w", stationID, err)
	}
	defer resp.Body.Close()
	result.HTTPStatus = resp.StatusCode

	if resp.StatusCode != http.StatusOK {
		return nil, result, fmt.Errorf("fetch buoy %s: status %d", stationID, resp.StatusCode)
	}

	obs, err := parseRealtime2(resp.Body, stationID)
	if err != nil {
		return nil, result, err
	}
	result.RecordCount = 1
	return obs, result, nil
}

// FetchLatestWithFallback reads the primary buoy and fills any fields it did
// not report from the fallback. The original deployment's primary buoy drops
// water temperature for weeks at a time, so this is routine, not exceptional.
func (c *BuoyClient) FetchLatestWithFallback(primary, fallback string) (*models.BuoyObservation, error) {
	obs, _, err := c.FetchLatest(primary)
	if err != nil {
		if fallback == "" {
			return nil, err
		}
		obs, _, err = c.FetchLatest(fallback)
		return obs, err
	}

	if fallback != "" && (!obs.WindSpeedMph.Valid || !obs.WaterTempF.Valid) {
		if backup, _, err := c.FetchLatest(fallback); err == nil {
			if !obs.WindSpeedMph.Valid && backup.WindSpeedMph.Valid {
				obs.WindSpeedMph = backup.WindSpeedMph
				obs.WindDirDeg = backup.WindDirDeg
			}
			if !obs.WaterTempF.Valid && backup.WaterTempF.Valid {
				obs.WaterTempF = backup.WaterTempF
			}
		}
	}
	return obs, nil
}

// parseRealtime2 reads the first data row of an NDBC standard meteorological
// file. Columns:
//
//	YY MM DD hh mm WDIR WSPD GST WVHT DPD APD MWD PRES ATMP WTMP DEWP VIS PTDY TIDE
//
// WSPD is m/s, WVHT meters, WTMP Celsius.
func parseRealtime2(r io.Reader, stationID string) (*models.BuoyObservation, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 15 {
			return nil, fmt.Errorf("buoy %s: short data row (%d fields)", stationID, len(fields))
		}

		observedAt, err := parseBuoyTimestamp(fields[:5])
		if err != nil {
			return nil, fmt.Errorf("buoy %s: %w", stationID, err)
		}

		obs := &models.BuoyObservation{
			StationID:  stationID,
			ObservedAt: observedAt,
		}
		if v, ok := buoyValue(fields[6]); ok {
			obs.WindSpeedMph = sql.NullFloat64{Float64: v * msToMph, Valid: true}
		}
		if v, ok := buoyValue(fields[5]); ok {
			obs.WindDirDeg = sql.NullFloat64{Float64: v, Valid: true}
		}
		if v, ok := buoyValue(fields[8]); ok {
			obs.WaveHeightM = sql.NullFloat64{Float64: v, Valid: true}
		}
		if v, ok := buoyValue(fields[14]); ok {
			obs.WaterTempF = sql.NullFloat64{Float64: v*9/5 + 32, Valid: true}
		}
		return obs, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("buoy %s: read: %w", stationID, err)
	}
	return nil, fmt.Errorf("buoy %s: no data rows", stationID)
}

func parseBuoyTimestamp(fields []string) (time.Time, error) {
	var parts [5]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse timestamp field %q: %w", f, err)
		}
		parts[i] = n
	}
	return time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], 0, 0, time.UTC), nil
}

// buoyValue parses a numeric column, treating NDBC's MM and legacy -999
// sentinels as missing.
func buoyValue(field string) (float64, bool) {
	if field == "MM" {
		return 0, false
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, false
	}
	if v <= -99 {
		return 0, false
	}
	return v, true
}
