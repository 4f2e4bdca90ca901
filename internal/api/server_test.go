package api_test

import (
	"database/sql"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/saltcreek/surfcast/internal/api"
	"github.com/saltcreek/surfcast/internal/models"
	"github.com/saltcreek/surfcast/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	s := store.New(db)
	if err := s.Migrate(); err != nil {
		t.Fatal(err)
	}
	return s
}

func seedSpot(t *testing.T, s *store.Store) models.Spot {
	t.Helper()
	spot := models.Spot{
		Name:          "Tamarack",
		Latitude:      33.1466,
		Longitude:     -117.3458,
		County:        "San Diego",
		GridOffice:    "SGX",
		GridX:         38,
		GridY:         29,
		TideStationID: "9410230",
		BuoyPrimary:   "46225",
		DepthM:        3.0,
		ShoreAngleDeg: 90,
		Slope:         0.02,
		Timezone:      "America/Los_Angeles",
		Active:        true,
	}
	if err := s.UpsertSpot(spot); err != nil {
		t.Fatal(err)
	}
	return spot
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	s := setupTestStore(t)
	seedSpot(t, s)
	srv := api.NewServer(s, "8080")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var health api.HealthStatus
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("expected status ok, got %q", health.Status)
	}
	if len(health.Spots) != 1 {
		t.Fatalf("expected 1 spot, got %d", len(health.Spots))
	}
	if !health.Spots[0].Stale {
		t.Error("spot with no conditions should report stale")
	}
}

func TestSpotsEndpoint(t *testing.T) {
	t.Parallel()
	s := setupTestStore(t)
	seedSpot(t, s)
	srv := api.NewServer(s, "8080")

	req := httptest.NewRequest("GET", "/api/spots", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var spots []api.SpotSummary
	if err := json.Unmarshal(w.Body.Bytes(), &spots); err != nil {
		t.Fatalf("decode spots: %v", err)
	}
	if len(spots) != 1 || spots[0].Name != "Tamarack" {
		t.Errorf("unexpected spots payload: %+v", spots)
	}
}

func TestCurrentEndpoint(t *testing.T) {
	t.Parallel()
	s := setupTestStore(t)
	seedSpot(t, s)
	srv := api.NewServer(s, "8080")

	now := time.Date(2026, 8, 31, 18, 0, 0, 0, time.UTC)
	rec := models.ConditionsRecord{
		SpotName:     "Tamarack",
		GeneratedAt:  now,
		WaveHeightFt: sql.NullFloat64{Float64: 4.2, Valid: true},
		WavePeriodS:  sql.NullFloat64{Float64: 14, Valid: true},
		TideHeightFt: sql.NullFloat64{Float64: 2.3, Valid: true},
		TideTrend:    sql.NullString{String: "rising", Valid: true},
		NextTideKind: sql.NullString{String: "high", Valid: true},
		NextTideAt:   sql.NullTime{Time: now.Add(3 * time.Hour), Valid: true},
		NextTideFt:   sql.NullFloat64{Float64: 5.4, Valid: true},
		WindSpeedMph: sql.NullFloat64{Float64: 10, Valid: true},
		WindDirDeg:   sql.NullFloat64{Float64: 180, Valid: true},
		WaterTempF:   sql.NullFloat64{Float64: 68, Valid: true},
		RawJSON:      "{}",
	}
	if err := s.InsertConditions(rec); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/api/spots/Tamarack/current", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var cc api.CurrentConditions
	if err := json.Unmarshal(w.Body.Bytes(), &cc); err != nil {
		t.Fatalf("decode current: %v", err)
	}
	if cc.WaveHeightFt == nil || *cc.WaveHeightFt != 4.2 {
		t.Errorf("wave height = %v, want 4.2", cc.WaveHeightFt)
	}
	if cc.WindCompass == nil || *cc.WindCompass != "S" {
		t.Errorf("wind compass = %v, want S", cc.WindCompass)
	}
	if cc.WindStrength == nil || *cc.WindStrength != "Moderate" {
		t.Errorf("wind strength = %v, want Moderate", cc.WindStrength)
	}
	if cc.WindSpeedKts == nil || *cc.WindSpeedKts < 8.6 || *cc.WindSpeedKts > 8.8 {
		t.Errorf("wind knots = %v, want ~8.69", cc.WindSpeedKts)
	}
	if cc.NextTide == nil || cc.NextTide.Kind != "high" || cc.NextTide.Quality != "Good" {
		t.Errorf("next tide = %+v, want 5.4ft high rated Good", cc.NextTide)
	}
	if cc.WaterTempC == nil || *cc.WaterTempC < 19.9 || *cc.WaterTempC > 20.1 {
		t.Errorf("water temp C = %v, want 20", cc.WaterTempC)
	}
}

func TestCurrentEndpointMissingInputsStayNull(t *testing.T) {
	t.Parallel()
	s := setupTestStore(t)
	seedSpot(t, s)
	srv := api.NewServer(s, "8080")

	rec := models.ConditionsRecord{
		SpotName:    "Tamarack",
		GeneratedAt: time.Now().UTC(),
		RawJSON:     "{}",
	}
	if err := s.InsertConditions(rec); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/api/spots/Tamarack/current", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	body := w.Body.String()
	for _, field := range []string{`"wave_height_ft":null`, `"tide_height_ft":null`, `"wind_speed_mph":null`} {
		if !strings.Contains(body, field) {
			t.Errorf("expected %s in response, got: %s", field, body)
		}
	}
}

func TestCurrentEndpointUnknownSpot(t *testing.T) {
	t.Parallel()
	s := setupTestStore(t)
	srv := api.NewServer(s, "8080")

	req := httptest.NewRequest("GET", "/api/spots/Nowhere/current", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 404 {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestForecastEndpoint(t *testing.T) {
	t.Parallel()
	s := setupTestStore(t)
	seedSpot(t, s)
	srv := api.NewServer(s, "8080")

	now := time.Now().UTC().Truncate(time.Hour)
	var readings []models.SwellReading
	for i := 0; i < 12; i++ {
		readings = append(readings, models.SwellReading{
			SpotName:     "Tamarack",
			ForecastAt:   now.Add(time.Duration(i) * time.Hour),
			Rank:         0,
			HeightM:      1.3,
			PeriodS:      13,
			DirectionDeg: 270,
			FetchedAt:    now,
		})
	}
	if err := s.ReplaceSwellReadings("Tamarack", readings); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/api/spots/Tamarack/forecast", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var data api.ForecastData
	if err := json.Unmarshal(w.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode forecast: %v", err)
	}
	if len(data.ChartTimes) != 12 || len(data.ChartFt) != 12 {
		t.Fatalf("chart arrays = %d/%d points, want 12/12", len(data.ChartTimes), len(data.ChartFt))
	}
	if data.ChartFt[0] == nil || *data.ChartFt[0] <= 0 {
		t.Errorf("first chart point = %v, want positive height", data.ChartFt[0])
	}
	if len(data.Days) == 0 {
		t.Fatal("expected at least one day summary")
	}
	if data.Days[0].MaxHeightFt < data.Days[0].MinHeightFt {
		t.Errorf("day summary min %f > max %f", data.Days[0].MinHeightFt, data.Days[0].MaxHeightFt)
	}
}

func TestIndexPage(t *testing.T) {
	t.Parallel()
	s := setupTestStore(t)
	seedSpot(t, s)
	srv := api.NewServer(s, "8080")

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Tamarack") {
		t.Error("expected spot name in index page")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	s := setupTestStore(t)
	srv := api.NewServer(s, "8080")

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
