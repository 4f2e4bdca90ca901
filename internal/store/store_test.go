package store

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/saltcreek/surfcast/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := New(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func testSpot() models.Spot {
	return models.Spot{
		Name:          "Tamarack",
		Latitude:      33.1466,
		Longitude:     -117.3458,
		County:        "San Diego",
		GridOffice:    "SGX",
		GridX:         38,
		GridY:         29,
		TideStationID: "9410230",
		BuoyPrimary:   "46225",
		BuoyFallback:  "46232",
		DepthM:        3.0,
		ShoreAngleDeg: 225,
		Slope:         0.02,
		Timezone:      "America/Los_Angeles",
		Active:        true,
	}
}

func TestUpsertAndGetSpot(t *testing.T) {
	store := setupTestStore(t)

	if err := store.UpsertSpot(testSpot()); err != nil {
		t.Fatalf("upsert spot: %v", err)
	}

	spots, err := store.GetActiveSpots()
	if err != nil {
		t.Fatalf("get active spots: %v", err)
	}
	if len(spots) != 1 {
		t.Fatalf("spots: got %d, want 1", len(spots))
	}
	if spots[0].TideStationID != "9410230" {
		t.Errorf("tide station: got %s", spots[0].TideStationID)
	}

	// Upsert updates in place.
	sp := testSpot()
	sp.DepthM = 4.5
	if err := store.UpsertSpot(sp); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, err := store.GetSpot("Tamarack")
	if err != nil {
		t.Fatalf("get spot: %v", err)
	}
	if got == nil || got.DepthM != 4.5 {
		t.Errorf("depth after upsert: got %+v", got)
	}

	missing, err := store.GetSpot("nowhere")
	if err != nil {
		t.Fatalf("get missing spot: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing spot, got %+v", missing)
	}
}

func TestSwellReadingsRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	readings := []models.SwellReading{
		{SpotName: "Tamarack", ForecastAt: now, Rank: 0, HeightM: 1.2, PeriodS: 12, DirectionDeg: 270, FetchedAt: now},
		{SpotName: "Tamarack", ForecastAt: now, Rank: 1, HeightM: 0.4, PeriodS: 7, DirectionDeg: 200, FetchedAt: now},
		{SpotName: "Tamarack", ForecastAt: now.Add(3 * time.Hour), Rank: 0, HeightM: 1.3, PeriodS: 12, DirectionDeg: 272, FetchedAt: now},
	}
	if err := store.ReplaceSwellReadings("Tamarack", readings); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := store.GetSwellReadings("Tamarack", now, now.Add(6*time.Hour))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("readings: got %d, want 3", len(got))
	}
	if got[0].Rank != 0 || got[1].Rank != 1 {
		t.Errorf("rank ordering broken: %+v", got)
	}
	if !got[2].ForecastAt.Equal(now.Add(3 * time.Hour)) {
		t.Errorf("forecast time: got %v", got[2].ForecastAt)
	}

	// A fresh replace drops the stale horizon entirely.
	fresh := []models.SwellReading{
		{SpotName: "Tamarack", ForecastAt: now.Add(6 * time.Hour), Rank: 0, HeightM: 2, PeriodS: 14, DirectionDeg: 270, FetchedAt: now.Add(time.Hour)},
	}
	if err := store.ReplaceSwellReadings("Tamarack", fresh); err != nil {
		t.Fatalf("second replace: %v", err)
	}
	got, err = store.GetSwellReadings("Tamarack", now, now.Add(12*time.Hour))
	if err != nil {
		t.Fatalf("get after replace: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("after replace: got %d readings, want 1", len(got))
	}
}

func TestTidePredictionsRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	now := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	var preds []models.TidePrediction
	for i := 0; i < 5; i++ {
		preds = append(preds, models.TidePrediction{
			StationID: "9410230",
			TimeUTC:   now.Add(time.Duration(i) * time.Hour),
			HeightFt:  float64(i),
			FetchedAt: now,
		})
	}
	if err := store.ReplaceTidePredictions("9410230", preds); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := store.GetTidePredictions("9410230", now.Add(time.Hour), now.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("window: got %d predictions, want 3", len(got))
	}
	if got[0].HeightFt != 1 || got[2].HeightFt != 3 {
		t.Errorf("window contents wrong: %+v", got)
	}
}

func TestTideEventsUpsert(t *testing.T) {
	store := setupTestStore(t)
	now := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)

	ev := models.TideEventRecord{StationID: "9410230", TimeUTC: now, Kind: "high", HeightFt: 5.8, FetchedAt: now}
	if err := store.UpsertTideEvent(ev); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	ev.HeightFt = 5.9
	if err := store.UpsertTideEvent(ev); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	events, err := store.GetTideEvents("9410230", now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events: got %d, want 1", len(events))
	}
	if events[0].HeightFt != 5.9 {
		t.Errorf("height not updated: got %v", events[0].HeightFt)
	}
}

func TestBuoyObservations(t *testing.T) {
	store := setupTestStore(t)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	older := models.BuoyObservation{
		StationID:    "46225",
		ObservedAt:   now.Add(-time.Hour),
		WindSpeedMph: sql.NullFloat64{Float64: 10, Valid: true},
	}
	newer := models.BuoyObservation{
		StationID:  "46225",
		ObservedAt: now,
		WaterTempF: sql.NullFloat64{Float64: 68, Valid: true},
	}
	if err := store.InsertBuoyObservation(older); err != nil {
		t.Fatalf("insert older: %v", err)
	}
	if err := store.InsertBuoyObservation(newer); err != nil {
		t.Fatalf("insert newer: %v", err)
	}

	got, err := store.GetLatestBuoyObservation("46225")
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if got == nil {
		t.Fatal("expected an observation")
	}
	if !got.ObservedAt.Equal(now) {
		t.Errorf("latest: got %v, want %v", got.ObservedAt, now)
	}
	if got.WindSpeedMph.Valid {
		t.Error("wind should be invalid on the newer observation")
	}
	if !got.WaterTempF.Valid || got.WaterTempF.Float64 != 68 {
		t.Errorf("water temp: got %+v", got.WaterTempF)
	}

	none, err := store.GetLatestBuoyObservation("46086")
	if err != nil {
		t.Fatalf("get unknown station: %v", err)
	}
	if none != nil {
		t.Errorf("expected nil for unknown station, got %+v", none)
	}
}

func TestConditionsRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	rec := models.ConditionsRecord{
		SpotName:     "Tamarack",
		GeneratedAt:  now,
		WaveHeightFt: sql.NullFloat64{Float64: 3.2, Valid: true},
		WavePeriodS:  sql.NullFloat64{Float64: 12, Valid: true},
		TideTrend:    sql.NullString{String: "rising", Valid: true},
		RawJSON:      `{"wave_height_ft":3.2}`,
	}
	if err := store.InsertConditions(rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.GetLatestConditions("Tamarack")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected a record")
	}
	if !got.WaveHeightFt.Valid || got.WaveHeightFt.Float64 != 3.2 {
		t.Errorf("wave height: got %+v", got.WaveHeightFt)
	}
	if got.WindSpeedMph.Valid {
		t.Error("wind should be invalid when never set")
	}

	pruned, err := store.PruneConditions(now.Add(time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned: got %d, want 1", pruned)
	}
}

func TestIngestRunLifecycle(t *testing.T) {
	store := setupTestStore(t)

	station := "9410230"
	run, err := store.StartIngestRun("coops", "predictions", &station, nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if run.ID == 0 {
		t.Error("expected assigned run ID")
	}

	run.Success = true
	run.HTTPStatus = sql.NullInt64{Int64: 200, Valid: true}
	run.RecordsStored = sql.NullInt64{Int64: 48, Valid: true}
	if err := store.CompleteIngestRun(run); err != nil {
		t.Fatalf("complete: %v", err)
	}

	runs, err := store.RecentIngestRuns(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs: got %d, want 1", len(runs))
	}
	if !runs[0].Success || runs[0].RecordsStored.Int64 != 48 {
		t.Errorf("run not completed: %+v", runs[0])
	}
	if !runs[0].FinishedAt.Valid {
		t.Error("finished_at not set")
	}
}
