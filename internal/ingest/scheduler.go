package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/saltcreek/surfcast/internal/metrics"
	"github.com/saltcreek/surfcast/internal/models"
	"github.com/saltcreek/surfcast/internal/store"
	"github.com/saltcreek/surfcast/internal/surf"
)

// Staleness windows: twice the refresh interval. Inputs older than this are
// treated as missing during assembly rather than served as current.
const (
	swellInterval = 1 * time.Hour
	tideInterval  = 6 * time.Hour
	buoyInterval  = 30 * time.Minute
	asmInterval   = 15 * time.Minute

	swellMaxAge = 2 * swellInterval
	tideMaxAge  = 2 * tideInterval
	buoyMaxAge  = 2 * buoyInterval

	forecastHorizon   = 120 * time.Hour
	conditionsMaxKeep = 30 * 24 * time.Hour
)

type swellSource interface {
	FetchSwell(office string, gridX, gridY int, horizon time.Duration) ([]surf.SwellComponentSet, *FetchResult, error)
}

type tideSource interface {
	FetchPredictions(stationID string, start, end time.Time) ([]models.TidePrediction, *FetchResult, error)
	FetchEvents(stationID string, start, end time.Time) ([]models.TideEventRecord, *FetchResult, error)
}

type buoySource interface {
	FetchLatestWithFallback(primary, fallback string) (*models.BuoyObservation, error)
}

// Scheduler drives the periodic fetch and assembly cycle for every active
// spot. All persistence goes through the store; the clock is injectable so
// tests can step time.
type Scheduler struct {
	store  *store.Store
	marine swellSource
	tides  tideSource
	buoys  buoySource
	clock  clockwork.Clock
}

func NewScheduler(st *store.Store, marine *MarineClient, tides *TideClient, buoys *BuoyClient) *Scheduler {
	return &Scheduler{
		store:  st,
		marine: marine,
		tides:  tides,
		buoys:  buoys,
		clock:  clockwork.NewRealClock(),
	}
}

// SetClock replaces the wall clock, for tests.
func (s *Scheduler) SetClock(clock clockwork.Clock) {
	s.clock = clock
}

func (s *Scheduler) Run(ctx context.Context) {
	s.IngestOnce()
	s.AssembleAll()

	swellTicker := s.clock.NewTicker(swellInterval)
	tideTicker := s.clock.NewTicker(tideInterval)
	buoyTicker := s.clock.NewTicker(buoyInterval)
	asmTicker := s.clock.NewTicker(asmInterval)
	pruneTicker := s.clock.NewTicker(24 * time.Hour)
	defer swellTicker.Stop()
	defer tideTicker.Stop()
	defer buoyTicker.Stop()
	defer asmTicker.Stop()
	defer pruneTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: shutting down")
			return
		case <-swellTicker.Chan():
			s.ingestSwell()
		case <-tideTicker.Chan():
			s.ingestTides()
		case <-buoyTicker.Chan():
			s.ingestBuoys()
		case <-asmTicker.Chan():
			s.AssembleAll()
		case <-pruneTicker.Chan():
			s.pruneConditions()
		}
	}
}

// IngestOnce runs every fetch job a single time, synchronously.
func (s *Scheduler) IngestOnce() {
	s.ingestSwell()
	s.ingestTides()
	s.ingestBuoys()
}

func (s *Scheduler) activeSpots() []models.Spot {
	spots, err := s.store.GetActiveSpots()
	if err != nil {
		log.Printf("scheduler: load spots: %v", err)
		return nil
	}
	return spots
}

func (s *Scheduler) ingestSwell() {
	log.Println("scheduler: ingesting swell forecasts")
	for _, spot := range s.activeSpots() {
		endpoint := fmt.Sprintf("gridpoints/%s/%d,%d", spot.GridOffice, spot.GridX, spot.GridY)
		run, _ := s.store.StartIngestRun("nws", endpoint, nil, &spot.Name)

		start := s.clock.Now()
		sets, fetchResult, err := s.marine.FetchSwell(spot.GridOffice, spot.GridX, spot.GridY, forecastHorizon)
		s.observeUpstream("nws", "gridpoints", start, fetchResult, err)
		recordFetch(run, fetchResult, err)

		if err != nil {
			log.Printf("scheduler: fetch swell %s: %v", spot.Name, err)
			s.completeRun(run)
			continue
		}

		sets, dropped := FilterComponentSets(sets)
		if dropped > 0 {
			log.Printf("scheduler: %s: dropped %d implausible swell components", spot.Name, dropped)
		}

		readings := swellReadingsFromSets(spot.Name, sets, s.clock.Now().UTC())
		if err := s.store.ReplaceSwellReadings(spot.Name, readings); err != nil {
			log.Printf("scheduler: store swell %s: %v", spot.Name, err)
			failRun(run, fmt.Errorf("store: %w", err))
			s.completeRun(run)
			continue
		}

		metrics.SwellInstantsIngested.WithLabelValues(spot.Name).Add(float64(len(sets)))
		log.Printf("scheduler: %s: stored %d swell instants (%d components)", spot.Name, len(sets), len(readings))
		if run != nil {
			run.RecordsStored = sql.NullInt64{Int64: int64(len(readings)), Valid: true}
		}
		s.completeRun(run)
	}
}

func (s *Scheduler) ingestTides() {
	log.Println("scheduler: ingesting tide predictions")
	now := s.clock.Now().UTC()
	begin := now.Add(-24 * time.Hour)
	end := now.Add(4 * 24 * time.Hour)

	for _, stationID := range s.tideStations() {
		run, _ := s.store.StartIngestRun("coops", "datagetter?interval=h", &stationID, nil)

		start := s.clock.Now()
		preds, fetchResult, err := s.tides.FetchPredictions(stationID, begin, end)
		s.observeUpstream("coops", "predictions", start, fetchResult, err)
		recordFetch(run, fetchResult, err)

		if err != nil {
			log.Printf("scheduler: fetch tide predictions %s: %v", stationID, err)
			s.completeRun(run)
			continue
		}

		preds, dropped := FilterTidePredictions(preds)
		if dropped > 0 {
			log.Printf("scheduler: %s: dropped %d implausible tide predictions", stationID, dropped)
		}

		if err := s.store.ReplaceTidePredictions(stationID, preds); err != nil {
			log.Printf("scheduler: store tide predictions %s: %v", stationID, err)
			failRun(run, fmt.Errorf("store: %w", err))
			s.completeRun(run)
			continue
		}
		if run != nil {
			run.RecordsStored = sql.NullInt64{Int64: int64(len(preds)), Valid: true}
		}
		log.Printf("scheduler: %s: stored %d tide predictions", stationID, len(preds))
		s.completeRun(run)

		s.ingestTideEvents(stationID, begin, end)
	}
}

func (s *Scheduler) ingestTideEvents(stationID string, begin, end time.Time) {
	run, _ := s.store.StartIngestRun("coops", "datagetter?interval=hilo", &stationID, nil)

	start := s.clock.Now()
	events, fetchResult, err := s.tides.FetchEvents(stationID, begin, end)
	s.observeUpstream("coops", "events", start, fetchResult, err)
	recordFetch(run, fetchResult, err)

	if err != nil {
		log.Printf("scheduler: fetch tide events %s: %v", stationID, err)
		s.completeRun(run)
		return
	}

	stored := 0
	for _, ev := range events {
		if err := s.store.UpsertTideEvent(ev); err != nil {
			log.Printf("scheduler: upsert tide event %s %s: %v", stationID, ev.TimeUTC.Format(time.RFC3339), err)
			continue
		}
		stored++
	}
	if run != nil {
		run.RecordsStored = sql.NullInt64{Int64: int64(stored), Valid: true}
	}
	log.Printf("scheduler: %s: stored %d tide events", stationID, stored)
	s.completeRun(run)
}

func (s *Scheduler) ingestBuoys() {
	log.Println("scheduler: ingesting buoy observations")
	seen := make(map[string]bool)
	for _, spot := range s.activeSpots() {
		if spot.BuoyPrimary == "" || seen[spot.BuoyPrimary] {
			continue
		}
		seen[spot.BuoyPrimary] = true

		run, _ := s.store.StartIngestRun("ndbc", "realtime2", &spot.BuoyPrimary, nil)

		start := s.clock.Now()
		obs, err := s.buoys.FetchLatestWithFallback(spot.BuoyPrimary, spot.BuoyFallback)
		s.observeUpstream("ndbc", "realtime2", start, nil, err)
		recordFetch(run, nil, err)

		if err != nil || obs == nil {
			log.Printf("scheduler: fetch buoy %s: %v", spot.BuoyPrimary, err)
			s.completeRun(run)
			continue
		}

		if err := s.store.InsertBuoyObservation(*obs); err != nil {
			log.Printf("scheduler: store buoy %s: %v", obs.StationID, err)
			failRun(run, fmt.Errorf("store: %w", err))
			s.completeRun(run)
			continue
		}
		if run != nil {
			run.RecordsParsed = sql.NullInt64{Int64: 1, Valid: true}
			run.RecordsStored = sql.NullInt64{Int64: 1, Valid: true}
		}
		if obs.WaterTempF.Valid {
			log.Printf("scheduler: buoy %s: %.1f°F water", obs.StationID, obs.WaterTempF.Float64)
		}
		s.completeRun(run)
	}
}

// AssembleAll builds and stores a fresh conditions record for every active
// spot from whatever the store currently holds.
func (s *Scheduler) AssembleAll() {
	now := s.clock.Now().UTC()
	for _, spot := range s.activeSpots() {
		if err := s.assembleSpot(spot, now); err != nil {
			log.Printf("scheduler: assemble %s: %v", spot.Name, err)
		}
	}
}

func (s *Scheduler) assembleSpot(spot models.Spot, now time.Time) error {
	waves := s.loadWaves(spot, now)
	if len(waves) == 0 {
		metrics.AssemblyInputMissing.WithLabelValues(spot.Name, "swell").Inc()
	}

	tide := s.loadTide(spot, now)
	if tide == nil {
		metrics.AssemblyInputMissing.WithLabelValues(spot.Name, "tide").Inc()
	}

	wind, temp := s.loadBuoy(spot, now)
	if wind == nil {
		metrics.AssemblyInputMissing.WithLabelValues(spot.Name, "wind").Inc()
	}
	if temp == nil {
		metrics.AssemblyInputMissing.WithLabelValues(spot.Name, "water_temp").Inc()
	}

	rec := surf.Assemble(now, waves, tide, wind, temp)

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal conditions: %w", err)
	}

	row := models.ConditionsRecord{
		SpotName:     spot.Name,
		GeneratedAt:  rec.GeneratedAt,
		WaveHeightFt: rec.WaveHeightFt,
		WavePeriodS:  rec.WavePeriodS,
		TideHeightFt: rec.TideHeightFt,
		TideTrend:    rec.TideTrend,
		WindSpeedMph: rec.WindSpeedMph,
		WindDirDeg:   rec.WindDirDeg,
		WaterTempF:   rec.WaterTempF,
		RawJSON:      string(raw),
	}
	if rec.NextTide != nil {
		row.NextTideKind = sql.NullString{String: string(rec.NextTide.Kind), Valid: true}
		row.NextTideAt = sql.NullTime{Time: rec.NextTide.Time, Valid: true}
		row.NextTideFt = sql.NullFloat64{Float64: rec.NextTide.HeightFt, Valid: true}
	}

	if err := s.store.InsertConditions(row); err != nil {
		return fmt.Errorf("store conditions: %w", err)
	}
	metrics.ConditionsAssembled.WithLabelValues(spot.Name).Inc()
	return nil
}

// loadWaves reconstructs component sets from stored readings and runs the
// wave engine. Readings fetched longer ago than swellMaxAge are ignored.
func (s *Scheduler) loadWaves(spot models.Spot, now time.Time) []surf.WaveEstimate {
	readings, err := s.store.GetSwellReadings(spot.Name, now.Add(-2*time.Hour), now.Add(forecastHorizon))
	if err != nil {
		log.Printf("scheduler: load swell %s: %v", spot.Name, err)
		return nil
	}

	fresh := readings[:0]
	for _, r := range readings {
		if now.Sub(r.FetchedAt) <= swellMaxAge {
			fresh = append(fresh, r)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	profile := surf.BathymetryProfile{
		DepthM:        spot.DepthM,
		ShoreAngleDeg: spot.ShoreAngleDeg,
		Slope:         spot.Slope,
	}
	return surf.EstimateSeries(ComponentSetsFromReadings(fresh), profile)
}

func (s *Scheduler) loadTide(spot models.Spot, now time.Time) *surf.TideState {
	if spot.TideStationID == "" {
		return nil
	}
	preds, err := s.store.GetTidePredictions(spot.TideStationID, now.Add(-12*time.Hour), now.Add(36*time.Hour))
	if err != nil {
		log.Printf("scheduler: load tide %s: %v", spot.TideStationID, err)
		return nil
	}

	fresh := preds[:0]
	for _, p := range preds {
		if now.Sub(p.FetchedAt) <= tideMaxAge {
			fresh = append(fresh, p)
		}
	}

	curve := make(surf.TideCurve, 0, len(fresh))
	for _, p := range fresh {
		curve = append(curve, surf.TideSample{Time: p.TimeUTC, HeightFt: p.HeightFt})
	}

	state, err := surf.AnalyzeTide(curve, now)
	if err != nil {
		// Empty or out-of-range curves just mean no tide this cycle.
		return nil
	}
	return &state
}

func (s *Scheduler) loadBuoy(spot models.Spot, now time.Time) (*surf.WindReading, *surf.TempReading) {
	obs := s.freshObservation(spot.BuoyPrimary, now)
	backup := s.freshObservation(spot.BuoyFallback, now)
	if obs == nil {
		obs = backup
		backup = nil
	}
	if obs == nil {
		return nil, nil
	}

	var wind *surf.WindReading
	var temp *surf.TempReading

	if obs.WindSpeedMph.Valid && obs.WindDirDeg.Valid {
		wind = &surf.WindReading{
			Time:         obs.ObservedAt,
			SpeedMph:     obs.WindSpeedMph.Float64,
			DirectionDeg: obs.WindDirDeg.Float64,
		}
	} else if backup != nil && backup.WindSpeedMph.Valid && backup.WindDirDeg.Valid {
		wind = &surf.WindReading{
			Time:         backup.ObservedAt,
			SpeedMph:     backup.WindSpeedMph.Float64,
			DirectionDeg: backup.WindDirDeg.Float64,
		}
	}

	if obs.WaterTempF.Valid {
		temp = &surf.TempReading{Time: obs.ObservedAt, WaterTempF: obs.WaterTempF.Float64}
	} else if backup != nil && backup.WaterTempF.Valid {
		temp = &surf.TempReading{Time: backup.ObservedAt, WaterTempF: backup.WaterTempF.Float64}
	}

	return wind, temp
}

func (s *Scheduler) freshObservation(stationID string, now time.Time) *models.BuoyObservation {
	if stationID == "" {
		return nil
	}
	obs, err := s.store.GetLatestBuoyObservation(stationID)
	if err != nil {
		log.Printf("scheduler: load buoy %s: %v", stationID, err)
		return nil
	}
	if obs == nil || now.Sub(obs.ObservedAt) > buoyMaxAge {
		return nil
	}
	return obs
}

func (s *Scheduler) pruneConditions() {
	n, err := s.store.PruneConditions(s.clock.Now().UTC().Add(-conditionsMaxKeep))
	if err != nil {
		log.Printf("scheduler: prune conditions: %v", err)
		return
	}
	if n > 0 {
		log.Printf("scheduler: pruned %d old condition records", n)
	}
}

func (s *Scheduler) tideStations() []string {
	seen := make(map[string]bool)
	var stations []string
	for _, spot := range s.activeSpots() {
		if spot.TideStationID == "" || seen[spot.TideStationID] {
			continue
		}
		seen[spot.TideStationID] = true
		stations = append(stations, spot.TideStationID)
	}
	sort.Strings(stations)
	return stations
}

func (s *Scheduler) observeUpstream(source, endpoint string, start time.Time, result *FetchResult, err error) {
	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case result != nil && result.HTTPStatus > 0:
		status = strconv.Itoa(result.HTTPStatus)
	}
	metrics.UpstreamCallsTotal.WithLabelValues(source, endpoint, status).Inc()
	metrics.UpstreamLatency.WithLabelValues(source, endpoint).Observe(s.clock.Now().Sub(start).Seconds())
}

func (s *Scheduler) completeRun(run *store.IngestRun) {
	if run == nil {
		return
	}
	if err := s.store.CompleteIngestRun(run); err != nil {
		log.Printf("scheduler: complete ingest run %d: %v", run.ID, err)
	}
}

func recordFetch(run *store.IngestRun, result *FetchResult, err error) {
	if run == nil {
		return
	}
	run.Success = err == nil
	if result != nil {
		run.HTTPStatus = sql.NullInt64{Int64: int64(result.HTTPStatus), Valid: result.HTTPStatus > 0}
		run.RecordsParsed = sql.NullInt64{Int64: int64(result.RecordCount), Valid: true}
		if result.ParseErrors > 0 {
			run.ErrorMessage = sql.NullString{String: result.ParseError, Valid: true}
		}
	}
	if err != nil {
		run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
	}
}

func failRun(run *store.IngestRun, err error) {
	if run == nil {
		return
	}
	run.Success = false
	run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
}

// swellReadingsFromSets flattens component sets into store rows, ranked by
// in-set energy order.
func swellReadingsFromSets(spotName string, sets []surf.SwellComponentSet, fetchedAt time.Time) []models.SwellReading {
	var readings []models.SwellReading
	for _, set := range sets {
		for rank, c := range set.Components {
			readings = append(readings, models.SwellReading{
				SpotName:     spotName,
				ForecastAt:   set.Timestamp,
				Rank:         rank,
				HeightM:      c.HeightM,
				PeriodS:      c.PeriodS,
				DirectionDeg: c.DirectionDeg,
				FetchedAt:    fetchedAt,
			})
		}
	}
	return readings
}

// ComponentSetsFromReadings groups stored rows back into per-instant sets,
// in timestamp order. The API layer shares this when rebuilding the forecast
// series from the store.
func ComponentSetsFromReadings(readings []models.SwellReading) []surf.SwellComponentSet {
	byInstant := make(map[time.Time][]surf.SwellComponent)
	for _, r := range readings {
		key := r.ForecastAt.UTC()
		byInstant[key] = append(byInstant[key], surf.SwellComponent{
			HeightM:      r.HeightM,
			PeriodS:      r.PeriodS,
			DirectionDeg: r.DirectionDeg,
		})
	}

	instants := make([]time.Time, 0, len(byInstant))
	for ts := range byInstant {
		instants = append(instants, ts)
	}
	sort.Slice(instants, func(i, j int) bool { return instants[i].Before(instants[j]) })

	sets := make([]surf.SwellComponentSet, 0, len(instants))
	for _, ts := range instants {
		sets = append(sets, surf.NewSwellComponentSet(ts, byInstant[ts]))
	}
	return sets
}
