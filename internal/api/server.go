package api

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saltcreek/surfcast/internal/ingest"
	"github.com/saltcreek/surfcast/internal/models"
	"github.com/saltcreek/surfcast/internal/store"
	"github.com/saltcreek/surfcast/internal/surf"
)

//go:embed templates/*
var templateFS embed.FS

type Server struct {
	store *store.Store
	port  string
	tmpl  *template.Template
}

func NewServer(st *store.Store, port string) *Server {
	funcs := template.FuncMap{
		"deref": func(f *float64) float64 {
			if f == nil {
				return 0
			}
			return *f
		},
	}
	tmpl := template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))

	return &Server{
		store: st,
		port:  port,
		tmpl:  tmpl,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/spots", s.handleAPISpots)
	mux.HandleFunc("GET /api/spots/{name}/current", s.handleAPICurrent)
	mux.HandleFunc("GET /api/spots/{name}/forecast", s.handleAPIForecast)
	mux.HandleFunc("GET /api/ingest-runs", s.handleAPIIngestRuns)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("api: listening on :%s", s.port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

type indexSpot struct {
	Spot       SpotSummary
	Conditions *CurrentConditions
}

type indexData struct {
	Spots       []indexSpot
	GeneratedAt time.Time
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	spots, err := s.store.GetActiveSpots()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := indexData{GeneratedAt: time.Now().UTC()}
	for _, sp := range spots {
		entry := indexSpot{Spot: spotSummaryFrom(sp)}
		if rec, err := s.store.GetLatestConditions(sp.Name); err == nil && rec != nil {
			cc := currentConditionsFrom(*rec)
			entry.Conditions = &cc
		}
		data.Spots = append(data.Spots, entry)
	}

	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		log.Printf("api: render index: %v", err)
	}
}

func (s *Server) handleAPISpots(w http.ResponseWriter, r *http.Request) {
	spots, err := s.store.GetActiveSpots()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]SpotSummary, 0, len(spots))
	for _, sp := range spots {
		out = append(out, spotSummaryFrom(sp))
	}
	writeJSON(w, out)
}

func (s *Server) handleAPICurrent(w http.ResponseWriter, r *http.Request) {
	spot, ok := s.lookupSpot(w, r)
	if !ok {
		return
	}

	rec, err := s.store.GetLatestConditions(spot.Name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, "no conditions yet", http.StatusNotFound)
		return
	}
	writeJSON(w, currentConditionsFrom(*rec))
}

func (s *Server) handleAPIForecast(w http.ResponseWriter, r *http.Request) {
	spot, ok := s.lookupSpot(w, r)
	if !ok {
		return
	}

	now := time.Now().UTC()
	readings, err := s.store.GetSwellReadings(spot.Name, now.Add(-2*time.Hour), now.Add(7*24*time.Hour))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	profile := surf.BathymetryProfile{
		DepthM:        spot.DepthM,
		ShoreAngleDeg: spot.ShoreAngleDeg,
		Slope:         spot.Slope,
	}
	waves := surf.EstimateSeries(ingest.ComponentSetsFromReadings(readings), profile)

	loc, err := time.LoadLocation(spot.Timezone)
	if err != nil {
		loc = time.UTC
	}

	data := ForecastData{
		Spot:       spot.Name,
		Days:       []DaySummary{},
		ChartTimes: make([]time.Time, 0, len(waves)),
		ChartFt:    make([]*float64, 0, len(waves)),
		TideEvents: []TideEvent{},
	}
	for _, day := range surf.SummarizeDays(waves, loc) {
		data.Days = append(data.Days, DaySummary{
			Date:        day.Date.Format("2006-01-02"),
			MinHeightFt: day.MinHeightFt,
			MaxHeightFt: day.MaxHeightFt,
			AvgHeightFt: day.AvgHeightFt,
			AvgPeriodS:  day.AvgPeriodS,
			Quality:     string(day.Quality),
		})
	}
	for _, est := range waves {
		data.ChartTimes = append(data.ChartTimes, est.Timestamp)
		if est.Available {
			data.ChartFt = append(data.ChartFt, ptr(est.BreakingHeightFt))
		} else {
			data.ChartFt = append(data.ChartFt, nil)
		}
	}

	if spot.TideStationID != "" {
		events, err := s.store.GetTideEvents(spot.TideStationID, now, now.Add(7*24*time.Hour))
		if err == nil {
			for _, ev := range events {
				data.TideEvents = append(data.TideEvents, TideEvent{
					Time:     ev.TimeUTC,
					Kind:     ev.Kind,
					HeightFt: ev.HeightFt,
					Quality:  surf.TideEventQuality(surf.TideEventKind(ev.Kind), ev.HeightFt),
				})
			}
		}
	}

	writeJSON(w, data)
}

func (s *Server) handleAPIIngestRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.RecentIngestRuns(50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

type HealthStatus struct {
	Status string       `json:"status"`
	Spots  []SpotHealth `json:"spots"`
	Errors []string     `json:"errors,omitempty"`
}

type SpotHealth struct {
	Name       string    `json:"name"`
	LastRecord time.Time `json:"last_record"`
	AgeMinutes int       `json:"age_minutes"`
	Stale      bool      `json:"stale"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	spots, err := s.store.GetActiveSpots()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
		return
	}

	health := HealthStatus{
		Status: "ok",
		Spots:  make([]SpotHealth, 0, len(spots)),
	}

	staleThreshold := 45 * time.Minute
	now := time.Now()

	for _, sp := range spots {
		rec, err := s.store.GetLatestConditions(sp.Name)
		if err != nil {
			health.Errors = append(health.Errors, sp.Name+": "+err.Error())
			continue
		}

		sh := SpotHealth{Name: sp.Name}
		if rec != nil {
			sh.LastRecord = rec.GeneratedAt
			sh.AgeMinutes = int(now.Sub(rec.GeneratedAt).Minutes())
			sh.Stale = now.Sub(rec.GeneratedAt) > staleThreshold
		} else {
			sh.Stale = true
			sh.AgeMinutes = -1
		}
		health.Spots = append(health.Spots, sh)
	}

	json.NewEncoder(w).Encode(health)
}

func (s *Server) lookupSpot(w http.ResponseWriter, r *http.Request) (*models.Spot, bool) {
	name := r.PathValue("name")
	spot, err := s.store.GetSpot(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	if spot == nil {
		http.Error(w, "unknown spot", http.StatusNotFound)
		return nil, false
	}
	return spot, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
