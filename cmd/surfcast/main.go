package main

import (
	"context"
	"database/sql"
	"log"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/saltcreek/surfcast/internal/api"
	"github.com/saltcreek/surfcast/internal/ingest"
	"github.com/saltcreek/surfcast/internal/models"
	"github.com/saltcreek/surfcast/internal/store"
)

// Default spot roster: North San Diego County breaks. Bathymetry values are
// tuned per break; the NWS gridpoints all fall under the San Diego (SGX)
// forecast office.
var defaultSpots = []models.Spot{
	{
		Name: "Tamarack", Latitude: 33.1466, Longitude: -117.3458, County: "San Diego",
		GridOffice: "SGX", GridX: 38, GridY: 29,
		TideStationID: "9410230", BuoyPrimary: "46225", BuoyFallback: "46232",
		DepthM: 3.0, ShoreAngleDeg: 90, Slope: 0.02,
		Timezone: "America/Los_Angeles", Active: true,
	},
	{
		Name: "Oceanside Harbor", Latitude: 33.2072, Longitude: -117.3938, County: "San Diego",
		GridOffice: "SGX", GridX: 37, GridY: 31,
		TideStationID: "9410230", BuoyPrimary: "46224", BuoyFallback: "46225",
		DepthM: 3.5, ShoreAngleDeg: 95, Slope: 0.015,
		Timezone: "America/Los_Angeles", Active: true,
	},
	{
		Name: "Swamis", Latitude: 33.0340, Longitude: -117.2920, County: "San Diego",
		GridOffice: "SGX", GridX: 39, GridY: 27,
		TideStationID: "9410230", BuoyPrimary: "46225", BuoyFallback: "46232",
		DepthM: 2.5, ShoreAngleDeg: 100, Slope: 0.03,
		Timezone: "America/Los_Angeles", Active: true,
	},
}

type cli struct {
	EnvFile kongdotenv.ENVFileConfig `kong:"optional,name=env-file,help='Load flags from a .env file.'"`

	DB     string `help:"Path to the SQLite database." default:"data/surfcast.db" env:"SURFCAST_DB"`
	Port   string `help:"HTTP listen port." default:"8080" env:"SURFCAST_PORT"`
	NoPoll bool   `help:"Disable upstream polling (serve stored data only)."`
	Once   bool   `help:"Fetch and assemble once, then exit."`
}

func main() {
	var flags cli
	kong.Parse(&flags,
		kong.Name("surfcast"),
		kong.Description("Surf conditions service: swell, tide, and buoy data distilled into per-spot reports."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	db, err := sql.Open("sqlite", flags.DB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("database migrated")

	for _, spot := range defaultSpots {
		if err := st.UpsertSpot(spot); err != nil {
			log.Fatalf("upsert spot %s: %v", spot.Name, err)
		}
	}
	log.Println("spots seeded")

	scheduler := ingest.NewScheduler(st,
		ingest.NewMarineClient(),
		ingest.NewTideClient(),
		ingest.NewBuoyClient(),
	)
	server := api.NewServer(st, flags.Port)

	if flags.Once {
		log.Println("running single fetch and assembly")
		scheduler.IngestOnce()
		scheduler.AssembleAll()
		log.Println("done")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !flags.NoPoll {
		go scheduler.Run(ctx)
	} else {
		log.Println("polling disabled (--no-poll)")
	}

	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
