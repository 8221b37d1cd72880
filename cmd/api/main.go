package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/andresuchdata/replenishment-go/internal/config"
	"github.com/andresuchdata/replenishment-go/internal/drive"
	"github.com/andresuchdata/replenishment-go/internal/repository/postgres"
)

// Forecast ingestion service: exposes Drive-backed endpoints that pull
// forecast CSVs into the forecasts table.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	driveService, err := drive.NewService(cfg.Drive.CredentialsJSON)
	if err != nil {
		log.Fatalf("Failed to initialize Google Drive service: %v", err)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	forecastRepo := postgres.NewForecastRepository(db)
	ingestService := drive.NewIngestService(driveService, forecastRepo)

	r := mux.NewRouter()
	driveHandler := drive.NewHandler(driveService, ingestService)
	driveHandler.RegisterRoutes(r)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Forecast ingestion service starting on %s\n", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
