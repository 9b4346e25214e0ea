package main

import (
	"flag"
	"log"

	"github.com/MediVision-io/medivision/internal/analysis"
	"github.com/MediVision-io/medivision/internal/api"
	"github.com/MediVision-io/medivision/internal/config"
	"github.com/MediVision-io/medivision/internal/database"
	"github.com/MediVision-io/medivision/internal/storage"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "app.yml", "Path to configuration file")
	flag.Parse()

	log.Printf("Starting MediVision API v%s with config: %s", version, *configPath)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	var archive api.Archiver
	if cfg.Archive.Enabled {
		s3Client, err := storage.NewS3Client(
			cfg.Archive.Endpoint,
			cfg.Archive.Region,
			cfg.Archive.Bucket,
			cfg.Archive.AccessKeyID,
			cfg.Archive.SecretAccessKey,
		)
		if err != nil {
			log.Fatal(err)
		}
		archive = s3Client
	}

	if cfg.Analysis.GeminiAPIKey == "" {
		log.Println("Warning: Gemini API key not configured, analysis requests will fail")
	}
	analyzer := analysis.NewGeminiAnalyzer(cfg.Analysis.GeminiAPIKey, cfg.Analysis.Model)

	a, err := api.NewApi(*cfg,
		database.NewUserStore(db),
		database.NewScanStore(db),
		database.NewAuditLog(db),
		analyzer,
		archive,
	)
	if err != nil {
		log.Fatal(err)
	}

	a.Serve()
}
