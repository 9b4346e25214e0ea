package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/MediVision-io/medivision/internal/analysis"
	"github.com/MediVision-io/medivision/internal/auth"
	"github.com/MediVision-io/medivision/internal/config"
	"github.com/MediVision-io/medivision/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Archiver stores original uploads outside the database. It is optional:
// a nil Archiver disables archiving entirely.
type Archiver interface {
	ArchiveScan(ctx context.Context, userID, scanID, fileName, contentType string, reader io.Reader) (string, error)
	DeleteScanArchive(ctx context.Context, userID, scanID string) error
}

type Api struct {
	Config   config.Config
	Router   *chi.Mux
	tokens   *auth.TokenManager
	users    store.UserStore
	scans    store.ScanStore
	audit    store.AuditLog
	analyzer analysis.Analyzer
	archive  Archiver
}

func NewApi(cfg config.Config, users store.UserStore, scans store.ScanStore, audit store.AuditLog, analyzer analysis.Analyzer, archive Archiver) (*Api, error) {
	if cfg.APIPort == 0 {
		return nil, fmt.Errorf("Must have at least a port to start API")
	}

	api := &Api{
		Config:   cfg,
		Router:   chi.NewRouter(),
		tokens:   auth.NewTokenManager(cfg.Auth.JWTSecret),
		users:    users,
		scans:    scans,
		audit:    audit,
		analyzer: analyzer,
		archive:  archive,
	}

	api.setupRoutes()
	return api, nil
}

func (api *Api) setupRoutes() {
	r := api.Router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   api.Config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/", api.RootHandler)
		r.Get("/health", api.HealthHandler)
		r.Post("/auth/register", api.RegisterHandler)
		r.Post("/auth/login", api.LoginHandler)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(api.tokens, api.users))

			r.Get("/auth/me", api.MeHandler)
			r.Post("/process-medical-image", api.ProcessMedicalImageHandler)
			r.Get("/scans", api.ListScansHandler)
			r.Get("/scans/{scanID}", api.GetScanHandler)
			r.Delete("/scans/{scanID}", api.DeleteScanHandler)
			r.Get("/stats", api.StatsHandler)
		})
	})
}

func (api *Api) Serve() {
	addr := fmt.Sprintf("0.0.0.0:%d", api.Config.APIPort)
	log.Printf("Starting API server on %s", addr)
	log.Fatal(http.ListenAndServe(addr, api.Router))
}

func (api *Api) RootHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "MediVision AI API",
		"status":  "healthy",
	})
}

func (api *Api) HealthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, reason string) {
	respondJSON(w, status, map[string]string{"error": reason})
}
