package api

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/MediVision-io/medivision/internal/analysis"
	"github.com/MediVision-io/medivision/internal/auth"
	"github.com/MediVision-io/medivision/internal/models"
	"github.com/MediVision-io/medivision/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxUploadSize = 32 << 20

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ProcessMedicalImageHandler drives the whole scan lifecycle inside one
// request: validate the upload, persist a processing record, run the
// analysis, and flip the record to its terminal state. The response is
// always 200 once a record exists; the scan's status field carries the
// business outcome, so a failed analysis is not an HTTP error.
func (api *Api) ProcessMedicalImageHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedContentTypes[contentType] {
		respondError(w, http.StatusBadRequest, "Only JPEG, PNG, and WEBP images are allowed")
		return
	}

	scanType := r.FormValue("scan_type")
	if scanType == "" {
		respondError(w, http.StatusBadRequest, "scan_type is required")
		return
	}

	imageBytes, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	processed := analysis.NormalizeImage(imageBytes)
	imageBase64 := base64.StdEncoding.EncodeToString(processed)

	scan := &models.Scan{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		ScanType:    scanType,
		FileName:    header.Filename,
		ImageBase64: imageBase64,
		Status:      models.ScanStatusProcessing,
	}

	if err := api.scans.Create(r.Context(), scan); err != nil {
		log.Printf("Error creating scan: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to create scan")
		return
	}

	if api.archive != nil {
		if _, err := api.archive.ArchiveScan(r.Context(), user.ID, scan.ID, scan.FileName, contentType, bytes.NewReader(imageBytes)); err != nil {
			// Archive failures never fail the scan
			log.Printf("Error archiving scan %s: %v", scan.ID, err)
		}
	}

	result, err := api.analyzer.Analyze(r.Context(), imageBase64, scanType)
	if err != nil {
		log.Printf("Analysis failed for scan %s: %v", scan.ID, err)
		if err := api.scans.UpdateResult(r.Context(), scan.ID, models.ScanStatusFailed, nil, nil); err != nil {
			log.Printf("Error marking scan %s failed: %v", scan.ID, err)
		}
		scan.Status = models.ScanStatusFailed
		respondJSON(w, http.StatusOK, scan)
		return
	}

	if err := api.scans.UpdateResult(r.Context(), scan.ID, models.ScanStatusCompleted, result.DoctorView, result.PatientView); err != nil {
		log.Printf("Error completing scan %s: %v", scan.ID, err)
		respondError(w, http.StatusInternalServerError, "Failed to update scan")
		return
	}

	if err := api.audit.Append(r.Context(), &models.DeveloperLog{
		Action:   models.ActionScanAnalyzed,
		UserID:   user.ID,
		ScanID:   scan.ID,
		ScanType: scanType,
	}); err != nil {
		log.Printf("Error writing audit log: %v", err)
	}

	scan.Status = models.ScanStatusCompleted
	scan.DoctorView = result.DoctorView
	scan.PatientView = result.PatientView
	respondJSON(w, http.StatusOK, scan)
}

func (api *Api) ListScansHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	scans, err := api.scans.ListByUser(r.Context(), user.ID, 100)
	if err != nil {
		log.Printf("Error listing scans: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list scans")
		return
	}
	if scans == nil {
		scans = []*models.Scan{}
	}

	respondJSON(w, http.StatusOK, scans)
}

func (api *Api) GetScanHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	scan, err := api.scans.Get(r.Context(), chi.URLParam(r, "scanID"), user.ID)
	if err != nil {
		if errors.Is(err, store.ErrScanNotFound) {
			respondError(w, http.StatusNotFound, "Scan not found")
			return
		}
		log.Printf("Error fetching scan: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch scan")
		return
	}

	respondJSON(w, http.StatusOK, scan)
}

func (api *Api) DeleteScanHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	scanID := chi.URLParam(r, "scanID")
	if err := api.scans.Delete(r.Context(), scanID, user.ID); err != nil {
		if errors.Is(err, store.ErrScanNotFound) {
			respondError(w, http.StatusNotFound, "Scan not found")
			return
		}
		log.Printf("Error deleting scan: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete scan")
		return
	}

	if api.archive != nil {
		if err := api.archive.DeleteScanArchive(r.Context(), user.ID, scanID); err != nil {
			log.Printf("Error deleting archive for scan %s: %v", scanID, err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Scan deleted successfully"})
}

func (api *Api) StatsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	stats, err := api.scans.Stats(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error computing stats: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
