package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/DeliverySync/internal/core"
	"github.com/JonMunkholm/DeliverySync/internal/logging"
)

// multipartOverhead is the slack allowed on top of the file size for form
// boundaries and other fields.
const multipartOverhead = 1 << 20

// uploadResponse is the upload body. Error is set only when a run failed
// after partially succeeding.
type uploadResponse struct {
	*core.Result
	Error *ErrorResponse `json:"error,omitempty"`
}

// handleUpload reconciles one delivery export.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondError(w, r, errFileTooBig, http.StatusRequestEntityTooLarge)
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			respondError(w, r, fmt.Errorf("invalid form: %w", err), http.StatusBadRequest)
			return
		}
	}

	file, header, err := r.FormFile(s.cfg.Upload.FieldName)
	if err != nil {
		respondError(w, r, errNoFile, http.StatusNotFound)
		return
	}
	defer file.Close()

	if header.Size > maxSize {
		respondError(w, r, errFileTooBig, http.StatusRequestEntityTooLarge)
		return
	}

	opts := core.ProcessOptions{}
	if v := r.FormValue("dryRun"); v != "" {
		dry, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, r, fmt.Errorf("invalid dryRun value %q", v), http.StatusBadRequest)
			return
		}
		opts.DryRun = dry
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusInternalServerError)
		return
	}

	logging.WithFields(r.Context(), requestFields(r)...).Info("upload received",
		"file", header.Filename,
		"bytes", len(data),
		"dry_run", opts.DryRun,
	)

	result, err := s.service.Process(r.Context(), header.Filename, data, opts)
	if err != nil {
		if result == nil {
			respondError(w, r, err, statusFor(err))
			return
		}
		status := statusFor(err)
		body := newErrorResponse(err, status)
		logError(r, err, status, body.Code)
		writeJSON(w, status, uploadResponse{Result: result, Error: &body})
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{Result: result})
}

// handleGetOrder returns the persisted record for an order code.
func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleGetDelivery looks a record up by ?id=, which may be a record UUID or
// an order code.
func (s *Server) handleGetDelivery(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.GetByID(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleHealth reports store reachability and upload slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	limiter := s.service.UploadLimiterStatus()
	body := map[string]any{
		"status":  "ok",
		"uploads": limiter,
	}

	if err := s.service.Ping(r.Context()); err != nil {
		logging.FromContext(r.Context()).Warn("health check failed", "error", err)
		body["status"] = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	writeJSON(w, http.StatusOK, body)
}
