package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/user/alttext-service/internal/delivery/http/request"
	"github.com/user/alttext-service/internal/delivery/http/response"
	"github.com/user/alttext-service/internal/entity"
	"github.com/user/alttext-service/internal/usecase"
)

const healthTimeout = 2 * time.Second

// Pinger is a dependency whose reachability is reported by the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	scanner usecase.Scanner
	applier usecase.Applier
	tracker usecase.ImageTracker
	checks  map[string]Pinger
	logger  *zap.Logger
}

// NewHandler creates the HTTP handlers. checks maps a dependency name to its pinger.
func NewHandler(
	scanner usecase.Scanner,
	applier usecase.Applier,
	tracker usecase.ImageTracker,
	checks map[string]Pinger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		scanner: scanner,
		applier: applier,
		tracker: tracker,
		checks:  checks,
		logger:  logger,
	}
}

func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	var req request.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Handle == "" || req.AppPassword == "" {
		h.writeJSONError(w, "handle and app_password are required", http.StatusBadRequest)
		return
	}

	result, err := h.scanner.Scan(r.Context(), usecase.ScanRequest{
		Handle:     req.Handle,
		Credential: req.AppPassword,
		Generate:   req.Generate(),
	})
	if err != nil {
		h.writeUseCaseError(w, "Scan failed", req.Handle, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	var req request.ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	// Nothing to write, so no session is needed.
	if len(req.Updates) == 0 {
		h.writeJSON(w, http.StatusOK, response.ApplyResponse{Updated: []entity.ApplyResult{}})
		return
	}
	if req.Handle == "" || req.AppPassword == "" {
		h.writeJSONError(w, "handle and app_password are required", http.StatusBadRequest)
		return
	}

	results, err := h.applier.Apply(r.Context(), usecase.ApplyRequest{
		Handle:     req.Handle,
		Credential: req.AppPassword,
		Edits:      req.Updates,
	})
	if err != nil {
		// Remote writes happened; the caller still needs to know which.
		if errors.Is(err, usecase.ErrLedgerWrite) && results != nil {
			h.logger.Error("Apply outcomes not fully recorded", zap.String("handle", req.Handle), zap.Error(err))
			h.writeJSON(w, http.StatusInternalServerError, response.ApplyResponse{Updated: results, Error: err.Error()})
			return
		}
		h.writeUseCaseError(w, "Apply failed", req.Handle, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response.ApplyResponse{Updated: results})
}

func (h *Handler) HandleListImages(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("handle")
	if handle == "" {
		h.writeJSONError(w, "handle query parameter is required", http.StatusBadRequest)
		return
	}
	status := entity.ImageStatus(r.URL.Query().Get("status"))

	images, err := h.tracker.ListImages(r.Context(), handle, status)
	if err != nil {
		h.writeUseCaseError(w, "List images failed", handle, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response.ImagesResponse{Handle: handle, Count: len(images), Images: images})
}

// HandleLiveness reports that the process is serving.
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, response.HealthResponse{Status: "ok"})
}

// HandleHealthCheck pings every registered dependency.
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := response.HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	code := http.StatusOK
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			h.logger.Error("Health check failed", zap.String("dependency", name), zap.Error(err))
			resp.Checks[name] = "unhealthy"
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "healthy"
	}

	h.writeJSON(w, code, resp)
}

func (h *Handler) writeUseCaseError(w http.ResponseWriter, msg, handle string, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidRequest):
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, usecase.ErrAuthenticationFailed):
		h.logger.Warn(msg, zap.String("handle", handle), zap.Error(err))
		h.writeJSONError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, usecase.ErrFeedFetchFailed), errors.Is(err, usecase.ErrLedgerWrite):
		h.logger.Error(msg, zap.String("handle", handle), zap.Error(err))
		h.writeJSONError(w, err.Error(), http.StatusInternalServerError)
	default:
		h.logger.Error(msg, zap.String("handle", handle), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
