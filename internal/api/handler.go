package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/alertalink/linkguard/internal/domain"
	"github.com/alertalink/linkguard/internal/engine"
	"github.com/alertalink/linkguard/internal/safeurl"
	"github.com/alertalink/linkguard/internal/signals"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	engine      *engine.Engine
	repo        domain.Repository
	cache       domain.Cache
	bus         domain.EventBus
	weights     *signals.Store
	weightsPath string
	validator   *safeurl.Validator
	version     string
}

// NewHandler creates a new API handler.
func NewHandler(eng *engine.Engine, repo domain.Repository, cache domain.Cache, bus domain.EventBus, weights *signals.Store, weightsPath string, validator *safeurl.Validator, version string) *Handler {
	return &Handler{
		engine:      eng,
		repo:        repo,
		cache:       cache,
		bus:         bus,
		weights:     weights,
		weightsPath: weightsPath,
		validator:   validator,
		version:     version,
	}
}

// AnalyzeRequest is the request body for POST /analyze. Mode is a shorthand
// the mobile client uses: "offline" disables every external lookup, "online"
// enables them all, "auto" (default) keeps the server defaults. Explicit
// options win over the mode.
type AnalyzeRequest struct {
	URL     string          `json:"url"`
	Mode    string          `json:"mode,omitempty"`
	Options *AnalyzeOptions `json:"options,omitempty"`
}

func applyMode(mode string, opts *domain.AnalyzeOptions) error {
	switch mode {
	case "", "auto":
	case "offline":
		opts.UseReputation = false
		opts.UseMalwareVerdict = false
		opts.UseDomainAge = false
		opts.EnableCrawl = false
	case "online":
		opts.UseReputation = true
		opts.UseMalwareVerdict = true
		opts.UseDomainAge = true
	default:
		return errors.New(`mode must be "auto", "online", or "offline"`)
	}
	return nil
}

// AnalyzeOptions mirrors the engine options with JSON-friendly optionality:
// absent fields keep the server defaults.
type AnalyzeOptions struct {
	Model             *string `json:"model,omitempty"`
	UseReputation     *bool   `json:"useReputation,omitempty"`
	UseMalwareVerdict *bool   `json:"useMalwareVerdict,omitempty"`
	UseDomainAge      *bool   `json:"useDomainAge,omitempty"`
	EnableCrawl       *bool   `json:"enableCrawl,omitempty"`
}

func (o *AnalyzeOptions) apply(opts *domain.AnalyzeOptions) error {
	if o == nil {
		return nil
	}
	if o.Model != nil {
		switch domain.ModelType(*o.Model) {
		case domain.ModelML, domain.ModelHeuristic:
			opts.Model = domain.ModelType(*o.Model)
		default:
			return errors.New(`model must be "ml" or "heuristic"`)
		}
	}
	if o.UseReputation != nil {
		opts.UseReputation = *o.UseReputation
	}
	if o.UseMalwareVerdict != nil {
		opts.UseMalwareVerdict = *o.UseMalwareVerdict
	}
	if o.UseDomainAge != nil {
		opts.UseDomainAge = *o.UseDomainAge
	}
	if o.EnableCrawl != nil {
		opts.EnableCrawl = *o.EnableCrawl
	}
	return nil
}

// Analyze handles POST /analyze requests.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "url is required",
		})
		return
	}

	opts := domain.DefaultAnalyzeOptions()
	if err := applyMode(req.Mode, &opts); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := req.Options.apply(&opts); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	// Scoring itself never touches the target, but a crawl would. Apply the
	// SSRF policy before allowing one.
	if opts.EnableCrawl && h.validator != nil {
		normalized, err := safeurl.Normalize(req.URL)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := h.validator.Validate(ctx, normalized); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": "url cannot be crawled: " + err.Error(),
			})
			return
		}
	}

	res, err := h.engine.Analyze(ctx, req.URL, opts)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// GetAnalysis retrieves a persisted analysis by ID.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "analysis id is required",
		})
		return
	}
	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	a, err := h.repo.GetAnalysis(ctx, id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "analysis not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// ListAnalyses returns the stored history for a URL, newest first.
func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "url query parameter is required",
		})
		return
	}
	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	normalized, err := safeurl.Normalize(rawURL)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	analyses, err := h.repo.ListAnalysesByURL(ctx, normalized, limit)
	if err != nil {
		slog.Error("failed to list analyses", "url", normalized, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list analyses",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"analyses": analyses,
		"count":    len(analyses),
	})
}

// ReportRequest is the request body for POST /report.
type ReportRequest struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// Report handles user-submitted phishing reports.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "url is required",
		})
		return
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	report := &domain.Report{
		ID:         uuid.New().String(),
		URL:        req.URL,
		Reason:     req.Reason,
		ReporterIP: ip,
		CreatedAt:  time.Now().UTC(),
	}

	if h.repo != nil {
		if err := h.repo.SaveReport(ctx, report); err != nil {
			slog.Error("failed to save report", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save report",
			})
			return
		}
	}

	if h.bus != nil {
		if payload, err := json.Marshal(report); err == nil {
			if err := h.bus.Publish(ctx, domain.TopicReportReceived, payload); err != nil {
				slog.Warn("failed to publish report event", "error", err)
			}
		}
	}

	slog.Info("report received", "id", report.ID, "url", report.URL)
	writeJSON(w, http.StatusCreated, map[string]string{
		"id": report.ID,
	})
}

// GetWeights returns the active weight table.
func (h *Handler) GetWeights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.weights.Current())
}

// ReloadWeights re-reads the calibration artifact and swaps it in. This
// enables recalibration without a server restart.
func (h *Handler) ReloadWeights(w http.ResponseWriter, r *http.Request) {
	if h.weightsPath == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "no weight artifact configured",
		})
		return
	}

	if err := h.weights.LoadFile(h.weightsPath); err != nil {
		slog.Error("failed to reload weights", "path", h.weightsPath, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload weights: " + err.Error(),
		})
		return
	}

	table := h.weights.Current()
	slog.Info("weights reloaded", "version", table.Version, "count", len(table.Weights))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "weights reloaded successfully",
		"version": table.Version,
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
