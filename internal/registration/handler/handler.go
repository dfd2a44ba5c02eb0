// Package handler is the thin HTTP layer over the registration service. One
// path, method-dispatched, matching the document shapes the original frontend
// already speaks: GET reads a document, POST reconciles or overwrites one,
// DELETE clears the registration collection behind the admin passphrase.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"outing/internal/platform/metrics"
	"outing/internal/platform/middleware"
	"outing/internal/registration/aggregate"
	"outing/internal/registration/models"
	"outing/internal/transport/http/shared"
	dErrors "outing/pkg/domain-errors"
)

// Service defines the registration operations the HTTP layer needs.
type Service interface {
	Registrations(ctx context.Context) ([]models.Registration, error)
	Submit(ctx context.Context, in models.Input) (models.Registration, error)
	Update(ctx context.Context, id string, in models.Input) (models.Registration, error)
	Clear(ctx context.Context, passphrase string) error
	Config(ctx context.Context) (models.AppConfig, error)
	SetConfig(ctx context.Context, cfg models.AppConfig) error
	Campus(ctx context.Context) (json.RawMessage, error)
	SetCampus(ctx context.Context, doc json.RawMessage) error
	Headcount(ctx context.Context) (aggregate.Breakdown, error)
}

// Handler handles the /api/sync endpoint family.
type Handler struct {
	service Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(service Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{service: service, logger: logger, metrics: m}
}

// Register mounts the sync routes with the standard middleware chain.
func (h *Handler) Register(r chi.Router) {
	sync := chi.NewRouter()
	sync.Use(middleware.Recovery(h.logger))
	sync.Use(middleware.RequestID)
	sync.Use(middleware.RequestTime)
	sync.Use(middleware.Logger(h.logger))
	sync.Use(middleware.Timeout(30 * time.Second))
	sync.Use(middleware.ContentTypeJSON)
	sync.Use(h.observe)

	sync.Get("/", h.handleGet)
	sync.Post("/", h.handlePost)
	sync.Delete("/", h.handleDelete)
	sync.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		shared.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"error": "method_not_allowed",
		})
	})

	r.Mount("/api/sync", sync)
}

// syncRequest is the POST envelope. Exactly one of the payload fields is set.
type syncRequest struct {
	Type         string            `json:"type"`
	Registration *registrationBody `json:"registration"`
	Config       *models.AppConfig `json:"config"`
	CampusData   json.RawMessage   `json:"campusData"`
	Password     string            `json:"password"`
}

// registrationBody is a submitted registration; a non-empty id selects the
// explicit-id update path instead of name-match reconciliation.
type registrationBody struct {
	ID string `json:"id"`
	models.Input
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.URL.Query().Get("type") {
	case "config":
		cfg, err := h.service.Config(ctx)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		shared.WriteJSON(w, http.StatusOK, cfg)

	case "campus":
		doc, err := h.service.Campus(ctx)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(doc)

	case "stats":
		breakdown, err := h.service.Headcount(ctx)
		if err != nil {
			h.degradedStats(ctx, w, err)
			return
		}
		shared.WriteJSON(w, http.StatusOK, map[string]any{
			"breakdown": breakdown,
			"total":     breakdown.Total(),
		})

	default:
		regs, err := h.service.Registrations(ctx)
		if err != nil {
			// Read paths degrade to an empty collection; the public page must
			// render on first load even with the backend down.
			h.logger.WarnContext(ctx, "registration read degraded to empty",
				"error", err,
				"request_id", middleware.GetRequestID(ctx),
			)
			regs = []models.Registration{}
		}
		shared.WriteJSON(w, http.StatusOK, regs)
	}
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	switch {
	case req.Type == "config" && req.Config != nil:
		if err := h.service.SetConfig(ctx, *req.Config); err != nil {
			shared.WriteError(w, err)
			return
		}
		shared.WriteSuccess(w, nil)

	case req.Type == "campus" && len(req.CampusData) > 0:
		if err := h.service.SetCampus(ctx, req.CampusData); err != nil {
			shared.WriteError(w, err)
			return
		}
		shared.WriteSuccess(w, nil)

	case req.Registration != nil:
		var (
			reg models.Registration
			err error
		)
		if req.Registration.ID != "" {
			reg, err = h.service.Update(ctx, req.Registration.ID, req.Registration.Input)
		} else {
			reg, err = h.service.Submit(ctx, req.Registration.Input)
		}
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		shared.WriteSuccess(w, map[string]any{"registration": reg})

	default:
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid payload"))
	}
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.service.Clear(ctx, req.Password); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteSuccess(w, nil)
}

// degradedStats serves zeros instead of an error; the progress bar is display
// glue, not a correctness surface.
func (h *Handler) degradedStats(ctx context.Context, w http.ResponseWriter, err error) {
	h.logger.WarnContext(ctx, "stats read degraded to zero",
		"error", err,
		"request_id", middleware.GetRequestID(ctx),
	)
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"breakdown": aggregate.Breakdown{},
		"total":     0,
	})
}

// observe records request latency for the sync endpoint.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.metrics.ObserveSyncRequest(time.Since(start))
	})
}
