package settings

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"portfolio-backend/internal/cache"
	"portfolio-backend/internal/httpx"
	"portfolio-backend/internal/middleware"
	"portfolio-backend/internal/transport"
)

type Handler struct {
	repo  Repository
	cache cache.Cache
	log   *slog.Logger
}

func NewHandler(repo Repository, cacheStore cache.Cache, log *slog.Logger) *Handler {
	if cacheStore == nil {
		cacheStore = cache.NewNoop()
	}
	return &Handler{
		repo:  repo,
		cache: cacheStore,
		log:   log,
	}
}

// Get serves the current policy. Public read; the admin dashboard and the
// public booking page share it.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	current, err := h.repo.Get(ctx)
	if err != nil {
		log.Error("settings get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, current)
}

// Update applies a full or partial settings update after revalidating the
// merged result against the policy bounds.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req UpdateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("settings update: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	current, err := h.repo.Get(ctx)
	if err != nil {
		log.Error("settings update: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	next := Apply(current, req)
	if err := Validate(next); err != nil {
		log.Warn("settings update: validation error", slog.String("error", err.Error()))
		if errors.Is(err, ErrInvalidSettings) {
			transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		transport.WriteError(w, http.StatusBadRequest, "invalid settings", nil)
		return
	}

	updated, err := h.repo.Update(ctx, next, time.Now())
	if err != nil {
		log.Error("settings update: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	// Any cached availability view may now be stale.
	_ = h.cache.DeletePrefix(r.Context(), "availability:")

	log.Info("settings update: ok",
		slog.Int("slot_duration", updated.SlotDuration),
		slog.Int("buffer", updated.BufferBetweenSlots),
		slog.String("timezone", updated.Timezone),
	)
	transport.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return h.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
