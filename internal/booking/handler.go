package booking

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"portfolio-backend/internal/cache"
	"portfolio-backend/internal/httpx"
	"portfolio-backend/internal/middleware"
	"portfolio-backend/internal/transport"
	"portfolio-backend/internal/validation"
)

type Handler struct {
	service  *Service
	val      *validation.Validator
	cache    cache.Cache
	cacheTTL time.Duration
	log      *slog.Logger
}

func NewHandler(service *Service, val *validation.Validator, cacheStore cache.Cache, cacheTTL time.Duration, log *slog.Logger) *Handler {
	if cacheStore == nil {
		cacheStore = cache.NewNoop()
	}
	return &Handler{
		service:  service,
		val:      val,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

type availabilityQuery struct {
	Date string `validate:"required,date"`
}

type slotsResponse struct {
	BookedSlots []string `json:"bookedSlots"`
}

// GetAvailabilitySlots returns the occupied slot starts for a date.
func (h *Handler) GetAvailabilitySlots(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	q := availabilityQuery{Date: r.URL.Query().Get("date")}
	if err := h.val.Struct(q); err != nil {
		log.Warn("availability slots: invalid query")
		transport.WriteError(w, http.StatusBadRequest, "invalid query", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	cacheKey := "availability:" + q.Date
	if cached, ok, err := h.cache.Get(r.Context(), cacheKey); err == nil && ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(cached)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	booked, err := h.service.BookedSlots(ctx, q.Date)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			transport.WriteError(w, http.StatusBadRequest, "invalid date", nil)
			return
		}
		log.Error("availability slots: lookup error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "availability error", nil)
		return
	}

	response := slotsResponse{BookedSlots: booked}
	if payload, err := encodeJSON(response); err == nil {
		_ = h.cache.Set(r.Context(), cacheKey, payload, h.cacheTTL)
	}

	log.Info("availability slots: ok", slog.String("date", q.Date), slog.Int("booked", len(booked)))
	transport.WriteJSON(w, http.StatusOK, response)
}

// CreateRequest mirrors the public booking form. Website is the honeypot
// field; it is absent from the rendered form and must stay empty.
type CreateRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Topic    string `json:"topic" validate:"required,min=3,max=200"`
	Details  string `json:"details" validate:"omitempty,max=1000"`
	Date     string `json:"date" validate:"required,date"`
	Time     string `json:"time" validate:"required,clock"`
	Timezone string `json:"timezone" validate:"omitempty,tz"`
	Website  string `json:"website"`
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req CreateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("appointments create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	if err := h.val.Struct(req); err != nil {
		log.Warn("appointments create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	appt, err := h.service.Submit(ctx, SubmitRequest{
		Name:      req.Name,
		Email:     req.Email,
		Topic:     req.Topic,
		Details:   req.Details,
		Date:      req.Date,
		Time:      req.Time,
		Timezone:  req.Timezone,
		Honeypot:  req.Website,
		IPAddress: httpx.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.writeSubmitError(w, log, req, err)
		return
	}

	_ = h.cache.DeletePrefix(r.Context(), "availability:"+req.Date)

	log.Info("appointments create: admitted",
		slog.String("appointment_id", appt.ID),
		slog.String("date", appt.Date),
		slog.String("time", appt.Time),
	)
	transport.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"appointmentId": appt.ID,
	})
}

func (h *Handler) writeSubmitError(w http.ResponseWriter, log *slog.Logger, req CreateRequest, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		log.Warn("appointments create: rejected", slog.String("reason", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ErrDateNotAvailable):
		log.Warn("appointments create: date not available", slog.String("date", req.Date))
		transport.WriteError(w, http.StatusBadRequest, "date not available", nil)
	case errors.Is(err, ErrSlotNotAvailable):
		log.Warn("appointments create: slot not available", slog.String("date", req.Date), slog.String("time", req.Time))
		transport.WriteError(w, http.StatusBadRequest, "slot not available", nil)
	case errors.Is(err, ErrSlotConflict):
		log.Warn("appointments create: slot conflict", slog.String("date", req.Date), slog.String("time", req.Time))
		transport.WriteError(w, http.StatusConflict, "slot already booked", nil)
	case errors.Is(err, ErrDayCapacity):
		log.Warn("appointments create: day capacity reached", slog.String("date", req.Date))
		transport.WriteError(w, http.StatusConflict, "daily booking limit reached", nil)
	default:
		log.Error("appointments create: internal error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "booking error", nil)
	}
}

// UpdateRequest carries a lifecycle transition and/or a note edit.
type UpdateRequest struct {
	Status     *string `json:"status" validate:"omitempty,oneof=confirmed rejected cancelled"`
	AdminNotes *string `json:"adminNotes" validate:"omitempty,max=2000"`
}

func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req UpdateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("appointments update: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	if err := h.val.Struct(req); err != nil {
		log.Warn("appointments update: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	updated, err := h.service.UpdateAppointment(ctx, id, LifecycleRequest{
		Status:     req.Status,
		AdminNotes: req.AdminNotes,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			log.Warn("appointments update: not found", slog.String("appointment_id", id))
			transport.WriteError(w, http.StatusNotFound, "appointment not found", nil)
		case errors.Is(err, ErrInvalidTransition):
			log.Warn("appointments update: invalid transition", slog.String("appointment_id", id), slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		default:
			log.Error("appointments update: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	_ = h.cache.DeletePrefix(r.Context(), "availability:"+updated.Date)

	log.Info("appointments update: ok",
		slog.String("appointment_id", updated.ID),
		slog.String("status", updated.Status),
	)
	transport.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	appt, err := h.service.GetAppointment(ctx, id)
	if err == nil {
		defer func() { _ = h.cache.DeletePrefix(r.Context(), "availability:"+appt.Date) }()
	}

	if err := h.service.DeleteAppointment(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("appointments delete: not found", slog.String("appointment_id", id))
			transport.WriteError(w, http.StatusNotFound, "appointment not found", nil)
			return
		}
		log.Error("appointments delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("appointments delete: ok", slog.String("appointment_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 20, 100)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	filter := ListFilter{
		Status: strings.TrimSpace(r.URL.Query().Get("status")),
		Date:   strings.TrimSpace(r.URL.Query().Get("date")),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, total, err := h.service.ListAppointments(ctx, filter, limit, offset)
	if err != nil {
		log.Error("admin appointments list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin appointments list: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
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
