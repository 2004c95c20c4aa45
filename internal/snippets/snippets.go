package snippets

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"portfolio-backend/internal/httpx"
	"portfolio-backend/internal/middleware"
	"portfolio-backend/internal/models"
	"portfolio-backend/internal/transport"
	"portfolio-backend/internal/validation"
)

var ErrNotFound = errors.New("snippet not found")

type Repository interface {
	Create(ctx context.Context, s models.Snippet) error
	List(ctx context.Context, language string, limit, offset int64) ([]models.Snippet, error)
	Count(ctx context.Context, language string) (int64, error)
	GetByID(ctx context.Context, id string) (models.Snippet, error)
	Replace(ctx context.Context, s models.Snippet) (models.Snippet, error)
	Delete(ctx context.Context, id string) error
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, s models.Snippet) error {
	_, err := r.col.InsertOne(ctx, s)
	return err
}

func listFilter(language string) bson.M {
	filter := bson.M{}
	if language != "" {
		filter["language"] = language
	}
	return filter
}

func (r *MongoRepository) List(ctx context.Context, language string, limit, offset int64) ([]models.Snippet, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.col.Find(ctx, listFilter(language), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.Snippet, 0)
	for cursor.Next(ctx) {
		var s models.Snippet
		if err := cursor.Decode(&s); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, cursor.Err()
}

func (r *MongoRepository) Count(ctx context.Context, language string) (int64, error) {
	return r.col.CountDocuments(ctx, listFilter(language))
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (models.Snippet, error) {
	var s models.Snippet
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Snippet{}, ErrNotFound
		}
		return models.Snippet{}, err
	}
	return s, nil
}

func (r *MongoRepository) Replace(ctx context.Context, s models.Snippet) (models.Snippet, error) {
	opts := options.FindOneAndReplace().SetReturnDocument(options.After)
	var updated models.Snippet
	if err := r.col.FindOneAndReplace(ctx, bson.M{"_id": s.ID}, s, opts).Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Snippet{}, ErrNotFound
		}
		return models.Snippet{}, err
	}
	return updated, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type Handler struct {
	repo Repository
	val  *validation.Validator
	log  *slog.Logger
	loc  *time.Location
}

func NewHandler(repo Repository, val *validation.Validator, loc *time.Location, log *slog.Logger) *Handler {
	return &Handler{
		repo: repo,
		val:  val,
		log:  log,
		loc:  loc,
	}
}

type UpsertRequest struct {
	Title       string   `json:"title" validate:"required,min=2,max=150"`
	Language    string   `json:"language" validate:"required,min=1,max=50"`
	Description string   `json:"description" validate:"omitempty,max=1000"`
	Code        string   `json:"code" validate:"required,max=20000"`
	Tags        []string `json:"tags" validate:"omitempty,dive,min=1,max=50"`
}

func (h *Handler) PublicList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 20, 100)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	language := strings.TrimSpace(r.URL.Query().Get("language"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := h.repo.List(ctx, language, limit, offset)
	if err != nil {
		log.Error("snippets list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	total, err := h.repo.Count(ctx, language)
	if err != nil {
		log.Error("snippets list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
}

func (h *Handler) PublicGet(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := h.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			transport.WriteError(w, http.StatusNotFound, "snippet not found", nil)
			return
		}
		log.Error("snippets get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, s)
}

func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req UpsertRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	now := time.Now().In(h.loc)
	s := models.Snippet{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Language:    strings.ToLower(strings.TrimSpace(req.Language)),
		Description: strings.TrimSpace(req.Description),
		Code:        req.Code,
		Tags:        req.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.Create(ctx, s); err != nil {
		log.Error("admin snippets create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin snippets create: ok", slog.String("snippet_id", s.ID))
	transport.WriteJSON(w, http.StatusCreated, s)
}

func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req UpsertRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	current, err := h.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			transport.WriteError(w, http.StatusNotFound, "snippet not found", nil)
			return
		}
		log.Error("admin snippets update: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	current.Title = strings.TrimSpace(req.Title)
	current.Language = strings.ToLower(strings.TrimSpace(req.Language))
	current.Description = strings.TrimSpace(req.Description)
	current.Code = req.Code
	current.Tags = req.Tags
	current.UpdatedAt = time.Now().In(h.loc)

	updated, err := h.repo.Replace(ctx, current)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			transport.WriteError(w, http.StatusNotFound, "snippet not found", nil)
			return
		}
		log.Error("admin snippets update: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin snippets update: ok", slog.String("snippet_id", updated.ID))
	transport.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			transport.WriteError(w, http.StatusNotFound, "snippet not found", nil)
			return
		}
		log.Error("admin snippets delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin snippets delete: ok", slog.String("snippet_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
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
