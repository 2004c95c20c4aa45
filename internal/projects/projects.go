package projects

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
	"portfolio-backend/internal/utils"
	"portfolio-backend/internal/validation"
)

var (
	ErrNotFound      = errors.New("project not found")
	ErrDuplicateSlug = errors.New("project slug already exists")
)

type Repository interface {
	Create(ctx context.Context, p models.Project) error
	List(ctx context.Context, featuredOnly bool) ([]models.Project, error)
	GetBySlug(ctx context.Context, slug string) (models.Project, error)
	GetByID(ctx context.Context, id string) (models.Project, error)
	Replace(ctx context.Context, p models.Project) (models.Project, error)
	Delete(ctx context.Context, id string) error
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, p models.Project) error {
	_, err := r.col.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateSlug
	}
	return err
}

func (r *MongoRepository) List(ctx context.Context, featuredOnly bool) ([]models.Project, error) {
	filter := bson.M{}
	if featuredOnly {
		filter["featured"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.Project, 0)
	for cursor.Next(ctx) {
		var p models.Project
		if err := cursor.Decode(&p); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, cursor.Err()
}

func (r *MongoRepository) GetBySlug(ctx context.Context, slug string) (models.Project, error) {
	var p models.Project
	if err := r.col.FindOne(ctx, bson.M{"slug": slug}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Project{}, ErrNotFound
		}
		return models.Project{}, err
	}
	return p, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (models.Project, error) {
	var p models.Project
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Project{}, ErrNotFound
		}
		return models.Project{}, err
	}
	return p, nil
}

func (r *MongoRepository) Replace(ctx context.Context, p models.Project) (models.Project, error) {
	opts := options.FindOneAndReplace().SetReturnDocument(options.After)
	var updated models.Project
	if err := r.col.FindOneAndReplace(ctx, bson.M{"_id": p.ID}, p, opts).Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Project{}, ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return models.Project{}, ErrDuplicateSlug
		}
		return models.Project{}, err
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
	Description string   `json:"description" validate:"required,max=5000"`
	Tech        []string `json:"tech" validate:"omitempty,dive,min=1,max=50"`
	RepoURL     string   `json:"repoUrl" validate:"omitempty,url"`
	LiveURL     string   `json:"liveUrl" validate:"omitempty,url"`
	Featured    *bool    `json:"featured"`
}

func (h *Handler) PublicList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	featuredOnly := r.URL.Query().Get("featured") == "true"

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := h.repo.List(ctx, featuredOnly)
	if err != nil {
		log.Error("projects list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) PublicGetBySlug(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	if slug == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing slug", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.repo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			transport.WriteError(w, http.StatusNotFound, "project not found", nil)
			return
		}
		log.Error("projects get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, p)
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
	p := models.Project{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Slug:        utils.Slugify(req.Title),
		Description: strings.TrimSpace(req.Description),
		Tech:        req.Tech,
		RepoURL:     strings.TrimSpace(req.RepoURL),
		LiveURL:     strings.TrimSpace(req.LiveURL),
		Featured:    req.Featured != nil && *req.Featured,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.Create(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicateSlug) {
			transport.WriteError(w, http.StatusConflict, "project slug already exists", nil)
			return
		}
		log.Error("admin projects create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin projects create: ok", slog.String("project_id", p.ID), slog.String("slug", p.Slug))
	transport.WriteJSON(w, http.StatusCreated, p)
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
			transport.WriteError(w, http.StatusNotFound, "project not found", nil)
			return
		}
		log.Error("admin projects update: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	current.Title = strings.TrimSpace(req.Title)
	current.Slug = utils.Slugify(req.Title)
	current.Description = strings.TrimSpace(req.Description)
	current.Tech = req.Tech
	current.RepoURL = strings.TrimSpace(req.RepoURL)
	current.LiveURL = strings.TrimSpace(req.LiveURL)
	if req.Featured != nil {
		current.Featured = *req.Featured
	}
	current.UpdatedAt = time.Now().In(h.loc)

	updated, err := h.repo.Replace(ctx, current)
	if err != nil {
		if errors.Is(err, ErrDuplicateSlug) {
			transport.WriteError(w, http.StatusConflict, "project slug already exists", nil)
			return
		}
		log.Error("admin projects update: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin projects update: ok", slog.String("project_id", updated.ID))
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
			transport.WriteError(w, http.StatusNotFound, "project not found", nil)
			return
		}
		log.Error("admin projects delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin projects delete: ok", slog.String("project_id", id))
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
