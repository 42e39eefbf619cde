// Package projects implements the dashboard handlers for user-owned content projects:
// CRUD and cover image upload.
package projects

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/creavibe/creavibe/internal/api/respond"
	"github.com/creavibe/creavibe/internal/apperr"
	"github.com/creavibe/creavibe/internal/db/models"
	"github.com/creavibe/creavibe/internal/db/repositories"
	"github.com/creavibe/creavibe/internal/middleware"
	"github.com/creavibe/creavibe/internal/storage"
)

// MaxTitleLength bounds a project title
const MaxTitleLength = 200

// List paging limits
const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Store persists projects
type Store interface {
	ListProjects(ctx context.Context, userID string, f repositories.ProjectFilter) ([]*models.Project, error)
	GetProject(ctx context.Context, userID, id string) (*models.Project, error)
	CreateProject(ctx context.Context, p *models.Project) error
	UpdateProject(ctx context.Context, userID, id string, u repositories.ProjectUpdate) (*models.Project, error)
	SetProjectImage(ctx context.Context, userID, id, imageURL string) (bool, error)
	DeleteProject(ctx context.Context, userID, id string) (bool, error)
}

// ProjectHandlers handles project endpoints
type ProjectHandlers struct {
	store          Store
	storage        storage.Storage
	storageBackend string
	maxUploadBytes int64
}

// NewProjectHandlers creates a new ProjectHandlers instance. backend names the storage
// backend for metrics.
func NewProjectHandlers(store Store, st storage.Storage, backend string, maxUploadBytes int64) *ProjectHandlers {
	return &ProjectHandlers{
		store:          store,
		storage:        st,
		storageBackend: backend,
		maxUploadBytes: maxUploadBytes,
	}
}

// CreateProjectRequest represents the request to create a project
type CreateProjectRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Status      models.ProjectStatus `json:"status"`
}

// UpdateProjectRequest is a partial project update
type UpdateProjectRequest struct {
	Title       *string               `json:"title"`
	Description *string               `json:"description"`
	Status      *models.ProjectStatus `json:"status"`
}

var errProjectNotFound = apperr.NotFound("Project")

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperr.Validation("Title is required", gin.H{"field": "title"})
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", apperr.Validation("Title must be at most 200 characters", gin.H{"field": "title"})
	}
	return title, nil
}

func validateStatus(s models.ProjectStatus) error {
	if !s.Valid() {
		return apperr.Validation("Invalid status", gin.H{"field": "status", "allowed": []models.ProjectStatus{
			models.ProjectStatusDraft, models.ProjectStatusPublished, models.ProjectStatusArchived,
		}})
	}
	return nil
}

// ParseFilter reads the status, q, limit and offset query parameters shared by the
// dashboard and public project listings.
func ParseFilter(c *gin.Context) (repositories.ProjectFilter, error) {
	f := repositories.ProjectFilter{
		Query: strings.TrimSpace(c.Query("q")),
		Limit: defaultListLimit,
	}
	if s := c.Query("status"); s != "" {
		f.Status = models.ProjectStatus(s)
		if err := validateStatus(f.Status); err != nil {
			return f, err
		}
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || n == 0 {
			return f, apperr.Validation("limit must be a positive integer", nil)
		}
		f.Limit = min(n, maxListLimit)
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return f, apperr.Validation("offset must be a non-negative integer", nil)
		}
		f.Offset = n
	}
	return f, nil
}

// @Summary      List projects
// @Tags         Projects
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "draft, published or archived"
// @Param        q       query  string  false  "Title search"
// @Param        limit   query  int     false  "Page size (default 50, max 200)"
// @Param        offset  query  int     false  "Offset"
// @Success      200  {object}  respond.Envelope
// @Failure      400  {object}  respond.Envelope
// @Router       /api/v1/projects [get]
func (h *ProjectHandlers) ListProjectsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := ParseFilter(c)
		if err != nil {
			respond.Error(c, err)
			return
		}
		projects, err := h.store.ListProjects(c.Request.Context(), middleware.GetUserID(c), f)
		if err != nil {
			respond.Error(c, apperr.Database(err))
			return
		}
		respond.OK(c, projects)
	}
}

// @Summary      Get project
// @Tags         Projects
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Project ID"
// @Success      200  {object}  respond.Envelope
// @Failure      404  {object}  respond.Envelope
// @Router       /api/v1/projects/{id} [get]
func (h *ProjectHandlers) GetProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := h.lookup(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
		if err != nil {
			respond.Error(c, err)
			return
		}
		respond.OK(c, p)
	}
}

// lookup fetches the user's project and maps absence (including malformed ids) to not_found
func (h *ProjectHandlers) lookup(ctx context.Context, userID, id string) (*models.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errProjectNotFound
	}
	p, err := h.store.GetProject(ctx, userID, id)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if p == nil {
		return nil, errProjectNotFound
	}
	return p, nil
}

// @Summary      Create project
// @Tags         Projects
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  CreateProjectRequest  true  "Project"
// @Success      201  {object}  respond.Envelope
// @Failure      400  {object}  respond.Envelope
// @Router       /api/v1/projects [post]
func (h *ProjectHandlers) CreateProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, apperr.Validation("Invalid request body", err.Error()))
			return
		}
		title, err := validateTitle(req.Title)
		if err != nil {
			respond.Error(c, err)
			return
		}
		if req.Status == "" {
			req.Status = models.ProjectStatusDraft
		}
		if err := validateStatus(req.Status); err != nil {
			respond.Error(c, err)
			return
		}

		p := &models.Project{
			UserID:      middleware.GetUserID(c),
			Title:       title,
			Description: req.Description,
			Status:      req.Status,
		}
		if err := h.store.CreateProject(c.Request.Context(), p); err != nil {
			respond.Error(c, apperr.Database(err))
			return
		}
		respond.Created(c, p)
	}
}

// @Summary      Update project
// @Description  Partial update of title, description and status. Any status may move to any other.
// @Tags         Projects
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "Project ID"
// @Param        body  body  UpdateProjectRequest  true  "Fields to change"
// @Success      200  {object}  respond.Envelope
// @Failure      400  {object}  respond.Envelope
// @Failure      404  {object}  respond.Envelope
// @Router       /api/v1/projects/{id} [patch]
func (h *ProjectHandlers) UpdateProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := uuid.Parse(id); err != nil {
			respond.Error(c, errProjectNotFound)
			return
		}

		var req UpdateProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, apperr.Validation("Invalid request body", err.Error()))
			return
		}

		update := repositories.ProjectUpdate{Description: req.Description, Status: req.Status}
		if req.Title != nil {
			title, err := validateTitle(*req.Title)
			if err != nil {
				respond.Error(c, err)
				return
			}
			update.Title = &title
		}
		if req.Status != nil {
			if err := validateStatus(*req.Status); err != nil {
				respond.Error(c, err)
				return
			}
		}
		if update.Empty() {
			respond.Error(c, apperr.Validation("No fields to update", nil))
			return
		}

		p, err := h.store.UpdateProject(c.Request.Context(), middleware.GetUserID(c), id, update)
		if err != nil {
			respond.Error(c, apperr.Database(err))
			return
		}
		if p == nil {
			respond.Error(c, errProjectNotFound)
			return
		}
		respond.OK(c, p)
	}
}

// @Summary      Delete project
// @Tags         Projects
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Project ID"
// @Success      200  {object}  respond.Envelope
// @Failure      404  {object}  respond.Envelope
// @Router       /api/v1/projects/{id} [delete]
func (h *ProjectHandlers) DeleteProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := uuid.Parse(id); err != nil {
			respond.Error(c, errProjectNotFound)
			return
		}

		deleted, err := h.store.DeleteProject(c.Request.Context(), middleware.GetUserID(c), id)
		if err != nil {
			respond.Error(c, apperr.Database(err))
			return
		}
		if !deleted {
			respond.Error(c, errProjectNotFound)
			return
		}
		respond.OK(c, gin.H{"id": id, "deleted": true})
	}
}
