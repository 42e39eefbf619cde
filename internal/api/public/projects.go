// Package public implements the read-only API third parties reach with an opaque API
// token. Routes sit behind TokenAuthMiddleware, which resolves the token to its owner
// and records one usage row per call. Failures use the bare {error, message} body.
package public

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/creavibe/creavibe/internal/api/projects"
	"github.com/creavibe/creavibe/internal/api/respond"
	"github.com/creavibe/creavibe/internal/apperr"
	"github.com/creavibe/creavibe/internal/db/models"
	"github.com/creavibe/creavibe/internal/db/repositories"
	"github.com/creavibe/creavibe/internal/middleware"
)

// ProjectReader reads a user's projects
type ProjectReader interface {
	ListProjects(ctx context.Context, userID string, f repositories.ProjectFilter) ([]*models.Project, error)
	GetProject(ctx context.Context, userID, id string) (*models.Project, error)
}

// Handlers serves the public API
type Handlers struct {
	projects ProjectReader
}

// NewHandlers creates a new Handlers instance
func NewHandlers(projects ProjectReader) *Handlers {
	return &Handlers{projects: projects}
}

// @Summary      List projects (public API)
// @Description  The token owner's projects, newest first.
// @Tags         Public
// @Security     APIToken
// @Produce      json
// @Param        status  query  string  false  "draft, published or archived"
// @Param        q       query  string  false  "Title search"
// @Param        limit   query  int     false  "Page size (default 50, max 200)"
// @Param        offset  query  int     false  "Offset"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Router       /api/public/v1/projects [get]
func (h *Handlers) ListProjectsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := projects.ParseFilter(c)
		if err != nil {
			respond.BareError(c, err)
			return
		}
		list, err := h.projects.ListProjects(c.Request.Context(), middleware.GetUserID(c), f)
		if err != nil {
			respond.BareError(c, apperr.Database(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"projects": list, "count": len(list)})
	}
}

// @Summary      Get project (public API)
// @Tags         Public
// @Security     APIToken
// @Produce      json
// @Param        id  path  string  true  "Project ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/public/v1/projects/{id} [get]
func (h *Handlers) GetProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := uuid.Parse(id); err != nil {
			respond.BareError(c, apperr.NotFound("Project"))
			return
		}
		p, err := h.projects.GetProject(c.Request.Context(), middleware.GetUserID(c), id)
		if err != nil {
			respond.BareError(c, apperr.Database(err))
			return
		}
		if p == nil {
			respond.BareError(c, apperr.NotFound("Project"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"project": p})
	}
}
