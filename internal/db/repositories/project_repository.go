package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/creavibe/creavibe/internal/db/models"
)

// ProjectRepository handles project database operations
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// ProjectFilter narrows ListProjects. Zero values mean "no filter".
type ProjectFilter struct {
	Status models.ProjectStatus
	Query  string // case-insensitive title substring
	Limit  uint64
	Offset uint64
}

// ProjectUpdate carries the fields of a partial update; nil fields are left unchanged
type ProjectUpdate struct {
	Title       *string
	Description *string
	Status      *models.ProjectStatus
}

// Empty reports whether the update changes nothing
func (u ProjectUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil
}

var projectColumns = []string{"id", "user_id", "title", "description", "status", "image_url", "created_at", "updated_at"}

// ListProjects returns a user's projects, newest first
func (r *ProjectRepository) ListProjects(ctx context.Context, userID string, f ProjectFilter) ([]*models.Project, error) {
	b := psql.Select(projectColumns...).
		From("projects").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC")
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": f.Status})
	}
	if f.Query != "" {
		b = b.Where(sq.ILike{"title": "%" + f.Query + "%"})
	}
	if f.Limit > 0 {
		b = b.Limit(f.Limit)
	}
	if f.Offset > 0 {
		b = b.Offset(f.Offset)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build project query: %w", err)
	}

	projects := []*models.Project{}
	if err := r.db.SelectContext(ctx, &projects, query, args...); err != nil {
		if isMissingTable(err) {
			return []*models.Project{}, nil
		}
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// GetProject returns the user's project, or nil when absent
func (r *ProjectRepository) GetProject(ctx context.Context, userID, id string) (*models.Project, error) {
	query, args, err := psql.Select(projectColumns...).
		From("projects").
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build project query: %w", err)
	}

	var p models.Project
	if err := r.db.GetContext(ctx, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMissingTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

// CreateProject inserts a project. ID and timestamps are assigned here.
func (r *ProjectRepository) CreateProject(ctx context.Context, p *models.Project) error {
	now := time.Now().UTC()
	p.ID = uuid.New().String()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = models.ProjectStatusDraft
	}

	query := `
		INSERT INTO projects (id, user_id, title, description, status, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.Title, p.Description, p.Status, p.ImageURL, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// UpdateProject applies a partial update and returns the updated row, or nil when
// the project does not exist for this user.
func (r *ProjectRepository) UpdateProject(ctx context.Context, userID, id string, u ProjectUpdate) (*models.Project, error) {
	set := map[string]interface{}{"updated_at": time.Now().UTC()}
	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Status != nil {
		set["status"] = *u.Status
	}

	query, args, err := psql.Update("projects").
		SetMap(set).
		Where(sq.Eq{"id": id, "user_id": userID}).
		Suffix("RETURNING " + strings.Join(projectColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build project update: %w", err)
	}

	var p models.Project
	if err := r.db.GetContext(ctx, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update project: %w", err)
	}
	return &p, nil
}

// SetProjectImage stores the public URL of the project's cover image
func (r *ProjectRepository) SetProjectImage(ctx context.Context, userID, id, imageURL string) (bool, error) {
	query := `UPDATE projects SET image_url = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`
	res, err := r.db.ExecContext(ctx, query, imageURL, time.Now().UTC(), id, userID)
	if err != nil {
		return false, fmt.Errorf("set project image: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set project image: %w", err)
	}
	return n > 0, nil
}

// DeleteProject deletes the user's project and reports whether it existed
func (r *ProjectRepository) DeleteProject(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	return n > 0, nil
}
