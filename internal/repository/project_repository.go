package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blueprintpro/estimator/internal/models"
	appErr "github.com/blueprintpro/estimator/pkg/errors"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ProjectFilter narrows and pages a project listing. Page is 1-based.
type ProjectFilter struct {
	Status   models.ProjectStatus
	Page     int
	PageSize int
}

func (f ProjectFilter) normalized() ProjectFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

type ProjectRepository interface {
	BaseRepository[models.Project]
	// List returns one page ordered by most recently updated, plus the total match count.
	List(ctx context.Context, filter ProjectFilter) ([]models.Project, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ProjectStatus) error
	// SaveEstimate writes the estimate columns, totals and status in one statement.
	SaveEstimate(ctx context.Context, p *models.Project) error
}

type projectRepository struct {
	BaseRepository[models.Project]
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{BaseRepository: NewBaseRepository[models.Project](db), db: db}
}

var _ ProjectRepository = (*projectRepository)(nil)

func (r *projectRepository) List(ctx context.Context, filter ProjectFilter) ([]models.Project, int64, error) {
	filter = filter.normalized()

	q := r.db.WithContext(ctx).Model(&models.Project{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, appErr.Wrap(err, appErr.CodeInternal, "count projects failed")
	}

	out := []models.Project{}
	err := q.Order("updated_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&out).Error
	if err != nil {
		return nil, 0, appErr.Wrap(err, appErr.CodeInternal, "list projects failed")
	}
	return out, total, nil
}

func (r *projectRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ProjectStatus) error {
	if !status.Valid() {
		return appErr.Invalid("invalid project status").WithMeta("status", string(status))
	}
	res := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update project status failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "Project not found")
	}
	return nil
}

func (r *projectRepository) SaveEstimate(ctx context.Context, p *models.Project) error {
	res := r.db.WithContext(ctx).Model(p).
		Select("phase_estimates", "schedule", "total_material_cost", "total_labor_cost", "total_estimate", "status", "updated_at").
		Updates(p)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "save estimate failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "Project not found")
	}
	return nil
}
