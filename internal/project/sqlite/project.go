package sqlite

import (
	"errors"
	"strings"

	projectDatamodel "github.com/waynecorp/project-registry/internal/core/datamodel/project"
	"github.com/waynecorp/project-registry/internal/project"
	"gorm.io/gorm"
)

// ProjectRepository implements project.Repository using GORM.
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) project.Repository {
	return &ProjectRepository{db: db}
}

// List returns projects in the given tiers, newest first.
func (r *ProjectRepository) List(tiers []string) ([]*projectDatamodel.Project, error) {
	var rows []*projectDatamodel.Project
	q := r.db.Order("id DESC")
	if len(tiers) > 0 {
		q = q.Where("tier IN ?", tiers)
	}
	err := q.Find(&rows).Error
	return rows, err
}

// Search matches term as a case-insensitive substring of name or
// description, restricted to the given tiers, newest first. An empty term
// matches nothing.
func (r *ProjectRepository) Search(term string, tiers []string) ([]*projectDatamodel.Project, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []*projectDatamodel.Project{}, nil
	}

	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	var rows []*projectDatamodel.Project
	q := r.db.
		Where("LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\'", pattern, pattern).
		Order("id DESC")
	if len(tiers) > 0 {
		q = q.Where("tier IN ?", tiers)
	}
	err := q.Find(&rows).Error
	return rows, err
}

// escapeLike neutralizes LIKE metacharacters so the term matches as a
// literal substring.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *ProjectRepository) GetByID(id int64) (*projectDatamodel.Project, error) {
	var row projectDatamodel.Project
	err := r.db.Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, project.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// UpdateFields applies only the supplied columns in a single UPDATE
// statement, so concurrent updates to the same row never interleave
// partial field writes.
func (r *ProjectRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	result := r.db.Model(&projectDatamodel.Project{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return project.ErrNotFound
	}
	return nil
}
