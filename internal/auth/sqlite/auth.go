package sqlite

import (
	"errors"

	"github.com/waynecorp/project-registry/internal/auth"
	userDatamodel "github.com/waynecorp/project-registry/internal/core/datamodel/user"
	"gorm.io/gorm"
)

// Repository implements auth.Repository on top of GORM.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindUserByUsername looks up a user row. Usernames are case-sensitive.
func (r *Repository) FindUserByUsername(username string) (*userDatamodel.User, error) {
	var row userDatamodel.User
	err := r.db.Where("username = ?", username).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &row, nil
}
