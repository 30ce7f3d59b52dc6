package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/waynecorp/project-registry/internal/auth"
	projectDatamodel "github.com/waynecorp/project-registry/internal/core/datamodel/project"
	userDatamodel "github.com/waynecorp/project-registry/internal/core/datamodel/user"
	"github.com/waynecorp/project-registry/internal/project"
	"gorm.io/gorm"
)

// Store owns the registry's two tables. Schema creation and seeding are
// idempotent and run at most once per process, even under concurrent
// first requests.
type Store struct {
	db          *gorm.DB
	bcryptCost  int
	logger      *slog.Logger
	initOnce    sync.Once
	initErr     error
	initialized atomic.Bool
}

func New(db *gorm.DB, bcryptCost int, logger *slog.Logger) *Store {
	return &Store{
		db:         db,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Initialize creates both tables if absent and seeds them if empty. Safe
// to call any number of times; only the first call does work.
func (s *Store) Initialize(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.initErr = s.bootstrap(ctx)
		if s.initErr == nil {
			s.initialized.Store(true)
		}
	})
	return s.initErr
}

func (s *Store) Initialized() bool {
	return s.initialized.Load()
}

func (s *Store) bootstrap(ctx context.Context) error {
	db := s.db.WithContext(ctx)

	if err := db.AutoMigrate(&projectDatamodel.Project{}, &userDatamodel.User{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	if err := s.seedProjects(db); err != nil {
		return fmt.Errorf("seed projects: %w", err)
	}

	if err := s.seedUsers(db); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	s.logger.Info("storage initialized")
	return nil
}

func (s *Store) seedProjects(db *gorm.DB) error {
	var count int64
	if err := db.Model(&projectDatamodel.Project{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		s.logger.Debug("projects table already populated", "rows", count)
		return nil
	}

	seed := []struct {
		name        string
		description string
		tier        project.Tier
	}{
		{"Wayne Tower Retrofit", "Structural modernization of the headquarters tower in downtown Gotham.", project.TierCommercial},
		{"Consumer Drone Line", "Civilian camera drone product line for the consumer electronics division.", project.TierCommercial},
		{"Metro Rail Contract", "Rolling stock supply contract for the Gotham metropolitan rail authority.", project.TierCommercial},
		{"Project Nightwatch", "Long-range surveillance platform for applied sciences field trials.", project.TierSecret},
		{"Defense Exoskeleton", "Powered exoskeleton prototype developed under a restricted defense grant.", project.TierSecret},
		{"Gotham Park Renewal", "Restoration of the riverside park network funded by the Wayne Foundation.", project.TierPublic},
		{"Clean Water Initiative", "Filtration plants for the East End public water supply.", project.TierPublic},
		{"STEM Scholarship Program", "Annual scholarship fund for Gotham public school graduates.", project.TierPublic},
	}

	rows := make([]*projectDatamodel.Project, len(seed))
	for i, p := range seed {
		rows[i] = &projectDatamodel.Project{
			Name:        p.name,
			Description: p.description,
			Tier:        string(p.tier),
			AccessLevel: p.tier.AccessLevel(),
		}
	}

	if err := db.Create(&rows).Error; err != nil {
		return err
	}
	s.logger.Info("seeded projects", "rows", len(rows))
	return nil
}

func (s *Store) seedUsers(db *gorm.DB) error {
	var count int64
	if err := db.Model(&userDatamodel.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		s.logger.Debug("users table already populated", "rows", count)
		return nil
	}

	seed := []struct {
		username    string
		password    string
		displayName string
		role        auth.Role
	}{
		{"vendedor1", "valetudo", "João Vendedor", auth.RoleSeller},
		{"gerente01", "precisodeaumento", "Maria Gerente", auth.RoleManager},
		{"adminiseg1", "bat1234", "Admin Segurança", auth.RoleSecurityAdmin},
	}

	rows := make([]*userDatamodel.User, 0, len(seed))
	for _, u := range seed {
		hash, err := auth.HashPassword(u.password, s.bcryptCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.username, err)
		}
		rows = append(rows, &userDatamodel.User{
			Username:     u.username,
			PasswordHash: hash,
			DisplayName:  u.displayName,
			Role:         string(u.role),
		})
	}

	if err := db.Create(&rows).Error; err != nil {
		return err
	}
	s.logger.Info("seeded users", "rows", len(rows))
	return nil
}

// Counts returns the row counts for both tables, used by the health
// endpoint.
func (s *Store) Counts() (projects int64, users int64, err error) {
	if err = s.db.Model(&projectDatamodel.Project{}).Count(&projects).Error; err != nil {
		return 0, 0, err
	}
	if err = s.db.Model(&userDatamodel.User{}).Count(&users).Error; err != nil {
		return 0, 0, err
	}
	return projects, users, nil
}
