package project

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/waynecorp/project-registry/internal"
	"github.com/waynecorp/project-registry/internal/auth"
	projectDatamodel "github.com/waynecorp/project-registry/internal/core/datamodel/project"
	"github.com/waynecorp/project-registry/internal/core/events"
)

// Repository defines the data access methods for projects. List and Search
// results are ordered by id descending, most recent first.
type Repository interface {
	List(tiers []string) ([]*projectDatamodel.Project, error)
	Search(term string, tiers []string) ([]*projectDatamodel.Project, error)
	GetByID(id int64) (*projectDatamodel.Project, error)
	UpdateFields(id int64, fields map[string]interface{}) error
}

// Authenticator resolves a bearer token to a verified user.
type Authenticator interface {
	AuthenticateBearer(token string) (*auth.User, error)
}

// Service is the registry's business logic: role-filtered reads and the
// constrained partial update.
type Service struct {
	repo   Repository
	authn  Authenticator
	bus    *events.EventBus
	logger *slog.Logger
}

func NewService(repo Repository, authn Authenticator, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		authn:  authn,
		bus:    bus,
		logger: logger,
	}
}

// visibleTiersFor applies the access policy. Callers without a recognized
// role (anonymous requests included) see only the public tier; read
// filtering is enforced server-side for everyone.
func visibleTiersFor(role auth.Role) []string {
	visible := auth.VisibleTiers(role)
	if len(visible) == 0 {
		visible = []string{string(TierPublic)}
	}
	return visible
}

// ListForRole returns the projects the role may read. A requested tier
// filter is intersected with the role's visible tiers; unknown tier values
// are ignored and the full visible list is returned.
func (s *Service) ListForRole(role auth.Role, tierParam string) ([]*Project, error) {
	visible := visibleTiersFor(role)

	if tierParam != "" {
		if tier, ok := ParseTier(tierParam); ok {
			if !contains(visible, string(tier)) {
				return []*Project{}, nil
			}
			visible = []string{string(tier)}
		}
	}

	rows, err := s.repo.List(visible)
	if err != nil {
		s.logger.Error("failed to list projects", "error", err)
		return nil, internal.NewStorageError(err)
	}

	return FromDataModelSlice(rows), nil
}

// Search matches the term against name or description, case-insensitively,
// within the role's visible tiers. An empty or whitespace-only term yields
// an empty result set, not the full catalog.
func (s *Service) Search(role auth.Role, term string) ([]*Project, error) {
	if strings.TrimSpace(term) == "" {
		return []*Project{}, nil
	}

	rows, err := s.repo.Search(term, visibleTiersFor(role))
	if err != nil {
		s.logger.Error("project search failed", "error", err, "term", term)
		return nil, internal.NewStorageError(err)
	}

	return FromDataModelSlice(rows), nil
}

// Update runs the gated update flow: authenticate, authorize, validate,
// confirm existence, then apply the validated fields in one atomic write.
// A rejection at any gate leaves the row untouched.
func (s *Service) Update(ctx context.Context, bearer string, id int64, body []byte) (*Project, *auth.User, error) {
	if bearer == "" {
		return nil, nil, internal.ErrMissingCredentials
	}

	user, err := s.authn.AuthenticateBearer(bearer)
	if err != nil {
		return nil, nil, s.mapAuthError(err)
	}

	if !auth.CanMutateProjects(user.Role) {
		s.logger.Warn("project update denied", "username", user.Username, "role", user.Role, "project_id", id)
		return nil, nil, internal.ErrMutationForbidden
	}

	patch, err := ParsePatch(body)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.repo.GetByID(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, internal.ErrProjectNotFound
		}
		s.logger.Error("project lookup failed", "error", err, "project_id", id)
		return nil, nil, internal.NewStorageError(err)
	}

	if err := s.repo.UpdateFields(id, patch.Fields()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, internal.ErrProjectNotFound
		}
		s.logger.Error("project update failed", "error", err, "project_id", id)
		return nil, nil, internal.NewStorageError(err)
	}

	row, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("project reload failed", "error", err, "project_id", id)
		return nil, nil, internal.NewStorageError(err)
	}

	updated := FromDataModel(row)
	s.bus.Publish(ctx, events.NewProjectUpdatedEvent(
		updated.ID, updated.Name, patch.ChangedFields(), user.Username, string(user.Role)))

	return updated, user, nil
}

func (s *Service) mapAuthError(err error) error {
	switch {
	case errors.Is(err, auth.ErrMalformedBearer):
		return internal.ErrMalformedCredentials
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenExpired):
		return internal.ErrInvalidCredentials
	default:
		return internal.NewStorageError(err)
	}
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
