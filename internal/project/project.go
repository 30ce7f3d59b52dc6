package project

import (
	"errors"
	"strings"
	"time"

	projectDatamodel "github.com/waynecorp/project-registry/internal/core/datamodel/project"
)

// Tier is the confidentiality classification of a project.
type Tier string

const (
	TierCommercial Tier = "commercial"
	TierSecret     Tier = "secret"
	TierPublic     Tier = "public"
)

// ParseTier normalizes a tier value to lowercase and reports whether it is
// one of the three known tiers.
func ParseTier(s string) (Tier, bool) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierCommercial:
		return TierCommercial, true
	case TierSecret:
		return TierSecret, true
	case TierPublic:
		return TierPublic, true
	}
	return "", false
}

// AccessLevel returns the display label for a tier. The label is
// informational only; access decisions always go through the tier itself.
func (t Tier) AccessLevel() string {
	switch t {
	case TierCommercial:
		return "Restricted"
	case TierSecret:
		return "Confidential"
	case TierPublic:
		return "Public"
	}
	return ""
}

const MaxDescriptionLength = 500

type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tier        Tier      `json:"tier"`
	AccessLevel string    `json:"accessLevel"`
	CreatedAt   time.Time `json:"createdAt"`
}

var ErrNotFound = errors.New("project not found")

func FromDataModel(row *projectDatamodel.Project) *Project {
	return &Project{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Tier:        Tier(row.Tier),
		AccessLevel: row.AccessLevel,
		CreatedAt:   row.CreatedAt,
	}
}

func FromDataModelSlice(rows []*projectDatamodel.Project) []*Project {
	result := make([]*Project, len(rows))
	for i, row := range rows {
		result[i] = FromDataModel(row)
	}
	return result
}
