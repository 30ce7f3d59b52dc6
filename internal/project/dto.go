package project

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/waynecorp/project-registry/internal"
)

// UpdatePatch is the validated subset of mutable project fields. Only
// description and tier may ever change; id, name, accessLevel and
// createdAt are immutable through this operation.
type UpdatePatch struct {
	Description *string
	Tier        *Tier
}

var allowedPatchKeys = map[string]bool{
	"description": true,
	"tier":        true,
}

// ParsePatch decodes and validates an update request body. Unknown keys
// are rejected by name rather than silently dropped, so a caller sending
// {"name": ...} learns the field is not editable.
func ParsePatch(body []byte) (*UpdatePatch, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed)
	}

	var unknown []string
	for key := range raw {
		if !allowedPatchKeys[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, internal.NewValidationError(
			fmt.Sprintf("fields not permitted: %s", strings.Join(unknown, ", ")),
			internal.ErrCodeUnknownField,
		)
	}

	patch := &UpdatePatch{}

	if rawDesc, ok := raw["description"]; ok {
		var desc string
		if err := json.Unmarshal(rawDesc, &desc); err != nil {
			return nil, internal.NewValidationError("description must be a string", internal.ErrCodeInvalidDescription)
		}
		desc = strings.TrimSpace(desc)
		if desc == "" {
			return nil, internal.NewValidationError("description must not be empty", internal.ErrCodeInvalidDescription)
		}
		// Character limit, not bytes: multibyte text counts by rune.
		if utf8.RuneCountInString(desc) > MaxDescriptionLength {
			return nil, internal.NewValidationError(
				fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength),
				internal.ErrCodeInvalidDescription,
			)
		}
		patch.Description = &desc
	}

	if rawTier, ok := raw["tier"]; ok {
		var tierValue string
		if err := json.Unmarshal(rawTier, &tierValue); err != nil {
			return nil, internal.NewValidationError("tier must be a string", internal.ErrCodeInvalidTier)
		}
		tier, ok := ParseTier(tierValue)
		if !ok {
			return nil, internal.NewValidationError(
				"tier must be one of: commercial, secret, public",
				internal.ErrCodeInvalidTier,
			)
		}
		patch.Tier = &tier
	}

	if patch.Description == nil && patch.Tier == nil {
		return nil, internal.NewValidationError("no valid fields", internal.ErrCodeEmptyPatch)
	}

	return patch, nil
}

// Fields returns the column assignments for the storage layer. A tier
// change carries the derived access level with it so the two columns
// never drift apart.
func (p *UpdatePatch) Fields() map[string]interface{} {
	fields := make(map[string]interface{}, 3)
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Tier != nil {
		fields["tier"] = string(*p.Tier)
		fields["access_level"] = p.Tier.AccessLevel()
	}
	return fields
}

// ChangedFields lists the field names the patch touches, for audit output.
func (p *UpdatePatch) ChangedFields() []string {
	var names []string
	if p.Description != nil {
		names = append(names, "description")
	}
	if p.Tier != nil {
		names = append(names, "tier")
	}
	return names
}
