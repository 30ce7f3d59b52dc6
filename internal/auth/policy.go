package auth

// Access policy: a pure mapping from role to capability. No I/O, no state.
//
// Tier names match the projects table: commercial, secret, public.

// VisibleTiers returns the confidentiality tiers the role may read.
func VisibleTiers(role Role) []string {
	switch role {
	case RoleSeller:
		return []string{"public"}
	case RoleManager:
		return []string{"commercial", "public"}
	case RoleSecurityAdmin:
		return []string{"commercial", "secret", "public"}
	}
	return nil
}

// CanReadTier reports whether the role may read projects of the given tier.
func CanReadTier(role Role, tier string) bool {
	for _, t := range VisibleTiers(role) {
		if t == tier {
			return true
		}
	}
	return false
}

// CanMutateProjects reports whether the role may edit project records.
func CanMutateProjects(role Role) bool {
	return role == RoleSecurityAdmin
}
