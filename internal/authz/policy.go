// Package authz evaluates role-based authorization against a configurable
// role hierarchy.
package authz

import "github.com/azamatbayne/user-service/internal/domain"

// Hierarchy maps a role to the roles it directly implies. Implication is
// transitive: granting ROLE_ADMIN grants everything reachable from it.
type Hierarchy map[string][]string

// DefaultHierarchy mirrors the deployment's standard role graph: admins are
// registered users, registered users may invite, invited users are base users.
func DefaultHierarchy() Hierarchy {
	return Hierarchy{
		domain.RoleAdmin:      {domain.RoleRegistered},
		domain.RoleRegistered: {domain.RoleInvited, domain.RoleAllowInvite},
		domain.RoleInvited:    {domain.RoleUser},
	}
}

// Policy answers isGranted questions. The transitive closure of the hierarchy
// is computed once at construction; evaluation is a map lookup.
type Policy struct {
	reachable map[string]map[string]bool
}

func NewPolicy(h Hierarchy) *Policy {
	p := &Policy{reachable: make(map[string]map[string]bool, len(h))}
	for role := range h {
		p.reachable[role] = closure(h, role)
	}
	return p
}

func closure(h Hierarchy, root string) map[string]bool {
	seen := map[string]bool{root: true}
	stack := []string{root}
	for len(stack) > 0 {
		role := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, implied := range h[role] {
			if !seen[implied] {
				seen[implied] = true
				stack = append(stack, implied)
			}
		}
	}
	return seen
}

// IsGranted reports whether any of the held roles grants the required role,
// directly or through the hierarchy.
func (p *Policy) IsGranted(held []string, required string) bool {
	for _, role := range held {
		if role == required {
			return true
		}
		if p.reachable[role][required] {
			return true
		}
	}
	return false
}
