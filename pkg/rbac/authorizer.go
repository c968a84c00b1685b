package rbac

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Authorizer answers permission checks from precomputed role permissions.
// It is read-only after construction and safe for concurrent use.
type Authorizer struct {
	permissions map[string][]string
}

// NewAuthorizer loads roles from source, rejects unknown or circular
// inheritance and flattens every role's permissions.
func NewAuthorizer(ctx context.Context, source RoleSource) (*Authorizer, error) {
	roles, err := source.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate(roles); err != nil {
		return nil, err
	}

	a := &Authorizer{permissions: make(map[string][]string, len(roles))}
	for name := range roles {
		perms := collect(name, roles, 0)
		slices.Sort(perms)
		a.permissions[name] = slices.Compact(perms)
	}
	return a, nil
}

// Can returns nil when role holds permission.
func (a *Authorizer) Can(role, permission string) error {
	perms, ok := a.permissions[role]
	if !ok {
		return ErrInvalidRole
	}
	if !slices.ContainsFunc(perms, func(granted string) bool { return matches(granted, permission) }) {
		return ErrInsufficientPermissions
	}
	return nil
}

// Permissions returns the flattened permissions of role.
func (a *Authorizer) Permissions(role string) []string {
	return slices.Clone(a.permissions[role])
}

// Roles returns the known role names, sorted.
func (a *Authorizer) Roles() []string {
	names := make([]string, 0, len(a.permissions))
	for name := range a.permissions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func matches(granted, want string) bool {
	switch {
	case granted == "*", granted == want:
		return true
	case strings.HasSuffix(granted, ".*"):
		return strings.HasPrefix(want, strings.TrimSuffix(granted, "*"))
	}
	return false
}

func collect(name string, roles map[string]Role, depth int) []string {
	role := roles[name]
	perms := slices.Clone(role.Permissions)
	if depth >= MaxInheritanceDepth {
		return perms
	}
	for _, parent := range role.Inherits {
		perms = append(perms, collect(parent, roles, depth+1)...)
	}
	return perms
}

func validate(roles map[string]Role) error {
	for name, role := range roles {
		for _, parent := range role.Inherits {
			if _, ok := roles[parent]; !ok {
				return fmt.Errorf("%w: %q inherits unknown role %q", ErrInvalidRoles, name, parent)
			}
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(roles))

	var walk func(name string, depth int) error
	walk = func(name string, depth int) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("%w: through %q", ErrCircularInheritance, name)
		case done:
			return nil
		}
		if depth > MaxInheritanceDepth {
			return fmt.Errorf("%w: deeper than %d", ErrInvalidRoles, MaxInheritanceDepth)
		}
		state[name] = visiting
		for _, parent := range roles[name].Inherits {
			if err := walk(parent, depth+1); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for name := range roles {
		if err := walk(name, 0); err != nil {
			return err
		}
	}
	return nil
}
