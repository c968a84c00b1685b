package rbac

import (
	"context"
	_ "embed"
	"errors"
	"maps"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed roles.yaml
var defaultRolesYAML []byte

// RoleSource provides role definitions.
type RoleSource interface {
	Load(ctx context.Context) (map[string]Role, error)
}

// SourceFunc adapts a function to RoleSource.
type SourceFunc func(ctx context.Context) (map[string]Role, error)

func (f SourceFunc) Load(ctx context.Context) (map[string]Role, error) {
	return f(ctx)
}

// MemorySource serves a fixed role map. The map is copied.
func MemorySource(roles map[string]Role) RoleSource {
	cp := maps.Clone(roles)
	return SourceFunc(func(context.Context) (map[string]Role, error) {
		return cp, nil
	})
}

// YAMLSource parses roles from data in the roles.yaml layout.
func YAMLSource(data []byte) RoleSource {
	return SourceFunc(func(context.Context) (map[string]Role, error) {
		return parseRoles(data)
	})
}

// FileSource reads the role file at path on every Load.
func FileSource(path string) RoleSource {
	return SourceFunc(func(context.Context) (map[string]Role, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Join(ErrInvalidRoles, err)
		}
		return parseRoles(data)
	})
}

// DefaultSource serves the built-in roles: admin, compliance_officer and system.
func DefaultSource() RoleSource {
	return YAMLSource(defaultRolesYAML)
}

func parseRoles(data []byte) (map[string]Role, error) {
	var f struct {
		Roles map[string]Role `yaml:"roles"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Join(ErrInvalidRoles, err)
	}
	return f.Roles, nil
}
