package rbac

import "errors"

var (
	ErrInvalidRole             = errors.New("rbac: unknown role")
	ErrInsufficientPermissions = errors.New("rbac: insufficient permissions")
	ErrCircularInheritance     = errors.New("rbac: circular role inheritance")
	ErrInvalidRoles            = errors.New("rbac: invalid role definition")
)
