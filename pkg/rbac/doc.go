// Package rbac maps user roles to notification permissions.
//
// Roles are read from YAML. A role lists permissions directly and may inherit
// the permissions of other roles. A permission ending in ".*" grants every
// permission under that prefix and "*" grants everything.
//
//	authz, err := rbac.NewAuthorizer(ctx, rbac.DefaultSource())
//	if err := authz.Can(claims.Role, rbac.PermBroadcast); err != nil {
//		// forbidden
//	}
package rbac
