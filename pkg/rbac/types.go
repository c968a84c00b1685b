package rbac

// Permissions checked by the notification API.
const (
	PermCreate    = "notifications.create"
	PermBroadcast = "notifications.broadcast"
)

// MaxInheritanceDepth bounds role chains.
const MaxInheritanceDepth = 10

// Role grants permissions directly and through the roles it inherits.
type Role struct {
	Permissions []string `yaml:"permissions"`
	Inherits    []string `yaml:"inherits"`
}
