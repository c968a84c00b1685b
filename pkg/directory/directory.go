package directory

// Filter selects recipients. A user matches when their role is in Roles, or
// they belong to one of TeamIDs, or their id is in UserIDs. An empty filter
// selects every active user.
type Filter struct {
	Roles   []string `json:"roles,omitempty"`
	TeamIDs []string `json:"team_ids,omitempty"`
	UserIDs []string `json:"user_ids,omitempty"`
}

// IsEmpty reports whether no criteria are set.
func (f Filter) IsEmpty() bool {
	return len(f.Roles) == 0 && len(f.TeamIDs) == 0 && len(f.UserIDs) == 0
}

// User is the directory record of a CRM user.
type User struct {
	ID      string
	Email   string
	Role    string
	TeamIDs []string
	Active  bool
}
