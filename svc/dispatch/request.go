package dispatch

import (
	"time"

	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
	"github.com/dmitrymomot/wealthcrm/pkg/validator"
)

const (
	MaxTitleLength   = 255
	MaxMessageLength = 5000
	MaxURLLength     = 2048
	MaxRecipients    = 1000
)

// Content is the part of a request shared by every recipient.
type Content struct {
	Type        notifications.Type      `json:"type"`
	Title       string                  `json:"title"`
	Message     string                  `json:"message"`
	Priority    notifications.Priority  `json:"priority,omitempty"` // normal when empty
	EntityType  string                  `json:"entity_type,omitempty"`
	EntityID    string                  `json:"entity_id,omitempty"`
	EntityName  string                  `json:"entity_name,omitempty"`
	ActionURL   string                  `json:"action_url,omitempty"`
	ActionLabel string                  `json:"action_label,omitempty"`
	Channels    []notifications.Channel `json:"channels,omitempty"` // overrides preference resolution
	ExpiresAt   *time.Time              `json:"expires_at,omitempty"`
	Metadata    map[string]any          `json:"metadata,omitempty"`
}

func (c Content) rules(now time.Time) []validator.Rule {
	return []validator.Rule{
		validator.Required("title", c.Title),
		validator.MaxLen("title", c.Title, MaxTitleLength),
		validator.Required("message", c.Message),
		validator.MaxLen("message", c.Message, MaxMessageLength),
		validator.InList("type", c.Type, notifications.Types()),
		validator.When(c.Priority != "", validator.InList("priority", c.Priority, notifications.Priorities())),
		validator.EachInList("channels", c.Channels, notifications.Channels()),
		validator.MaxLen("action_url", c.ActionURL, MaxURLLength),
		validator.FutureTime("expires_at", c.ExpiresAt, now),
	}
}

func (c Content) priority() notifications.Priority {
	if c.Priority == "" {
		return notifications.PriorityNormal
	}
	return c.Priority
}

// CreateRequest targets explicit recipients.
type CreateRequest struct {
	Content
	RecipientIDs []string `json:"recipient_ids"`
}

// Validate checks the request against now; expiry must lie after it.
func (r CreateRequest) Validate(now time.Time) error {
	rules := r.rules(now)
	rules = append(rules,
		validator.RequiredSlice("recipient_ids", r.RecipientIDs),
		validator.MaxLenSlice("recipient_ids", r.RecipientIDs, MaxRecipients),
		noBlank("recipient_ids", r.RecipientIDs),
	)
	return validator.Apply(rules...)
}

// BroadcastRequest targets the users a directory filter selects. An empty
// filter selects every active user.
type BroadcastRequest struct {
	Content
	Roles   []string `json:"roles,omitempty"`
	TeamIDs []string `json:"team_ids,omitempty"`
	UserIDs []string `json:"user_ids,omitempty"`
}

func (r BroadcastRequest) Validate(now time.Time) error {
	return validator.Apply(r.rules(now)...)
}

func noBlank(field string, values []string) validator.Rule {
	return validator.Rule{
		Check: func() bool {
			for _, v := range values {
				if v == "" {
					return false
				}
			}
			return true
		},
		Error: validator.ValidationError{Field: field, Message: "must not contain empty ids"},
	}
}
