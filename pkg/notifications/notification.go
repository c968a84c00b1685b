package notifications

import (
	"maps"
	"slices"
	"time"
)

// Type is the business event kind a notification reports.
type Type string

const (
	TypeClientCreated      Type = "CLIENT_CREATED"
	TypeClientUpdated      Type = "CLIENT_UPDATED"
	TypeClientAssigned     Type = "CLIENT_ASSIGNED"
	TypeHouseholdUpdated   Type = "HOUSEHOLD_UPDATED"
	TypeDocumentUploaded   Type = "DOCUMENT_UPLOADED"
	TypeDocumentShared     Type = "DOCUMENT_SHARED"
	TypeDocumentExpiring   Type = "DOCUMENT_EXPIRING"
	TypeTaskAssigned       Type = "TASK_ASSIGNED"
	TypeTaskDue            Type = "TASK_DUE"
	TypeTaskOverdue        Type = "TASK_OVERDUE"
	TypeMeetingScheduled   Type = "MEETING_SCHEDULED"
	TypeMeetingReminder    Type = "MEETING_REMINDER"
	TypeKYCReviewRequired  Type = "KYC_REVIEW_REQUIRED"
	TypeKYCExpiring        Type = "KYC_EXPIRING"
	TypeComplianceAlert    Type = "COMPLIANCE_ALERT"
	TypeSARFiled           Type = "SAR_FILED"
	TypeSecurityAlert      Type = "SECURITY_ALERT"
	TypePortfolioAlert     Type = "PORTFOLIO_ALERT"
	TypeTeamMention        Type = "TEAM_MENTION"
	TypeCommentAdded       Type = "COMMENT_ADDED"
	TypeActivityLogged     Type = "ACTIVITY_LOGGED"
	TypeSystemAnnouncement Type = "SYSTEM_ANNOUNCEMENT"
)

var catalog = []Type{
	TypeClientCreated, TypeClientUpdated, TypeClientAssigned, TypeHouseholdUpdated,
	TypeDocumentUploaded, TypeDocumentShared, TypeDocumentExpiring,
	TypeTaskAssigned, TypeTaskDue, TypeTaskOverdue,
	TypeMeetingScheduled, TypeMeetingReminder,
	TypeKYCReviewRequired, TypeKYCExpiring, TypeComplianceAlert, TypeSARFiled,
	TypeSecurityAlert, TypePortfolioAlert,
	TypeTeamMention, TypeCommentAdded, TypeActivityLogged, TypeSystemAnnouncement,
}

// Types returns the full type catalog.
func Types() []Type { return slices.Clone(catalog) }

func (t Type) Valid() bool { return slices.Contains(catalog, t) }

// Priority of a notification. Only urgent bypasses quiet hours.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities returns all priorities from lowest to highest.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}
}

func (p Priority) Valid() bool { return slices.Contains(Priorities(), p) }

// Channel is a delivery medium.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
)

// Channels returns every channel in canonical order.
func Channels() []Channel {
	return []Channel{ChannelInApp, ChannelEmail, ChannelPush, ChannelSMS}
}

func (c Channel) Valid() bool { return slices.Contains(Channels(), c) }

// External reports whether the channel is delivered outside this process.
func (c Channel) External() bool { return c != ChannelInApp && c.Valid() }

// ChannelStatus records the delivery outcome for one channel.
type ChannelStatus struct {
	Sent        bool       `json:"sent"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	Delivered   bool       `json:"delivered"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// DeliveryStatus maps every channel in ChannelsSent to its outcome.
type DeliveryStatus map[Channel]ChannelStatus

// Notification is one persisted notification for one recipient.
// ChannelsSent is fixed at creation; no storage method updates it.
type Notification struct {
	ID             string         `json:"id"`
	Type           Type           `json:"type"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Priority       Priority       `json:"priority"`
	RecipientID    string         `json:"recipient_id"`
	EntityType     string         `json:"entity_type,omitempty"`
	EntityID       string         `json:"entity_id,omitempty"`
	EntityName     string         `json:"entity_name,omitempty"`
	ActionURL      string         `json:"action_url,omitempty"`
	ActionLabel    string         `json:"action_label,omitempty"`
	IsRead         bool           `json:"is_read"`
	ReadAt         *time.Time     `json:"read_at,omitempty"`
	IsArchived     bool           `json:"is_archived"`
	ArchivedAt     *time.Time     `json:"archived_at,omitempty"`
	ChannelsSent   []Channel      `json:"channels_sent"`
	DeliveryStatus DeliveryStatus `json:"delivery_status"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedBy      string         `json:"created_by,omitempty"` // empty means system
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// IsExpired reports whether ExpiresAt is set and not after now.
func (n Notification) IsExpired(now time.Time) bool {
	return n.ExpiresAt != nil && !n.ExpiresAt.After(now)
}

// HasChannel reports whether c is among the channels used for this notification.
func (n Notification) HasChannel(c Channel) bool {
	return slices.Contains(n.ChannelsSent, c)
}

// Clone returns a deep copy so stored values cannot be mutated through results.
func (n Notification) Clone() Notification {
	n.ChannelsSent = slices.Clone(n.ChannelsSent)
	n.DeliveryStatus = maps.Clone(n.DeliveryStatus)
	n.Metadata = maps.Clone(n.Metadata)
	n.ReadAt = cloneTime(n.ReadAt)
	n.ArchivedAt = cloneTime(n.ArchivedAt)
	n.ExpiresAt = cloneTime(n.ExpiresAt)
	return n
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// View is the client-safe projection pushed over real-time connections and
// returned by the HTTP surface. Delivery internals, metadata and the creator
// are never exposed.
type View struct {
	ID          string     `json:"id"`
	Type        Type       `json:"type"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Priority    Priority   `json:"priority"`
	EntityType  string     `json:"entity_type,omitempty"`
	EntityID    string     `json:"entity_id,omitempty"`
	EntityName  string     `json:"entity_name,omitempty"`
	ActionURL   string     `json:"action_url,omitempty"`
	ActionLabel string     `json:"action_label,omitempty"`
	IsRead      bool       `json:"is_read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	IsArchived  bool       `json:"is_archived"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (n Notification) View() View {
	return View{
		ID:          n.ID,
		Type:        n.Type,
		Title:       n.Title,
		Message:     n.Message,
		Priority:    n.Priority,
		EntityType:  n.EntityType,
		EntityID:    n.EntityID,
		EntityName:  n.EntityName,
		ActionURL:   n.ActionURL,
		ActionLabel: n.ActionLabel,
		IsRead:      n.IsRead,
		ReadAt:      n.ReadAt,
		IsArchived:  n.IsArchived,
		ArchivedAt:  n.ArchivedAt,
		ExpiresAt:   n.ExpiresAt,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

// Views projects a slice of notifications.
func Views(ns []Notification) []View {
	out := make([]View, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.View())
	}
	return out
}
