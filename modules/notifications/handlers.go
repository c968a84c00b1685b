package notifications

import (
	"math"
	"net/http"
	"time"

	"github.com/dmitrymomot/wealthcrm/pkg/handler"
	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
	"github.com/dmitrymomot/wealthcrm/pkg/preferences"
	"github.com/dmitrymomot/wealthcrm/pkg/validator"
	"github.com/dmitrymomot/wealthcrm/svc/dispatch"
)

type empty struct{}

type idRequest struct {
	ID string `path:"id"`
}

type listRequest struct {
	UnreadOnly      bool                   `query:"unread_only"`
	Type            notifications.Type     `query:"type"`
	Priority        notifications.Priority `query:"priority"`
	EntityType      string                 `query:"entity_type"`
	IncludeArchived bool                   `query:"include_archived"`
	Since           *time.Time             `query:"since"`
	Limit           int                    `query:"limit"`
	Offset          int                    `query:"offset"`
}

func (r listRequest) validate() error {
	return validator.Apply(
		validator.When(r.Type != "", validator.InList("type", r.Type, notifications.Types())),
		validator.When(r.Priority != "", validator.InList("priority", r.Priority, notifications.Priorities())),
		validator.IntBetween("limit", r.Limit, 0, notifications.MaxListLimit),
		validator.IntBetween("offset", r.Offset, 0, math.MaxInt32),
	)
}

type countResponse struct {
	Count int `json:"count"`
}

func (m *Module) list(ctx handler.Context, req listRequest) handler.Response {
	userID, ok := callerID(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	if err := req.validate(); err != nil {
		return handler.Error(err)
	}

	f := notifications.Filter{
		UnreadOnly:      req.UnreadOnly,
		Type:            req.Type,
		Priority:        req.Priority,
		EntityType:      req.EntityType,
		IncludeArchived: req.IncludeArchived,
		Since:           req.Since,
		Limit:           req.Limit,
		Offset:          req.Offset,
	}.Normalize()

	list, err := m.dispatcher.GetForUser(ctx, userID, f)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(notifications.Views(list), handler.WithJSONMeta(map[string]any{
		"limit":  f.Limit,
		"offset": f.Offset,
		"count":  len(list),
	}))
}

func (m *Module) stats(ctx handler.Context, _ empty) handler.Response {
	userID, ok := callerID(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	stats, err := m.dispatcher.GetStats(ctx, userID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(stats)
}

func (m *Module) getPreferences(ctx handler.Context, _ empty) handler.Response {
	userID, ok := callerID(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	pref, err := m.prefs.GetOrCreate(ctx, userID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(pref)
}

func (m *Module) updatePreferences(ctx handler.Context, patch preferences.Patch) handler.Response {
	userID, ok := callerID(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	pref, err := m.prefs.Update(ctx, userID, patch)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(pref)
}

func (m *Module) markAllAsRead(ctx handler.Context, _ empty) handler.Response {
	userID, ok := callerID(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	count, err := m.dispatcher.MarkAllAsRead(ctx, userID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(countResponse{Count: count})
}

func (m *Module) create(ctx handler.Context, req dispatch.CreateRequest) handler.Response {
	userID, ok := callerID(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	created, err := m.dispatcher.Create(ctx, req, userID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(notifications.Views(created),
		handler.WithJSONStatus(http.StatusCreated),
		handler.WithJSONMeta(map[string]any{"count": len(created)}),
	)
}

func (m *Module) broadcast(ctx handler.Context, req dispatch.BroadcastRequest) handler.Response {
	userID, ok := callerID(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	count, err := m.dispatcher.Broadcast(ctx, req, userID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(countResponse{Count: count}, handler.WithJSONStatus(http.StatusCreated))
}

func (m *Module) markAsRead(ctx handler.Context, req idRequest) handler.Response {
	userID, ok := callerID(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	n, err := m.dispatcher.MarkAsRead(ctx, req.ID, userID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(n.View())
}

func (m *Module) archive(ctx handler.Context, req idRequest) handler.Response {
	userID, ok := callerID(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	n, err := m.dispatcher.Archive(ctx, req.ID, userID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(n.View())
}

func (m *Module) delete(ctx handler.Context, req idRequest) handler.Response {
	userID, ok := callerID(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	if err := m.dispatcher.Delete(ctx, req.ID, userID); err != nil {
		return handler.Error(err)
	}
	return handler.Empty()
}
