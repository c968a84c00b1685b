package notifications

import (
	"github.com/dmitrymomot/wealthcrm/pkg/handler"
	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
	"github.com/dmitrymomot/wealthcrm/pkg/preferences"
	"github.com/dmitrymomot/wealthcrm/svc/dispatch"
)

var errorMappers = []handler.ErrorMapper{
	handler.MapError(notifications.ErrNotFound, handler.ErrNotFound),
	handler.MapError(preferences.ErrNotFound, handler.ErrNotFound),
	handler.MapError(preferences.ErrMissingUserID, handler.ErrBadRequest),
	handler.MapError(dispatch.ErrDirectoryUnavailable, handler.ErrServiceUnavailable),
}
