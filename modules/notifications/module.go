package notifications

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/wealthcrm/pkg/binder"
	"github.com/dmitrymomot/wealthcrm/pkg/handler"
	"github.com/dmitrymomot/wealthcrm/pkg/jwt"
	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
	"github.com/dmitrymomot/wealthcrm/pkg/preferences"
	"github.com/dmitrymomot/wealthcrm/pkg/ratelimiter"
	"github.com/dmitrymomot/wealthcrm/pkg/rbac"
	"github.com/dmitrymomot/wealthcrm/svc/dispatch"
)

// Dispatcher is the notification lifecycle the routes drive.
type Dispatcher interface {
	Create(ctx context.Context, req dispatch.CreateRequest, createdBy string) ([]notifications.Notification, error)
	Broadcast(ctx context.Context, req dispatch.BroadcastRequest, createdBy string) (int, error)
	MarkAsRead(ctx context.Context, id, ownerID string) (notifications.Notification, error)
	MarkAllAsRead(ctx context.Context, ownerID string) (int, error)
	Archive(ctx context.Context, id, ownerID string) (notifications.Notification, error)
	Delete(ctx context.Context, id, ownerID string) error
	GetForUser(ctx context.Context, ownerID string, f notifications.Filter) ([]notifications.Notification, error)
	GetStats(ctx context.Context, ownerID string) (notifications.Stats, error)
}

// Authorizer decides whether a role holds a permission.
type Authorizer interface {
	Can(role, permission string) error
}

// Preferences reads and patches the caller's delivery preferences.
type Preferences interface {
	GetOrCreate(ctx context.Context, userID string) (preferences.Preference, error)
	Update(ctx context.Context, userID string, patch preferences.Patch) (preferences.Preference, error)
}

// Module serves the notification API.
type Module struct {
	dispatcher Dispatcher
	prefs      Preferences
	tokens     *jwt.Service
	ws         http.Handler
	logger     *slog.Logger
	authz      Authorizer
	limiter    ratelimiter.Limiter
	onError    handler.ErrorHandler
}

type Option func(*Module)

func WithLogger(l *slog.Logger) Option {
	return func(m *Module) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithWebsocket mounts h at /ws. The websocket authenticates on its own, so
// it sits outside the bearer middleware.
func WithWebsocket(h http.Handler) Option {
	return func(m *Module) {
		m.ws = h
	}
}

// WithAuthorizer replaces the built-in role table used for create and
// broadcast.
func WithAuthorizer(a Authorizer) Option {
	return func(m *Module) {
		if a != nil {
			m.authz = a
		}
	}
}

// WithRateLimiter caps how often one caller may create or broadcast.
func WithRateLimiter(l ratelimiter.Limiter) Option {
	return func(m *Module) {
		m.limiter = l
	}
}

// New creates the module. Panics if any dependency is nil.
func New(d Dispatcher, prefs Preferences, tokens *jwt.Service, opts ...Option) *Module {
	if d == nil {
		panic("notifications module: dispatcher is required")
	}
	if prefs == nil {
		panic("notifications module: preferences are required")
	}
	if tokens == nil {
		panic("notifications module: token service is required")
	}

	m := &Module{
		dispatcher: d,
		prefs:      prefs,
		tokens:     tokens,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.authz == nil {
		authz, err := rbac.NewAuthorizer(context.Background(), rbac.DefaultSource())
		if err != nil {
			panic("notifications module: built-in roles: " + err.Error())
		}
		m.authz = authz
	}
	m.onError = handler.NewErrorHandler(m.logger, errorMappers...)
	return m
}

// Router returns the routes, meant to be mounted under /notifications.
//
//	GET    /               list
//	GET    /stats          counters
//	GET    /preferences    caller's preferences
//	PATCH  /preferences    partial update
//	POST   /read-all       mark all read
//	POST   /               create [privileged, rate limited]
//	POST   /broadcast      broadcast [privileged, rate limited]
//	PATCH  /{id}/read      mark read
//	PATCH  /{id}/archive   archive
//	DELETE /{id}           delete
//	GET    /ws             websocket
func (m *Module) Router() chi.Router {
	r := chi.NewRouter()

	if m.ws != nil {
		r.Handle("/ws", m.ws)
	}

	r.Group(func(r chi.Router) {
		r.Use(jwt.MiddlewareWithConfig(jwt.MiddlewareConfig{
			Service:   m.tokens,
			Extractor: jwt.BearerTokenExtractor,
			ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
				m.onError(handler.NewContext(w, r), errors.Join(handler.ErrUnauthorized, err))
			},
		}))

		r.Get("/", route[listRequest](m, m.list, binder.Query()))
		r.Get("/stats", route[empty](m, m.stats))
		r.Get("/preferences", route[empty](m, m.getPreferences))
		r.Patch("/preferences", route[preferences.Patch](m, m.updatePreferences, binder.JSON()))
		r.Post("/read-all", route[empty](m, m.markAllAsRead))
		r.Post("/", privileged[dispatch.CreateRequest](m, rbac.PermCreate, m.create, binder.JSON()))
		r.Post("/broadcast", privileged[dispatch.BroadcastRequest](m, rbac.PermBroadcast, m.broadcast, binder.JSON()))
		r.Patch("/{id}/read", route[idRequest](m, m.markAsRead, binder.Path(chi.URLParam)))
		r.Patch("/{id}/archive", route[idRequest](m, m.archive, binder.Path(chi.URLParam)))
		r.Delete("/{id}", route[idRequest](m, m.delete, binder.Path(chi.URLParam)))
	})

	return r
}

func route[R any](m *Module, h handler.HandlerFunc[R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[R](binders...),
		handler.WithErrorHandler[R](m.onError),
	)
}

// privileged routes check the permission first so rejected callers spend no
// tokens. The permission doubles as the rate limit scope.
func privileged[R any](m *Module, perm string, h handler.HandlerFunc[R], binders ...handler.Bind) http.HandlerFunc {
	decorators := []handler.Decorator[R]{requirePermission[R](m.authz, perm)}
	if m.limiter != nil {
		decorators = append(decorators, rateLimit[R](m.limiter, perm, m.logger))
	}
	return handler.Wrap(h,
		handler.WithBinders[R](binders...),
		handler.WithErrorHandler[R](m.onError),
		handler.WithDecorators(decorators...),
	)
}
