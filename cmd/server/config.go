package main

import (
	"time"

	"github.com/dmitrymomot/wealthcrm/pkg/channels"
	"github.com/dmitrymomot/wealthcrm/pkg/config"
	"github.com/dmitrymomot/wealthcrm/pkg/email"
	"github.com/dmitrymomot/wealthcrm/pkg/httpserver"
	"github.com/dmitrymomot/wealthcrm/pkg/jwt"
	"github.com/dmitrymomot/wealthcrm/pkg/pg"
	"github.com/dmitrymomot/wealthcrm/pkg/ratelimiter"
	"github.com/dmitrymomot/wealthcrm/pkg/redis"
	"github.com/dmitrymomot/wealthcrm/svc/dispatch"
	"github.com/dmitrymomot/wealthcrm/svc/jobs"
)

type appConfig struct {
	Env            string        `env:"APP_ENV" envDefault:"development"`
	Service        string        `env:"SERVICE_NAME" envDefault:"notifications"`
	RedisEnabled   bool          `env:"REDIS_ENABLED" envDefault:"true"`
	CacheTTL       time.Duration `env:"PREFERENCES_CACHE_TTL" envDefault:"5m"`
	AllowedOrigins []string      `env:"WS_ALLOWED_ORIGINS" envSeparator:","`
	RolesFile      string        `env:"RBAC_ROLES_FILE"`
}

type settings struct {
	app      appConfig
	http     httpserver.Config
	pg       pg.Config
	redis    redis.Config
	jwt      jwt.Config
	email    email.Config
	channels channels.Config
	dispatch dispatch.Config
	jobs     jobs.Config
	limits   ratelimiter.Config
}

func loadSettings() (settings, error) {
	var s settings
	for _, load := range []func() error{
		func() error { return config.Load(&s.app) },
		func() error { return config.Load(&s.http) },
		func() error { return config.Load(&s.pg) },
		func() error { return config.Load(&s.redis) },
		func() error { return config.Load(&s.jwt) },
		func() error { return config.Load(&s.email) },
		func() error { return config.Load(&s.channels) },
		func() error { return config.Load(&s.dispatch) },
		func() error { return config.Load(&s.jobs) },
		func() error { return config.Load(&s.limits) },
	} {
		if err := load(); err != nil {
			return settings{}, err
		}
	}
	return s, nil
}
