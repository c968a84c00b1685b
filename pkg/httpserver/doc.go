// Package httpserver runs an http.Handler with configurable timeouts and
// context-driven graceful shutdown.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// Run returns once ctx is cancelled and in-flight requests finish (bounded by
// the shutdown timeout). Listen errors wrap ErrStart, shutdown errors wrap
// ErrShutdown. HealthCheckHandler serves liveness and readiness probes.
package httpserver
