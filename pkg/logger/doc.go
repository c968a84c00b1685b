// Package logger builds *slog.Logger instances for the notification service and
// provides attribute helpers so that log keys stay consistent across packages.
//
// New applies functional options (format, level, static attributes, context
// extractors) and wraps the resulting handler with LogHandlerDecorator, which
// copies request-scoped values from context.Context into each record.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "wealthcrm-notifications"),
//	    logger.WithContextValue("request_id", ctxKeyRequestID),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "notification created",
//	    logger.UserID(recipientID),
//	    logger.NotificationID(n.ID),
//	)
//
// Error and Errors only produce attributes for non-nil errors, so
// logger.Error(err) can be passed unconditionally.
package logger
