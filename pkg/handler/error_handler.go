package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/wealthcrm/pkg/logger"
	"github.com/dmitrymomot/wealthcrm/pkg/requestid"
	"github.com/dmitrymomot/wealthcrm/pkg/validator"
)

// ErrorMapper translates a domain error into an HTTPError. It reports false
// when the error is not its concern.
type ErrorMapper func(err error) (HTTPError, bool)

// MapError maps every error matching target to status.
func MapError(target error, status HTTPError) ErrorMapper {
	return func(err error) (HTTPError, bool) {
		if errors.Is(err, target) {
			return status, true
		}
		return HTTPError{}, false
	}
}

// Classify picks the status and error body for err. Validation errors win,
// then the mappers in order, then any HTTPError in the chain. Everything
// else is a 500 whose message does not leak the cause.
func Classify(err error, mappers ...ErrorMapper) (int, *ErrorDetail) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusUnprocessableEntity, &ErrorDetail{
			Code:    ErrUnprocessableEntity.Key,
			Message: "validation failed",
			Details: verrs.Map(),
		}
	}

	for _, m := range mappers {
		if httpErr, ok := m(err); ok {
			return httpErr.Code, &ErrorDetail{Code: httpErr.Key, Message: message(err, httpErr)}
		}
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, &ErrorDetail{Code: httpErr.Key, Message: message(err, httpErr)}
	}

	return http.StatusInternalServerError, &ErrorDetail{
		Code:    ErrInternalServerError.Key,
		Message: http.StatusText(http.StatusInternalServerError),
	}
}

// message exposes the underlying error text for client errors only.
func message(err error, httpErr HTTPError) string {
	if httpErr.Code >= http.StatusInternalServerError || err == nil {
		return http.StatusText(httpErr.Code)
	}
	msg := strings.TrimPrefix(err.Error(), httpErr.Key+"\n")
	if msg == httpErr.Key {
		return http.StatusText(httpErr.Code)
	}
	return msg
}

// NewErrorHandler logs the error and renders it as a JSON envelope. Client
// errors log at warn, server errors at error.
func NewErrorHandler(log *slog.Logger, mappers ...ErrorMapper) ErrorHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx Context, err error) {
		r := ctx.Request()
		status, detail := Classify(err, mappers...)

		level := slog.LevelError
		if status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		log.LogAttrs(r.Context(), level, "request error",
			logger.RequestID(requestid.FromContext(r.Context())),
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("error_handler"),
		)

		resp := jsonResponse{body: JSONResponse{Code: status, Error: detail}}
		if renderErr := resp.Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.LogAttrs(r.Context(), slog.LevelError, "failed to render error response",
				logger.Error(renderErr),
				logger.Component("error_handler"),
			)
		}
	}
}
