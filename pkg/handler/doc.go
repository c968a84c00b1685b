// Package handler turns typed functions into http.HandlerFunc values.
//
// A HandlerFunc receives a Context and a request struct filled by binders,
// and returns a Response. Wrap applies binders, decorators and the error
// handler:
//
//	r.Patch("/{id}/read", handler.Wrap(markRead,
//		handler.WithBinders[idRequest](binder.Path(chi.URLParam)),
//		handler.WithErrorHandler[idRequest](errorHandler),
//	))
//
// Every JSON body uses the same envelope:
//
//	{"code": 200, "data": {...}}
//	{"code": 422, "error": {"code": "validation_error", "message": "...", "details": {"title": ["..."]}}}
//
// Handlers return Error(err) to hand a failure to the error handler, which
// logs it and picks the status with Classify. Domain packages plug their
// sentinel errors in through ErrorMapper values.
package handler
