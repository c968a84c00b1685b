// Package requestid tags every HTTP request with an id that follows it into
// log records and outbound channel messages.
//
// Mount Middleware first so later middleware and handlers can read the id:
//
//	r := chi.NewRouter()
//	r.Use(requestid.Middleware)
//
// Wire LoggerExtractor into the logger so records carry request_id:
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
package requestid
