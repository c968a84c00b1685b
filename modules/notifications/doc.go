// Package notifications is the HTTP surface of the notification service:
// listing, counters, preferences and lifecycle actions for the caller's own
// notifications, plus privileged create and broadcast.
//
// Every route except /ws requires a bearer token; the caller's id comes from
// its subject. Creating and broadcasting also need the caller's role to hold
// rbac.PermCreate or rbac.PermBroadcast, and may be rate limited. Responses use the JSON envelope of pkg/handler; validation errors
// map to 422, missing or foreign notifications to 404.
package notifications
