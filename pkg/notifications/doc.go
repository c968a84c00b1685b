// Package notifications is the notification store: the persisted model, the
// fixed type catalog, and Storage implementations backed by memory and
// PostgreSQL.
//
// Every recipient-scoped Storage method reports a row owned by someone else
// exactly like a missing row (ErrNotFound). ChannelsSent is written once by
// Create; later updates only touch DeliveryStatus, read and archive state.
//
// View is the client-safe projection sent to browsers and real-time
// connections; it omits delivery internals, metadata and the creator.
package notifications
