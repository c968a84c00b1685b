// Package binder fills request structs from HTTP requests.
//
// Each binder handles one source and reads its own struct tag:
//
//	type ListRequest struct {
//	    ID         string             `path:"id"`
//	    UnreadOnly bool               `query:"unread_only"`
//	    Type       notifications.Type `query:"type"`
//	    Since      *time.Time         `query:"since"` // RFC 3339
//	}
//
// JSON decodes the body strictly: unknown fields, trailing data and bodies
// over the size limit are rejected. Query and Path support strings (including
// named string types), integers, floats, booleans, time.Time, pointers and
// comma-separated slices. Missing values leave the field untouched.
//
// Binders return ErrNotApplicable when the request has nothing for them, so
// a handler can chain several and let the inapplicable ones pass.
package binder
