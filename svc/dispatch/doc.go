// Package dispatch is the delivery dispatcher of the notification service.
//
// Create runs per recipient: load or create the preference, resolve the
// channels, narrow them for quiet hours, persist, push the client-safe view
// to live connections and hand every external channel to the sender in the
// background. Outcomes of external channels land in the notification's
// delivery status. Read, archive and delete are scoped to the owner; a
// foreign id is reported as notifications.ErrNotFound.
package dispatch
