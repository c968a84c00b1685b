// Package directory answers two questions about CRM users for the
// notification service: which users a role/team filter selects, and which
// email address a user receives mail at.
package directory
