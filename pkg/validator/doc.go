// Package validator provides rule-based validation producing field-level errors.
//
// Rules are plain values built by constructors such as Required, InList or
// TimeOfDay and executed together with Apply:
//
//	err := validator.Apply(
//		validator.Required("title", req.Title),
//		validator.MaxLen("title", req.Title, 255),
//		validator.InList("priority", req.Priority, priorities),
//	)
//	if errs := validator.ExtractValidationErrors(err); errs != nil {
//		// errs.Map() groups messages by field
//	}
//
// Every ValidationErrors value matches ErrValidationFailed with errors.Is.
package validator
