// Package validation binds and validates request payloads.
//
// Request DTOs carry go-playground/validator tags and implement Validatable;
// failures are converted into field-level errors the client can render next
// to form inputs.
package validation

import "github.com/go-playground/validator/v10"

// validate is the shared validator instance. validator.Validate is safe for
// concurrent use and caches struct metadata, so one instance serves the app.
var validate = validator.New()

// Struct runs tag-based validation on v. Request types call this from their
// Validate method.
func Struct(v any) error {
	return validate.Struct(v)
}
