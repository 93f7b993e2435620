// Package errs defines the error types returned to API clients.
//
// Handlers and services return *HTTPError values (or plain errors that the
// global error handler converts); the JSON shape is stable so the frontend
// can key off Code and render field-level validation errors.
package errs
