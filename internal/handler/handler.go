// Package handler is the HTTP layer. It binds and validates requests,
// resolves the authenticated clinician, calls the service layer, and shapes
// domain objects into response payloads.
package handler
