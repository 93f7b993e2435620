// Package service contains the business logic.
//
// It sits between the handler and repository layers: handlers pass in
// validated input and the authenticated user, services enforce workflow
// rules (ownership, letter immutability, flag resolution) and call
// repositories and integration clients.
package service
