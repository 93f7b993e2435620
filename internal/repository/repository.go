// Package repository handles all interactions with the database.
//
// It contains the SQL and scan logic for each entity, abstracting
// persistence away from the service layer. Row-not-found is normalized to
// ErrNotFound so services never see pgx.ErrNoRows.
package repository

import "errors"

// ErrNotFound indicates an entity was not located.
var ErrNotFound = errors.New("repository: not found")
