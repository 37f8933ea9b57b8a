// Package repository defines the store interfaces consumed by the handlers
// together with their MySQL implementations.  Sentinel errors let higher
// layers distinguish failure scenarios without inspecting driver errors:
// ErrEmailExists maps to the duplicate-email responses, ErrNotFound to 404s.
package repository

import "errors"

// ErrEmailExists is returned when creating or updating a user would violate
// the uniqueness constraint on users.email.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a requested row does not exist.  Handlers
// should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")
