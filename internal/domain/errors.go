package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the store.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails structural parsing
// (unknown enum value, malformed offset string, clearing a required field).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrUnauthorized is returned by the identity gate when the authenticated
// email is not on the allow-list, or when a session token is missing,
// expired or revoked. Handlers should map this to HTTP 401.
var ErrUnauthorized = errors.New("unauthorized")

// ErrWrite wraps a backend rejection of a create, update or delete.
// Writes are never retried automatically; the caller decides.
var ErrWrite = errors.New("write failed")

// ErrSubscription is reported when a live query cannot be established or
// drops. The live package retries these with backoff.
var ErrSubscription = errors.New("subscription failed")

// ErrDirections is returned by the directions collaborator when no route
// could be resolved. Saving an activity never depends on it.
var ErrDirections = errors.New("directions unavailable")
