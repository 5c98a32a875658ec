// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden indicates the caller does not own the target resource.
var ErrForbidden = errors.New("forbidden")

// ErrValidation indicates malformed or oversized input.
var ErrValidation = errors.New("validation")

// ErrConflict indicates a concurrent modification conflict.
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrProviderUnavailable indicates the reasoning provider failed or timed out.
var ErrProviderUnavailable = errors.New("reasoning provider unavailable")
