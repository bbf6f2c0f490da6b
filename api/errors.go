// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error values shared across hioload-rtc packages.

package api

import "errors"

// Common errors used across the library.
var (
	ErrClosed            = errors.New("resource is closed")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrNotSupported      = errors.New("operation not supported")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrNotFound          = errors.New("resource not found")

	// ErrAlreadyPolling is returned when completion polling is started twice.
	ErrAlreadyPolling = errors.New("completion polling already started")
	// ErrNotPolling is returned when a stopped polling subscription is stopped again.
	ErrNotPolling = errors.New("completion polling not started")
)
