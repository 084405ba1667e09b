// Package login provides the password and token mode login endpoints.
//
// This file defines exported error values used throughout the login flow.
package login

import "errors"

var (
	// ErrInvalidFormData is returned when the login body cannot be parsed.
	ErrInvalidFormData = errors.New("invalid form data")

	// ErrMissingFields is returned when username or password is missing.
	ErrMissingFields = errors.New("username and password are required")

	// ErrMissingBearer is returned when the token login has no bearer token.
	ErrMissingBearer = errors.New("bearer token required")
)
