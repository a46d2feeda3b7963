package core

import "errors"

var (
	// ErrInsufficientCredit means a debit's balance guard failed; the caller
	// routes to the teaser path instead.
	ErrInsufficientCredit = errors.New("insufficient credit")

	// ErrNotFound means a referenced lead or provider does not exist
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized covers failed balance-query authentication and invalid
	// admin credentials
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation covers malformed input rejected before persistence
	ErrValidation = errors.New("validation failed")
)
