package domain

import "errors"

// Sentinel errors that use cases raise and handlers map to HTTP statuses.
var (
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrAlreadyReviewed    = errors.New("already reviewed")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrPaymentNotVerified = errors.New("payment could not be verified")
	ErrInvalidCredentials = errors.New("invalid email or password")
)
