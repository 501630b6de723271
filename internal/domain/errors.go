package domain

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrConsentViolation  = errors.New("recipient has opted out")
	ErrPlanLimit         = errors.New("plan limit reached")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrProvider          = errors.New("provider rejected message")
	ErrSignatureInvalid  = errors.New("invalid webhook signature")
	ErrPersistence       = errors.New("persistence failure")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)
