package usecase

import "errors"

// Sentinel errors the adaptor layer maps to HTTP statuses with errors.Is.
// Services wrap these with context via fmt.Errorf("...: %w", Err...).
var (
	ErrNotFound          = errors.New("resource not found")
	ErrForbidden         = errors.New("operation not allowed for this role")
	ErrConflict          = errors.New("concurrent modification detected")
	ErrInvalidTransition = errors.New("illegal status transition")
	ErrValidation        = errors.New("validation failed")
	ErrGateway           = errors.New("payment gateway unavailable")
	ErrSignatureInvalid  = errors.New("signature verification failed")
	ErrNothingToRefund   = errors.New("nothing left to refund")
)
