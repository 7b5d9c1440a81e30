package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUnauthorized        = errors.New("missing or invalid credentials")
	ErrForbidden           = errors.New("access denied")
	ErrInsufficientCredits = errors.New("insufficient credits")

	// Payment reconciliation errors
	ErrVerificationFailed  = errors.New("webhook verification failed")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrAmountMismatch      = errors.New("payment amount mismatch")
	ErrStatusMismatch      = errors.New("payment status mismatch")
	ErrAlreadyProcessed    = errors.New("payment already processed")

	// Database layer errors
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)
