package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid query execution context")

	// Quota
	ErrQuotaExceeded = errors.New("daily analysis quota exceeded")
	ErrUserDisabled  = errors.New("user is disabled")

	// Payments
	ErrPaymentNotPending  = errors.New("payment is not pending")
	ErrTxHashAlreadyUsed  = errors.New("transaction hash already attached to a payment")
	ErrVerificationFailed = errors.New("chain verification failed")
	ErrUnknownPackage     = errors.New("unknown credit package")

	// Analysis
	ErrImageTooLarge    = errors.New("image exceeds maximum size")
	ErrImageTooSmall    = errors.New("image below minimum size")
	ErrUnsupportedImage = errors.New("unsupported image format")
	ErrAnalysisFailed   = errors.New("chart analysis failed")

	// Locking
	ErrLockNotAcquired = errors.New("could not acquire lock")
)
