package errors

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedGateway     = errors.New("unsupported payment gateway")
	ErrInvalidAmount          = errors.New("invalid payment amount")
	ErrUnsupportedCurrency    = errors.New("unsupported currency")
	ErrInvalidCustomerContact = errors.New("invalid customer contact")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrInvalidState           = errors.New("invalid transaction status for this operation")
	ErrAlreadyCancelled       = errors.New("transaction already cancelled")
	ErrMalformedInput         = errors.New("invalid JSON body")

	// Store level.
	ErrNilTransaction       = errors.New("transaction is nil")
	ErrDuplicateTransaction = errors.New("transaction already exists")
	ErrStatusConflict       = errors.New("transaction status changed concurrently")
	ErrLockNotAcquired      = fmt.Errorf("transaction is locked")
)
