package bank

import "errors"

// Domain errors. These are business-rule failures, not system errors; the
// dialog layer converts them into user-facing replies and the HTTP layer
// never sees them as 5xx conditions.
var (
	// ErrContactNotFound means the transfer recipient is not in the directory.
	ErrContactNotFound = errors.New("contact not found")

	// ErrInvalidAmount means the amount is missing, zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds means the debit would take the balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")
)
