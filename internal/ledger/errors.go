package ledger

import "errors"

// Rejection reasons surfaced to the HTTP layer. All of them abort an
// operation before any balance is mutated.
var (
	ErrInvalidAmount        = errors.New("amount must be a positive integer")
	ErrUnknownSender        = errors.New("sender account not found")
	ErrUnknownReceiver      = errors.New("receiver account not found")
	ErrAuthenticationFailed = errors.New("invalid credentials")
	ErrInsufficientFunds    = errors.New("insufficient credits")
	ErrDuplicateUsername    = errors.New("username already exists")
	ErrNotFound             = errors.New("account not found")
	ErrSelfTransfer         = errors.New("cannot transfer to yourself")
)
