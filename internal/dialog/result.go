// Package dialog applies business rules to extracted intents and tracks the
// pending-confirmation slot across conversation turns. State is keyed by
// session id; each session's turn processing is serialized by its own mutex.
package dialog

import "github.com/shopspring/decimal"

// PendingTransfer is the single-slot confirmation state: a transfer that has
// passed validation and awaits an explicit yes or no.
type PendingTransfer struct {
	Contact string
	Amount  decimal.Decimal
}

// Result is the outcome of one conversation turn. Pending is the post-turn
// state of the confirmation slot: nil when nothing awaits confirmation.
type Result struct {
	Message              string
	RequiresConfirmation bool
	Pending              *PendingTransfer
}
