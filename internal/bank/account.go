// Package bank holds the account ledger and the contact directory: the only
// mutable banking state in the process. All mutation is all-or-nothing and
// happens behind a mutex; validation runs before any field is touched.
package bank

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Account is a single-owner ledger: balance, owner name and card number.
// The balance is the only mutable field. It never goes negative: every debit
// is checked against the current balance inside the same critical section
// that applies it.
type Account struct {
	mu      sync.Mutex
	owner   string
	card    string
	balance decimal.Decimal
}

// Snapshot is a point-in-time copy of the account, safe to hand to prompt
// builders and renderers without exposing the live ledger.
type Snapshot struct {
	Owner      string
	CardNumber string
	Balance    decimal.Decimal
}

// NewAccount creates the ledger with an opening balance. The opening balance
// must not be negative.
func NewAccount(owner, cardNumber string, opening decimal.Decimal) (*Account, error) {
	if opening.IsNegative() {
		return nil, fmt.Errorf("opening balance %s: %w", opening, ErrInvalidAmount)
	}
	return &Account{owner: owner, card: cardNumber, balance: opening}, nil
}

// Owner returns the account holder's display name.
func (a *Account) Owner() string { return a.owner }

// CardNumber returns the card number. Callers decide whether it may be
// disclosed; the ledger itself has no notion of audiences.
func (a *Account) CardNumber() string { return a.card }

// Balance returns the current balance.
func (a *Account) Balance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// Debit withdraws amount from the account and returns the new balance.
// The amount must be positive and no greater than the current balance;
// on any validation failure the balance is left untouched.
func (a *Account) Debit(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if amount.GreaterThan(a.balance) {
		return decimal.Zero, ErrInsufficientFunds
	}
	a.balance = a.balance.Sub(amount)
	return a.balance, nil
}

// Snapshot returns a consistent copy of the account state.
func (a *Account) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{Owner: a.owner, CardNumber: a.card, Balance: a.balance}
}
