// Package nlu turns a user utterance into a structured Intent. Two strategies
// implement the same contract: a deterministic fuzzy-keyword classifier and a
// model-delegated extractor that sanitizes and validates the model's output.
package nlu

import (
	"context"

	"github.com/shopspring/decimal"
)

// Kind enumerates the closed set of intent variants. The command executor
// switches over all of them; adding a kind without handling it there is a
// compile-visible change, not a silent fall-through.
type Kind int

const (
	// KindBalance asks for the current balance.
	KindBalance Kind = iota
	// KindCardInfo asks for the card number.
	KindCardInfo
	// KindTransferRequest asks to start a transfer; carries contact and amount.
	KindTransferRequest
	// KindConfirmTransfer executes a previously requested transfer.
	KindConfirmTransfer
	// KindCancelTransfer abandons a pending transfer.
	KindCancelTransfer
	// KindFreeForm is a non-banking reply to relay verbatim.
	KindFreeForm
	// KindError is an extraction or transport failure to apologize for.
	KindError
)

// String implements fmt.Stringer for logging.
func (k Kind) String() string {
	switch k {
	case KindBalance:
		return "balance"
	case KindCardInfo:
		return "card"
	case KindTransferRequest:
		return "transfer"
	case KindConfirmTransfer:
		return "confirm_transfer"
	case KindCancelTransfer:
		return "cancel_transfer"
	case KindFreeForm:
		return "free_form"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Intent is the structured classification of one utterance.
// Contact and Amount are meaningful for transfer kinds; Message carries
// free-form text or an error reason. HasAmount distinguishes "no parseable
// amount" from an explicit zero.
type Intent struct {
	Kind      Kind
	Contact   string
	Amount    decimal.Decimal
	HasAmount bool
	Message   string
}

// BalanceIntent builds a balance inquiry.
func BalanceIntent() Intent { return Intent{Kind: KindBalance} }

// CardInfoIntent builds a card lookup.
func CardInfoIntent() Intent { return Intent{Kind: KindCardInfo} }

// TransferIntent builds a transfer request. Pass hasAmount=false when no
// amount could be parsed from the utterance.
func TransferIntent(contact string, amount decimal.Decimal, hasAmount bool) Intent {
	return Intent{Kind: KindTransferRequest, Contact: contact, Amount: amount, HasAmount: hasAmount}
}

// ConfirmIntent builds a confirmation for a stored pending transfer.
func ConfirmIntent(contact string, amount decimal.Decimal) Intent {
	return Intent{Kind: KindConfirmTransfer, Contact: contact, Amount: amount, HasAmount: true}
}

// CancelIntent builds a cancellation.
func CancelIntent() Intent { return Intent{Kind: KindCancelTransfer} }

// FreeFormIntent builds a verbatim relay.
func FreeFormIntent(message string) Intent {
	return Intent{Kind: KindFreeForm, Message: message}
}

// ErrorIntent builds a failure report.
func ErrorIntent(reason string) Intent {
	return Intent{Kind: KindError, Message: reason}
}

// Extractor classifies an utterance into an Intent. Implementations never
// return an error: failures become KindError intents so every utterance maps
// to exactly one Result downstream.
type Extractor interface {
	Extract(ctx context.Context, utterance string) Intent
}
