package dialog

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"voicebank/internal/bank"
	"voicebank/internal/nlu"
)

// Executor maps each intent variant to exactly one Result. Only the
// confirm-transfer branch mutates the ledger, and it re-validates against the
// balance at confirmation time, never the value cached when the transfer was
// requested. Card data appears in a reply only on the explicit card-lookup
// branch; relayed model text is scrubbed.
type Executor struct {
	account   *bank.Account
	directory *bank.Directory
	logger    *zap.Logger
}

// NewExecutor builds the command executor.
func NewExecutor(account *bank.Account, directory *bank.Directory, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{account: account, directory: directory, logger: logger}
}

// Execute applies the intent against current account state. pending is the
// confirmation slot as of this turn; the returned Result carries its
// post-turn value. Every branch is total: no intent kind falls through.
func (e *Executor) Execute(ctx context.Context, in nlu.Intent, pending *PendingTransfer) Result {
	switch in.Kind {
	case nlu.KindBalance:
		return Result{
			Message: fmt.Sprintf("Ваш баланс: %s рублей.", e.account.Balance()),
			Pending: pending,
		}

	case nlu.KindCardInfo:
		return Result{
			Message: fmt.Sprintf("Ваш номер карты: %s.", e.account.CardNumber()),
			Pending: pending,
		}

	case nlu.KindTransferRequest:
		return e.transferRequest(in, pending)

	case nlu.KindConfirmTransfer:
		return e.confirmTransfer(in, pending)

	case nlu.KindCancelTransfer:
		return Result{Message: "Перевод отменён.", Pending: nil}

	case nlu.KindFreeForm:
		msg := in.Message
		if strings.TrimSpace(msg) == "" {
			msg = "Неизвестная команда."
		}
		return Result{Message: e.scrubCardNumber(msg), Pending: pending}

	case nlu.KindError:
		return Result{
			Message: e.scrubCardNumber(fmt.Sprintf("Извините, произошла ошибка: %s", in.Message)),
			Pending: pending,
		}

	default:
		// Unreachable with the closed Kind set; kept so a new variant that
		// skips the executor shows up in conversation instead of panicking.
		e.logger.Error("unhandled intent kind", zap.Stringer("kind", in.Kind))
		return Result{Message: "Неизвестная команда.", Pending: pending}
	}
}

func (e *Executor) transferRequest(in nlu.Intent, pending *PendingTransfer) Result {
	contact, found := e.directory.Lookup(in.Contact)
	if in.Contact == "" || !found {
		return Result{Message: "Контакт не найден. Укажите имя получателя.", Pending: pending}
	}
	if !in.HasAmount {
		return Result{Message: "Не указана сумма перевода. Укажите сумму.", Pending: pending}
	}
	if !in.Amount.IsPositive() {
		return Result{Message: "Сумма перевода должна быть больше нуля.", Pending: pending}
	}
	if in.Amount.GreaterThan(e.account.Balance()) {
		return Result{
			Message: fmt.Sprintf("Недостаточно средств. Баланс: %s рублей.", e.account.Balance()),
			Pending: pending,
		}
	}

	alias := bank.NormalizeAlias(in.Contact)
	e.logger.Info("transfer awaiting confirmation",
		zap.String("contact", alias),
		zap.String("amount", in.Amount.String()))
	return Result{
		Message:              fmt.Sprintf("Подтвердите перевод %s руб. для %s.", in.Amount, contact.DisplayName),
		RequiresConfirmation: true,
		// A new valid request overwrites any slot already pending.
		Pending: &PendingTransfer{Contact: alias, Amount: in.Amount},
	}
}

func (e *Executor) confirmTransfer(in nlu.Intent, pending *PendingTransfer) Result {
	contact, found := e.directory.Lookup(in.Contact)
	if !found {
		return Result{Message: "Контакт не найден. Укажите имя получателя.", Pending: pending}
	}
	if !in.HasAmount || !in.Amount.IsPositive() {
		return Result{Message: "Не указана сумма перевода. Укажите сумму.", Pending: pending}
	}

	newBalance, err := e.account.Debit(in.Amount)
	if err != nil {
		// Insufficient funds at confirmation time. The slot is left as-is:
		// a failed retry must not silently discard the user's request.
		return Result{
			Message: fmt.Sprintf("Недостаточно средств. Баланс: %s рублей.", e.account.Balance()),
			Pending: pending,
		}
	}

	e.logger.Info("transfer executed",
		zap.String("contact", bank.NormalizeAlias(in.Contact)),
		zap.String("amount", in.Amount.String()),
		zap.String("new_balance", newBalance.String()))
	return Result{
		Message: fmt.Sprintf("Перевод %s рублей для %s выполнен. Новый баланс: %s.", in.Amount, contact.DisplayName, newBalance),
		Pending: nil,
	}
}

// scrubCardNumber masks the account's card number wherever it appears in
// relayed text. The instruction grammar already forbids disclosure, but the
// executor does not rely on model compliance.
func (e *Executor) scrubCardNumber(msg string) string {
	card := e.account.CardNumber()
	if card == "" {
		return msg
	}
	compact := strings.ReplaceAll(card, " ", "")
	msg = strings.ReplaceAll(msg, card, "****")
	msg = strings.ReplaceAll(msg, compact, "****")
	return msg
}
