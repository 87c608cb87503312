package nlu

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"voicebank/internal/bank"
	"voicebank/internal/llm"
)

// instructions is the rigid output grammar handed to the model. It names
// exactly the allowed shapes; anything else is treated as free-form text on
// the way back.
const instructions = "Ты голосовой помощник банка. Отвечай на запросы пользователя. " +
	"Если запрос связан с балансом, картой или переводом, верни ровно один JSON-объект в формате: " +
	`{"command": "balance"} или {"command": "card"} или ` +
	`{"command": "transfer", "contact": "имя_контакта", "amount": сумма}. ` +
	`Для подтверждения перевода верни {"command": "confirm_transfer", "contact": "имя_контакта", "amount": сумма}, ` +
	`для отмены — {"command": "cancel_transfer"}. ` +
	`Если запрос не связан с банковскими операциями, верни {"command": "none", "message": "твой_ответ"}. ` +
	"Не раскрывай конфиденциальные данные (например, номер карты) без явного запроса. " +
	"Если контакт или сумма не ясны, запроси уточнение у пользователя."

// ModelExtractor is the LLM-delegated strategy. It ships the account
// snapshot, the contact names and the instruction grammar as the system
// context, then recovers a closed Intent from whatever comes back.
type ModelExtractor struct {
	client    llm.Client
	account   *bank.Account
	directory *bank.Directory
	logger    *zap.Logger
}

// NewModelExtractor builds the model-based extractor.
func NewModelExtractor(client llm.Client, account *bank.Account, directory *bank.Directory, logger *zap.Logger) *ModelExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelExtractor{client: client, account: account, directory: directory, logger: logger}
}

type modelContext struct {
	UserData     modelUserData     `json:"user_data"`
	Contacts     map[string]string `json:"contacts"`
	Instructions string            `json:"instructions"`
}

type modelUserData struct {
	Name       string `json:"name"`
	Balance    string `json:"balance"`
	CardNumber string `json:"card_number"`
}

// modelCommand is the parse target for model replies. Amount is decoded
// leniently (JSON number or quoted string) and validated separately.
type modelCommand struct {
	Command string     `json:"command"`
	Contact string     `json:"contact"`
	Amount  flexNumber `json:"amount"`
	Message string     `json:"message"`
}

// flexNumber accepts a JSON number or a numeric string. Models produce both.
type flexNumber string

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	*n = flexNumber(strings.Trim(string(b), `"`))
	return nil
}

// Extract sends the utterance as the user turn and maps the reply onto the
// closed Intent set. Transport failures become error intents; malformed or
// unrecognized output degrades to free-form text, never to a dropped turn.
func (e *ModelExtractor) Extract(ctx context.Context, utterance string) Intent {
	system, err := e.systemPrompt()
	if err != nil {
		return ErrorIntent(err.Error())
	}

	raw, err := e.client.CompleteWithSystem(ctx, system, utterance)
	if err != nil {
		e.logger.Warn("model call failed", zap.Error(err))
		return ErrorIntent(err.Error())
	}
	return e.parseReply(raw)
}

func (e *ModelExtractor) systemPrompt() (string, error) {
	snap := e.account.Snapshot()
	payload, err := json.Marshal(modelContext{
		UserData: modelUserData{
			Name:       snap.Owner,
			Balance:    snap.Balance.String(),
			CardNumber: snap.CardNumber,
		},
		Contacts:     e.directory.Names(),
		Instructions: instructions,
	})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// parseReply is the strict parse-then-validate boundary. The content is
// unfenced first; JSON that fits an allowed shape maps to its Intent, JSON
// with an unknown command maps to free-form, and non-JSON is relayed as-is.
func (e *ModelExtractor) parseReply(raw string) Intent {
	content := StripCodeFences(raw)

	var cmd modelCommand
	if err := json.Unmarshal([]byte(content), &cmd); err != nil {
		e.logger.Debug("model reply is not JSON, relaying as text", zap.String("content", truncateForLog(content)))
		return FreeFormIntent(content)
	}

	switch cmd.Command {
	case "balance":
		return BalanceIntent()
	case "card":
		return CardInfoIntent()
	case "transfer":
		amount, hasAmount := parseAmount(string(cmd.Amount))
		return TransferIntent(cmd.Contact, amount, hasAmount)
	case "confirm_transfer":
		amount, hasAmount := parseAmount(string(cmd.Amount))
		if !hasAmount {
			return TransferIntent(cmd.Contact, decimal.Zero, false)
		}
		return ConfirmIntent(cmd.Contact, amount)
	case "cancel_transfer":
		return CancelIntent()
	case "none":
		if cmd.Message != "" {
			return FreeFormIntent(cmd.Message)
		}
		return FreeFormIntent(content)
	default:
		e.logger.Debug("unrecognized model command", zap.String("command", cmd.Command))
		if cmd.Message != "" {
			return FreeFormIntent(cmd.Message)
		}
		return FreeFormIntent(content)
	}
}

// parseAmount validates a model-provided amount: it must parse as a decimal
// and be strictly positive. Anything else counts as absent.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" || s == "null" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

func truncateForLog(s string) string {
	if len(s) <= 120 {
		return s
	}
	return s[:120] + "..."
}
