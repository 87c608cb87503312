package dialog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebank/internal/bank"
	"voicebank/internal/nlu"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func testAccount(t *testing.T, balance string) *bank.Account {
	t.Helper()
	a, err := bank.NewAccount("Иван Иванов", "1234 5678 9012 3456", dec(t, balance))
	require.NoError(t, err)
	return a
}

func testDirectory() *bank.Directory {
	return bank.NewDirectory([]bank.DirectoryEntry{
		{Alias: "алексей", Contact: bank.Contact{DisplayName: "Алексей Петров", CardNumber: "4321 8765 2109 6543"}},
		{Alias: "мария", Contact: bank.Contact{DisplayName: "Мария Смирнова", CardNumber: "9876 5432 1098 7654"}},
		{Alias: "мама", Contact: bank.Contact{DisplayName: "Анна Владимировна", CardNumber: "3939 1223 8292 5436"}},
	})
}

func testEngine(t *testing.T, balance string) (*Engine, *bank.Account) {
	t.Helper()
	account := testAccount(t, balance)
	directory := testDirectory()
	extractor := nlu.NewRuleExtractor(directory, nil, nil)
	engine := NewEngine(extractor, NewExecutor(account, directory, nil), nil)
	return engine, account
}

const sid = "s1"

func TestTransferConfirmFlow(t *testing.T) {
	engine, account := testEngine(t, "10000")
	ctx := context.Background()

	res := engine.HandleTurn(ctx, sid, "перевести 500 маме")
	assert.True(t, res.RequiresConfirmation)
	assert.Contains(t, res.Message, "Анна Владимировна")
	assert.Contains(t, res.Message, "500")
	require.NotNil(t, res.Pending)
	assert.Equal(t, "мама", res.Pending.Contact)
	assert.Equal(t, "500", res.Pending.Amount.String())

	res = engine.HandleTurn(ctx, sid, "да")
	assert.False(t, res.RequiresConfirmation)
	assert.Contains(t, res.Message, "9500")
	assert.Nil(t, res.Pending)
	assert.Nil(t, engine.Pending(sid))
	assert.True(t, account.Balance().Equal(dec(t, "9500")))
}

func TestTransferInsufficientFunds(t *testing.T) {
	engine, account := testEngine(t, "9500")

	res := engine.HandleTurn(context.Background(), sid, "перевести 50000 маме")
	assert.False(t, res.RequiresConfirmation)
	assert.Contains(t, res.Message, "Недостаточно средств")
	assert.Nil(t, res.Pending)
	assert.True(t, account.Balance().Equal(dec(t, "9500")))
}

func TestTransferUnknownContact(t *testing.T) {
	engine, _ := testEngine(t, "10000")

	res := engine.HandleTurn(context.Background(), sid, "перевести 100 незнакомцу")
	assert.False(t, res.RequiresConfirmation)
	assert.Contains(t, res.Message, "Контакт не найден")
	assert.Nil(t, res.Pending)
}

func TestTransferWithoutAmount(t *testing.T) {
	engine, _ := testEngine(t, "10000")

	res := engine.HandleTurn(context.Background(), sid, "перевести деньги маме")
	assert.False(t, res.RequiresConfirmation)
	assert.Contains(t, res.Message, "сумма")
	assert.Nil(t, res.Pending)
}

func TestAffirmativeMatchingIsExact(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		confirmed bool
	}{
		{name: "plain yes", utterance: "да", confirmed: true},
		{name: "upper case with spaces", utterance: " ДА ", confirmed: true},
		{name: "confirm word", utterance: "Подтверждаю", confirmed: true},
		{name: "ok", utterance: "ок", confirmed: true},
		{name: "stretched yes is not fuzzy-matched", utterance: "дааа", confirmed: false},
		{name: "yes embedded in sentence", utterance: "да, давай", confirmed: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, account := testEngine(t, "10000")
			ctx := context.Background()

			res := engine.HandleTurn(ctx, sid, "перевести 500 маме")
			require.True(t, res.RequiresConfirmation)

			engine.HandleTurn(ctx, sid, tt.utterance)
			if tt.confirmed {
				assert.True(t, account.Balance().Equal(dec(t, "9500")))
			} else {
				assert.True(t, account.Balance().Equal(dec(t, "10000")))
			}
		})
	}
}

func TestNegativeTokenCancels(t *testing.T) {
	engine, account := testEngine(t, "10000")
	ctx := context.Background()

	engine.HandleTurn(ctx, sid, "перевести 500 маме")
	res := engine.HandleTurn(ctx, sid, "нет")

	assert.Contains(t, res.Message, "отменён")
	assert.Nil(t, engine.Pending(sid))
	assert.True(t, account.Balance().Equal(dec(t, "10000")))
}

func TestAmbiguousTurnImplicitlyCancels(t *testing.T) {
	engine, account := testEngine(t, "10000")
	ctx := context.Background()

	engine.HandleTurn(ctx, sid, "перевести 500 маме")
	res := engine.HandleTurn(ctx, sid, "баланс")

	assert.Contains(t, res.Message, "10000")
	assert.Nil(t, engine.Pending(sid), "ignored confirmation must not survive the turn")
	assert.True(t, account.Balance().Equal(dec(t, "10000")))

	// A later "да" must not execute the abandoned transfer.
	engine.HandleTurn(ctx, sid, "да")
	assert.True(t, account.Balance().Equal(dec(t, "10000")))
}

func TestNewTransferOverwritesPending(t *testing.T) {
	engine, account := testEngine(t, "10000")
	ctx := context.Background()

	engine.HandleTurn(ctx, sid, "перевести 500 маме")
	res := engine.HandleTurn(ctx, sid, "перевести 200 марии")
	require.True(t, res.RequiresConfirmation)
	require.NotNil(t, res.Pending)
	assert.Equal(t, "мария", res.Pending.Contact)
	assert.Equal(t, "200", res.Pending.Amount.String())

	engine.HandleTurn(ctx, sid, "да")
	assert.True(t, account.Balance().Equal(dec(t, "9800")))
}

func TestConfirmRevalidatesAgainstCurrentBalance(t *testing.T) {
	engine, account := testEngine(t, "10000")
	ctx := context.Background()

	res := engine.HandleTurn(ctx, sid, "перевести 500 маме")
	require.True(t, res.RequiresConfirmation)

	// The balance drops between request and confirmation.
	_, err := account.Debit(dec(t, "9900"))
	require.NoError(t, err)

	res = engine.HandleTurn(ctx, sid, "да")
	assert.Contains(t, res.Message, "Недостаточно средств")
	assert.True(t, account.Balance().Equal(dec(t, "100")))

	// The failed retry does not clear the slot.
	require.NotNil(t, engine.Pending(sid))
	assert.Equal(t, "мама", engine.Pending(sid).Contact)
}

func TestSessionsAreIsolated(t *testing.T) {
	engine, account := testEngine(t, "10000")
	ctx := context.Background()

	res := engine.HandleTurn(ctx, "alice", "перевести 500 маме")
	require.True(t, res.RequiresConfirmation)

	// Another session's yes must not confirm Alice's transfer.
	engine.HandleTurn(ctx, "bob", "да")
	assert.True(t, account.Balance().Equal(dec(t, "10000")))
	assert.NotNil(t, engine.Pending("alice"))

	engine.HandleTurn(ctx, "alice", "да")
	assert.True(t, account.Balance().Equal(dec(t, "9500")))
}

func TestExecutorHandlesEveryIntentKind(t *testing.T) {
	account := testAccount(t, "10000")
	exec := NewExecutor(account, testDirectory(), nil)
	ctx := context.Background()

	kinds := []nlu.Intent{
		nlu.BalanceIntent(),
		nlu.CardInfoIntent(),
		nlu.TransferIntent("мама", dec(t, "1"), true),
		nlu.ConfirmIntent("мама", dec(t, "1")),
		nlu.CancelIntent(),
		nlu.FreeFormIntent("привет"),
		nlu.ErrorIntent("сбой сети"),
	}
	for _, in := range kinds {
		res := exec.Execute(ctx, in, nil)
		assert.NotEmpty(t, res.Message, "intent kind %s produced an empty message", in.Kind)
	}
}

func TestCardNumberOnlyDisclosedOnCardIntent(t *testing.T) {
	account := testAccount(t, "10000")
	exec := NewExecutor(account, testDirectory(), nil)
	ctx := context.Background()

	res := exec.Execute(ctx, nlu.CardInfoIntent(), nil)
	assert.Contains(t, res.Message, "1234 5678 9012 3456")

	// A model reply leaking the card number is scrubbed before relay.
	res = exec.Execute(ctx, nlu.FreeFormIntent("Ваша карта 1234 5678 9012 3456, пожалуйста"), nil)
	assert.NotContains(t, res.Message, "1234 5678 9012 3456")
	assert.Contains(t, res.Message, "****")

	res = exec.Execute(ctx, nlu.FreeFormIntent("карта 1234567890123456"), nil)
	assert.NotContains(t, res.Message, "1234567890123456")
}

func TestErrorIntentIsApologetic(t *testing.T) {
	exec := NewExecutor(testAccount(t, "10000"), testDirectory(), nil)

	res := exec.Execute(context.Background(), nlu.ErrorIntent("connection refused"), nil)
	assert.Contains(t, res.Message, "Извините")
	assert.Contains(t, res.Message, "connection refused")
}
