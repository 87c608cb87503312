package nlu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebank/internal/bank"
)

func testDirectory() *bank.Directory {
	return bank.NewDirectory([]bank.DirectoryEntry{
		{Alias: "алексей", Contact: bank.Contact{DisplayName: "Алексей Петров", CardNumber: "4321 8765 2109 6543"}},
		{Alias: "мария", Contact: bank.Contact{DisplayName: "Мария Смирнова", CardNumber: "9876 5432 1098 7654"}},
		{Alias: "мама", Contact: bank.Contact{DisplayName: "Анна Владимировна", CardNumber: "3939 1223 8292 5436"}},
	})
}

// extractorFunc adapts a function to the Extractor interface for tests.
type extractorFunc func(ctx context.Context, utterance string) Intent

func (f extractorFunc) Extract(ctx context.Context, utterance string) Intent {
	return f(ctx, utterance)
}

func TestRuleExtractorCategories(t *testing.T) {
	e := NewRuleExtractor(testDirectory(), nil, nil)

	tests := []struct {
		name      string
		utterance string
		want      Kind
	}{
		{name: "balance keyword", utterance: "баланс", want: KindBalance},
		{name: "balance sentence", utterance: "Какой у меня остаток на счёте", want: KindBalance},
		{name: "card", utterance: "покажи номер карты", want: KindCardInfo},
		{name: "transfer", utterance: "перевести 500 маме", want: KindTransferRequest},
		{name: "transfer imperative", utterance: "переведи сто рублей алексею", want: KindTransferRequest},
		{name: "balance wins over transfer", utterance: "переведи мне баланс", want: KindBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(context.Background(), tt.utterance)
			assert.Equal(t, tt.want, got.Kind, "utterance %q", tt.utterance)
		})
	}
}

func TestRuleExtractorTransferFields(t *testing.T) {
	e := NewRuleExtractor(testDirectory(), nil, nil)

	got := e.Extract(context.Background(), "перевести 500 маме")
	require.Equal(t, KindTransferRequest, got.Kind)
	assert.Equal(t, "мама", got.Contact)
	require.True(t, got.HasAmount)
	assert.Equal(t, "500", got.Amount.String())

	got = e.Extract(context.Background(), "переведи 100,50 марии")
	require.Equal(t, KindTransferRequest, got.Kind)
	assert.Equal(t, "мария", got.Contact)
	require.True(t, got.HasAmount)
	assert.Equal(t, "100.5", got.Amount.String())
}

func TestRuleExtractorTransferWithoutAmount(t *testing.T) {
	e := NewRuleExtractor(testDirectory(), nil, nil)

	got := e.Extract(context.Background(), "перевести деньги маме")
	require.Equal(t, KindTransferRequest, got.Kind)
	assert.Equal(t, "мама", got.Contact)
	assert.False(t, got.HasAmount, "spelled-out amounts are not parsed by rules")
}

func TestRuleExtractorTransferUnknownContact(t *testing.T) {
	e := NewRuleExtractor(testDirectory(), nil, nil)

	got := e.Extract(context.Background(), "перевести 100 незнакомцу")
	require.Equal(t, KindTransferRequest, got.Kind)
	assert.Empty(t, got.Contact)
}

func TestRuleExtractorDelegatesToFallback(t *testing.T) {
	var delegated string
	fallback := extractorFunc(func(ctx context.Context, utterance string) Intent {
		delegated = utterance
		return FreeFormIntent("из модели")
	})
	e := NewRuleExtractor(testDirectory(), fallback, nil)

	got := e.Extract(context.Background(), "расскажи анекдот")
	assert.Equal(t, KindFreeForm, got.Kind)
	assert.Equal(t, "из модели", got.Message)
	assert.Equal(t, "расскажи анекдот", delegated)
}

func TestRuleExtractorWithoutFallback(t *testing.T) {
	e := NewRuleExtractor(testDirectory(), nil, nil)

	got := e.Extract(context.Background(), "расскажи анекдот")
	assert.Equal(t, KindFreeForm, got.Kind)
}
