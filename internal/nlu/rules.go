package nlu

import (
	"context"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"voicebank/internal/bank"
)

// matchThreshold is the minimum partial-similarity score (0..100) for a
// keyword to count as present in the utterance.
const matchThreshold = 70

// category pairs an intent kind with the keywords that trigger it. The slice
// below is ordered: the first matching category wins, so a single utterance
// containing both "баланс" and "перевести" is a balance inquiry. That
// tie-break is deliberate, not a best-match-overall policy.
type category struct {
	kind     Kind
	keywords []string
}

var categories = []category{
	{kind: KindBalance, keywords: []string{"баланс", "счёт", "счет", "остаток", "средства"}},
	{kind: KindCardInfo, keywords: []string{"карта", "карты", "карту", "картой", "номер"}},
	{kind: KindTransferRequest, keywords: []string{"перевести", "переведи", "перевод", "отправить", "отправь", "скинь"}},
}

// RuleExtractor is the deterministic strategy: fuzzy keyword scoring over a
// fixed ordered category list. When no category matches it delegates to the
// fallback extractor — an explicit policy, not an accidental default.
type RuleExtractor struct {
	directory *bank.Directory
	fallback  Extractor
	logger    *zap.Logger
}

// NewRuleExtractor builds the rule-based extractor. fallback handles
// utterances no rule matches and may be nil, in which case unmatched
// utterances become free-form intents.
func NewRuleExtractor(directory *bank.Directory, fallback Extractor, logger *zap.Logger) *RuleExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleExtractor{directory: directory, fallback: fallback, logger: logger}
}

// Extract classifies the utterance. Matching is done per whitespace token
// against each keyword with a fuzzy partial ratio; transfer utterances
// additionally resolve the contact against the whole utterance and take the
// first numeric token as the amount.
func (e *RuleExtractor) Extract(ctx context.Context, utterance string) Intent {
	norm := strings.ToLower(strings.TrimSpace(utterance))
	tokens := strings.Fields(norm)

	for _, cat := range categories {
		if !matchesCategory(cat.keywords, tokens) {
			continue
		}
		e.logger.Debug("rule match", zap.Stringer("kind", cat.kind), zap.String("utterance", norm))
		switch cat.kind {
		case KindBalance:
			return BalanceIntent()
		case KindCardInfo:
			return CardInfoIntent()
		case KindTransferRequest:
			return e.transferIntent(norm, tokens)
		}
	}

	if e.fallback == nil {
		return FreeFormIntent(utterance)
	}
	e.logger.Debug("no rule matched, delegating to model", zap.String("utterance", norm))
	return e.fallback.Extract(ctx, utterance)
}

func (e *RuleExtractor) transferIntent(norm string, tokens []string) Intent {
	alias, _, _ := e.directory.Resolve(norm)
	amount, hasAmount := firstAmount(tokens)
	return TransferIntent(alias, amount, hasAmount)
}

func matchesCategory(keywords, tokens []string) bool {
	for _, kw := range keywords {
		for _, tok := range tokens {
			if fuzzy.PartialRatio(kw, tok) >= matchThreshold {
				return true
			}
		}
	}
	return false
}

// firstAmount returns the first token that parses as a number. A comma is
// tolerated as the decimal separator ("500,50").
func firstAmount(tokens []string) (decimal.Decimal, bool) {
	for _, tok := range tokens {
		d, err := decimal.NewFromString(strings.ReplaceAll(tok, ",", "."))
		if err == nil {
			return d, true
		}
	}
	return decimal.Zero, false
}
