package dialog

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"voicebank/internal/nlu"
)

// Affirmative and negative tokens resolving a pending confirmation. Matching
// is case-insensitive on the trimmed utterance and exact, never fuzzy: "ДА "
// confirms, "дааа" does not.
var (
	affirmativeTokens = map[string]struct{}{
		"да":          {},
		"подтверждаю": {},
		"ок":          {},
	}
	negativeTokens = map[string]struct{}{
		"нет":    {},
		"отмена": {},
		"отмени": {},
	}
)

// Engine is the single entry point for a conversation turn. It decides
// whether the utterance resolves a pending confirmation before any fresh
// extraction runs, then hands the intent to the executor and stores the
// resulting slot state.
//
// State is per session: each session has its own pending slot and mutex, so
// one caller's "да" can never confirm another caller's transfer. The ledger
// itself is still a process-wide singleton guarded by its own lock.
type Engine struct {
	extractor nlu.Extractor
	executor  *Executor
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu      sync.Mutex
	pending *PendingTransfer
}

// NewEngine builds the dialog engine.
func NewEngine(extractor nlu.Extractor, executor *Executor, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		extractor: extractor,
		executor:  executor,
		logger:    logger,
		sessions:  make(map[string]*session),
	}
}

// HandleTurn processes one utterance for the given session and returns the
// rendered Result. Turns within a session are serialized; the call blocks on
// the extractor, which may perform a model round trip.
func (e *Engine) HandleTurn(ctx context.Context, sessionID, utterance string) Result {
	s := e.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	norm := strings.ToLower(strings.TrimSpace(utterance))

	var in nlu.Intent
	switch {
	case s.pending != nil && isAffirmative(norm):
		// Confirm with the stored amount and contact, never values re-parsed
		// from the new utterance.
		in = nlu.ConfirmIntent(s.pending.Contact, s.pending.Amount)

	case s.pending != nil && isNegative(norm):
		in = nlu.CancelIntent()

	case s.pending != nil:
		// Any other utterance while awaiting confirmation implicitly cancels
		// the stale slot and is processed as a fresh request. The slot never
		// survives a turn that ignored it.
		e.logger.Info("pending transfer implicitly cancelled",
			zap.String("session", sessionID),
			zap.String("contact", s.pending.Contact))
		s.pending = nil
		in = e.extractor.Extract(ctx, utterance)

	default:
		in = e.extractor.Extract(ctx, utterance)
	}

	res := e.executor.Execute(ctx, in, s.pending)
	s.pending = res.Pending

	e.logger.Debug("turn handled",
		zap.String("session", sessionID),
		zap.Stringer("intent", in.Kind),
		zap.Bool("awaiting_confirmation", res.Pending != nil))
	return res
}

// Pending reports the session's confirmation slot.
func (e *Engine) Pending(sessionID string) *PendingTransfer {
	s := e.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	cp := *s.pending
	return &cp
}

func (e *Engine) session(id string) *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[id]
	if !ok {
		s = &session{}
		e.sessions[id] = s
	}
	return s
}

func isAffirmative(norm string) bool {
	_, ok := affirmativeTokens[norm]
	return ok
}

func isNegative(norm string) bool {
	_, ok := negativeTokens[norm]
	return ok
}
