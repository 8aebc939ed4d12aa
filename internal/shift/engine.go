// Package shift runs training shifts: it hands a learner a batch of
// scenarios, records each decision exactly once and folds the results
// into the learner's long-term progress.
package shift

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/phishshift/internal/apperr"
	"github.com/abhisek/phishshift/internal/chain"
	"github.com/abhisek/phishshift/internal/keylock"
	"github.com/abhisek/phishshift/internal/logging"
	"github.com/abhisek/phishshift/internal/outcome"
	"github.com/abhisek/phishshift/internal/progress"
	"github.com/abhisek/phishshift/internal/scenario"
	"github.com/abhisek/phishshift/internal/selector"
)

// DefaultVerificationBudget is how many verify actions a shift allows.
const DefaultVerificationBudget = 3

// Config wires an Engine. Sessions, Decisions, Progress, Scenarios and Tx
// are required.
type Config struct {
	Sessions  SessionRepository
	Decisions DecisionLog
	Progress  progress.Repository
	Scenarios scenario.Repository
	Tx        TxManager

	Selector *selector.Selector
	Locker   keylock.Locker
	Logger   *logging.Logger
	Now      func() time.Time

	ShiftSize          int
	VerificationBudget int
}

// Engine coordinates shifts. It is safe for concurrent use.
type Engine struct {
	sessions  SessionRepository
	decisions DecisionLog
	progress  progress.Repository
	scenarios scenario.Repository
	tx        TxManager

	selector *selector.Selector
	chains   *chain.Machine
	locker   keylock.Locker
	log      *logging.Logger
	now      func() time.Time

	shiftSize int
	budget    int
}

// New creates an Engine, filling defaults for the optional fields. A zero
// VerificationBudget means the default; a negative one disables verify.
func New(cfg Config) *Engine {
	e := &Engine{
		sessions:  cfg.Sessions,
		decisions: cfg.Decisions,
		progress:  cfg.Progress,
		scenarios: cfg.Scenarios,
		tx:        cfg.Tx,
		selector:  cfg.Selector,
		chains:    chain.New(cfg.Scenarios),
		locker:    cfg.Locker,
		log:       cfg.Logger,
		now:       cfg.Now,
		shiftSize: cfg.ShiftSize,
		budget:    cfg.VerificationBudget,
	}
	if e.selector == nil {
		e.selector = selector.New(cfg.Scenarios, nil)
	}
	if e.locker == nil {
		e.locker = keylock.NewLocal()
	}
	if e.log == nil {
		e.log = logging.Nop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.shiftSize <= 0 {
		e.shiftSize = selector.DefaultSize
	}
	switch {
	case e.budget == 0:
		e.budget = DefaultVerificationBudget
	case e.budget < 0:
		e.budget = 0
	}
	return e
}

// StartShift selects a batch for userID and opens a session for it. A
// short batch still starts; StartResult.Batch reports the shortfall.
func (e *Engine) StartShift(ctx context.Context, userID string) (*StartResult, error) {
	if userID == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "user_id", userID)
	}

	p, err := e.loadProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	batch, err := e.selector.SelectBatch(ctx, e.shiftSize, p.Accuracy(), p.ShiftsCompleted)
	if err != nil {
		return nil, fmt.Errorf("select batch: %w", err)
	}
	if len(batch.Scenarios) == 0 {
		return nil, apperr.New(apperr.KindInsufficientPool, "shortfall",
			fmt.Sprintf("%d of %d", batch.Requested, batch.Requested))
	}

	s := &Session{
		ID:                 uuid.NewString(),
		UserID:             userID,
		ScenarioIDs:        batch.IDs(),
		VerificationBudget: e.budget,
		CreatedAt:          e.now().UTC(),
	}
	err = e.tx.Within(ctx, func(ctx context.Context) error {
		return e.sessions.Create(ctx, s)
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if batch.Shortfall > 0 {
		e.log.Warn("short batch",
			"session_id", s.ID,
			"user_id", userID,
			"requested", batch.Requested,
			"shortfall", batch.Shortfall)
	}
	e.log.Info("shift started",
		"session_id", s.ID,
		"user_id", userID,
		"ceiling", batch.Ceiling,
		"scenarios", len(batch.Scenarios))

	return &StartResult{Session: s.clone(), Scenarios: batch.Scenarios, Batch: batch}, nil
}

// SubmitDecision records one action against a scenario in a shift. The
// whole submission commits or nothing does.
func (e *Engine) SubmitDecision(ctx context.Context, sub Submission) (*DecisionResult, error) {
	action, err := outcome.ParseAction(sub.Action)
	if err != nil {
		return nil, err
	}
	if sub.Confidence < 0 || sub.Confidence > 100 {
		return nil, apperr.New(apperr.KindInvalidInput, "confidence", sub.Confidence)
	}

	unlockSession, err := e.locker.Lock(ctx, keylock.SessionKey(sub.SessionID))
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	defer unlockSession()

	current, err := e.sessions.Get(ctx, sub.SessionID)
	if err != nil {
		return nil, err
	}
	unlockUser, err := e.locker.Lock(ctx, keylock.UserKey(current.UserID))
	if err != nil {
		return nil, fmt.Errorf("lock learner: %w", err)
	}
	defer unlockUser()

	var res *DecisionResult
	err = e.tx.Within(ctx, func(ctx context.Context) error {
		var err error
		res, err = e.submit(ctx, sub, action)
		return err
	})
	if err != nil {
		return nil, err
	}

	if res.Replayed {
		e.log.Debug("decision replayed",
			"session_id", sub.SessionID,
			"scenario_id", sub.ScenarioID)
		return res, nil
	}
	e.log.Info("decision recorded",
		"session_id", res.Session.ID,
		"user_id", res.Session.UserID,
		"scenario_id", res.Decision.ScenarioID,
		"action", res.Decision.Action,
		"outcome", res.Decision.Outcome,
		"points", res.Decision.Points,
		"sequence", res.Decision.Sequence)
	for _, b := range res.NewBadges {
		e.log.Info("badge earned", "user_id", res.Session.UserID, "badge", b.ID)
	}
	if res.ChainAppended != nil {
		e.log.Info("chain extended",
			"session_id", res.Session.ID,
			"chain_id", res.ChainAppended.ChainID,
			"scenario_id", res.ChainAppended.ID)
	}
	return res, nil
}

func (e *Engine) submit(ctx context.Context, sub Submission, action outcome.Action) (*DecisionResult, error) {
	if replay, err := e.replay(ctx, sub); replay != nil || err != nil {
		return replay, err
	}

	s, err := e.sessions.Get(ctx, sub.SessionID)
	if err != nil {
		return nil, err
	}
	if s.Completed {
		return nil, apperr.New(apperr.KindShiftCompleted, "session_id", s.ID)
	}
	sc, err := e.scenarios.GetByID(ctx, sub.ScenarioID)
	if err != nil {
		return nil, err
	}
	if !s.Contains(sc.ID) {
		return nil, apperr.New(apperr.KindScenarioNotInShift, "scenario_id", sc.ID)
	}
	prior, err := e.decisions.ForSession(ctx, s.ID)
	if err != nil {
		return nil, fmt.Errorf("load decisions: %w", err)
	}
	for _, d := range prior {
		if d.ScenarioID == sc.ID {
			return nil, apperr.New(apperr.KindAlreadyDecided, "scenario_id", sc.ID)
		}
	}
	usedVerification := action == outcome.ActionVerify
	if usedVerification && s.VerificationsUsed >= s.VerificationBudget {
		return nil, apperr.New(apperr.KindBudgetExhausted, "action", action)
	}

	result := outcome.Classify(sc.Facts(), action, usedVerification)
	correct := outcome.IsCorrect(sc.Facts(), action)

	s.Score += result.Points
	s.DecisionCount++
	if usedVerification {
		s.VerificationsUsed++
	}
	if correct {
		s.CorrectCount++
	}
	switch result.Outcome {
	case outcome.FalseAlarm:
		s.FalsePositives++
	case outcome.Compromised:
		s.Compromises++
	}

	p, err := e.loadProgress(ctx, s.UserID)
	if err != nil {
		return nil, err
	}
	next, badges := progress.ApplyDecision(p, progress.Decision{
		Scenario:   *sc,
		Action:     action,
		Confidence: sub.Confidence,
		Result:     result,
	})
	next.UpdatedAt = e.now().UTC()
	if next.Version, err = e.progress.Upsert(ctx, next); err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}

	ids, appended, err := e.chains.Extend(ctx, s.ScenarioIDs, *sc, action)
	if err != nil {
		return nil, err
	}
	s.ScenarioIDs = ids

	if err := e.sessions.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	d := &Decision{
		ID:               uuid.NewString(),
		SessionID:        s.ID,
		UserID:           s.UserID,
		ScenarioID:       sc.ID,
		Action:           action,
		Confidence:       sub.Confidence,
		Outcome:          result.Outcome,
		Points:           result.Points,
		UsedVerification: usedVerification,
		Correct:          correct,
		IdempotencyKey:   sub.IdempotencyKey,
		CreatedAt:        e.now().UTC(),
	}
	if err := e.decisions.Append(ctx, d); err != nil {
		return nil, fmt.Errorf("append decision: %w", err)
	}

	return &DecisionResult{
		Decision:      *d,
		Result:        result,
		Session:       s.clone(),
		Progress:      next,
		NewBadges:     badges,
		ChainAppended: appended,
	}, nil
}

// replay returns the recorded result when sub's idempotency key was seen
// before. A key reused for a different scenario is rejected.
func (e *Engine) replay(ctx context.Context, sub Submission) (*DecisionResult, error) {
	if sub.IdempotencyKey == "" {
		return nil, nil
	}
	d, err := e.decisions.FindByIdempotencyKey(ctx, sub.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("find idempotency key: %w", err)
	}
	if d == nil {
		return nil, nil
	}
	if d.SessionID != sub.SessionID || d.ScenarioID != sub.ScenarioID {
		return nil, apperr.New(apperr.KindInvalidInput, "idempotency_key", sub.IdempotencyKey)
	}
	s, err := e.sessions.Get(ctx, d.SessionID)
	if err != nil {
		return nil, err
	}
	p, err := e.loadProgress(ctx, d.UserID)
	if err != nil {
		return nil, err
	}
	return &DecisionResult{
		Decision: *d,
		Result: outcome.Result{
			Outcome:          d.Outcome,
			Points:           d.Points,
			UsedVerification: d.UsedVerification,
		},
		Session:  *s,
		Progress: p,
		Replayed: true,
	}, nil
}

// CompleteShift closes a session and records it in the learner's
// progress. Completing a closed session is a ShiftCompleted error.
func (e *Engine) CompleteShift(ctx context.Context, sessionID string) (*CompletionResult, error) {
	unlockSession, err := e.locker.Lock(ctx, keylock.SessionKey(sessionID))
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	defer unlockSession()

	current, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	unlockUser, err := e.locker.Lock(ctx, keylock.UserKey(current.UserID))
	if err != nil {
		return nil, fmt.Errorf("lock learner: %w", err)
	}
	defer unlockUser()

	var res *CompletionResult
	err = e.tx.Within(ctx, func(ctx context.Context) error {
		s, err := e.sessions.Get(ctx, sessionID)
		if err != nil {
			return err
		}
		if s.Completed {
			return apperr.New(apperr.KindShiftCompleted, "session_id", s.ID)
		}
		s.Completed = true
		s.CompletedAt = e.now().UTC()

		summary := s.Summary()
		p, err := e.loadProgress(ctx, s.UserID)
		if err != nil {
			return err
		}
		next, badges := progress.ApplyShiftCompletion(p, summary)
		next.UpdatedAt = s.CompletedAt
		if next.Version, err = e.progress.Upsert(ctx, next); err != nil {
			return fmt.Errorf("save progress: %w", err)
		}
		if err := e.sessions.Update(ctx, s); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		res = &CompletionResult{Session: s.clone(), Summary: summary, Progress: next, NewBadges: badges}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("shift completed",
		"session_id", res.Session.ID,
		"user_id", res.Session.UserID,
		"score", res.Session.Score,
		"correct", res.Summary.CorrectCount,
		"unanswered", res.Summary.Unanswered)
	for _, b := range res.NewBadges {
		e.log.Info("badge earned", "user_id", res.Session.UserID, "badge", b.ID)
	}
	return res, nil
}

// Session returns the current state of a shift.
func (e *Engine) Session(ctx context.Context, id string) (*Session, error) {
	return e.sessions.Get(ctx, id)
}

// Decisions returns the decisions recorded for a shift in sequence order.
func (e *Engine) Decisions(ctx context.Context, sessionID string) ([]Decision, error) {
	if _, err := e.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return e.decisions.ForSession(ctx, sessionID)
}

// Shifts lists a learner's sessions, oldest first.
func (e *Engine) Shifts(ctx context.Context, userID string) ([]Session, error) {
	return e.sessions.ListByUser(ctx, userID)
}

// Progress returns the learner's aggregate record; unknown learners get a
// zero record.
func (e *Engine) Progress(ctx context.Context, userID string) (progress.Progress, error) {
	return e.loadProgress(ctx, userID)
}

// NextScenario returns the first scenario of the shift without a decision,
// or nil when every scenario has been answered.
func (e *Engine) NextScenario(ctx context.Context, sessionID string) (*scenario.Scenario, error) {
	s, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	decided, err := e.decisions.ForSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load decisions: %w", err)
	}
	done := make(map[string]bool, len(decided))
	for _, d := range decided {
		done[d.ScenarioID] = true
	}
	for _, id := range s.ScenarioIDs {
		if !done[id] {
			return e.scenarios.GetByID(ctx, id)
		}
	}
	return nil, nil
}

func (e *Engine) loadProgress(ctx context.Context, userID string) (progress.Progress, error) {
	p, err := e.progress.Get(ctx, userID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return progress.New(userID), nil
	case err != nil:
		return progress.Progress{}, fmt.Errorf("load progress: %w", err)
	}
	return *p, nil
}
