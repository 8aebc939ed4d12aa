package shift

import (
	"context"
	"slices"
	"time"

	"github.com/abhisek/phishshift/internal/outcome"
	"github.com/abhisek/phishshift/internal/progress"
	"github.com/abhisek/phishshift/internal/scenario"
	"github.com/abhisek/phishshift/internal/selector"
)

// Session is one shift: an ordered batch of scenarios assigned to a
// learner, with a verification budget and running totals.
type Session struct {
	ID          string
	UserID      string
	ScenarioIDs []string

	VerificationBudget int
	VerificationsUsed  int

	Score          int
	CorrectCount   int
	FalsePositives int
	Compromises    int
	DecisionCount  int

	Completed   bool
	CreatedAt   time.Time
	CompletedAt time.Time

	// Version is bumped by the repository on every successful write.
	Version int
}

// VerificationsLeft is the remaining verify budget.
func (s Session) VerificationsLeft() int {
	return max(s.VerificationBudget-s.VerificationsUsed, 0)
}

// Unanswered is how many assigned scenarios have no decision yet.
func (s Session) Unanswered() int {
	return max(len(s.ScenarioIDs)-s.DecisionCount, 0)
}

// Contains reports whether scenarioID is part of the shift.
func (s Session) Contains(scenarioID string) bool {
	return slices.Contains(s.ScenarioIDs, scenarioID)
}

// Summary is what the progress aggregator sees at completion.
func (s Session) Summary() progress.ShiftSummary {
	return progress.ShiftSummary{
		ScenarioCount:  len(s.ScenarioIDs),
		CorrectCount:   s.CorrectCount,
		Compromises:    s.Compromises,
		FalsePositives: s.FalsePositives,
		Unanswered:     s.Unanswered(),
	}
}

func (s Session) clone() Session {
	out := s
	out.ScenarioIDs = slices.Clone(s.ScenarioIDs)
	return out
}

// Decision is one immutable learner action.
type Decision struct {
	ID               string
	Sequence         int64
	SessionID        string
	UserID           string
	ScenarioID       string
	Action           outcome.Action
	Confidence       int
	Outcome          outcome.Outcome
	Points           int
	UsedVerification bool
	Correct          bool
	IdempotencyKey   string
	CreatedAt        time.Time
}

// Submission is a request to record a decision. Action is raw user input.
type Submission struct {
	SessionID  string
	ScenarioID string
	Action     string
	Confidence int
	// IdempotencyKey identifies a submission across retries. Optional.
	IdempotencyKey string
}

// StartResult is returned by StartShift.
type StartResult struct {
	Session   Session
	Scenarios []scenario.Scenario
	Batch     selector.Batch
}

// DecisionResult is returned by SubmitDecision.
type DecisionResult struct {
	Decision  Decision
	Result    outcome.Result
	Session   Session
	Progress  progress.Progress
	NewBadges []progress.Badge
	// ChainAppended is the follow-up scenario added to the shift, if any.
	ChainAppended *scenario.Scenario
	// Replayed is true when the idempotency key matched an earlier
	// submission and nothing was written.
	Replayed bool
}

// CompletionResult is returned by CompleteShift.
type CompletionResult struct {
	Session   Session
	Summary   progress.ShiftSummary
	Progress  progress.Progress
	NewBadges []progress.Badge
}

// SessionRepository stores sessions. The engine never invents ids for
// existing sessions.
type SessionRepository interface {
	// Get returns an UnknownSession error when id is absent.
	Get(ctx context.Context, id string) (*Session, error)
	Create(ctx context.Context, s *Session) error
	// Update writes s if its Version matches the stored one and bumps
	// s.Version. A mismatch is a VersionConflict error.
	Update(ctx context.Context, s *Session) error
	ListByUser(ctx context.Context, userID string) ([]Session, error)
}

// DecisionLog is the write-once decision ledger.
type DecisionLog interface {
	// Append assigns d.Sequence and stores d.
	Append(ctx context.Context, d *Decision) error
	// FindByIdempotencyKey returns nil when no decision carries key.
	FindByIdempotencyKey(ctx context.Context, key string) (*Decision, error)
	ForSession(ctx context.Context, sessionID string) ([]Decision, error)
	AllForAnalytics(ctx context.Context) ([]Decision, error)
}

// TxManager runs fn inside one transaction. Any error rolls back every
// write made through ctx.
type TxManager interface {
	Within(ctx context.Context, fn func(ctx context.Context) error) error
}
