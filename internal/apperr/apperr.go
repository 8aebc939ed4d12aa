package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error so callers can render it without
// string matching.
type Kind string

const (
	KindInvalidAction      Kind = "invalid_action"
	KindInvalidInput       Kind = "invalid_input"
	KindBudgetExhausted    Kind = "verification_budget_exhausted"
	KindUnknownScenario    Kind = "unknown_scenario"
	KindUnknownSession     Kind = "unknown_session"
	KindInsufficientPool   Kind = "insufficient_pool"
	KindShiftCompleted     Kind = "shift_completed"
	KindScenarioNotInShift Kind = "scenario_not_in_shift"
	KindAlreadyDecided     Kind = "already_decided"
	KindVersionConflict    Kind = "version_conflict"
	KindNotFound           Kind = "not_found"
)

// Sentinels, one per kind. Use errors.Is(err, apperr.ErrX) to test.
var (
	ErrInvalidAction      = errors.New("invalid action")
	ErrInvalidInput       = errors.New("invalid input")
	ErrBudgetExhausted    = errors.New("verification budget exhausted")
	ErrUnknownScenario    = errors.New("unknown scenario")
	ErrUnknownSession     = errors.New("unknown session")
	ErrInsufficientPool   = errors.New("insufficient scenario pool")
	ErrShiftCompleted     = errors.New("shift already completed")
	ErrScenarioNotInShift = errors.New("scenario not part of shift")
	ErrAlreadyDecided     = errors.New("scenario already decided")
	ErrVersionConflict    = errors.New("version conflict")
	ErrNotFound           = errors.New("not found")
)

var sentinels = map[Kind]error{
	KindInvalidAction:      ErrInvalidAction,
	KindInvalidInput:       ErrInvalidInput,
	KindBudgetExhausted:    ErrBudgetExhausted,
	KindUnknownScenario:    ErrUnknownScenario,
	KindUnknownSession:     ErrUnknownSession,
	KindInsufficientPool:   ErrInsufficientPool,
	KindShiftCompleted:     ErrShiftCompleted,
	KindScenarioNotInShift: ErrScenarioNotInShift,
	KindAlreadyDecided:     ErrAlreadyDecided,
	KindVersionConflict:    ErrVersionConflict,
	KindNotFound:           ErrNotFound,
}

// Error carries the kind and the offending field so a UI layer can say
// exactly what was rejected.
type Error struct {
	Kind  Kind
	Field string
	Value any
	Err   error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if s, ok := sentinels[e.Kind]; ok {
		msg = s.Error()
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s=%v", msg, e.Field, e.Value)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// New builds an Error for kind with the offending field and value.
func New(kind Kind, field string, value any) *Error {
	return &Error{Kind: kind, Field: field, Value: value}
}

// Wrap builds an Error for kind around a lower-level cause.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
