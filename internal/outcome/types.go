package outcome

import (
	"strings"

	"github.com/abhisek/phishshift/internal/apperr"
)

// Action is what a learner chooses to do with a message.
type Action string

const (
	ActionReport  Action = "report"
	ActionDelete  Action = "delete"
	ActionVerify  Action = "verify"
	ActionProceed Action = "proceed"
)

// AllActions returns the four actions in display order.
func AllActions() []Action {
	return []Action{ActionReport, ActionDelete, ActionVerify, ActionProceed}
}

// Valid reports whether a is one of the four actions.
func (a Action) Valid() bool {
	switch a {
	case ActionReport, ActionDelete, ActionVerify, ActionProceed:
		return true
	}
	return false
}

// ParseAction converts user input to an Action. Anything outside the four
// actions is an invalid-action error.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", apperr.New(apperr.KindInvalidAction, "action", s)
	}
	return a, nil
}

// Legitimacy is the ground truth of a scenario.
type Legitimacy string

const (
	Legitimate           Legitimacy = "legitimate"
	SuspiciousLegitimate Legitimacy = "suspicious_legitimate"
	Malicious            Legitimacy = "malicious"
)

// AllLegitimacies returns the three legitimacy values.
func AllLegitimacies() []Legitimacy {
	return []Legitimacy{Legitimate, SuspiciousLegitimate, Malicious}
}

// Valid reports whether l is a known legitimacy.
func (l Legitimacy) Valid() bool {
	switch l {
	case Legitimate, SuspiciousLegitimate, Malicious:
		return true
	}
	return false
}

// IsMalicious reports whether the message is an attack.
func (l Legitimacy) IsMalicious() bool { return l == Malicious }

// Outcome is the categorical result of an action.
type Outcome string

const (
	Safe        Outcome = "safe"
	Compromised Outcome = "compromised"
	DelayedWork Outcome = "delayed_work"
	FalseAlarm  Outcome = "false_alarm"
)

// AllOutcomes returns the four outcomes.
func AllOutcomes() []Outcome {
	return []Outcome{Safe, Compromised, DelayedWork, FalseAlarm}
}

// DisplayName returns a human-readable label for the outcome.
func (o Outcome) DisplayName() string {
	switch o {
	case Safe:
		return "Safe"
	case Compromised:
		return "Compromised"
	case DelayedWork:
		return "Delayed work"
	case FalseAlarm:
		return "False alarm"
	default:
		return string(o)
	}
}

// Facts is the ground truth the engine classifies against.
type Facts struct {
	Legitimacy    Legitimacy
	CorrectAction Action
}

// Result is the classification of one action.
type Result struct {
	Outcome          Outcome
	Points           int
	UsedVerification bool
	// Rule is the 1-based position of the rule that matched.
	Rule int
}
