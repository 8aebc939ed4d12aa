package outcome

// Rule maps an (action, legitimacy set) pair to an outcome and points.
type Rule struct {
	Action       Action
	Legitimacies []Legitimacy
	Outcome      Outcome
	Points       int
}

// Matches reports whether the rule applies.
func (r Rule) Matches(action Action, l Legitimacy) bool {
	if r.Action != action {
		return false
	}
	for _, candidate := range r.Legitimacies {
		if candidate == l {
			return true
		}
	}
	return false
}

// rules is evaluated in order; the first match wins.
var rules = []Rule{
	{Action: ActionProceed, Legitimacies: []Legitimacy{Malicious}, Outcome: Compromised, Points: -20},
	{Action: ActionReport, Legitimacies: []Legitimacy{Legitimate}, Outcome: FalseAlarm, Points: -5},
	{Action: ActionReport, Legitimacies: []Legitimacy{SuspiciousLegitimate}, Outcome: FalseAlarm, Points: -2},
	{Action: ActionDelete, Legitimacies: []Legitimacy{Legitimate}, Outcome: DelayedWork, Points: -3},
	{Action: ActionVerify, Legitimacies: []Legitimacy{Malicious}, Outcome: Safe, Points: 15},
	{Action: ActionVerify, Legitimacies: []Legitimacy{Legitimate, SuspiciousLegitimate}, Outcome: Safe, Points: 8},
	{Action: ActionReport, Legitimacies: []Legitimacy{Malicious}, Outcome: Safe, Points: 15},
	{Action: ActionDelete, Legitimacies: []Legitimacy{Malicious}, Outcome: Safe, Points: 10},
	{Action: ActionProceed, Legitimacies: []Legitimacy{Legitimate}, Outcome: Safe, Points: 10},
	{Action: ActionProceed, Legitimacies: []Legitimacy{SuspiciousLegitimate}, Outcome: Safe, Points: 5},
	{Action: ActionDelete, Legitimacies: []Legitimacy{SuspiciousLegitimate}, Outcome: DelayedWork, Points: 2},
}

// fallback applies when no rule matches. Valid input never reaches it.
var fallback = Rule{Outcome: Safe, Points: 5}

// Rules returns a copy of the ordered rule table.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Fallback returns the rule used when nothing in the table matches.
func Fallback() Rule { return fallback }

// Classify scores action against the scenario's ground truth.
//
// The verification budget is the caller's concern: a verify beyond budget
// must be rejected before this is called.
func Classify(facts Facts, action Action, usedVerification bool) Result {
	for i, r := range rules {
		if r.Matches(action, facts.Legitimacy) {
			return Result{
				Outcome:          r.Outcome,
				Points:           r.Points,
				UsedVerification: usedVerification,
				Rule:             i + 1,
			}
		}
	}
	return Result{
		Outcome:          fallback.Outcome,
		Points:           fallback.Points,
		UsedVerification: usedVerification,
		Rule:             len(rules) + 1,
	}
}

// IsCorrect reports whether action is the scenario's correct action.
func IsCorrect(facts Facts, action Action) bool {
	return action == facts.CorrectAction
}
