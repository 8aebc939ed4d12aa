package progress

import (
	"context"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/abhisek/phishshift/internal/outcome"
	"github.com/abhisek/phishshift/internal/scenario"
)

// HighConfidence is the declared confidence at or above which a wrong
// answer counts as a high-confidence error.
const HighConfidence = 85

// Progress is one learner's cumulative record. It only grows.
type Progress struct {
	UserID string `json:"user_id"`

	TotalDecisions       int `json:"total_decisions"`
	CorrectDecisions     int `json:"correct_decisions"`
	FalsePositives       int `json:"false_positives"`
	Compromises          int `json:"compromises"`
	MaliciousSeen        int `json:"malicious_seen"`
	MaliciousHandled     int `json:"malicious_handled"`
	LegitimateSeen       int `json:"legitimate_seen"`
	LegitimateHandled    int `json:"legitimate_handled"`
	ReportsMade          int `json:"reports_made"`
	CorrectReports       int `json:"correct_reports"`
	HighConfidenceErrors int `json:"high_confidence_errors"`

	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`
	TotalScore    int `json:"total_score"`

	// MissedCues counts how often each cue label was present on a scenario
	// the learner got wrong.
	MissedCues   map[string]int `json:"missed_cues"`
	EarnedBadges []BadgeID       `json:"earned_badges"`

	ShiftsCompleted int `json:"shifts_completed"`

	// Version is bumped by the repository on every successful write.
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns empty progress for a learner who has never played.
func New(userID string) Progress {
	return Progress{UserID: userID, MissedCues: map[string]int{}}
}

// Accuracy is correct decisions over total decisions, 0 with no history.
func (p Progress) Accuracy() float64 {
	if p.TotalDecisions == 0 {
		return 0
	}
	return float64(p.CorrectDecisions) / float64(p.TotalDecisions)
}

// FalsePositiveRate is false alarms over legitimate messages seen.
func (p Progress) FalsePositiveRate() float64 {
	if p.LegitimateSeen == 0 {
		return 0
	}
	return float64(p.FalsePositives) / float64(p.LegitimateSeen)
}

// HasBadge reports whether id was already earned.
func (p Progress) HasBadge(id BadgeID) bool {
	return slices.Contains(p.EarnedBadges, id)
}

// TopMissedCues returns up to n cue labels the learner misses most,
// highest count first, ties by label.
func (p Progress) TopMissedCues(n int) []string {
	labels := slices.Collect(maps.Keys(p.MissedCues))
	sort.Slice(labels, func(i, j int) bool {
		ci, cj := p.MissedCues[labels[i]], p.MissedCues[labels[j]]
		if ci != cj {
			return ci > cj
		}
		return labels[i] < labels[j]
	})
	if n >= 0 && len(labels) > n {
		labels = labels[:n]
	}
	return labels
}

// clone returns a deep copy so updates never alias the caller's value.
func (p Progress) clone() Progress {
	out := p
	out.MissedCues = make(map[string]int, len(p.MissedCues))
	maps.Copy(out.MissedCues, p.MissedCues)
	out.EarnedBadges = slices.Clone(p.EarnedBadges)
	return out
}

// Decision bundles what the aggregator needs to know about one action.
type Decision struct {
	Scenario   scenario.Scenario
	Action     outcome.Action
	Confidence int
	Result     outcome.Result
}

// derived holds the per-decision booleans the counters and badges use.
type derived struct {
	correct            bool
	malicious          bool
	legitimate         bool
	correctReport      bool
	maliciousHandled   bool
	unsafe             bool
	highConfidenceMiss bool
	legitimateHandled  bool
}

func derive(d Decision) derived {
	correct := d.Action == d.Scenario.CorrectAction
	malicious := d.Scenario.Legitimacy.IsMalicious()
	return derived{
		correct:            correct,
		malicious:          malicious,
		legitimate:         !malicious,
		correctReport:      d.Action == outcome.ActionReport && malicious,
		maliciousHandled:   malicious && d.Action != outcome.ActionProceed,
		unsafe:             malicious && d.Action == outcome.ActionProceed,
		highConfidenceMiss: !correct && d.Confidence >= HighConfidence,
		legitimateHandled:  !malicious && correct,
	}
}

// ApplyDecision folds one decision into p. It returns the updated copy and
// any badges earned by this decision; p itself is left untouched.
func ApplyDecision(p Progress, d Decision) (Progress, []Badge) {
	next := p.clone()
	f := derive(d)

	next.TotalDecisions++
	next.TotalScore += d.Result.Points
	if f.correct {
		next.CorrectDecisions++
	}
	if d.Result.Outcome == outcome.FalseAlarm {
		next.FalsePositives++
	}
	if f.unsafe {
		next.Compromises++
	}
	if f.malicious {
		next.MaliciousSeen++
	}
	if f.maliciousHandled {
		next.MaliciousHandled++
	}
	if f.legitimate {
		next.LegitimateSeen++
	}
	if f.legitimateHandled {
		next.LegitimateHandled++
	}
	if d.Action == outcome.ActionReport {
		next.ReportsMade++
	}
	if f.correctReport {
		next.CorrectReports++
	}
	if f.highConfidenceMiss {
		next.HighConfidenceErrors++
	}

	switch {
	case d.Result.Outcome == outcome.Compromised:
		next.CurrentStreak = 0
	case f.correct:
		next.CurrentStreak++
	}
	next.LongestStreak = max(next.LongestStreak, next.CurrentStreak)

	if !f.correct {
		for _, c := range d.Scenario.Cues {
			next.MissedCues[c]++
		}
	}

	earned := evaluate(&next, decisionContext{after: next, decision: d, facts: f})
	return next, earned
}

// ShiftSummary is what the aggregator needs to know about a finished shift.
type ShiftSummary struct {
	ScenarioCount  int
	CorrectCount   int
	Compromises    int
	FalsePositives int
	Unanswered     int
}

// Perfect reports whether every scenario was answered correctly with no
// incidents.
func (s ShiftSummary) Perfect() bool {
	return s.ScenarioCount > 0 &&
		s.CorrectCount == s.ScenarioCount &&
		s.Compromises == 0 &&
		s.FalsePositives == 0
}

// ApplyShiftCompletion records a finished shift. A shift closed with
// unanswered scenarios breaks the current streak.
func ApplyShiftCompletion(p Progress, s ShiftSummary) (Progress, []Badge) {
	next := p.clone()
	next.ShiftsCompleted++
	if s.Unanswered > 0 {
		next.CurrentStreak = 0
	}

	var earned []Badge
	if b, ok := LookupBadge(BadgePerfectShift); ok && !next.HasBadge(b.ID) && s.Perfect() {
		next.EarnedBadges = append(next.EarnedBadges, b.ID)
		earned = append(earned, b)
	}
	return next, earned
}

// Repository persists progress records.
type Repository interface {
	// Get returns a NotFound error for learners with no record.
	Get(ctx context.Context, userID string) (*Progress, error)
	// Upsert writes p when p.Version matches the stored version, or
	// inserts it when none exists. It returns the stored version.
	Upsert(ctx context.Context, p Progress) (int, error)
	// List returns all learners' progress.
	List(ctx context.Context) ([]Progress, error)
}
