// Package analytics summarizes decisions across a cohort of learners.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/phishshift/internal/apperr"
	"github.com/abhisek/phishshift/internal/outcome"
	"github.com/abhisek/phishshift/internal/progress"
	"github.com/abhisek/phishshift/internal/selector"
	"github.com/abhisek/phishshift/internal/shift"
)

// DecisionSource reads the full decision ledger.
type DecisionSource interface {
	AllForAnalytics(ctx context.Context) ([]shift.Decision, error)
}

// ProgressSource looks up one learner's aggregate record.
type ProgressSource interface {
	Get(ctx context.Context, userID string) (*progress.Progress, error)
}

// Options tunes Summarize.
type Options struct {
	// Workers bounds concurrent per-learner work. Default 4.
	Workers int
	// Hardest is how many scenarios to rank by miss rate. Default 5.
	Hardest int
	// MinAttempts excludes rarely seen scenarios from the ranking.
	MinAttempts int
	Now         func() time.Time
}

// LearnerStats is one learner's line in the cohort report.
type LearnerStats struct {
	UserID            string   `json:"user_id"`
	Decisions         int      `json:"decisions"`
	Correct           int      `json:"correct"`
	Accuracy          float64  `json:"accuracy"`
	Score             int      `json:"score"`
	Compromises       int      `json:"compromises"`
	FalseAlarms       int      `json:"false_alarms"`
	FalsePositiveRate float64  `json:"false_positive_rate"`
	Verifications     int      `json:"verifications"`
	ShiftsCompleted   int      `json:"shifts_completed"`
	Ceiling           int      `json:"ceiling"`
	Badges            int      `json:"badges"`
	TopMissedCues     []string `json:"top_missed_cues,omitempty"`
}

// ScenarioStats is how a cohort fared against one scenario.
type ScenarioStats struct {
	ScenarioID  string  `json:"scenario_id"`
	Attempts    int     `json:"attempts"`
	Misses      int     `json:"misses"`
	MissRate    float64 `json:"miss_rate"`
	Compromises int     `json:"compromises"`
}

// Summary is the cohort report.
type Summary struct {
	GeneratedAt time.Time               `json:"generated_at"`
	Decisions   int                     `json:"decisions"`
	Outcomes    map[outcome.Outcome]int `json:"outcomes"`
	Actions     map[outcome.Action]int  `json:"actions"`
	Learners    []LearnerStats          `json:"learners"`
	Hardest     []ScenarioStats         `json:"hardest"`
}

// Accuracy is the cohort-wide share of correct decisions.
func (s Summary) Accuracy() float64 {
	if s.Decisions == 0 {
		return 0
	}
	correct := 0
	for _, l := range s.Learners {
		correct += l.Correct
	}
	return float64(correct) / float64(s.Decisions)
}

// Summarize builds a cohort report. Per-learner stats are computed
// concurrently; a failed progress lookup fails the whole report.
func Summarize(ctx context.Context, decisions DecisionSource, progressRepo ProgressSource, opts Options) (*Summary, error) {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Hardest <= 0 {
		opts.Hardest = 5
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	all, err := decisions.AllForAnalytics(ctx)
	if err != nil {
		return nil, fmt.Errorf("load decisions: %w", err)
	}

	sum := &Summary{
		GeneratedAt: opts.Now().UTC(),
		Decisions:   len(all),
		Outcomes:    make(map[outcome.Outcome]int),
		Actions:     make(map[outcome.Action]int),
	}
	byUser := make(map[string][]shift.Decision)
	for _, d := range all {
		sum.Outcomes[d.Outcome]++
		sum.Actions[d.Action]++
		byUser[d.UserID] = append(byUser[d.UserID], d)
	}

	var (
		mu       sync.Mutex
		learners = make([]LearnerStats, 0, len(byUser))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for userID, list := range byUser {
		g.Go(func() error {
			stats, err := learnerStats(gctx, progressRepo, userID, list)
			if err != nil {
				return err
			}
			mu.Lock()
			learners = append(learners, stats)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(learners, func(i, j int) bool { return learners[i].UserID < learners[j].UserID })
	sum.Learners = learners
	sum.Hardest = Hardest(all, opts.Hardest, opts.MinAttempts)
	return sum, nil
}

func learnerStats(ctx context.Context, repo ProgressSource, userID string, list []shift.Decision) (LearnerStats, error) {
	s := LearnerStats{UserID: userID, Decisions: len(list)}
	for _, d := range list {
		s.Score += d.Points
		if d.Correct {
			s.Correct++
		}
		if d.UsedVerification {
			s.Verifications++
		}
		switch d.Outcome {
		case outcome.Compromised:
			s.Compromises++
		case outcome.FalseAlarm:
			s.FalseAlarms++
		}
	}
	if s.Decisions > 0 {
		s.Accuracy = float64(s.Correct) / float64(s.Decisions)
	}

	p, err := repo.Get(ctx, userID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		s.Ceiling = selector.Ceiling(s.Accuracy, 0)
		return s, nil
	case err != nil:
		return s, fmt.Errorf("progress for %s: %w", userID, err)
	}
	s.FalsePositiveRate = p.FalsePositiveRate()
	s.ShiftsCompleted = p.ShiftsCompleted
	s.Ceiling = selector.Ceiling(p.Accuracy(), p.ShiftsCompleted)
	s.Badges = len(p.EarnedBadges)
	s.TopMissedCues = p.TopMissedCues(3)
	return s, nil
}

// Hardest ranks scenarios by miss rate, then attempts, then id, keeping
// the top n with at least minAttempts attempts.
func Hardest(all []shift.Decision, n, minAttempts int) []ScenarioStats {
	byID := make(map[string]*ScenarioStats)
	for _, d := range all {
		st, ok := byID[d.ScenarioID]
		if !ok {
			st = &ScenarioStats{ScenarioID: d.ScenarioID}
			byID[d.ScenarioID] = st
		}
		st.Attempts++
		if !d.Correct {
			st.Misses++
		}
		if d.Outcome == outcome.Compromised {
			st.Compromises++
		}
	}

	out := make([]ScenarioStats, 0, len(byID))
	for _, st := range byID {
		if st.Attempts < minAttempts {
			continue
		}
		st.MissRate = float64(st.Misses) / float64(st.Attempts)
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.MissRate != b.MissRate {
			return a.MissRate > b.MissRate
		}
		if a.Attempts != b.Attempts {
			return a.Attempts > b.Attempts
		}
		return a.ScenarioID < b.ScenarioID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
