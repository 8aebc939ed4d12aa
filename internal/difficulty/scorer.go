package difficulty

import "github.com/abhisek/phishshift/internal/cues"

const (
	// Min is the easiest difficulty.
	Min = 1
	// Max is the hardest difficulty.
	Max = 5
)

// Rule names the base-difficulty case that applied.
type Rule string

const (
	RuleNoCues       Rule = "no-cues"
	RuleManyObvious  Rule = "many-obvious"
	RulePairObvious  Rule = "obvious-pair"
	RuleAllSubtle    Rule = "all-subtle"
	RuleSubtlePair   Rule = "subtle-pair"
	RuleMixedAverage Rule = "mixed-average"
)

// Report explains how a score was reached.
type Report struct {
	CueCount     int
	TotalWeight  int
	ObviousCount int
	SubtleCount  int
	UnknownCues  []string
	Rule         Rule
	Base         int
	PremiseBonus int
	Score        int
}

// Score rates how hard a scenario is to classify correctly, from its cue
// labels and premise-alignment factors. The result is always in [1,5].
func Score(cueLabels []string, premiseFactors []string) int {
	return Breakdown(cueLabels, premiseFactors).Score
}

// Breakdown scores like Score and reports the intermediate counts.
// Duplicate cues are counted every time they appear.
func Breakdown(cueLabels []string, premiseFactors []string) Report {
	r := Report{CueCount: len(cueLabels)}

	if len(cueLabels) == 0 {
		r.Rule = RuleNoCues
		r.Base = Min
		r.Score = Min
		return r
	}

	for _, label := range cueLabels {
		if !cues.Known(label) {
			r.UnknownCues = append(r.UnknownCues, label)
		}
		w := cues.WeightOf(label)
		r.TotalWeight += int(w)
		switch w {
		case cues.WeightObvious:
			r.ObviousCount++
		case cues.WeightSubtle:
			r.SubtleCount++
		}
	}

	r.Rule, r.Base = baseDifficulty(r)

	for _, f := range premiseFactors {
		if p, ok := cues.LookupPremise(f); ok {
			r.PremiseBonus += p.Weight
		}
	}

	r.Score = clamp(r.Base + r.PremiseBonus/2)
	return r
}

// baseDifficulty picks the first matching case.
func baseDifficulty(r Report) (Rule, int) {
	switch {
	case r.ObviousCount >= 3:
		return RuleManyObvious, 1
	case r.ObviousCount >= 2 && r.SubtleCount == 0:
		return RulePairObvious, 2
	case r.ObviousCount == 0 && r.SubtleCount > 0:
		return RuleAllSubtle, 5
	case r.SubtleCount >= 2:
		return RuleSubtlePair, 4
	}

	avg := float64(r.TotalWeight) / float64(r.CueCount)
	switch {
	case avg <= 1.5:
		return RuleMixedAverage, 2
	case avg <= 2:
		return RuleMixedAverage, 3
	default:
		return RuleMixedAverage, 4
	}
}

func clamp(v int) int {
	if v < Min {
		return Min
	}
	if v > Max {
		return Max
	}
	return v
}
