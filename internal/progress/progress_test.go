package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/phishshift/internal/outcome"
	"github.com/abhisek/phishshift/internal/scenario"
)

func malicious(cues ...string) scenario.Scenario {
	return scenario.Scenario{
		ID:            "m",
		Legitimacy:    outcome.Malicious,
		CorrectAction: outcome.ActionReport,
		Cues:          cues,
	}
}

func legit() scenario.Scenario {
	return scenario.Scenario{ID: "l", Legitimacy: outcome.Legitimate, CorrectAction: outcome.ActionProceed}
}

func decide(s scenario.Scenario, a outcome.Action, confidence int) Decision {
	return Decision{
		Scenario:   s,
		Action:     a,
		Confidence: confidence,
		Result:     outcome.Classify(s.Facts(), a, a == outcome.ActionVerify),
	}
}

func TestApplyDecision_CorrectReport(t *testing.T) {
	p, _ := ApplyDecision(New("u1"), decide(malicious("urgent language"), outcome.ActionReport, 50))

	assert.Equal(t, 1, p.TotalDecisions)
	assert.Equal(t, 1, p.CorrectDecisions)
	assert.Equal(t, 1, p.MaliciousSeen)
	assert.Equal(t, 1, p.MaliciousHandled)
	assert.Equal(t, 1, p.ReportsMade)
	assert.Equal(t, 1, p.CorrectReports)
	assert.Equal(t, 15, p.TotalScore)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 1, p.LongestStreak)
	assert.Empty(t, p.MissedCues)
}

func TestApplyDecision_WrongButSafeKeepsStreakFlat(t *testing.T) {
	start := New("u1")
	start.CurrentStreak = 4
	start.LongestStreak = 4

	p, _ := ApplyDecision(start, decide(malicious("urgent language", "mismatched link"), outcome.ActionDelete, 40))

	assert.Equal(t, 4, p.CurrentStreak)
	assert.Equal(t, 0, p.CorrectDecisions)
	assert.Equal(t, 1, p.MaliciousHandled, "delete still handles the threat")
	assert.Equal(t, map[string]int{"urgent language": 1, "mismatched link": 1}, p.MissedCues)
}

func TestApplyDecision_CompromiseResetsStreak(t *testing.T) {
	for _, prior := range []int{0, 1, 9, 40} {
		start := New("u1")
		start.CurrentStreak = prior
		start.LongestStreak = prior

		p, _ := ApplyDecision(start, decide(malicious("urgent language"), outcome.ActionProceed, 10))

		assert.Equal(t, 0, p.CurrentStreak, "prior streak %d", prior)
		assert.Equal(t, prior, p.LongestStreak)
		assert.Equal(t, 1, p.Compromises)
		assert.Equal(t, -20, p.TotalScore)
	}
}

func TestApplyDecision_FalseAlarmAndHighConfidence(t *testing.T) {
	p, _ := ApplyDecision(New("u1"), decide(legit(), outcome.ActionReport, 90))

	assert.Equal(t, 1, p.FalsePositives)
	assert.Equal(t, 1, p.LegitimateSeen)
	assert.Equal(t, 0, p.LegitimateHandled)
	assert.Equal(t, 1, p.HighConfidenceErrors)
	assert.Equal(t, 1, p.ReportsMade)
	assert.Equal(t, 0, p.CorrectReports)

	p, _ = ApplyDecision(p, decide(legit(), outcome.ActionReport, 84))
	assert.Equal(t, 1, p.HighConfidenceErrors, "84 is below the threshold")
}

func TestApplyDecision_SuspiciousLegitimateCountsAsLegitimate(t *testing.T) {
	s := scenario.Scenario{Legitimacy: outcome.SuspiciousLegitimate, CorrectAction: outcome.ActionVerify}
	p, _ := ApplyDecision(New("u1"), decide(s, outcome.ActionVerify, 50))
	assert.Equal(t, 1, p.LegitimateSeen)
	assert.Equal(t, 1, p.LegitimateHandled)
	assert.Equal(t, 0, p.MaliciousSeen)
}

func TestApplyDecision_DoesNotMutateInput(t *testing.T) {
	start := New("u1")
	start.MissedCues["x"] = 1
	start.EarnedBadges = []BadgeID{BadgeBECBlocker}

	_, _ = ApplyDecision(start, decide(malicious("urgent language"), outcome.ActionDelete, 50))

	assert.Equal(t, 0, start.TotalDecisions)
	assert.Equal(t, map[string]int{"x": 1}, start.MissedCues)
	assert.Equal(t, []BadgeID{BadgeBECBlocker}, start.EarnedBadges)
}

func TestBadge_StreakMaster(t *testing.T) {
	p := New("u1")
	var earned []Badge
	for i := 0; i < 10; i++ {
		p, earned = ApplyDecision(p, decide(legit(), outcome.ActionProceed, 50))
		if i < 9 {
			assert.False(t, p.HasBadge(BadgeStreakMaster))
		}
	}
	require.Len(t, earned, 1)
	assert.Equal(t, BadgeStreakMaster, earned[0].ID)

	p, earned = ApplyDecision(p, decide(legit(), outcome.ActionProceed, 50))
	assert.Empty(t, earned)
	assert.Equal(t, []BadgeID{BadgeStreakMaster}, p.EarnedBadges)
}

func TestBadge_DomainDetectiveNeedsRequirement(t *testing.T) {
	s := malicious("look-alike domain")
	p := New("u1")
	for i := 0; i < 4; i++ {
		p, _ = ApplyDecision(p, decide(s, outcome.ActionReport, 50))
	}
	assert.False(t, p.HasBadge(BadgeDomainDetective))

	p, earned := ApplyDecision(p, decide(s, outcome.ActionReport, 50))
	require.Len(t, earned, 1)
	assert.Equal(t, BadgeDomainDetective, earned[0].ID)
}

func TestBadge_LateObservationStillFires(t *testing.T) {
	p := New("u1")
	p.TotalDecisions, p.CorrectDecisions = 30, 25

	p, earned := ApplyDecision(p, decide(malicious("Suspicious Domain"), outcome.ActionReport, 50))
	ids := badgeIDs(earned)
	assert.Contains(t, ids, BadgeDomainDetective)
	assert.True(t, p.HasBadge(BadgeDomainDetective))
}

func TestBadge_VerificationPro(t *testing.T) {
	p := New("u1")
	p.TotalDecisions = 2

	_, earned := ApplyDecision(p, decide(malicious("urgent language"), outcome.ActionVerify, 50))
	assert.Contains(t, badgeIDs(earned), BadgeVerificationPro)

	q := New("u2")
	q.TotalDecisions = 2
	_, earned = ApplyDecision(q, decide(legit(), outcome.ActionVerify, 50))
	assert.NotContains(t, badgeIDs(earned), BadgeVerificationPro, "only malicious scenarios count")
}

func TestBadge_BECBlockerAndUrgencyImmune(t *testing.T) {
	bec := malicious("subtle urgency")
	bec.AttackFamily = "bec"

	p := New("u1")
	p.CorrectDecisions, p.TotalDecisions = 4, 4
	p, earned := ApplyDecision(p, decide(bec, outcome.ActionReport, 50))

	ids := badgeIDs(earned)
	assert.Contains(t, ids, BadgeBECBlocker)
	assert.Contains(t, ids, BadgeUrgencyImmune)
	assert.Equal(t, []BadgeID{BadgeBECBlocker, BadgeUrgencyImmune}, p.EarnedBadges, "evaluated in catalog order")

	q := New("u2")
	q.CorrectDecisions, q.TotalDecisions = 9, 9
	_, earned = ApplyDecision(q, decide(malicious("urgent language"), outcome.ActionReport, 50))
	assert.NotContains(t, badgeIDs(earned), BadgeUrgencyImmune, `"urgent" is not "urgency"`)
}

func TestCheckBadges_Idempotent(t *testing.T) {
	p := New("u1")
	p.CorrectDecisions, p.TotalDecisions, p.CurrentStreak = 12, 12, 12
	d := decide(malicious("look-alike domain", "subtle urgency"), outcome.ActionReport, 50)

	once, first := CheckBadges(p, d)
	twice, second := CheckBadges(once, d)

	assert.NotEmpty(t, first)
	assert.Empty(t, second)
	assert.Equal(t, once.EarnedBadges, twice.EarnedBadges)

	seen := map[BadgeID]bool{}
	for _, id := range twice.EarnedBadges {
		assert.False(t, seen[id], "duplicate badge %s", id)
		seen[id] = true
	}
}

func TestApplyShiftCompletion(t *testing.T) {
	p := New("u1")
	p.CurrentStreak = 3

	next, earned := ApplyShiftCompletion(p, ShiftSummary{ScenarioCount: 10, CorrectCount: 10})
	assert.Equal(t, 1, next.ShiftsCompleted)
	assert.Equal(t, 3, next.CurrentStreak)
	require.Len(t, earned, 1)
	assert.Equal(t, BadgePerfectShift, earned[0].ID)

	next, earned = ApplyShiftCompletion(next, ShiftSummary{ScenarioCount: 10, CorrectCount: 10})
	assert.Empty(t, earned, "perfect shift is a one-time badge")
	assert.Equal(t, 2, next.ShiftsCompleted)
}

func TestApplyShiftCompletion_NotPerfect(t *testing.T) {
	tests := []struct {
		name string
		sum  ShiftSummary
	}{
		{"missed one", ShiftSummary{ScenarioCount: 10, CorrectCount: 9}},
		{"compromise", ShiftSummary{ScenarioCount: 10, CorrectCount: 10, Compromises: 1}},
		{"false positive", ShiftSummary{ScenarioCount: 10, CorrectCount: 10, FalsePositives: 1}},
		{"empty shift", ShiftSummary{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, earned := ApplyShiftCompletion(New("u1"), tt.sum)
			assert.Empty(t, earned)
		})
	}
}

func TestApplyShiftCompletion_UnansweredResetsStreak(t *testing.T) {
	p := New("u1")
	p.CurrentStreak, p.LongestStreak = 6, 6

	next, _ := ApplyShiftCompletion(p, ShiftSummary{ScenarioCount: 10, CorrectCount: 6, Unanswered: 4})
	assert.Equal(t, 0, next.CurrentStreak)
	assert.Equal(t, 6, next.LongestStreak)
}

func TestAccuracyAndRates(t *testing.T) {
	assert.Zero(t, New("u").Accuracy())
	assert.Zero(t, New("u").FalsePositiveRate())

	p := Progress{TotalDecisions: 8, CorrectDecisions: 6, LegitimateSeen: 4, FalsePositives: 1}
	assert.InDelta(t, 0.75, p.Accuracy(), 1e-9)
	assert.InDelta(t, 0.25, p.FalsePositiveRate(), 1e-9)
}

func TestTopMissedCues(t *testing.T) {
	p := Progress{MissedCues: map[string]int{"a": 1, "b": 3, "c": 3, "d": 2}}
	assert.Equal(t, []string{"b", "c", "d"}, p.TopMissedCues(3))
	assert.Len(t, p.TopMissedCues(-1), 4)
}

func TestCatalog(t *testing.T) {
	list := Catalog()
	require.Len(t, list, 6)
	for _, b := range list {
		assert.Positive(t, b.Requirement, b.ID)
		got, ok := LookupBadge(b.ID)
		assert.True(t, ok)
		assert.Equal(t, b, got)
	}
	assert.NotContains(t, DecisionRules(), BadgePerfectShift)
}

func badgeIDs(list []Badge) []BadgeID {
	out := make([]BadgeID, len(list))
	for i, b := range list {
		out[i] = b.ID
	}
	return out
}
