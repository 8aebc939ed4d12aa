package difficulty

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_Cases(t *testing.T) {
	tests := []struct {
		name     string
		cues     []string
		premises []string
		want     int
		rule     Rule
	}{
		{"no cues", nil, nil, 1, RuleNoCues},
		{"three obvious", []string{"suspicious domain", "urgent language", "generic greeting"}, nil, 1, RuleManyObvious},
		{"three obvious beat one subtle", []string{"suspicious domain", "urgent language", "generic greeting", "look-alike domain"}, nil, 1, RuleManyObvious},
		{"two obvious no subtle", []string{"suspicious domain", "urgent language", "mismatched link"}, nil, 2, RulePairObvious},
		{"two subtle only", []string{"look-alike domain", "spoofed internal name"}, nil, 5, RuleAllSubtle},
		{"subtle with moderate", []string{"look-alike domain", "mismatched link"}, nil, 5, RuleAllSubtle},
		{"two subtle one obvious", []string{"look-alike domain", "spoofed internal name", "urgent language"}, nil, 4, RuleSubtlePair},
		{"obvious plus moderate", []string{"urgent language", "mismatched link"}, nil, 2, RuleMixedAverage},
		{"only moderate", []string{"mismatched link", "shortened url"}, nil, 3, RuleMixedAverage},
		{"obvious subtle moderate", []string{"urgent language", "look-alike domain", "mismatched link", "unusual timing"}, nil, 3, RuleMixedAverage},
		{"one obvious one subtle", []string{"urgent language", "look-alike domain"}, nil, 3, RuleMixedAverage},
		{"mixed heavy", []string{"urgent language", "look-alike domain", "mismatched link"}, nil, 3, RuleMixedAverage},
		{"unknown cues count as moderate", []string{"weird vibe", "odd footer"}, nil, 3, RuleMixedAverage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Breakdown(tt.cues, tt.premises)
			assert.Equal(t, tt.want, r.Score)
			assert.Equal(t, tt.rule, r.Rule)
		})
	}
}

func TestScore_EmptyCuesIgnoresPremises(t *testing.T) {
	assert.Equal(t, 1, Score(nil, []string{"shows internal-process knowledge", "continues existing conversation"}))
	assert.Equal(t, 1, Score([]string{}, []string{"uses correct branding"}))
}

func TestScore_PremiseBonus(t *testing.T) {
	base := []string{"mismatched link", "shortened url"} // base 3

	assert.Equal(t, 3, Score(base, []string{"uses correct branding"}), "bonus 1 adds nothing")
	assert.Equal(t, 4, Score(base, []string{"shows internal-process knowledge"}), "bonus 2 adds one level")
	assert.Equal(t, 4, Score(base, []string{"uses correct branding", "shows internal-process knowledge"}), "bonus 3 adds one level")
	assert.Equal(t, 3, Score(base, []string{"not a premise"}), "unknown premises are ignored")
}

func TestScore_ClampsToMax(t *testing.T) {
	got := Score(
		[]string{"look-alike domain", "spoofed internal name"},
		[]string{"shows internal-process knowledge", "continues existing conversation"},
	)
	assert.Equal(t, Max, got)
}

func TestScore_DuplicatesCountEachTime(t *testing.T) {
	// Accepted policy: the same obvious cue listed three times counts as
	// three obvious cues.
	r := Breakdown([]string{"urgent language", "urgent language", "urgent language"}, nil)
	assert.Equal(t, 3, r.ObviousCount)
	assert.Equal(t, 3, r.TotalWeight)
	assert.Equal(t, 1, r.Score)

	r = Breakdown([]string{"urgent language", "urgent language"}, nil)
	assert.Equal(t, 2, r.Score)
}

func TestScore_OrderIndependent(t *testing.T) {
	cues := []string{"urgent language", "look-alike domain", "mismatched link", "unusual timing", "spoofed internal name"}
	want := Score(cues, nil)

	rng := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 20; i++ {
		shuffled := append([]string(nil), cues...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, Score(shuffled, nil), "order %v", shuffled)
	}
}

func TestScore_AlwaysInRange(t *testing.T) {
	labels := []string{"suspicious domain", "look-alike domain", "mismatched link", "unknown thing"}
	premises := []string{"uses correct branding", "shows internal-process knowledge"}

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		n := rng.IntN(6)
		var list []string
		for j := 0; j < n; j++ {
			list = append(list, labels[rng.IntN(len(labels))])
		}
		got := Score(list, premises[:rng.IntN(len(premises)+1)])
		if got < Min || got > Max {
			t.Fatalf("Score(%v) = %d, outside [%d,%d]", list, got, Min, Max)
		}
	}
}

func TestBreakdown_ReportsUnknownCues(t *testing.T) {
	r := Breakdown([]string{"urgent language", "weird vibe"}, nil)
	assert.Equal(t, []string{"weird vibe"}, r.UnknownCues)
}
