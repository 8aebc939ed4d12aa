package authoring

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/phishshift/internal/apperr"
	"github.com/abhisek/phishshift/internal/difficulty"
	"github.com/abhisek/phishshift/internal/llm"
	"github.com/abhisek/phishshift/internal/outcome"
	"github.com/abhisek/phishshift/internal/scenario"
)

func brief() Brief {
	return Brief{
		ID:           "invoice-redirect",
		Channel:      scenario.ChannelEmail,
		Legitimacy:   outcome.Malicious,
		AttackFamily: "bec",
		Audience:     "accounts payable clerk",
	}
}

func reply(t *testing.T, mutate func(*draftOutput)) llm.MockResponse {
	t.Helper()
	out := draftOutput{
		Title:         "Supplier bank change",
		Sender:        "billing@examp1e-supplies.com",
		Subject:       "URGENT: new bank details",
		Body:          "Dear customer, pay today to the new account below.",
		CorrectAction: "report",
		Cues:          []string{"Suspicious Domain", "urgent language", "generic greeting"},
		Explanation:   "The domain swaps a letter for a digit and the tone is rushed.",
	}
	if mutate != nil {
		mutate(&out)
	}
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	return llm.MockResponse{Content: raw}
}

func TestDraft_Accepted(t *testing.T) {
	mock := llm.NewMockProvider(reply(t, nil))
	d := New(mock, DefaultConfig())

	got, err := d.Draft(context.Background(), brief())
	require.NoError(t, err)

	s := got.Scenario
	assert.Equal(t, "invoice-redirect", s.ID)
	assert.Equal(t, outcome.Malicious, s.Legitimacy)
	assert.Equal(t, outcome.ActionReport, s.CorrectAction)
	assert.Equal(t, "bec", s.AttackFamily)
	assert.Equal(t, []string{"suspicious domain", "urgent language", "generic greeting"}, s.Cues, "labels use catalog spelling")
	assert.Equal(t, 1, s.DifficultyScore)
	assert.Equal(t, difficulty.RuleManyObvious, got.Breakdown.Rule)
	assert.Equal(t, 1, got.Rounds)
	require.NoError(t, s.Validate())

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Same(t, DraftSchema, calls[0].Schema)
	assert.Contains(t, calls[0].Messages[0].Content, "accounts payable clerk")
	assert.Contains(t, calls[0].Messages[0].Content, "look-alike domain")
}

func TestDraft_UnknownCueRepairedOnRetry(t *testing.T) {
	mock := llm.NewMockProvider(
		reply(t, func(o *draftOutput) { o.Cues = []string{"weird vibes", "urgent language"} }),
		reply(t, nil),
	)
	d := New(mock, DefaultConfig())

	got, err := d.Draft(context.Background(), brief())
	require.NoError(t, err)
	assert.Equal(t, 2, got.Rounds)

	calls := mock.Calls()
	require.Len(t, calls, 2)
	second := calls[1].Messages
	require.Len(t, second, 3)
	assert.Equal(t, llm.RoleAssistant, second[1].Role)
	assert.Contains(t, second[2].Content, `cue "weird vibes"`)
}

func TestDraft_UnknownCueRejected(t *testing.T) {
	bad := func(o *draftOutput) { o.Cues = []string{"weird vibes"} }
	mock := llm.NewMockProvider(reply(t, bad), reply(t, bad), reply(t, bad))
	d := New(mock, DefaultConfig())

	_, err := d.Draft(context.Background(), brief())
	require.Error(t, err)
	assert.True(t, IsRejected(err))
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "cue-catalog", verr.Validator)
	assert.Equal(t, 3, mock.CallCount())
}

func TestDraft_UnknownPremiseRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rounds = 1
	mock := llm.NewMockProvider(reply(t, func(o *draftOutput) { o.PremiseFactors = []string{"knows my cat"} }))

	_, err := New(mock, cfg).Draft(context.Background(), brief())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, `premise factor "knows my cat"`)
}

func TestDraft_MaliciousProceedRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rounds = 1
	mock := llm.NewMockProvider(reply(t, func(o *draftOutput) { o.CorrectAction = "proceed" }))

	_, err := New(mock, cfg).Draft(context.Background(), brief())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "rules", verr.Validator)
}

func TestDraft_TargetDifficulty(t *testing.T) {
	b := brief()
	b.TargetDifficulty = 5
	subtle := []string{"look-alike domain", "subtle urgency"}
	require.Equal(t, 5, difficulty.Score(subtle, nil))

	mock := llm.NewMockProvider(
		reply(t, nil),
		reply(t, func(o *draftOutput) { o.Cues = subtle }),
	)
	got, err := New(mock, DefaultConfig()).Draft(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Scenario.DifficultyScore)
	assert.Equal(t, 2, got.Rounds)
	assert.Contains(t, mock.Calls()[1].Messages[2].Content, "wanted 5")
}

func TestDraft_ChainStep(t *testing.T) {
	b := brief()
	b.ChainID = "vendor-takeover"
	b.ChainName = "Vendor takeover"
	b.ChainOrder = 2
	b.PreviousAction = outcome.ActionProceed

	mock := llm.NewMockProvider(reply(t, nil))
	got, err := New(mock, DefaultConfig()).Draft(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, "vendor-takeover", got.Scenario.ChainID)
	assert.Equal(t, 2, got.Scenario.ChainOrder)
	assert.Equal(t, outcome.ActionProceed, got.Scenario.PreviousAction)
	assert.False(t, got.Scenario.IsStartable())
	assert.Contains(t, mock.Calls()[0].Messages[0].Content, `choosing "proceed"`)
}

func TestDraft_GeneratesID(t *testing.T) {
	b := brief()
	b.ID = ""
	got, err := New(llm.NewMockProvider(reply(t, nil)), DefaultConfig()).Draft(context.Background(), b)
	require.NoError(t, err)
	assert.Regexp(t, `^draft-[0-9a-f]{8}$`, got.Scenario.ID)
}

func TestDraft_ProviderErrorIsNotRejection(t *testing.T) {
	boom := &llm.ErrProviderUnavailable{Err: errors.New("down")}
	_, err := New(llm.NewMockProvider(llm.MockResponse{Err: boom}), DefaultConfig()).Draft(context.Background(), brief())
	require.Error(t, err)
	assert.False(t, IsRejected(err))
	assert.ErrorIs(t, err, boom)
}

func TestDraft_SchemaViolation(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"title":"x"}`)})
	_, err := New(mock, DefaultConfig()).Draft(context.Background(), brief())
	var invalid *llm.ErrInvalidResponse
	require.ErrorAs(t, err, &invalid)
}

func TestBrief_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Brief)
		field  string
	}{
		{"ok", func(*Brief) {}, ""},
		{"bad channel", func(b *Brief) { b.Channel = "fax" }, "channel"},
		{"bad legitimacy", func(b *Brief) { b.Legitimacy = "dodgy" }, "legitimacy"},
		{"target out of range", func(b *Brief) { b.TargetDifficulty = 6 }, "target_difficulty"},
		{"order without chain", func(b *Brief) { b.ChainOrder = 2 }, "chain_order"},
		{"chain without order", func(b *Brief) { b.ChainID = "c" }, "chain_order"},
		{"step two without previous", func(b *Brief) { b.ChainID, b.ChainOrder = "c", 2 }, "previous_action"},
		{"opener with previous", func(b *Brief) {
			b.ChainID, b.ChainOrder, b.PreviousAction = "c", 1, outcome.ActionReport
		}, "previous_action"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := brief()
			tt.mutate(&b)
			err := b.Validate()
			if tt.field == "" {
				require.NoError(t, err)
				return
			}
			var ae *apperr.Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.field, ae.Field)
		})
	}
}

func TestParseHelpers(t *testing.T) {
	c, err := ParseChannel(" SMS ")
	require.NoError(t, err)
	assert.Equal(t, scenario.ChannelSMS, c)
	_, err = ParseChannel("pager")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	l, err := ParseLegitimacy("suspicious-legitimate")
	require.NoError(t, err)
	assert.Equal(t, outcome.SuspiciousLegitimate, l)
	_, err = ParseLegitimacy("benign")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestNumbered(t *testing.T) {
	assert.Equal(t, "None", numbered(nil, 3))
	assert.Equal(t, "1. c\n2. d", numbered([]string{"a", "b", "c", "d"}, 2))
}
