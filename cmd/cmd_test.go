package cmd

import (
	"bytes"
	"context"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/phishshift/internal/keylock"
	"github.com/abhisek/phishshift/internal/outcome"
	"github.com/abhisek/phishshift/internal/scenario"
	"github.com/abhisek/phishshift/internal/selector"
	"github.com/abhisek/phishshift/internal/shift"
	"github.com/abhisek/phishshift/internal/store"
)

func seededEngine(t *testing.T) (*store.Store, *shift.Engine) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "cmd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	list, err := scenario.Seed()
	require.NoError(t, err)
	_, err = s.Scenarios().Import(context.Background(), list)
	require.NoError(t, err)

	eng := shift.New(shift.Config{
		Sessions:  s.Sessions(),
		Decisions: s.Decisions(),
		Progress:  s.Progress(),
		Scenarios: s.Scenarios(),
		Tx:        s,
		Selector:  selector.New(s.Scenarios(), rand.New(rand.NewPCG(4, 2))),
		Locker:    keylock.NewLocal(),
	})
	return s, eng
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		in      string
		want    outcome.Action
		wantErr bool
	}{
		{"r", outcome.ActionReport, false},
		{"D", outcome.ActionDelete, false},
		{" v ", outcome.ActionVerify, false},
		{"proceed", outcome.ActionProceed, false},
		{"x", "", true},
		{"", "", true},
		{"forward", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseChoice(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlayShift_EndOfInputCompletesShift(t *testing.T) {
	s, eng := seededEngine(t)
	ctx := context.Background()

	start, err := eng.StartShift(ctx, "alice")
	require.NoError(t, err)

	// One bad choice, then two answered messages, then input ends.
	in := strings.NewReader("nope\nr\n80\nd\n\n")
	var out bytes.Buffer
	require.NoError(t, playShift(ctx, eng, start.Session.ID, in, &out))

	text := out.String()
	assert.Contains(t, text, "Shift complete")
	assert.Contains(t, text, "invalid action")

	sess, err := eng.Session(ctx, start.Session.ID)
	require.NoError(t, err)
	assert.True(t, sess.Completed)
	assert.Equal(t, 2, sess.DecisionCount)

	decisions, err := s.Decisions().ForSession(ctx, start.Session.ID)
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, outcome.ActionReport, decisions[0].Action)
	assert.Equal(t, 80, decisions[0].Confidence)
	assert.Equal(t, outcome.ActionDelete, decisions[1].Action)
	assert.Equal(t, 50, decisions[1].Confidence)
}

func TestPlayShift_NoInputLeavesAllUnanswered(t *testing.T) {
	_, eng := seededEngine(t)
	ctx := context.Background()

	start, err := eng.StartShift(ctx, "bob")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, playShift(ctx, eng, start.Session.ID, strings.NewReader(""), &out))

	sess, err := eng.Session(ctx, start.Session.ID)
	require.NoError(t, err)
	assert.True(t, sess.Completed)
	assert.Zero(t, sess.DecisionCount)
	assert.Equal(t, len(sess.ScenarioIDs), sess.Unanswered())
}

func TestAggregateUsage(t *testing.T) {
	events := []store.LLMRequestEventData{
		{Model: "gpt-4o-mini", InputTokens: 10, OutputTokens: 5, CostUSD: 0.001, Success: true},
		{Model: "claude-haiku-4-5-20251001", InputTokens: 100, OutputTokens: 50, CostUSD: 0.2, Success: true},
		{Model: "gpt-4o-mini", InputTokens: 20, OutputTokens: 5, CostUSD: 0.002},
	}
	got := aggregateUsage(events)
	require.Len(t, got, 2)
	assert.Equal(t, "claude-haiku-4-5-20251001", got[0].Model)
	assert.Equal(t, modelUsage{Model: "gpt-4o-mini", Calls: 2, Failures: 1, InputTokens: 30, OutputTokens: 10, CostUSD: 0.003}, roundCost(got[1]))
}

func roundCost(u modelUsage) modelUsage {
	u.CostUSD = float64(int(u.CostUSD*1e6+0.5)) / 1e6
	return u
}

func TestFormatCost(t *testing.T) {
	assert.Equal(t, "$0.0012", formatCost(0.00123))
	assert.Equal(t, "$1.50", formatCost(1.5))
}

func TestSeedAndListCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")
	t.Chdir(t.TempDir())

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&out)
		rootCmd.SetArgs(append(args, "--db", db, "--log-mode", "prod"))
		require.NoError(t, rootCmd.ExecuteContext(context.Background()))
		return out.String()
	}

	assert.Contains(t, run("seed"), "Imported")
	list := run("scenario", "list")
	assert.Contains(t, list, "vendor-takeover-1")

	chains := run("scenario", "chain")
	assert.Contains(t, chains, "vendor-takeover")
	assert.Contains(t, run("scenario", "chain", "vendor-takeover"), "vendor-takeover-2-proceed")
	assert.Contains(t, run("stats"), "No decisions recorded yet.")
}
