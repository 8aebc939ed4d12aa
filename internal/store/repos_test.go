package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/phishshift/internal/apperr"
	"github.com/abhisek/phishshift/internal/outcome"
	"github.com/abhisek/phishshift/internal/progress"
	"github.com/abhisek/phishshift/internal/scenario"
	"github.com/abhisek/phishshift/internal/shift"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := openTestStore(t)
	seed, err := scenario.Seed()
	require.NoError(t, err)
	n, err := s.Scenarios().Import(context.Background(), seed)
	require.NoError(t, err)
	require.Equal(t, len(seed), n)
	return s
}

func TestScenarioRepo_ImportAndGet(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	repo := s.Scenarios()

	got, err := repo.GetByID(ctx, "ceo-wire")
	require.NoError(t, err)
	assert.Equal(t, outcome.Malicious, got.Legitimacy)
	assert.Equal(t, 5, got.DifficultyScore)
	assert.NotEmpty(t, got.Cues)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrUnknownScenario)

	list, err := repo.GetByIDs(ctx, []string{"parcel-sms", "gift-card-ceo"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "parcel-sms", list[0].ID)
}

func TestScenarioRepo_ImportUpsertsAndScores(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	repo := s.Scenarios()

	before, err := repo.Count(ctx)
	require.NoError(t, err)

	edited, err := repo.GetByID(ctx, "parcel-sms")
	require.NoError(t, err)
	edited.Title = "Edited"
	edited.DifficultyScore = 5 // recomputed on import
	_, err = repo.Import(ctx, []scenario.Scenario{*edited})
	require.NoError(t, err)

	after, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	got, err := repo.GetByID(ctx, "parcel-sms")
	require.NoError(t, err)
	assert.Equal(t, "Edited", got.Title)
	assert.Equal(t, 1, got.DifficultyScore)
}

func TestScenarioRepo_ImportRejectsInvalid(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Scenarios().Import(context.Background(), []scenario.Scenario{
		{ID: "ok", Channel: scenario.ChannelEmail, Body: "b", Legitimacy: outcome.Legitimate, CorrectAction: outcome.ActionProceed},
		{ID: "bad", Channel: "fax", Body: "b", Legitimacy: outcome.Legitimate, CorrectAction: outcome.ActionProceed},
	})
	require.Error(t, err)

	n, err := s.Scenarios().Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestScenarioRepo_Sample(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	list, err := s.Scenarios().Sample(ctx, scenario.Filter{StartableOnly: true, MaxDifficulty: 2}, 50)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	seen := map[string]bool{}
	for _, sc := range list {
		assert.True(t, sc.IsStartable(), sc.ID)
		assert.LessOrEqual(t, sc.DifficultyScore, 2, sc.ID)
		assert.False(t, seen[sc.ID], "duplicate %s", sc.ID)
		seen[sc.ID] = true
	}

	excluded, err := s.Scenarios().Sample(ctx, scenario.Filter{ExcludeIDs: []string{"ceo-wire", "parcel-sms"}}, 100)
	require.NoError(t, err)
	for _, sc := range excluded {
		assert.NotContains(t, []string{"ceo-wire", "parcel-sms"}, sc.ID)
	}

	few, err := s.Scenarios().Sample(ctx, scenario.Filter{}, 3)
	require.NoError(t, err)
	assert.Len(t, few, 3)
}

func TestScenarioRepo_ChainMembers(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	members, err := s.Scenarios().ChainMembers(ctx, "vendor-takeover")
	require.NoError(t, err)
	require.Len(t, members, 5)
	assert.Equal(t, "vendor-takeover-1", members[0].ID)
	assert.Equal(t, 3, members[4].ChainOrder)

	ids, err := s.Scenarios().ChainIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"helpdesk-reset", "vendor-takeover"}, ids)
}

func newSession(id, user string) *shift.Session {
	return &shift.Session{
		ID:                 id,
		UserID:             user,
		ScenarioIDs:        []string{"parcel-sms", "ceo-wire"},
		VerificationBudget: 3,
		CreatedAt:          time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestSessionRepo_CreateUpdate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Sessions()

	sess := newSession("s1", "alice")
	require.NoError(t, repo.Create(ctx, sess))
	assert.Equal(t, 1, sess.Version)

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sess.ScenarioIDs, got.ScenarioIDs)
	assert.True(t, sess.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, got.CompletedAt.IsZero())

	got.Score = 15
	got.ScenarioIDs = append(got.ScenarioIDs, "vendor-takeover-2-proceed")
	got.Completed = true
	got.CompletedAt = time.Date(2026, 1, 2, 4, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Update(ctx, got))
	assert.Equal(t, 2, got.Version)

	again, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 15, again.Score)
	assert.Len(t, again.ScenarioIDs, 3)
	assert.True(t, again.Completed)
	assert.Equal(t, 2, again.Version)

	stale := *sess // version 1
	err = repo.Update(ctx, &stale)
	assert.ErrorIs(t, err, apperr.ErrVersionConflict)

	_, err = repo.Get(ctx, "nope")
	assert.ErrorIs(t, err, apperr.ErrUnknownSession)
	err = repo.Update(ctx, newSession("nope", "alice"))
	assert.ErrorIs(t, err, apperr.ErrUnknownSession)
}

func TestSessionRepo_ListByUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Sessions()

	a := newSession("a", "alice")
	b := newSession("b", "alice")
	b.CreatedAt = a.CreatedAt.Add(time.Hour)
	require.NoError(t, repo.Create(ctx, b))
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, newSession("c", "bob")))

	list, err := repo.ListByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
}

func TestDecisionRepo(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Sessions().Create(ctx, newSession("s1", "alice")))
	repo := s.Decisions()

	d1 := &shift.Decision{ID: "d1", SessionID: "s1", UserID: "alice", ScenarioID: "parcel-sms",
		Action: outcome.ActionReport, Outcome: outcome.Safe, Points: 15, Correct: true,
		IdempotencyKey: "k1", CreatedAt: time.Now()}
	require.NoError(t, repo.Append(ctx, d1))
	d2 := &shift.Decision{ID: "d2", SessionID: "s1", UserID: "alice", ScenarioID: "ceo-wire",
		Action: outcome.ActionVerify, Outcome: outcome.Safe, Points: 15, UsedVerification: true, CreatedAt: time.Now()}
	require.NoError(t, repo.Append(ctx, d2))
	assert.Greater(t, d2.Sequence, d1.Sequence)

	found, err := repo.FindByIdempotencyKey(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "d1", found.ID)
	assert.True(t, found.Correct)

	missing, err := repo.FindByIdempotencyKey(ctx, "k2")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Decisions without a key do not collide on the unique index.
	list, err := repo.ForSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Empty(t, list[1].IdempotencyKey)
	assert.True(t, list[1].UsedVerification)

	dup := *d1
	dup.ID, dup.IdempotencyKey = "d3", ""
	assert.ErrorIs(t, repo.Append(ctx, &dup), apperr.ErrAlreadyDecided)

	reuse := *d2
	reuse.ID, reuse.ScenarioID, reuse.IdempotencyKey = "d4", "gift-card-ceo", "k1"
	assert.ErrorIs(t, repo.Append(ctx, &reuse), apperr.ErrInvalidInput)

	all, err := repo.AllForAnalytics(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestProgressRepo(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Progress()

	_, err := repo.Get(ctx, "alice")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	p := progress.New("alice")
	p.TotalDecisions = 3
	p.MissedCues["urgent tone"] = 2
	p.EarnedBadges = []progress.BadgeID{progress.BadgeDomainDetective}
	v, err := repo.Upsert(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	got, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalDecisions)
	assert.Equal(t, 2, got.MissedCues["urgent tone"])
	assert.True(t, got.HasBadge(progress.BadgeDomainDetective))
	assert.Equal(t, 1, got.Version)

	got.TotalDecisions++
	v, err = repo.Upsert(ctx, *got)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	// stale writer
	_, err = repo.Upsert(ctx, *got)
	assert.ErrorIs(t, err, apperr.ErrVersionConflict)
	// second first-writer
	_, err = repo.Upsert(ctx, progress.New("alice"))
	assert.ErrorIs(t, err, apperr.ErrVersionConflict)

	_, err = repo.Upsert(ctx, progress.New("bob"))
	require.NoError(t, err)
	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alice", all[0].UserID)
}

func TestWithin_RollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Within(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Sessions().Create(ctx, newSession("s1", "alice")))
		_, err := s.Progress().Upsert(ctx, progress.New("alice"))
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Sessions().Get(ctx, "s1")
	assert.ErrorIs(t, err, apperr.ErrUnknownSession)
	_, err = s.Progress().Get(ctx, "alice")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestWithin_Nested(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Within(ctx, func(ctx context.Context) error {
		return s.Within(ctx, func(ctx context.Context) error {
			return s.Sessions().Create(ctx, newSession("s1", "alice"))
		})
	})
	require.NoError(t, err)

	_, err = s.Sessions().Get(ctx, "s1")
	assert.NoError(t, err)
}

func TestWithin_Concurrent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Within(ctx, func(ctx context.Context) error {
				_, err := s.seq.Next(ctx, s.conn(ctx))
				return err
			})
			assert.NoError(t, err, i)
		}()
	}
	wg.Wait()

	seq, err := s.seq.Next(ctx, s.DB())
	require.NoError(t, err)
	assert.Equal(t, int64(11), seq)
}

func TestSnapshotSave_DefaultsToDecisionCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Sessions().Create(ctx, newSession("s1", "alice")))

	// LLM events share the global sequence but are not decisions.
	for range 3 {
		require.NoError(t, s.Events().AppendLLMRequest(ctx, LLMRequestEventData{Provider: "mock", Model: "m", Success: true}))
	}
	for i, id := range []string{"parcel-sms", "ceo-wire"} {
		require.NoError(t, s.Decisions().Append(ctx, &shift.Decision{
			ID: "d" + id, SessionID: "s1", UserID: "alice", ScenarioID: id,
			Action: outcome.ActionReport, Outcome: outcome.Safe, Points: 15 - i, CreatedAt: time.Now(),
		}))
	}

	snap := &Snapshot{Data: []byte(`{}`)}
	require.NoError(t, s.Snapshots().Save(ctx, snap))
	assert.Equal(t, int64(2), snap.Sequence)

	latest, err := s.Snapshots().Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest.Sequence)
}
