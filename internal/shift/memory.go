package shift

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/abhisek/phishshift/internal/apperr"
	"github.com/abhisek/phishshift/internal/progress"
)

// MemoryStore keeps sessions, decisions and progress in process. It
// implements SessionRepository, DecisionLog, progress.Repository and
// TxManager. Transactions are serialized and restored on error.
type MemoryStore struct {
	txMu sync.Mutex

	mu        sync.Mutex
	sessions  map[string]Session
	decisions []Decision
	progress  map[string]progress.Progress
	seq       int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		progress: make(map[string]progress.Progress),
	}
}

type memTxKey struct{}

type memSnapshot struct {
	sessions  map[string]Session
	decisions []Decision
	progress  map[string]progress.Progress
	seq       int64
}

func (m *MemoryStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := memSnapshot{
		sessions:  make(map[string]Session, len(m.sessions)),
		decisions: make([]Decision, len(m.decisions)),
		progress:  make(map[string]progress.Progress, len(m.progress)),
		seq:       m.seq,
	}
	for k, v := range m.sessions {
		snap.sessions[k] = v.clone()
	}
	copy(snap.decisions, m.decisions)
	maps.Copy(snap.progress, m.progress)
	return snap
}

func (m *MemoryStore) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions, m.decisions, m.progress, m.seq = s.sessions, s.decisions, s.progress, s.seq
}

func (m *MemoryStore) Within(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// Sessions returns the store as a SessionRepository.
func (m *MemoryStore) Sessions() SessionRepository { return memSessions{m} }

// Decisions returns the store as a DecisionLog.
func (m *MemoryStore) Decisions() DecisionLog { return memDecisions{m} }

// Progress returns the store as a progress.Repository.
func (m *MemoryStore) Progress() progress.Repository { return memProgress{m} }

type memSessions struct{ m *MemoryStore }

func (r memSessions) Get(_ context.Context, id string) (*Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.sessions[id]
	if !ok {
		return nil, apperr.New(apperr.KindUnknownSession, "session_id", id)
	}
	out := s.clone()
	return &out, nil
}

func (r memSessions) Create(_ context.Context, s *Session) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.sessions[s.ID]; ok {
		return apperr.New(apperr.KindVersionConflict, "session_id", s.ID)
	}
	s.Version = 1
	r.m.sessions[s.ID] = s.clone()
	return nil
}

func (r memSessions) Update(_ context.Context, s *Session) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cur, ok := r.m.sessions[s.ID]
	if !ok {
		return apperr.New(apperr.KindUnknownSession, "session_id", s.ID)
	}
	if cur.Version != s.Version {
		return apperr.New(apperr.KindVersionConflict, "session_version", s.Version)
	}
	s.Version++
	r.m.sessions[s.ID] = s.clone()
	return nil
}

func (r memSessions) ListByUser(_ context.Context, userID string) ([]Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []Session
	for _, s := range r.m.sessions {
		if s.UserID == userID {
			out = append(out, s.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type memDecisions struct{ m *MemoryStore }

func (r memDecisions) Append(_ context.Context, d *Decision) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.decisions {
		if d.IdempotencyKey != "" && existing.IdempotencyKey == d.IdempotencyKey {
			return apperr.New(apperr.KindInvalidInput, "idempotency_key", d.IdempotencyKey)
		}
		if existing.SessionID == d.SessionID && existing.ScenarioID == d.ScenarioID {
			return apperr.New(apperr.KindAlreadyDecided, "scenario_id", d.ScenarioID)
		}
	}
	r.m.seq++
	d.Sequence = r.m.seq
	r.m.decisions = append(r.m.decisions, *d)
	return nil
}

func (r memDecisions) FindByIdempotencyKey(_ context.Context, key string) (*Decision, error) {
	if key == "" {
		return nil, nil
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, d := range r.m.decisions {
		if d.IdempotencyKey == key {
			out := d
			return &out, nil
		}
	}
	return nil, nil
}

func (r memDecisions) ForSession(_ context.Context, sessionID string) ([]Decision, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []Decision
	for _, d := range r.m.decisions {
		if d.SessionID == sessionID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r memDecisions) AllForAnalytics(_ context.Context) ([]Decision, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]Decision, len(r.m.decisions))
	copy(out, r.m.decisions)
	return out, nil
}

type memProgress struct{ m *MemoryStore }

func (r memProgress) Get(_ context.Context, userID string) (*progress.Progress, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.progress[userID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "user_id", userID)
	}
	out := copyProgress(p)
	return &out, nil
}

func (r memProgress) Upsert(_ context.Context, p progress.Progress) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cur, ok := r.m.progress[p.UserID]
	switch {
	case !ok && p.Version != 0:
		return 0, apperr.New(apperr.KindVersionConflict, "progress_version", p.Version)
	case ok && cur.Version != p.Version:
		return 0, apperr.New(apperr.KindVersionConflict, "progress_version", p.Version)
	}
	p = copyProgress(p)
	p.Version++
	r.m.progress[p.UserID] = p
	return p.Version, nil
}

func (r memProgress) List(_ context.Context) ([]progress.Progress, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]progress.Progress, 0, len(r.m.progress))
	for _, p := range r.m.progress {
		out = append(out, copyProgress(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func copyProgress(p progress.Progress) progress.Progress {
	out := p
	out.MissedCues = maps.Clone(p.MissedCues)
	if out.MissedCues == nil {
		out.MissedCues = map[string]int{}
	}
	out.EarnedBadges = append([]progress.BadgeID(nil), p.EarnedBadges...)
	return out
}
