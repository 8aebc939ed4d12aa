package scenario

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/abhisek/phishshift/internal/apperr"
)

// Filter restricts which scenarios a sample may draw from. Zero values
// mean "no restriction".
type Filter struct {
	StartableOnly bool
	MinDifficulty int
	MaxDifficulty int
	ExcludeIDs    []string
}

// Match reports whether s passes the filter.
func (f Filter) Match(s Scenario) bool {
	if f.StartableOnly && !s.IsStartable() {
		return false
	}
	if f.MinDifficulty > 0 && s.DifficultyScore < f.MinDifficulty {
		return false
	}
	if f.MaxDifficulty > 0 && s.DifficultyScore > f.MaxDifficulty {
		return false
	}
	for _, id := range f.ExcludeIDs {
		if id == s.ID {
			return false
		}
	}
	return true
}

// Repository is read access to the scenario pool. Scenarios always come
// back with their stored difficulty score.
type Repository interface {
	// GetByID returns an UnknownScenario error when id is absent.
	GetByID(ctx context.Context, id string) (*Scenario, error)
	// GetByIDs returns scenarios in the order of ids.
	GetByIDs(ctx context.Context, ids []string) ([]Scenario, error)
	// Sample draws up to count distinct scenarios matching filter,
	// uniformly at random.
	Sample(ctx context.Context, filter Filter, count int) ([]Scenario, error)
	// ChainMembers returns every step of a chain ordered by chain order
	// then id.
	ChainMembers(ctx context.Context, chainID string) ([]Scenario, error)
}

// Pick draws up to count distinct items from candidates without
// replacement. candidates is not modified.
func Pick(rng *rand.Rand, candidates []Scenario, count int) []Scenario {
	if count <= 0 || len(candidates) == 0 {
		return nil
	}
	pool := make([]Scenario, len(candidates))
	copy(pool, candidates)
	if count > len(pool) {
		count = len(pool)
	}
	// Partial Fisher-Yates.
	for i := 0; i < count; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:count]
}

// SortChain orders chain members by chain order, then id.
func SortChain(list []Scenario) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].ChainOrder != list[j].ChainOrder {
			return list[i].ChainOrder < list[j].ChainOrder
		}
		return list[i].ID < list[j].ID
	})
}

// MemoryRepository is a slice-backed Repository.
type MemoryRepository struct {
	mu   sync.Mutex
	list []Scenario
	byID map[string]int
	rng  *rand.Rand
}

// NewMemoryRepository builds a repository over list. A nil rng gets a
// randomly seeded one.
func NewMemoryRepository(list []Scenario, rng *rand.Rand) *MemoryRepository {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	r := &MemoryRepository{
		list: make([]Scenario, len(list)),
		byID: make(map[string]int, len(list)),
		rng:  rng,
	}
	copy(r.list, list)
	for i, s := range r.list {
		r.byID[s.ID] = i
	}
	return r
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*Scenario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return nil, apperr.New(apperr.KindUnknownScenario, "scenario_id", id)
	}
	s := r.list[i]
	return &s, nil
}

func (r *MemoryRepository) GetByIDs(_ context.Context, ids []string) ([]Scenario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Scenario, 0, len(ids))
	for _, id := range ids {
		i, ok := r.byID[id]
		if !ok {
			return nil, apperr.New(apperr.KindUnknownScenario, "scenario_id", id)
		}
		out = append(out, r.list[i])
	}
	return out, nil
}

func (r *MemoryRepository) Sample(_ context.Context, filter Filter, count int) ([]Scenario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var candidates []Scenario
	for _, s := range r.list {
		if filter.Match(s) {
			candidates = append(candidates, s)
		}
	}
	return Pick(r.rng, candidates, count), nil
}

func (r *MemoryRepository) ChainMembers(_ context.Context, chainID string) ([]Scenario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Scenario
	for _, s := range r.list {
		if s.ChainID == chainID {
			out = append(out, s)
		}
	}
	SortChain(out)
	return out, nil
}

// All returns every scenario in insertion order.
func (r *MemoryRepository) All() []Scenario {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Scenario, len(r.list))
	copy(out, r.list)
	return out
}
