package selector

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/abhisek/phishshift/internal/apperr"
	"github.com/abhisek/phishshift/internal/difficulty"
	"github.com/abhisek/phishshift/internal/scenario"
)

// DefaultSize is the number of scenarios in a shift.
const DefaultSize = 10

// Ceiling returns the highest difficulty a learner is routinely shown.
// Rules are checked from the highest threshold down.
func Ceiling(accuracy float64, shiftsCompleted int) int {
	switch {
	case shiftsCompleted >= 11 && accuracy >= 0.75:
		return 5
	case shiftsCompleted >= 6 && accuracy >= 0.70:
		return 4
	case shiftsCompleted >= 3 && accuracy >= 0.60:
		return 3
	default:
		return 2
	}
}

// StretchLevel is the difficulty of the minority slice drawn above the
// ceiling.
func StretchLevel(ceiling int) int {
	return min(ceiling+1, difficulty.Max)
}

// CoreCount is ceil(size * 0.8).
func CoreCount(size int) int {
	if size <= 0 {
		return 0
	}
	return (size*4 + 4) / 5
}

// Sampler draws distinct scenarios matching a filter.
type Sampler interface {
	Sample(ctx context.Context, filter scenario.Filter, count int) ([]scenario.Scenario, error)
}

// Batch is the outcome of one selection.
type Batch struct {
	Scenarios []scenario.Scenario
	Ceiling   int
	Requested int

	Core     int
	Stretch  int
	Backfill int

	// Shortfall is how many scenarios the pool could not supply.
	Shortfall int
}

// IDs returns the scenario ids in batch order.
func (b Batch) IDs() []string {
	out := make([]string, len(b.Scenarios))
	for i, s := range b.Scenarios {
		out[i] = s.ID
	}
	return out
}

// Err returns an InsufficientPool error for a short batch. The batch is
// still usable.
func (b Batch) Err() error {
	if b.Shortfall <= 0 {
		return nil
	}
	return apperr.New(apperr.KindInsufficientPool, "shortfall", fmt.Sprintf("%d of %d", b.Shortfall, b.Requested))
}

// Selector builds shift batches from a scenario pool.
type Selector struct {
	sampler Sampler

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Selector. A nil rng gets a randomly seeded one.
func New(sampler Sampler, rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Selector{sampler: sampler, rng: rng}
}

// SelectBatch picks up to size distinct startable scenarios: ceil(80%) at
// or below the learner's ceiling, the rest one level above, backfilled
// from the core pool when the stretch level runs dry. The result is
// shuffled.
func (s *Selector) SelectBatch(ctx context.Context, size int, accuracy float64, shiftsCompleted int) (Batch, error) {
	ceiling := Ceiling(accuracy, shiftsCompleted)
	b := Batch{Ceiling: ceiling, Requested: size}
	if size <= 0 {
		return b, nil
	}

	var chosen []scenario.Scenario
	seen := make(map[string]bool, size)
	add := func(list []scenario.Scenario) int {
		n := 0
		for _, sc := range list {
			if len(chosen) >= size || seen[sc.ID] || !sc.IsStartable() {
				continue
			}
			seen[sc.ID] = true
			chosen = append(chosen, sc)
			n++
		}
		return n
	}
	exclude := func() []string {
		ids := make([]string, 0, len(chosen))
		for _, sc := range chosen {
			ids = append(ids, sc.ID)
		}
		return ids
	}

	coreFilter := scenario.Filter{StartableOnly: true, MaxDifficulty: ceiling}

	core, err := s.sampler.Sample(ctx, coreFilter, CoreCount(size))
	if err != nil {
		return Batch{}, fmt.Errorf("sample core: %w", err)
	}
	b.Core = add(core)

	if remaining := size - CoreCount(size); remaining > 0 {
		level := StretchLevel(ceiling)
		stretch, err := s.sampler.Sample(ctx, scenario.Filter{
			StartableOnly: true,
			MinDifficulty: level,
			MaxDifficulty: level,
			ExcludeIDs:    exclude(),
		}, remaining)
		if err != nil {
			return Batch{}, fmt.Errorf("sample stretch: %w", err)
		}
		b.Stretch = add(stretch)
	}

	if short := size - len(chosen); short > 0 {
		fill := coreFilter
		fill.ExcludeIDs = exclude()
		extra, err := s.sampler.Sample(ctx, fill, short)
		if err != nil {
			return Batch{}, fmt.Errorf("sample backfill: %w", err)
		}
		b.Backfill = add(extra)
	}

	s.mu.Lock()
	s.rng.Shuffle(len(chosen), func(i, j int) { chosen[i], chosen[j] = chosen[j], chosen[i] })
	s.mu.Unlock()

	b.Scenarios = chosen
	b.Shortfall = size - len(chosen)
	return b, nil
}

// SelectFromPool runs SelectBatch over an in-memory pool.
func SelectFromPool(pool []scenario.Scenario, size int, accuracy float64, shiftsCompleted int, rng *rand.Rand) Batch {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	repo := scenario.NewMemoryRepository(pool, rng)
	// The memory repository never fails.
	b, _ := New(repo, rng).SelectBatch(context.Background(), size, accuracy, shiftsCompleted)
	return b
}
