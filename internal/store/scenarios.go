package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/abhisek/phishshift/internal/apperr"
	"github.com/abhisek/phishshift/internal/scenario"
)

// ScenarioRepo is the SQLite scenario catalog. It implements
// scenario.Repository.
type ScenarioRepo struct {
	store *Store

	mu  sync.Mutex
	rng *rand.Rand
}

var _ scenario.Repository = (*ScenarioRepo)(nil)

// Import validates, scores and upserts scenarios by id inside one
// transaction. It returns how many rows were written.
func (r *ScenarioRepo) Import(ctx context.Context, list []scenario.Scenario) (int, error) {
	for _, s := range list {
		if err := s.Validate(); err != nil {
			return 0, fmt.Errorf("scenario %s: %w", s.ID, err)
		}
	}

	now := formatTime(time.Now())
	err := r.store.Within(ctx, func(ctx context.Context) error {
		q := r.store.conn(ctx)
		for _, s := range list {
			s = scenario.Ingest(s)
			data, err := json.Marshal(s)
			if err != nil {
				return fmt.Errorf("marshal scenario %s: %w", s.ID, err)
			}
			_, err = q.ExecContext(ctx,
				`INSERT INTO scenarios (id, channel, legitimacy, correct_action, difficulty,
					chain_id, chain_order, previous_action, data, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT (id) DO UPDATE SET
					channel = excluded.channel,
					legitimacy = excluded.legitimacy,
					correct_action = excluded.correct_action,
					difficulty = excluded.difficulty,
					chain_id = excluded.chain_id,
					chain_order = excluded.chain_order,
					previous_action = excluded.previous_action,
					data = excluded.data,
					updated_at = excluded.updated_at`,
				s.ID, s.Channel, s.Legitimacy, s.CorrectAction, s.DifficultyScore,
				s.ChainID, s.ChainOrder, s.PreviousAction, string(data), now,
			)
			if err != nil {
				return fmt.Errorf("upsert scenario %s: %w", s.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// Count returns the number of stored scenarios.
func (r *ScenarioRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.store.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM scenarios`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count scenarios: %w", err)
	}
	return n, nil
}

// List returns every scenario ordered by difficulty, then id.
func (r *ScenarioRepo) List(ctx context.Context) ([]scenario.Scenario, error) {
	return r.query(ctx, `SELECT data FROM scenarios ORDER BY difficulty, id`)
}

func (r *ScenarioRepo) GetByID(ctx context.Context, id string) (*scenario.Scenario, error) {
	var data string
	err := r.store.conn(ctx).QueryRowContext(ctx, `SELECT data FROM scenarios WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindUnknownScenario, "scenario_id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get scenario %s: %w", id, err)
	}
	s, err := decodeScenario(data)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ScenarioRepo) GetByIDs(ctx context.Context, ids []string) ([]scenario.Scenario, error) {
	out := make([]scenario.Scenario, 0, len(ids))
	for _, id := range ids {
		s, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

// Sample filters in SQL and draws uniformly in process.
func (r *ScenarioRepo) Sample(ctx context.Context, filter scenario.Filter, count int) ([]scenario.Scenario, error) {
	if count <= 0 {
		return nil, nil
	}
	var (
		where []string
		args  []any
	)
	if filter.StartableOnly {
		where = append(where, "chain_order <= 1")
	}
	if filter.MinDifficulty > 0 {
		where = append(where, "difficulty >= ?")
		args = append(args, filter.MinDifficulty)
	}
	if filter.MaxDifficulty > 0 {
		where = append(where, "difficulty <= ?")
		args = append(args, filter.MaxDifficulty)
	}
	if len(filter.ExcludeIDs) > 0 {
		where = append(where, "id NOT IN (?"+strings.Repeat(", ?", len(filter.ExcludeIDs)-1)+")")
		for _, id := range filter.ExcludeIDs {
			args = append(args, id)
		}
	}
	query := `SELECT data FROM scenarios`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	candidates, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return scenario.Pick(r.rng, candidates, count), nil
}

func (r *ScenarioRepo) ChainMembers(ctx context.Context, chainID string) ([]scenario.Scenario, error) {
	if chainID == "" {
		return nil, nil
	}
	return r.query(ctx, `SELECT data FROM scenarios WHERE chain_id = ? ORDER BY chain_order, id`, chainID)
}

// ChainIDs lists distinct chain ids in the catalog.
func (r *ScenarioRepo) ChainIDs(ctx context.Context) ([]string, error) {
	rows, err := r.store.conn(ctx).QueryContext(ctx,
		`SELECT DISTINCT chain_id FROM scenarios WHERE chain_id != '' ORDER BY chain_id`)
	if err != nil {
		return nil, fmt.Errorf("query chain ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan chain id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *ScenarioRepo) query(ctx context.Context, query string, args ...any) ([]scenario.Scenario, error) {
	rows, err := r.store.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scenarios: %w", err)
	}
	defer rows.Close()

	var out []scenario.Scenario
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		s, err := decodeScenario(data)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func decodeScenario(data string) (scenario.Scenario, error) {
	var s scenario.Scenario
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return s, fmt.Errorf("decode scenario: %w", err)
	}
	return s, nil
}
