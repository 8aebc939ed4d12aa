package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store owns the SQLite connection and hands out repositories that share
// it.
type Store struct {
	db        *sql.DB
	seq       *sequenceCounter
	rng       *rand.Rand
	scenarios *ScenarioRepo
}

// Option configures Open.
type Option func(*Store)

// WithRand sets the random source used for scenario sampling.
func WithRand(rng *rand.Rand) Option {
	return func(s *Store) { s.rng = rng }
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates missing tables.
func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps transactions and pragmas on the same handle.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, seq: seq}
	for _, o := range opts {
		o(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s.scenarios = &ScenarioRepo{store: s, rng: s.rng}
	return s, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Scenarios returns the scenario catalog repository.
func (s *Store) Scenarios() *ScenarioRepo {
	return s.scenarios
}

// Sessions returns the shift session repository.
func (s *Store) Sessions() *SessionRepo {
	return &SessionRepo{store: s}
}

// Decisions returns the decision log.
func (s *Store) Decisions() *DecisionRepo {
	return &DecisionRepo{store: s}
}

// Progress returns the learner progress repository.
func (s *Store) Progress() *ProgressRepo {
	return &ProgressRepo{store: s}
}

// Events returns the LLM request event log.
func (s *Store) Events() EventRepo {
	return &eventRepo{store: s}
}

// Snapshots returns the cohort snapshot repository.
func (s *Store) Snapshots() SnapshotRepo {
	return &snapshotRepo{store: s}
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS scenarios (
		id TEXT PRIMARY KEY,
		channel TEXT NOT NULL,
		legitimacy TEXT NOT NULL,
		correct_action TEXT NOT NULL,
		difficulty INTEGER NOT NULL,
		chain_id TEXT NOT NULL DEFAULT '',
		chain_order INTEGER NOT NULL DEFAULT 0,
		previous_action TEXT NOT NULL DEFAULT '',
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scenarios_difficulty ON scenarios (difficulty, chain_order);
	CREATE INDEX IF NOT EXISTS idx_scenarios_chain ON scenarios (chain_id, chain_order);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		scenario_ids TEXT NOT NULL,
		verification_budget INTEGER NOT NULL,
		verifications_used INTEGER NOT NULL DEFAULT 0,
		score INTEGER NOT NULL DEFAULT 0,
		correct_count INTEGER NOT NULL DEFAULT 0,
		false_positives INTEGER NOT NULL DEFAULT 0,
		compromises INTEGER NOT NULL DEFAULT 0,
		decision_count INTEGER NOT NULL DEFAULT 0,
		completed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		completed_at TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions (user_id, created_at);

	CREATE TABLE IF NOT EXISTS progress (
		user_id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		version INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		sequence INTEGER NOT NULL UNIQUE,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		user_id TEXT NOT NULL,
		scenario_id TEXT NOT NULL,
		action TEXT NOT NULL,
		confidence INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		points INTEGER NOT NULL,
		used_verification INTEGER NOT NULL,
		correct INTEGER NOT NULL,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL,
		UNIQUE (session_id, scenario_id)
	);

	CREATE TABLE IF NOT EXISTS llm_requests (
		sequence INTEGER PRIMARY KEY,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL,
		cost_usd REAL NOT NULL DEFAULT 0,
		success INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL,
		timestamp TEXT NOT NULL,
		data TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// DefaultDBPath resolves the database file path in priority order:
// 1. PHISHSHIFT_DB environment variable
// 2. $XDG_DATA_HOME/phishshift/phishshift.db
// 3. ~/.local/share/phishshift/phishshift.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("PHISHSHIFT_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "phishshift", "phishshift.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// Ping verifies the connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
