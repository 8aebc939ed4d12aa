package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/abhisek/phishshift/internal/apperr"
	"github.com/abhisek/phishshift/internal/shift"
)

// DecisionRepo is the append-only decision ledger. It implements
// shift.DecisionLog.
type DecisionRepo struct {
	store *Store
}

var _ shift.DecisionLog = (*DecisionRepo)(nil)

const decisionColumns = `id, sequence, session_id, user_id, scenario_id, action, confidence,
	outcome, points, used_verification, correct, idempotency_key, created_at`

func (r *DecisionRepo) Append(ctx context.Context, d *shift.Decision) error {
	q := r.store.conn(ctx)
	seq, err := r.store.seq.Next(ctx, q)
	if err != nil {
		return err
	}

	var key sql.NullString
	if d.IdempotencyKey != "" {
		key = sql.NullString{String: d.IdempotencyKey, Valid: true}
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO decisions (`+decisionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, seq, d.SessionID, d.UserID, d.ScenarioID, d.Action, d.Confidence, d.Outcome,
		d.Points, boolInt(d.UsedVerification), boolInt(d.Correct), key, formatTime(d.CreatedAt),
	)
	switch {
	case isUniqueViolation(err, "decisions.idempotency_key"):
		return apperr.New(apperr.KindInvalidInput, "idempotency_key", d.IdempotencyKey)
	case isUniqueViolation(err, "decisions.session_id"):
		return apperr.New(apperr.KindAlreadyDecided, "scenario_id", d.ScenarioID)
	case err != nil:
		return fmt.Errorf("insert decision: %w", err)
	}
	d.Sequence = seq
	return nil
}

func (r *DecisionRepo) FindByIdempotencyKey(ctx context.Context, key string) (*shift.Decision, error) {
	if key == "" {
		return nil, nil
	}
	row := r.store.conn(ctx).QueryRowContext(ctx,
		`SELECT `+decisionColumns+` FROM decisions WHERE idempotency_key = ?`, key)
	d, err := scanDecision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find decision by key: %w", err)
	}
	return d, nil
}

func (r *DecisionRepo) ForSession(ctx context.Context, sessionID string) ([]shift.Decision, error) {
	return r.list(ctx, `SELECT `+decisionColumns+` FROM decisions WHERE session_id = ? ORDER BY sequence`, sessionID)
}

func (r *DecisionRepo) AllForAnalytics(ctx context.Context) ([]shift.Decision, error) {
	return r.list(ctx, `SELECT `+decisionColumns+` FROM decisions ORDER BY sequence`)
}

func (r *DecisionRepo) list(ctx context.Context, query string, args ...any) ([]shift.Decision, error) {
	rows, err := r.store.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []shift.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func scanDecision(sc scanner) (*shift.Decision, error) {
	var (
		d             shift.Decision
		used, correct int
		key           sql.NullString
		created       string
	)
	err := sc.Scan(&d.ID, &d.Sequence, &d.SessionID, &d.UserID, &d.ScenarioID, &d.Action,
		&d.Confidence, &d.Outcome, &d.Points, &used, &correct, &key, &created)
	if err != nil {
		return nil, err
	}
	d.UsedVerification = used == 1
	d.Correct = correct == 1
	d.IdempotencyKey = key.String
	if d.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &d, nil
}
