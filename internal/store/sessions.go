package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abhisek/phishshift/internal/apperr"
	"github.com/abhisek/phishshift/internal/shift"
)

// SessionRepo implements shift.SessionRepository.
type SessionRepo struct {
	store *Store
}

var _ shift.SessionRepository = (*SessionRepo)(nil)

const sessionColumns = `id, user_id, scenario_ids, verification_budget, verifications_used, score,
	correct_count, false_positives, compromises, decision_count, completed, created_at,
	completed_at, version`

func (r *SessionRepo) Get(ctx context.Context, id string) (*shift.Session, error) {
	row := r.store.conn(ctx).QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindUnknownSession, "session_id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return s, nil
}

func (r *SessionRepo) Create(ctx context.Context, s *shift.Session) error {
	ids, err := json.Marshal(s.ScenarioIDs)
	if err != nil {
		return fmt.Errorf("marshal scenario ids: %w", err)
	}
	_, err = r.store.conn(ctx).ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, string(ids), s.VerificationBudget, s.VerificationsUsed, s.Score,
		s.CorrectCount, s.FalsePositives, s.Compromises, s.DecisionCount, boolInt(s.Completed),
		formatTime(s.CreatedAt), formatTime(s.CompletedAt), 1,
	)
	if isUniqueViolation(err, "sessions.id") {
		return apperr.Wrap(apperr.KindVersionConflict, err)
	}
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	s.Version = 1
	return nil
}

func (r *SessionRepo) Update(ctx context.Context, s *shift.Session) error {
	ids, err := json.Marshal(s.ScenarioIDs)
	if err != nil {
		return fmt.Errorf("marshal scenario ids: %w", err)
	}
	res, err := r.store.conn(ctx).ExecContext(ctx,
		`UPDATE sessions SET scenario_ids = ?, verifications_used = ?, score = ?, correct_count = ?,
			false_positives = ?, compromises = ?, decision_count = ?, completed = ?, completed_at = ?,
			version = version + 1
		 WHERE id = ? AND version = ?`,
		string(ids), s.VerificationsUsed, s.Score, s.CorrectCount, s.FalsePositives, s.Compromises,
		s.DecisionCount, boolInt(s.Completed), formatTime(s.CompletedAt), s.ID, s.Version,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n == 0 {
		if _, err := r.Get(ctx, s.ID); err != nil {
			return err
		}
		return apperr.New(apperr.KindVersionConflict, "session_version", s.Version)
	}
	s.Version++
	return nil
}

func (r *SessionRepo) ListByUser(ctx context.Context, userID string) ([]shift.Session, error) {
	rows, err := r.store.conn(ctx).QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []shift.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (*shift.Session, error) {
	var (
		s                    shift.Session
		ids                  string
		completed            int
		created, completedAt string
	)
	err := sc.Scan(&s.ID, &s.UserID, &ids, &s.VerificationBudget, &s.VerificationsUsed, &s.Score,
		&s.CorrectCount, &s.FalsePositives, &s.Compromises, &s.DecisionCount, &completed,
		&created, &completedAt, &s.Version)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(ids), &s.ScenarioIDs); err != nil {
		return nil, fmt.Errorf("decode scenario ids: %w", err)
	}
	s.Completed = completed == 1
	if s.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if s.CompletedAt, err = parseTime(completedAt); err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}
	return &s, nil
}
