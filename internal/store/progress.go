package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/phishshift/internal/apperr"
	"github.com/abhisek/phishshift/internal/progress"
)

// ProgressRepo implements progress.Repository. The record is stored as
// JSON; version and updated_at live in their own columns.
type ProgressRepo struct {
	store *Store
}

var _ progress.Repository = (*ProgressRepo)(nil)

func (r *ProgressRepo) Get(ctx context.Context, userID string) (*progress.Progress, error) {
	var (
		data    string
		version int
		updated string
	)
	err := r.store.conn(ctx).QueryRowContext(ctx,
		`SELECT data, version, updated_at FROM progress WHERE user_id = ?`, userID,
	).Scan(&data, &version, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "user_id", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return decodeProgress(userID, data, version, updated)
}

func (r *ProgressRepo) Upsert(ctx context.Context, p progress.Progress) (int, error) {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	data, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("marshal progress: %w", err)
	}
	q := r.store.conn(ctx)

	if p.Version == 0 {
		_, err := q.ExecContext(ctx,
			`INSERT INTO progress (user_id, data, version, updated_at) VALUES (?, ?, 1, ?)`,
			p.UserID, string(data), formatTime(p.UpdatedAt))
		if isUniqueViolation(err, "progress.user_id") {
			return 0, apperr.New(apperr.KindVersionConflict, "progress_version", p.Version)
		}
		if err != nil {
			return 0, fmt.Errorf("insert progress: %w", err)
		}
		return 1, nil
	}

	res, err := q.ExecContext(ctx,
		`UPDATE progress SET data = ?, version = version + 1, updated_at = ?
		 WHERE user_id = ? AND version = ?`,
		string(data), formatTime(p.UpdatedAt), p.UserID, p.Version)
	if err != nil {
		return 0, fmt.Errorf("update progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update progress: %w", err)
	}
	if n == 0 {
		return 0, apperr.New(apperr.KindVersionConflict, "progress_version", p.Version)
	}
	return p.Version + 1, nil
}

func (r *ProgressRepo) List(ctx context.Context) ([]progress.Progress, error) {
	rows, err := r.store.conn(ctx).QueryContext(ctx,
		`SELECT user_id, data, version, updated_at FROM progress ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var out []progress.Progress
	for rows.Next() {
		var (
			userID, data, updated string
			version               int
		)
		if err := rows.Scan(&userID, &data, &version, &updated); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		p, err := decodeProgress(userID, data, version, updated)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func decodeProgress(userID, data string, version int, updated string) (*progress.Progress, error) {
	p := progress.New(userID)
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	if p.MissedCues == nil {
		p.MissedCues = map[string]int{}
	}
	p.UserID = userID
	p.Version = version
	t, err := parseTime(updated)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	p.UpdatedAt = t
	return &p, nil
}
