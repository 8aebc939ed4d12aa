package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type snapshotRepo struct {
	store *Store
}

func (r *snapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	q := r.store.conn(ctx)
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}
	if snap.Sequence == 0 {
		// Decisions recorded so far, so a snapshot marks what it covers.
		if err := q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM decisions`,
		).Scan(&snap.Sequence); err != nil {
			return fmt.Errorf("count decisions: %w", err)
		}
	}

	res, err := q.ExecContext(ctx,
		`INSERT INTO snapshots (sequence, timestamp, data) VALUES (?, ?, ?)`,
		snap.Sequence, formatTime(snap.Timestamp), string(snap.Data),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("snapshot id: %w", err)
	}
	snap.ID = int(id)
	return nil
}

func (r *snapshotRepo) Latest(ctx context.Context) (*Snapshot, error) {
	var (
		s    Snapshot
		ts   string
		data string
	)
	err := r.store.conn(ctx).QueryRowContext(ctx,
		`SELECT id, sequence, timestamp, data FROM snapshots ORDER BY timestamp DESC, id DESC LIMIT 1`,
	).Scan(&s.ID, &s.Sequence, &ts, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	if s.Timestamp, err = parseTime(ts); err != nil {
		return nil, fmt.Errorf("parse snapshot timestamp: %w", err)
	}
	s.Data = []byte(data)
	return &s, nil
}

func (r *snapshotRepo) Prune(ctx context.Context, keep int) error {
	_, err := r.store.conn(ctx).ExecContext(ctx,
		`DELETE FROM snapshots WHERE id NOT IN (
			SELECT id FROM snapshots ORDER BY timestamp DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}
