package store

import (
	"context"
	"fmt"
	"time"
)

// eventRepo implements EventRepo on the shared sequence counter.
type eventRepo struct {
	store *Store
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	q := r.store.conn(ctx)
	seqNum, err := r.store.seq.Next(ctx, q)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO llm_requests (sequence, provider, model, purpose, input_tokens, output_tokens,
			latency_ms, cost_usd, success, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seqNum, data.Provider, data.Model, data.Purpose, data.InputTokens, data.OutputTokens,
		data.LatencyMs, data.CostUSD, boolInt(data.Success), data.ErrorMessage, formatTime(data.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *eventRepo) LLMRequests(ctx context.Context, opts QueryOpts) ([]LLMRequestEventData, error) {
	query := `SELECT sequence, provider, model, purpose, input_tokens, output_tokens,
			latency_ms, cost_usd, success, error_message, created_at
		FROM llm_requests WHERE sequence > ? ORDER BY sequence`
	args := []any{opts.After}
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.store.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM requests: %w", err)
	}
	defer rows.Close()

	var out []LLMRequestEventData
	for rows.Next() {
		var (
			d       LLMRequestEventData
			success int
			created string
		)
		if err := rows.Scan(&d.Sequence, &d.Provider, &d.Model, &d.Purpose, &d.InputTokens,
			&d.OutputTokens, &d.LatencyMs, &d.CostUSD, &success, &d.ErrorMessage, &created); err != nil {
			return nil, fmt.Errorf("scan LLM request: %w", err)
		}
		d.Success = success == 1
		if d.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
