package llm

import (
	"context"
	"time"

	"github.com/abhisek/phishshift/internal/logging"
	"github.com/abhisek/phishshift/internal/store"
)

// Recorder logs every request and appends it to the request event log
// with token usage and an estimated cost.
type Recorder struct {
	inner    Provider
	provider string
	events   store.EventRepo
	log      *logging.Logger
	now      func() time.Time
}

// WithRecorder wraps p. events may be nil, in which case requests are
// only logged.
func WithRecorder(p Provider, provider string, events store.EventRepo, log *logging.Logger) Provider {
	if log == nil {
		log = logging.Nop()
	}
	return &Recorder{inner: p, provider: provider, events: events, log: log, now: time.Now}
}

func (r *Recorder) Generate(ctx context.Context, req Request) (*Response, error) {
	start := r.now()
	resp, err := r.inner.Generate(ctx, req)
	latency := r.now().Sub(start)

	ev := store.LLMRequestEventData{
		Provider:  r.provider,
		Model:     r.inner.ModelID(),
		Purpose:   PurposeFrom(ctx),
		LatencyMs: latency.Milliseconds(),
		Success:   err == nil,
		CreatedAt: start,
	}
	if resp != nil {
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			ev.Model = resp.Model
		}
	}
	if c := LookupCost(ev.Model); c != nil {
		ev.CostUSD = c.Cost(ev.InputTokens, ev.OutputTokens)
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
		r.log.Warn("llm request failed",
			"provider", ev.Provider, "model", ev.Model, "purpose", ev.Purpose,
			"latency_ms", ev.LatencyMs, "error", err)
	} else {
		r.log.Debug("llm request",
			"provider", ev.Provider, "model", ev.Model, "purpose", ev.Purpose,
			"input", ev.InputTokens, "output", ev.OutputTokens,
			"latency_ms", ev.LatencyMs, "cost_usd", ev.CostUSD)
	}

	if r.events != nil {
		// A failed append never fails the request.
		if logErr := r.events.AppendLLMRequest(context.WithoutCancel(ctx), ev); logErr != nil {
			r.log.Warn("record llm request", "error", logErr)
		}
	}
	return resp, err
}

func (r *Recorder) ModelID() string { return r.inner.ModelID() }

// TimeoutProvider bounds each Generate call.
type TimeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

func WithTimeout(p Provider, d time.Duration) Provider {
	return &TimeoutProvider{inner: p, timeout: d}
}

func (t *TimeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, req)
}

func (t *TimeoutProvider) ModelID() string { return t.inner.ModelID() }
