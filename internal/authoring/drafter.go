package authoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/abhisek/phishshift/internal/cues"
	"github.com/abhisek/phishshift/internal/difficulty"
	"github.com/abhisek/phishshift/internal/llm"
	"github.com/abhisek/phishshift/internal/logging"
	"github.com/abhisek/phishshift/internal/outcome"
	"github.com/abhisek/phishshift/internal/scenario"
)

// Purpose labels drafting requests in the LLM request log.
const Purpose = "scenario-draft"

// Config tunes a Drafter.
type Config struct {
	Validators  []Validator
	MaxTokens   int
	Temperature float64

	// Rounds is how many times the model may be asked, counting repairs
	// after a retryable rejection.
	Rounds int

	// MaxAvoid caps the titles listed as already used.
	MaxAvoid int

	Logger *logging.Logger
}

func DefaultConfig() Config {
	return Config{
		Validators:  DefaultValidators(),
		MaxTokens:   1500,
		Temperature: 0.8,
		Rounds:      3,
		MaxAvoid:    20,
	}
}

// Draft is an accepted scenario with its difficulty breakdown.
type Draft struct {
	Scenario  scenario.Scenario
	Breakdown difficulty.Report
	Rounds    int
}

// Drafter turns briefs into validated scenarios.
type Drafter struct {
	provider llm.Provider
	cfg      Config
	log      *logging.Logger
}

func New(p llm.Provider, cfg Config) *Drafter {
	if cfg.Rounds < 1 {
		cfg.Rounds = 1
	}
	if cfg.Validators == nil {
		cfg.Validators = DefaultValidators()
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Drafter{provider: p, cfg: cfg, log: log}
}

// Draft asks the model for a scenario matching b. A rejected draft is sent
// back with the reason until it passes or the rounds run out; the last
// rejection is returned as a *ValidationError.
func (d *Drafter) Draft(ctx context.Context, b Brief) (*Draft, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if b.ID == "" {
		b.ID = "draft-" + uuid.NewString()[:8]
	}
	ctx = llm.WithPurpose(ctx, Purpose)

	msgs := []llm.Message{{Role: llm.RoleUser, Content: userMessage(b, d.cfg.MaxAvoid)}}
	var lastErr *ValidationError
	for round := 1; round <= d.cfg.Rounds; round++ {
		resp, err := d.provider.Generate(ctx, llm.Request{
			System:      systemPrompt,
			Messages:    msgs,
			Schema:      DraftSchema,
			MaxTokens:   d.cfg.MaxTokens,
			Temperature: d.cfg.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("draft %s: %w", b.ID, err)
		}

		var out draftOutput
		if err := json.Unmarshal(resp.Content, &out); err != nil {
			return nil, fmt.Errorf("draft %s: decode model output: %w", b.ID, err)
		}

		s := compose(b, out)
		verr := d.check(s, b)
		if verr == nil {
			d.log.Info("scenario drafted", "id", s.ID, "difficulty", s.DifficultyScore, "rounds", round)
			return &Draft{
				Scenario:  s,
				Breakdown: difficulty.Breakdown(s.Cues, s.PremiseFactors),
				Rounds:    round,
			}, nil
		}

		lastErr = verr
		d.log.Warn("draft rejected", "id", b.ID, "round", round, "validator", verr.Validator, "reason", verr.Message)
		if !verr.Retryable {
			break
		}
		msgs = append(msgs,
			llm.Message{Role: llm.RoleAssistant, Content: string(resp.Content)},
			llm.Message{Role: llm.RoleUser, Content: fixMessage(verr.Message)},
		)
	}
	return nil, lastErr
}

func (d *Drafter) check(s scenario.Scenario, b Brief) *ValidationError {
	for _, v := range d.cfg.Validators {
		if err := v.Validate(s, b); err != nil {
			return err
		}
	}
	return nil
}

// compose merges the brief's fixed facts with the model's text and scores
// the result. Known labels are rewritten to their catalog spelling.
func compose(b Brief, out draftOutput) scenario.Scenario {
	s := scenario.Scenario{
		ID:             b.ID,
		Channel:        b.Channel,
		Title:          strings.TrimSpace(out.Title),
		Sender:         strings.TrimSpace(out.Sender),
		Subject:        strings.TrimSpace(out.Subject),
		Body:           strings.TrimSpace(out.Body),
		Legitimacy:     b.Legitimacy,
		CorrectAction:  outcome.Action(strings.ToLower(strings.TrimSpace(out.CorrectAction))),
		AttackFamily:   b.AttackFamily,
		Cues:           canonicalCues(out.Cues),
		PremiseFactors: canonicalPremises(out.PremiseFactors),
		ChainID:        b.ChainID,
		ChainOrder:     b.ChainOrder,
		ChainName:      b.ChainName,
		PreviousAction: b.PreviousAction,
		Explanation:    strings.TrimSpace(out.Explanation),
	}
	if s.AttackFamily == "" && b.Legitimacy.IsMalicious() {
		s.AttackFamily = strings.TrimSpace(out.AttackFamily)
	}
	return scenario.Ingest(s)
}

func canonicalCues(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if c, ok := cues.Lookup(l); ok {
			out = append(out, c.Label)
			continue
		}
		out = append(out, strings.TrimSpace(l))
	}
	return out
}

func canonicalPremises(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if p, ok := cues.LookupPremise(l); ok {
			out = append(out, p.Label)
			continue
		}
		out = append(out, strings.TrimSpace(l))
	}
	return out
}

// IsRejected reports whether err is a draft rejection rather than a
// provider failure.
func IsRejected(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
