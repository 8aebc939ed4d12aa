package authoring

import (
	"fmt"
	"strings"

	"github.com/abhisek/phishshift/internal/apperr"
	"github.com/abhisek/phishshift/internal/cues"
	"github.com/abhisek/phishshift/internal/scenario"
)

// Validator checks a composed, scored draft.
type Validator interface {
	Name() string
	Validate(s scenario.Scenario, b Brief) *ValidationError
}

// ValidationError says why a draft was rejected. Retryable errors are
// sent back to the model for another attempt.
type ValidationError struct {
	Validator string
	Message   string
	Retryable bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("draft rejected by %s: %s", e.Validator, e.Message)
}

// Unwrap lets errors.Is(err, apperr.ErrInvalidInput) match.
func (e *ValidationError) Unwrap() error { return apperr.ErrInvalidInput }

// DefaultValidators is the standard chain, run in order.
func DefaultValidators() []Validator {
	return []Validator{
		&StructuralValidator{MaxBody: 2000},
		&CatalogValidator{},
		&RulesValidator{},
		&DifficultyValidator{Tolerance: 1},
	}
}

// StructuralValidator checks lengths and channel conventions.
type StructuralValidator struct {
	MaxBody int
}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(s scenario.Scenario, _ Brief) *ValidationError {
	reject := func(msg string) *ValidationError {
		return &ValidationError{Validator: v.Name(), Message: msg, Retryable: true}
	}
	switch {
	case strings.TrimSpace(s.Title) == "":
		return reject("title is empty")
	case strings.TrimSpace(s.Sender) == "":
		return reject("sender is empty")
	case strings.TrimSpace(s.Body) == "":
		return reject("body is empty")
	case v.MaxBody > 0 && len(s.Body) > v.MaxBody:
		return reject(fmt.Sprintf("body is %d characters, limit is %d", len(s.Body), v.MaxBody))
	case s.Channel == scenario.ChannelEmail && strings.TrimSpace(s.Subject) == "":
		return reject("email needs a subject")
	case strings.TrimSpace(s.Explanation) == "":
		return reject("explanation is empty")
	}
	return nil
}

// CatalogValidator rejects cue and premise labels the catalog does not
// know. Unknown labels would silently score as moderate.
type CatalogValidator struct{}

func (v *CatalogValidator) Name() string { return "cue-catalog" }

func (v *CatalogValidator) Validate(s scenario.Scenario, _ Brief) *ValidationError {
	var unknown []string
	for _, c := range s.Cues {
		if !cues.Known(c) {
			unknown = append(unknown, fmt.Sprintf("cue %q", c))
		}
	}
	for _, p := range s.PremiseFactors {
		if _, ok := cues.LookupPremise(p); !ok {
			unknown = append(unknown, fmt.Sprintf("premise factor %q", p))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return &ValidationError{
		Validator: v.Name(),
		Message:   "unknown " + strings.Join(unknown, ", ") + "; use catalog labels only",
		Retryable: true,
	}
}

// RulesValidator applies the same checks an imported pack goes through.
type RulesValidator struct{}

func (v *RulesValidator) Name() string { return "rules" }

func (v *RulesValidator) Validate(s scenario.Scenario, _ Brief) *ValidationError {
	if err := s.Validate(); err != nil {
		return &ValidationError{Validator: v.Name(), Message: err.Error(), Retryable: true}
	}
	return nil
}

// DifficultyValidator checks the computed score against the brief's
// target, allowing Tolerance levels either way.
type DifficultyValidator struct {
	Tolerance int
}

func (v *DifficultyValidator) Name() string { return "difficulty" }

func (v *DifficultyValidator) Validate(s scenario.Scenario, b Brief) *ValidationError {
	if b.TargetDifficulty == 0 {
		return nil
	}
	diff := s.DifficultyScore - b.TargetDifficulty
	if diff < 0 {
		diff = -diff
	}
	if diff <= v.Tolerance {
		return nil
	}
	return &ValidationError{
		Validator: v.Name(),
		Message: fmt.Sprintf("cues score difficulty %d, wanted %d; %s",
			s.DifficultyScore, b.TargetDifficulty, difficultyHint(b.TargetDifficulty)),
		Retryable: true,
	}
}
