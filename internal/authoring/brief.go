// Package authoring drafts new scenarios with a language model. Drafts are
// checked against the cue catalog and the scenario rules and are scored
// the same way imported content is.
package authoring

import (
	"fmt"
	"strings"

	"github.com/abhisek/phishshift/internal/apperr"
	"github.com/abhisek/phishshift/internal/difficulty"
	"github.com/abhisek/phishshift/internal/outcome"
	"github.com/abhisek/phishshift/internal/scenario"
)

// Brief is what the author asks for.
type Brief struct {
	// ID of the new scenario. Generated when empty.
	ID string

	Channel      scenario.Channel
	Legitimacy   outcome.Legitimacy
	AttackFamily string

	// Audience describes the recipient, e.g. "accounts payable clerk".
	Audience string

	// TargetDifficulty in [1,5]. Zero means any.
	TargetDifficulty int

	// Chain placement. ChainOrder > 1 needs PreviousAction.
	ChainID        string
	ChainName      string
	ChainOrder     int
	PreviousAction outcome.Action

	// Avoid lists titles already in the catalog.
	Avoid []string

	// Notes is free text passed to the model.
	Notes string
}

// Validate rejects briefs that could never produce a valid scenario.
func (b Brief) Validate() error {
	switch {
	case !b.Channel.Valid():
		return apperr.New(apperr.KindInvalidInput, "channel", b.Channel)
	case !b.Legitimacy.Valid():
		return apperr.New(apperr.KindInvalidInput, "legitimacy", b.Legitimacy)
	case b.TargetDifficulty != 0 && (b.TargetDifficulty < difficulty.Min || b.TargetDifficulty > difficulty.Max):
		return apperr.New(apperr.KindInvalidInput, "target_difficulty", b.TargetDifficulty)
	case b.ChainID == "" && b.ChainOrder != 0:
		return apperr.New(apperr.KindInvalidInput, "chain_order", b.ChainOrder)
	case b.ChainID != "" && b.ChainOrder < 1:
		return apperr.New(apperr.KindInvalidInput, "chain_order", b.ChainOrder)
	case b.ChainOrder > 1 && !b.PreviousAction.Valid():
		return apperr.New(apperr.KindInvalidInput, "previous_action", b.PreviousAction)
	case b.ChainOrder <= 1 && b.PreviousAction != "":
		return apperr.New(apperr.KindInvalidInput, "previous_action", b.PreviousAction)
	}
	return nil
}

// ParseChannel accepts a channel name in any case.
func ParseChannel(s string) (scenario.Channel, error) {
	c := scenario.Channel(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: channel %q", apperr.ErrInvalidInput, s)
	}
	return c, nil
}

// ParseLegitimacy accepts "legitimate", "suspicious_legitimate" (or
// "suspicious-legitimate") and "malicious".
func ParseLegitimacy(s string) (outcome.Legitimacy, error) {
	l := outcome.Legitimacy(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !l.Valid() {
		return "", fmt.Errorf("%w: legitimacy %q", apperr.ErrInvalidInput, s)
	}
	return l, nil
}
