package scenario

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/phishshift/internal/difficulty"
	"github.com/abhisek/phishshift/internal/outcome"
)

// Channel is the medium a message arrives through.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelCall  Channel = "call"
	ChannelChat  Channel = "chat"
)

// AllChannels returns all channels in display order.
func AllChannels() []Channel {
	return []Channel{ChannelEmail, ChannelSMS, ChannelCall, ChannelChat}
}

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelCall, ChannelChat:
		return true
	}
	return false
}

// Scenario is the immutable fact sheet for one simulated message.
type Scenario struct {
	ID      string  `yaml:"id" json:"id"`
	Channel Channel `yaml:"channel" json:"channel"`
	Title   string  `yaml:"title" json:"title"`
	Sender  string  `yaml:"sender" json:"sender"`
	Subject string  `yaml:"subject,omitempty" json:"subject,omitempty"`
	Body    string  `yaml:"body" json:"body"`

	Legitimacy     outcome.Legitimacy `yaml:"legitimacy" json:"legitimacy"`
	CorrectAction  outcome.Action     `yaml:"correct_action" json:"correct_action"`
	AttackFamily   string             `yaml:"attack_family,omitempty" json:"attack_family,omitempty"`
	Cues           []string           `yaml:"cues" json:"cues"`
	PremiseFactors []string           `yaml:"premise_factors,omitempty" json:"premise_factors,omitempty"`

	ChainID        string         `yaml:"chain_id,omitempty" json:"chain_id,omitempty"`
	ChainOrder     int            `yaml:"chain_order,omitempty" json:"chain_order,omitempty"`
	ChainName      string         `yaml:"chain_name,omitempty" json:"chain_name,omitempty"`
	PreviousAction outcome.Action `yaml:"previous_action,omitempty" json:"previous_action,omitempty"`

	// DifficultyScore is set by Ingest and never edited by hand.
	DifficultyScore int    `yaml:"difficulty_score,omitempty" json:"difficulty_score,omitempty"`
	Explanation     string `yaml:"explanation,omitempty" json:"explanation,omitempty"`
}

// Facts returns the ground truth the outcome engine classifies against.
func (s Scenario) Facts() outcome.Facts {
	return outcome.Facts{Legitimacy: s.Legitimacy, CorrectAction: s.CorrectAction}
}

// IsStartable reports whether s may open a shift. Follow-up chain steps
// only arrive through the chain machine.
func (s Scenario) IsStartable() bool {
	return s.ChainOrder <= 1
}

// InChain reports whether s belongs to a chain.
func (s Scenario) InChain() bool { return s.ChainID != "" }

// HasCueContaining reports whether any cue label contains sub,
// case-insensitively.
func (s Scenario) HasCueContaining(sub string) bool {
	sub = strings.ToLower(sub)
	for _, c := range s.Cues {
		if strings.Contains(strings.ToLower(c), sub) {
			return true
		}
	}
	return false
}

// Ingest returns s with its difficulty computed from its cues. Calling it
// again on the result yields the same score.
func Ingest(s Scenario) Scenario {
	s.DifficultyScore = difficulty.Score(s.Cues, s.PremiseFactors)
	return s
}

// Validate checks one scenario in isolation. Returns a combined error
// describing all problems found, or nil if valid.
func (s Scenario) Validate() error {
	var errs []string

	if strings.TrimSpace(s.ID) == "" {
		errs = append(errs, "id is required")
	}
	if !s.Channel.Valid() {
		errs = append(errs, fmt.Sprintf("unknown channel %q", s.Channel))
	}
	if strings.TrimSpace(s.Body) == "" {
		errs = append(errs, "body is required")
	}
	if !s.Legitimacy.Valid() {
		errs = append(errs, fmt.Sprintf("unknown legitimacy %q", s.Legitimacy))
	}
	if !s.CorrectAction.Valid() {
		errs = append(errs, fmt.Sprintf("unknown correct_action %q", s.CorrectAction))
	}
	if s.Legitimacy.IsMalicious() && len(s.Cues) == 0 {
		errs = append(errs, "malicious scenario needs at least one cue")
	}
	if s.Legitimacy.IsMalicious() && s.CorrectAction == outcome.ActionProceed {
		errs = append(errs, "malicious scenario cannot have proceed as correct action")
	}

	seen := make(map[string]bool, len(s.Cues))
	for _, c := range s.Cues {
		key := strings.ToLower(strings.TrimSpace(c))
		if key == "" {
			errs = append(errs, "empty cue label")
			continue
		}
		if seen[key] {
			errs = append(errs, fmt.Sprintf("duplicate cue %q", c))
		}
		seen[key] = true
	}

	switch {
	case s.ChainID == "" && (s.ChainOrder != 0 || s.PreviousAction != ""):
		errs = append(errs, "chain_order and previous_action require chain_id")
	case s.ChainID != "" && s.ChainOrder < 1:
		errs = append(errs, "chain_order must be >= 1 when chain_id is set")
	case s.ChainOrder == 1 && s.PreviousAction != "":
		errs = append(errs, "the first step of a chain has no previous_action")
	case s.ChainOrder > 1 && !s.PreviousAction.Valid():
		errs = append(errs, fmt.Sprintf("chain step %d needs a valid previous_action, got %q", s.ChainOrder, s.PreviousAction))
	}

	if len(errs) > 0 {
		return fmt.Errorf("scenario %q: %s", s.ID, strings.Join(errs, "; "))
	}
	return nil
}

// ValidateSet checks a whole content set: each scenario plus unique ids
// and chains that have a first step.
func ValidateSet(list []Scenario) error {
	var errs []error

	ids := make(map[string]bool, len(list))
	firstSteps := make(map[string]bool)
	chains := make(map[string]bool)
	for _, s := range list {
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
		}
		if ids[s.ID] {
			errs = append(errs, fmt.Errorf("duplicate scenario id %q", s.ID))
		}
		ids[s.ID] = true
		if s.ChainID != "" {
			chains[s.ChainID] = true
			if s.ChainOrder == 1 {
				firstSteps[s.ChainID] = true
			}
		}
	}
	for id := range chains {
		if !firstSteps[id] {
			errs = append(errs, fmt.Errorf("chain %q has no step with chain_order 1", id))
		}
	}

	return errors.Join(errs...)
}
