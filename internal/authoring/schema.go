package authoring

import (
	"github.com/abhisek/phishshift/internal/llm"
)

// draftOutput is what the model returns before it is checked.
type draftOutput struct {
	Title          string   `json:"title"`
	Sender         string   `json:"sender"`
	Subject        string   `json:"subject,omitempty"`
	Body           string   `json:"body"`
	CorrectAction  string   `json:"correct_action"`
	AttackFamily   string   `json:"attack_family,omitempty"`
	Cues           []string `json:"cues"`
	PremiseFactors []string `json:"premise_factors,omitempty"`
	Explanation    string   `json:"explanation"`
}

// DraftSchema constrains the model output. Cue labels are checked against
// the catalog after decoding so that a wrong label can be fed back to the
// model.
var DraftSchema = &llm.Schema{
	Name:        "phishing-scenario-draft",
	Description: "One simulated workplace message for phishing-awareness training",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Short internal title for content authors",
			},
			"sender": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Sender as the recipient sees it: address, phone number or chat handle",
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Subject line. Empty for calls, SMS and chat",
			},
			"body": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Full message text, or a call transcript for the call channel",
			},
			"correct_action": map[string]any{
				"type":        "string",
				"enum":        []any{"report", "delete", "verify", "proceed"},
				"description": "The single best action for the recipient",
			},
			"attack_family": map[string]any{
				"type":        "string",
				"description": "Attack family such as bec, credential-harvest or vishing. Empty for legitimate messages",
			},
			"cues": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Observable indicators, using only labels from the catalog",
			},
			"premise_factors": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Premise-alignment factors from the catalog",
			},
			"explanation": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Debrief shown to the learner after they decide",
			},
		},
		"required":             []any{"title", "sender", "body", "correct_action", "cues", "explanation"},
		"additionalProperties": false,
	},
}
