package scenario

// packSchema is the JSON schema a content pack must satisfy before it is
// decoded. Cross-field rules live in Validate.
var packSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"version": map[string]any{
			"type": "integer",
		},
		"scenarios": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items":    scenarioSchema,
		},
	},
	"required":             []any{"scenarios"},
	"additionalProperties": false,
}

var scenarioSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"id":      map[string]any{"type": "string", "minLength": 1},
		"channel": map[string]any{"type": "string", "enum": []any{"email", "sms", "call", "chat"}},
		"title":   map[string]any{"type": "string"},
		"sender":  map[string]any{"type": "string"},
		"subject": map[string]any{"type": "string"},
		"body":    map[string]any{"type": "string", "minLength": 1},
		"legitimacy": map[string]any{
			"type": "string",
			"enum": []any{"legitimate", "suspicious_legitimate", "malicious"},
		},
		"correct_action": map[string]any{
			"type": "string",
			"enum": []any{"report", "delete", "verify", "proceed"},
		},
		"attack_family": map[string]any{"type": "string"},
		"cues": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string", "minLength": 1},
			"uniqueItems": true,
		},
		"premise_factors": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"chain_id":    map[string]any{"type": "string"},
		"chain_order": map[string]any{"type": "integer", "minimum": 1},
		"chain_name":  map[string]any{"type": "string"},
		"previous_action": map[string]any{
			"type": "string",
			"enum": []any{"report", "delete", "verify", "proceed"},
		},
		"difficulty_score": map[string]any{"type": "integer", "minimum": 1, "maximum": 5},
		"explanation":      map[string]any{"type": "string"},
	},
	"required":             []any{"id", "channel", "body", "legitimacy", "correct_action", "cues"},
	"additionalProperties": false,
}

// Schema returns the JSON schema for a single scenario. Authoring tools use
// it to constrain generated drafts.
func Schema() map[string]any {
	return scenarioSchema
}
