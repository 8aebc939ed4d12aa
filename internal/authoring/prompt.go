package authoring

import (
	"fmt"
	"strings"

	"github.com/abhisek/phishshift/internal/cues"
	"github.com/abhisek/phishshift/internal/outcome"
)

const systemPrompt = `You write realistic workplace messages for a phishing-awareness training game.

Rules:
- Produce exactly one message for the requested channel and legitimacy.
- Never include working links, real phone numbers or real people. Use example.com style domains.
- List in "cues" every observable indicator a careful reader could notice, using catalog labels verbatim. Do not invent labels.
- A malicious message needs at least one cue and its correct action is never "proceed".
- A legitimate message that merely looks odd should still carry the cues that make it look odd.
- "verify" means checking through an independent channel. Use it when the request could be real but must be confirmed.
- The explanation speaks to the learner in two or three sentences and names the decisive cues.`

// userMessage renders the brief plus the catalog the model must draw from.
func userMessage(b Brief, maxAvoid int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Channel: %s\n", b.Channel)
	fmt.Fprintf(&sb, "Legitimacy: %s\n", b.Legitimacy)
	fmt.Fprintf(&sb, "Actions: %s\n", actionList())
	if b.AttackFamily != "" {
		fmt.Fprintf(&sb, "Attack family: %s\n", b.AttackFamily)
	}
	if b.Audience != "" {
		fmt.Fprintf(&sb, "Recipient: %s\n", b.Audience)
	}
	if b.TargetDifficulty > 0 {
		fmt.Fprintf(&sb, "Target difficulty: %d of 5 (%s)\n", b.TargetDifficulty, difficultyHint(b.TargetDifficulty))
	}
	if b.ChainID != "" {
		name := b.ChainName
		if name == "" {
			name = b.ChainID
		}
		fmt.Fprintf(&sb, "Chain: %s, step %d\n", name, b.ChainOrder)
		if b.ChainOrder > 1 {
			fmt.Fprintf(&sb, "This message follows the recipient choosing %q on the previous step.\n", b.PreviousAction)
		}
	}
	if b.Notes != "" {
		fmt.Fprintf(&sb, "Notes: %s\n", b.Notes)
	}

	sb.WriteString("\nCue catalog (label: weight, description):\n")
	for _, cat := range cues.AllCategories() {
		list := cues.ByCategory(cat)
		if len(list) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "%s\n", cat.DisplayName())
		for _, c := range list {
			fmt.Fprintf(&sb, "- %s: %s, %s\n", c.Label, weightName(c.Weight), c.Description)
		}
	}

	sb.WriteString("\nPremise-alignment factors:\n")
	for _, p := range cues.AllPremises() {
		fmt.Fprintf(&sb, "- %s\n", p.Label)
	}

	sb.WriteString("\nTitles already used:\n")
	sb.WriteString(numbered(b.Avoid, maxAvoid))
	return sb.String()
}

// fixMessage asks the model to repair a rejected draft.
func fixMessage(reason string) string {
	return fmt.Sprintf("That draft was rejected: %s\nReturn a corrected draft. Keep everything that was not wrong.", reason)
}

func weightName(w cues.Weight) string {
	switch w {
	case cues.WeightObvious:
		return "obvious"
	case cues.WeightSubtle:
		return "subtle"
	default:
		return "moderate"
	}
}

func difficultyHint(level int) string {
	switch {
	case level <= 1:
		return "several obvious cues"
	case level == 2:
		return "a couple of obvious cues"
	case level == 3:
		return "mostly moderate cues"
	case level == 4:
		return "subtle cues, some premise alignment"
	default:
		return "only subtle cues and strong premise alignment"
	}
}

// numbered keeps the last max items. max <= 0 keeps everything.
func numbered(items []string, max int) string {
	if len(items) == 0 {
		return "None"
	}
	if max > 0 && len(items) > max {
		items = items[len(items)-max:]
	}
	var sb strings.Builder
	for i, it := range items {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, it)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func actionList() string {
	acts := outcome.AllActions()
	out := make([]string, len(acts))
	for i, a := range acts {
		out[i] = string(a)
	}
	return strings.Join(out, ", ")
}
