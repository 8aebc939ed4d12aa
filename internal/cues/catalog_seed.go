package cues

// seedCues is the cue catalog, weighted after the NIST Phish Scale:
// 1 = obvious, 2 = moderate, 3 = subtle.
var seedCues = []Cue{
	// Sender (6)
	{
		Label:       "suspicious domain",
		Weight:      WeightObvious,
		Category:    CategorySender,
		Description: "Sender domain is unrelated to the organisation it claims to be",
	},
	{
		Label:       "free webmail sender",
		Weight:      WeightObvious,
		Category:    CategorySender,
		Description: "Corporate request sent from a consumer mailbox",
	},
	{
		Label:       "display name mismatch",
		Weight:      WeightModerate,
		Category:    CategorySender,
		Description: "Display name and underlying address disagree",
	},
	{
		Label:       "unknown caller id",
		Weight:      WeightModerate,
		Category:    CategorySender,
		Description: "Call or SMS from a number not on record for the claimed sender",
	},
	{
		Label:       "look-alike domain",
		Weight:      WeightSubtle,
		Category:    CategorySender,
		Description: "Domain differs from the real one by a character swap or homoglyph",
	},
	{
		Label:       "spoofed internal name",
		Weight:      WeightSubtle,
		Category:    CategorySender,
		Description: "Uses the name of a real colleague or executive",
	},

	// Content (6)
	{
		Label:       "urgent language",
		Weight:      WeightObvious,
		Category:    CategoryContent,
		Description: "Pushes for immediate action with deadlines or threats",
	},
	{
		Label:       "generic greeting",
		Weight:      WeightObvious,
		Category:    CategoryContent,
		Description: "Addresses the recipient as customer, user, or similar",
	},
	{
		Label:       "spelling errors",
		Weight:      WeightObvious,
		Category:    CategoryContent,
		Description: "Typos and grammar mistakes a real sender would not make",
	},
	{
		Label:       "too good to be true",
		Weight:      WeightObvious,
		Category:    CategoryContent,
		Description: "Prizes, refunds, or rewards the recipient did not expect",
	},
	{
		Label:       "tone mismatch",
		Weight:      WeightModerate,
		Category:    CategoryContent,
		Description: "Writing style does not match the supposed sender",
	},
	{
		Label:       "subtle urgency",
		Weight:      WeightSubtle,
		Category:    CategoryContent,
		Description: "Polite time pressure that reads as routine",
	},

	// Links & attachments (5)
	{
		Label:       "mismatched link",
		Weight:      WeightModerate,
		Category:    CategoryLink,
		Description: "Visible link text differs from the actual target",
	},
	{
		Label:       "shortened url",
		Weight:      WeightModerate,
		Category:    CategoryLink,
		Description: "Link hides its destination behind a shortener",
	},
	{
		Label:       "unexpected attachment",
		Weight:      WeightModerate,
		Category:    CategoryLink,
		Description: "Attachment the recipient did not ask for",
	},
	{
		Label:       "macro-enabled attachment",
		Weight:      WeightObvious,
		Category:    CategoryLink,
		Description: "Office document that asks to enable content",
	},
	{
		Label:       "lookalike login page",
		Weight:      WeightSubtle,
		Category:    CategoryLink,
		Description: "Credential page that copies the real one closely",
	},

	// Request (6)
	{
		Label:       "credential request",
		Weight:      WeightObvious,
		Category:    CategoryRequest,
		Description: "Asks for a password, PIN, or one-time code",
	},
	{
		Label:       "payment change request",
		Weight:      WeightModerate,
		Category:    CategoryRequest,
		Description: "Asks to change bank details for an invoice or payroll",
	},
	{
		Label:       "gift card request",
		Weight:      WeightObvious,
		Category:    CategoryRequest,
		Description: "Asks the recipient to buy gift cards",
	},
	{
		Label:       "secrecy request",
		Weight:      WeightModerate,
		Category:    CategoryRequest,
		Description: "Asks the recipient not to tell anyone",
	},
	{
		Label:       "mfa fatigue prompt",
		Weight:      WeightModerate,
		Category:    CategoryRequest,
		Description: "Repeated approval prompts the recipient did not trigger",
	},
	{
		Label:       "plausible invoice",
		Weight:      WeightSubtle,
		Category:    CategoryRequest,
		Description: "Invoice that matches a real supplier and amount range",
	},

	// Context (5)
	{
		Label:       "unusual timing",
		Weight:      WeightModerate,
		Category:    CategoryContext,
		Description: "Sent outside normal hours or just before a holiday",
	},
	{
		Label:       "channel switch",
		Weight:      WeightModerate,
		Category:    CategoryContext,
		Description: "Moves the conversation to SMS, chat, or a personal number",
	},
	{
		Label:       "reply-chain hijack",
		Weight:      WeightSubtle,
		Category:    CategoryContext,
		Description: "Injected into a real, ongoing thread",
	},
	{
		Label:       "authority pressure",
		Weight:      WeightModerate,
		Category:    CategoryContext,
		Description: "Leans on seniority to skip normal checks",
	},
	{
		Label:       "domain registered recently",
		Weight:      WeightSubtle,
		Category:    CategoryContext,
		Description: "Sending domain is only days old",
	},
}

// seedPremises are the premise-alignment factors. Each adds its weight to
// the premise bonus; every two points raise difficulty by one level.
var seedPremises = []Premise{
	{Label: "uses correct branding", Weight: 1},
	{Label: "references real recent event", Weight: 1},
	{Label: "matches recipient role", Weight: 1},
	{Label: "shows internal-process knowledge", Weight: 2},
	{Label: "continues existing conversation", Weight: 2},
}
