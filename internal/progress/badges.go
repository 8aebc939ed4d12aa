package progress

// BadgeID identifies a one-time achievement.
type BadgeID string

const (
	BadgeDomainDetective BadgeID = "domain_detective"
	BadgeVerificationPro BadgeID = "verification_pro"
	BadgeBECBlocker      BadgeID = "bec_blocker"
	BadgeUrgencyImmune   BadgeID = "urgency_immune"
	BadgeStreakMaster    BadgeID = "streak_master"
	BadgePerfectShift    BadgeID = "perfect_shift"
)

// Badge is a catalog entry. Requirement is the counter threshold the
// badge's predicate compares against with >=.
type Badge struct {
	ID          BadgeID
	Name        string
	Description string
	Requirement int
}

// Icon returns the display icon for the badge.
func (b Badge) Icon() string {
	switch b.ID {
	case BadgeDomainDetective:
		return "🔍"
	case BadgeVerificationPro:
		return "📞"
	case BadgeBECBlocker:
		return "🛡️"
	case BadgeUrgencyImmune:
		return "⏱️"
	case BadgeStreakMaster:
		return "⚡"
	case BadgePerfectShift:
		return "🏆"
	default:
		return "✦"
	}
}

var catalog = []Badge{
	{
		ID:          BadgeDomainDetective,
		Name:        "Domain Detective",
		Description: "Correctly handle a domain-spoofing message after 5 correct decisions",
		Requirement: 5,
	},
	{
		ID:          BadgeVerificationPro,
		Name:        "Verification Pro",
		Description: "Verify a malicious message out of band after 3 decisions",
		Requirement: 3,
	},
	{
		ID:          BadgeBECBlocker,
		Name:        "BEC Blocker",
		Description: "Stop a business email compromise after 3 correct decisions",
		Requirement: 3,
	},
	{
		ID:          BadgeUrgencyImmune,
		Name:        "Urgency Immune",
		Description: "Keep your head under time pressure after 5 correct decisions",
		Requirement: 5,
	},
	{
		ID:          BadgeStreakMaster,
		Name:        "Streak Master",
		Description: "Make 10 correct decisions in a row",
		Requirement: 10,
	},
	{
		ID:          BadgePerfectShift,
		Name:        "Perfect Shift",
		Description: "Finish a shift with every decision correct and no incidents",
		Requirement: 1,
	},
}

var byID map[BadgeID]Badge

func init() {
	byID = make(map[BadgeID]Badge, len(catalog))
	for _, b := range catalog {
		byID[b.ID] = b
	}
}

// Catalog returns every badge in display order.
func Catalog() []Badge {
	out := make([]Badge, len(catalog))
	copy(out, catalog)
	return out
}

// LookupBadge returns the catalog entry for id.
func LookupBadge(id BadgeID) (Badge, bool) {
	b, ok := byID[id]
	return b, ok
}
