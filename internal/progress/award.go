package progress

type decisionContext struct {
	after    Progress
	decision Decision
	facts    derived
}

type badgeRule struct {
	badge BadgeID
	fires func(ctx decisionContext, requirement int) bool
}

// decisionRules are checked in order after every decision. perfect_shift
// is evaluated at shift completion instead.
var decisionRules = []badgeRule{
	{
		badge: BadgeDomainDetective,
		fires: func(c decisionContext, req int) bool {
			return c.facts.correct &&
				c.decision.Scenario.HasCueContaining("domain") &&
				c.after.CorrectDecisions >= req
		},
	},
	{
		badge: BadgeVerificationPro,
		fires: func(c decisionContext, req int) bool {
			return c.decision.Result.UsedVerification &&
				c.facts.malicious &&
				c.after.TotalDecisions >= req
		},
	},
	{
		badge: BadgeBECBlocker,
		fires: func(c decisionContext, req int) bool {
			return c.facts.correct &&
				c.decision.Scenario.AttackFamily == "bec" &&
				c.after.CorrectDecisions >= req
		},
	},
	{
		badge: BadgeUrgencyImmune,
		fires: func(c decisionContext, req int) bool {
			return c.facts.correct &&
				c.decision.Scenario.HasCueContaining("urgency") &&
				c.after.CorrectDecisions >= req
		},
	},
	{
		badge: BadgeStreakMaster,
		fires: func(c decisionContext, req int) bool {
			return c.after.CurrentStreak >= req
		},
	},
}

// DecisionRules lists the per-decision badge checks in evaluation order.
func DecisionRules() []BadgeID {
	out := make([]BadgeID, len(decisionRules))
	for i, r := range decisionRules {
		out[i] = r.badge
	}
	return out
}

// evaluate appends newly earned badges to p and returns them. A badge
// already held never fires again.
func evaluate(p *Progress, c decisionContext) []Badge {
	var earned []Badge
	for _, r := range decisionRules {
		if p.HasBadge(r.badge) {
			continue
		}
		b, ok := LookupBadge(r.badge)
		if !ok {
			continue
		}
		if r.fires(c, b.Requirement) {
			p.EarnedBadges = append(p.EarnedBadges, b.ID)
			earned = append(earned, b)
		}
	}
	return earned
}

// CheckBadges re-runs the per-decision badge checks for d against p
// without counting the decision again. Used to backfill awards after a
// catalog change.
func CheckBadges(p Progress, d Decision) (Progress, []Badge) {
	next := p.clone()
	earned := evaluate(&next, decisionContext{after: next, decision: d, facts: derive(d)})
	return next, earned
}
