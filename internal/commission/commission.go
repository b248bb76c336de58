package commission

// Platform commission math. All money is in integer minor units (kobo,
// cents); no floats anywhere so a payment audit can replay any split and
// get the identical result.

// Type says how a rule's value is interpreted.
type Type string

const (
	// TypePercentage uses Value as basis points (1500 = 15%).
	TypePercentage Type = "percentage"
	// TypeFlat uses Value as a fixed fee in minor units.
	TypeFlat Type = "flat"
)

// Scope orders rule precedence: dealer overrides beat region rules, which
// beat category defaults, which beat the global default.
type Scope string

const (
	ScopeDealer   Scope = "dealer"
	ScopeRegion   Scope = "region"
	ScopeCategory Scope = "category"
	ScopeGlobal   Scope = "global"
)

// Rule is one configured commission rule. Key is the dealer id, region code
// or category name the rule applies to; empty for global rules.
type Rule struct {
	Scope Scope  `json:"scope"`
	Key   string `json:"key"`
	Type  Type   `json:"type"`
	Value int64  `json:"value"`
}

// Breakdown is the committed split for one payment.
type Breakdown struct {
	Type             Type  `json:"commission_type"`
	Value            int64 `json:"commission_value"`
	CommissionAmount int64 `json:"commission_amount"`
	NetAmount        int64 `json:"net_amount"`
}

// Resolve picks the applicable rule for a job from the configured set.
// The second return is false when nothing matched and the caller should
// fall back to the global default percentage.
func Resolve(rules []Rule, category, region, dealerID string) (Rule, bool) {
	var byScope [4]*Rule
	for i := range rules {
		r := &rules[i]
		switch r.Scope {
		case ScopeDealer:
			if r.Key == dealerID && dealerID != "" {
				byScope[0] = r
			}
		case ScopeRegion:
			if r.Key == region && region != "" {
				byScope[1] = r
			}
		case ScopeCategory:
			if r.Key == category && category != "" {
				byScope[2] = r
			}
		case ScopeGlobal:
			byScope[3] = r
		}
	}
	for _, r := range byScope {
		if r != nil {
			return *r, true
		}
	}
	return Rule{}, false
}

// Calculate splits jobAmount under rule. It never fails on numeric input:
// the commission is clamped into [0, jobAmount] so commission + net always
// reconstructs the gross exactly. Percentage commissions round half-up to
// the nearest minor unit.
func Calculate(jobAmount int64, rule Rule) Breakdown {
	if jobAmount < 0 {
		jobAmount = 0
	}
	var fee int64
	switch rule.Type {
	case TypeFlat:
		fee = rule.Value
	default:
		bps := rule.Value
		if bps < 0 {
			bps = 0
		}
		fee = (jobAmount*bps + 5000) / 10000
	}
	if fee < 0 {
		fee = 0
	}
	if fee > jobAmount {
		fee = jobAmount
	}
	return Breakdown{
		Type:             rule.Type,
		Value:            rule.Value,
		CommissionAmount: fee,
		NetAmount:        jobAmount - fee,
	}
}

// SplitHold carves the warranty-hold slice out of a net payout.
// holdPercent is a whole percentage (10 = 10%); the immediate payout gets
// whatever rounding leaves over so the two always sum to net.
func SplitHold(netAmount, holdPercent int64) (immediate, hold int64) {
	if netAmount <= 0 {
		return 0, 0
	}
	if holdPercent < 0 {
		holdPercent = 0
	}
	if holdPercent > 100 {
		holdPercent = 100
	}
	hold = (netAmount*holdPercent + 50) / 100
	if hold > netAmount {
		hold = netAmount
	}
	return netAmount - hold, hold
}
