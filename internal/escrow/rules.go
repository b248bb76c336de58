package escrow

import (
	"context"

	"github.com/fixlinkhq/fixlink/internal/commission"
	"github.com/fixlinkhq/fixlink/internal/config"
	"github.com/fixlinkhq/fixlink/internal/db"
)

// loadCommissionRules reads the configured rule set. Small table, read per
// payment; audit reproducibility comes from the split being frozen on the
// payment row, not from caching rules.
func loadCommissionRules(ctx context.Context) ([]commission.Rule, error) {
	rows, err := db.Conn.Query(ctx, `SELECT scope, key, type, value FROM commission_rules`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []commission.Rule
	for rows.Next() {
		var r commission.Rule
		if err := rows.Scan(&r.Scope, &r.Key, &r.Type, &r.Value); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// resolveRule applies precedence and falls back to the env default when the
// table has no match at all.
func resolveRule(rules []commission.Rule, category, region, dealerID string) commission.Rule {
	if r, ok := commission.Resolve(rules, category, region, dealerID); ok {
		return r
	}
	return commission.Rule{
		Scope: commission.ScopeGlobal,
		Type:  commission.TypePercentage,
		Value: config.DefaultCommissionPercent() * 100,
	}
}
