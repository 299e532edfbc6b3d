package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/svcaudit/vigil/internal/rules"
)

// LoadCategoryRules reads enabled keyword rules from the database. The
// keyword, pattern, and exclusion columns are jsonb string arrays.
func (s *Store) LoadCategoryRules(ctx context.Context) ([]rules.CategoryRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT category_key, keywords, patterns, COALESCE(exclusions, '[]'), weight, risk_level
		FROM keyword_rules
		WHERE enabled
		ORDER BY category_key`)
	if err != nil {
		return nil, fmt.Errorf("query keyword rules: %w", err)
	}
	defer rows.Close()

	var defs []rules.CategoryRule
	for rows.Next() {
		var def rules.CategoryRule
		var keywords, patterns, exclusions []byte
		if err := rows.Scan(&def.Key, &keywords, &patterns, &exclusions, &def.Weight, &def.RiskLevel); err != nil {
			return nil, fmt.Errorf("scan keyword rule: %w", err)
		}
		if err := json.Unmarshal(keywords, &def.Keywords); err != nil {
			return nil, fmt.Errorf("unmarshal keywords for %s: %w", def.Key, err)
		}
		if err := json.Unmarshal(patterns, &def.Patterns); err != nil {
			return nil, fmt.Errorf("unmarshal patterns for %s: %w", def.Key, err)
		}
		if err := json.Unmarshal(exclusions, &def.Exclusions); err != nil {
			return nil, fmt.Errorf("unmarshal exclusions for %s: %w", def.Key, err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}
