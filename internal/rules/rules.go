// Package rules holds the category rule model driving keyword screening:
// per-category keyword/pattern/exclusion collections with a weight and a
// risk-level tag, loaded from an external feed and cached with a TTL.
package rules

import (
	"fmt"
	"log/slog"
	"regexp"
)

// Risk levels attached to categories and verdicts.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// CategoryDeflection is the responsibility-deflection category. The
// fallback verdict and the merge escalation rule key on it specifically.
const CategoryDeflection = "推卸责任"

// CategoryRule is one category as delivered by the configuration feed.
type CategoryRule struct {
	Key        string   `yaml:"key" json:"key"`
	Keywords   []string `yaml:"keywords" json:"keywords"`
	Patterns   []string `yaml:"patterns" json:"patterns"`
	Exclusions []string `yaml:"exclusions" json:"exclusions"`
	Weight     float64  `yaml:"weight" json:"weight"`
	RiskLevel  string   `yaml:"risk_level" json:"risk_level"`
}

// Pattern pairs a compiled regex with its source text, so evidence entries
// can reference the pattern they matched.
type Pattern struct {
	Source string
	Regexp *regexp.Regexp
}

// Category is a compiled, ready-to-match rule.
type Category struct {
	Key        string
	Keywords   []string
	Patterns   []Pattern
	Exclusions []Pattern
	Weight     float64
	RiskLevel  string
}

// Compile turns rule definitions into matchable categories. A malformed
// regex skips that single pattern with a warning; the category keeps its
// remaining keywords and patterns. A bad rule never aborts the load.
func Compile(defs []CategoryRule, logger *slog.Logger) []Category {
	cats := make([]Category, 0, len(defs))
	for _, def := range defs {
		cat := Category{
			Key:       def.Key,
			Keywords:  def.Keywords,
			Weight:    def.Weight,
			RiskLevel: def.RiskLevel,
		}
		if cat.RiskLevel == "" {
			cat.RiskLevel = RiskMedium
		}
		for _, src := range def.Patterns {
			re, err := regexp.Compile(src)
			if err != nil {
				logger.Warn("skipping malformed category pattern",
					"category", def.Key,
					"pattern", src,
					"error", err,
				)
				continue
			}
			cat.Patterns = append(cat.Patterns, Pattern{Source: src, Regexp: re})
		}
		for _, src := range def.Exclusions {
			re, err := regexp.Compile(src)
			if err != nil {
				logger.Warn("skipping malformed exclusion pattern",
					"category", def.Key,
					"pattern", src,
					"error", err,
				)
				continue
			}
			cat.Exclusions = append(cat.Exclusions, Pattern{Source: src, Regexp: re})
		}
		cats = append(cats, cat)
	}
	return cats
}

// RiskRank orders risk levels for comparisons (high > medium > low).
func RiskRank(level string) int {
	switch level {
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	}
	return 0
}

// Validate rejects rule definitions the screening engine cannot use.
func Validate(def CategoryRule) error {
	if def.Key == "" {
		return fmt.Errorf("category key is required")
	}
	if len(def.Keywords) == 0 && len(def.Patterns) == 0 {
		return fmt.Errorf("category %q has no keywords or patterns", def.Key)
	}
	if def.Weight <= 0 {
		return fmt.Errorf("category %q has non-positive weight %g", def.Key, def.Weight)
	}
	switch def.RiskLevel {
	case RiskLow, RiskMedium, RiskHigh, "":
	default:
		return fmt.Errorf("category %q has unknown risk level %q", def.Key, def.RiskLevel)
	}
	return nil
}
