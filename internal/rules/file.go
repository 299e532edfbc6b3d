package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ruleFile is the on-disk shape of a category rule feed.
type ruleFile struct {
	Categories []CategoryRule `yaml:"categories"`
}

// LoadFile reads category rules from a YAML file. Definitions that fail
// validation are rejected as a whole: a rule feed is operator-authored
// configuration and a silent partial load would hide typos.
func LoadFile(path string) ([]CategoryRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("rules file %s defines no categories", path)
	}

	for _, def := range f.Categories {
		if err := Validate(def); err != nil {
			return nil, fmt.Errorf("rules file %s: %w", path, err)
		}
	}

	return f.Categories, nil
}
