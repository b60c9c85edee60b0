package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StrategySpec describes one search-widening step in the escalation ladder.
type StrategySpec struct {
	Name        string `yaml:"name"`
	YearSpan    int    `yaml:"year_span"`
	MileageSpan int    `yaml:"mileage_span"`
	DropGearbox bool   `yaml:"drop_gearbox"`
}

type strategyFile struct {
	Strategies []StrategySpec `yaml:"strategies"`
}

// LoadStrategyFile loads a strategy ladder override from a YAML file.
// Strategies must be listed tightest-first.
func LoadStrategyFile(path string) ([]StrategySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy file: %w", err)
	}

	var file strategyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse strategy file: %w", err)
	}

	if len(file.Strategies) == 0 {
		return nil, fmt.Errorf("strategy file %s defines no strategies", path)
	}

	for i, s := range file.Strategies {
		if s.Name == "" {
			return nil, fmt.Errorf("strategy %d has no name", i)
		}
		if s.YearSpan < 0 || s.MileageSpan < 0 {
			return nil, fmt.Errorf("strategy %q has negative spans", s.Name)
		}
	}

	return file.Strategies, nil
}
