package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
)

// LoadLimits reads session limits from a YAML file such as
//
//	max_steps: 200
//	max_turns: 40
//	max_cost_usd: 5.0
func LoadLimits(path string) (*domain.SessionLimits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("limits: read %s: %w", path, err)
	}
	return ParseLimits(data)
}

func ParseLimits(data []byte) (*domain.SessionLimits, error) {
	var limits domain.SessionLimits
	if err := yaml.Unmarshal(data, &limits); err != nil {
		return nil, fmt.Errorf("limits: parse: %w", err)
	}
	if err := validateLimits(limits); err != nil {
		return nil, err
	}
	return &limits, nil
}

func validateLimits(l domain.SessionLimits) error {
	var errs []string
	if l.MaxSteps < 0 {
		errs = append(errs, "max_steps must not be negative")
	}
	if l.MaxTurns < 0 {
		errs = append(errs, "max_turns must not be negative")
	}
	if l.MaxCostUSD < 0 {
		errs = append(errs, "max_cost_usd must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("limits: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
