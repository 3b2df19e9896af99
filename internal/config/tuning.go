package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tuning holds the scorer and analytics constants that operators may want to
// adjust without a rebuild. Zero values mean "use the built-in default".
type Tuning struct {
	// Weights are the health sub-score weights in percent. They are applied
	// as-is; the historical defaults sum to 90, not 100, and the raw weighted
	// sum is used as the score (changing this changes the meaning of every
	// stored health score).
	Weights WeightTuning `yaml:"weights"`

	// Thresholds for item detection, in days.
	BlockedAfterDays int `yaml:"blocked_after_days"`
	StaleAfterDays   int `yaml:"stale_after_days"`

	// VelocityWeeks is the assumed completion window for the velocity model.
	VelocityWeeks int `yaml:"velocity_weeks"`
}

// WeightTuning mirrors the six health factors.
type WeightTuning struct {
	Activity      int `yaml:"activity"`
	Commits       int `yaml:"commits"`
	PRs           int `yaml:"prs"`
	Issues        int `yaml:"issues"`
	Documentation int `yaml:"documentation"`
	PRD           int `yaml:"prd"`
}

var envVarPattern = regexp.MustCompile(`\$\{(\w+)\}|\$(\w+)`)

// expandEnv replaces ${VAR} or $VAR in a string with the environment value.
func expandEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimPrefix(strings.TrimPrefix(match, "${"), "$")
		name = strings.TrimSuffix(name, "}")
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}

// LoadTuning reads the optional tuning file. A missing path returns nil
// without error so callers can fall back to defaults.
func LoadTuning(path string) (*Tuning, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tuning file %s: %w", path, err)
	}
	var t Tuning
	if err := yaml.Unmarshal([]byte(expandEnv(string(raw))), &t); err != nil {
		return nil, fmt.Errorf("parsing tuning file %s: %w", path, err)
	}
	return &t, nil
}
