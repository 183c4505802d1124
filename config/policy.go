package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cadencehq/cadence/engine"
)

// policyFile is the YAML layout of the reorder policy file:
//
//	default: {min: 21, max: 35}
//	strategy: case_volume
//	brands:
//	  Bodhi Bubbles: {min: 21, max: 28}
//	categories:
//	  wellness: {min: 28, max: 42}
type policyFile struct {
	Default    *engine.Window           `yaml:"default"`
	Strategy   string                   `yaml:"strategy"`
	Brands     map[string]engine.Window `yaml:"brands"`
	Categories map[string]engine.Window `yaml:"categories"`
}

// ReorderPolicy builds the reorder policy from the configuration. Windows in the
// policy file take precedence over the ones in the JSON config.
func (cnf *Configuration) ReorderPolicy() (engine.ReorderPolicy, error) {
	policy := engine.DefaultReorderPolicy()
	if cnf.Reorder.WindowMin != 0 || cnf.Reorder.WindowMax != 0 {
		policy.Default = engine.Window{Min: cnf.Reorder.WindowMin, Max: cnf.Reorder.WindowMax}
	}
	if cnf.Reorder.Strategy != "" {
		policy.Strategy = engine.Strategy(cnf.Reorder.Strategy)
	}
	policy.Brands = toWindows(cnf.Reorder.Brands)
	policy.Categories = toWindows(cnf.Reorder.Categories)

	if cnf.Reorder.PolicyFile != "" {
		pf, err := readPolicyFile(cnf.Reorder.PolicyFile)
		if err != nil {
			return engine.ReorderPolicy{}, err
		}
		if pf.Default != nil {
			policy.Default = *pf.Default
		}
		if pf.Strategy != "" {
			policy.Strategy = engine.Strategy(pf.Strategy)
		}
		for name, w := range pf.Brands {
			policy.Brands[name] = w
		}
		for name, w := range pf.Categories {
			policy.Categories[name] = w
		}
	}

	if err := policy.Validate(); err != nil {
		return engine.ReorderPolicy{}, err
	}
	return policy, nil
}

func (cnf *Configuration) FollowUpPolicy() engine.FollowUpPolicy {
	return engine.FollowUpPolicy{
		InterestedDays: cnf.FollowUp.InterestedDays,
		MaybeLaterDays: cnf.FollowUp.MaybeLaterDays,
	}
}

func readPolicyFile(path string) (policyFile, error) {
	var pf policyFile
	data, err := os.ReadFile(path)
	if err != nil {
		return pf, fmt.Errorf("read reorder policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return pf, fmt.Errorf("parse reorder policy file %s: %w", path, err)
	}
	return pf, nil
}

func toWindows(in map[string]WindowConfig) map[string]engine.Window {
	out := make(map[string]engine.Window, len(in))
	for name, w := range in {
		out[name] = engine.Window{Min: w.Min, Max: w.Max}
	}
	return out
}
