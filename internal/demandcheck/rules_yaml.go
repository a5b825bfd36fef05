package demandcheck

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LoadRuleSet reads a rule-table override from a YAML file. An empty path
// returns the built-in defaults. Sections missing from the file fall back
// to the defaults, so an override can replace just the rules while keeping
// the baselines.
func LoadRuleSet(path string) (*RuleSet, error) {
	defaults := DefaultRuleSet()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "demandcheck: read rules %s", path)
	}

	var wrapper struct {
		DemandCheck RuleSet `yaml:"demandcheck"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "demandcheck: parse rules")
	}

	rs := &wrapper.DemandCheck
	if len(rs.Rules) == 0 {
		rs.Rules = defaults.Rules
	}
	if len(rs.JobBaselines) == 0 {
		rs.JobBaselines = defaults.JobBaselines
	}
	if len(rs.Mandatory) == 0 {
		rs.Mandatory = defaults.Mandatory
	}
	if rs.JobTitleMaxAge == 0 {
		rs.JobTitleMaxAge = defaults.JobTitleMaxAge
	}
	return rs, nil
}
