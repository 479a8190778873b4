package config

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"btrsnap/src/retention"
)

// PolicySet is the ordered set of retention policies. YAML mappings lose
// their order through the default map decoding, but policy order is
// observable behavior (policies run in configured order), so the set is
// decoded from the raw mapping nodes instead.
type PolicySet []retention.Policy

func (ps *PolicySet) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errors.New("retention_policies must be a mapping of name to five integers")
	}
	out := make(PolicySet, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var vals []int
		if err := node.Content[i+1].Decode(&vals); err != nil {
			return errors.Wrapf(err, "retention policy %q", name)
		}
		if len(vals) != 5 {
			return errors.Errorf("retention policy %q needs exactly 5 integers [minDays maxDays minSeconds maxSeconds keep], got %d", name, len(vals))
		}
		out = append(out, retention.Policy{
			Name:       name,
			MinDays:    vals[0],
			MaxDays:    vals[1],
			MinSeconds: vals[2],
			MaxSeconds: vals[3],
			Keep:       vals[4],
		})
	}
	*ps = out
	return nil
}

func validatePolicy(p retention.Policy) error {
	for _, v := range []int{p.MinDays, p.MaxDays, p.MinSeconds, p.MaxSeconds, p.Keep} {
		if v < 0 {
			return errors.Errorf("config: retention policy %q contains a negative value", p.Name)
		}
	}
	if p.MinDays > p.MaxDays {
		return errors.Errorf("config: retention policy %q has minDays > maxDays", p.Name)
	}
	if p.MinSeconds > p.MaxSeconds {
		return errors.Errorf("config: retention policy %q has minSeconds > maxSeconds", p.Name)
	}
	return nil
}
