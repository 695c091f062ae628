package scan

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// IconRules maps service-name keywords to dashboard icons. First matching
// rule wins; unmatched names get the default icon.
type IconRules struct {
	Default string     `yaml:"default"`
	Rules   []IconRule `yaml:"rules"`
}

type IconRule struct {
	Keywords []string `yaml:"keywords"`
	Icon     string   `yaml:"icon"`
}

func defaultIconRules() *IconRules {
	return &IconRules{
		Default: "📦",
		Rules: []IconRule{
			{Keywords: []string{"clinic", "medical"}, Icon: "🏥"},
			{Keywords: []string{"rotom", "dex"}, Icon: "⚡"},
			{Keywords: []string{"api"}, Icon: "🔌"},
			{Keywords: []string{"bot"}, Icon: "🤖"},
		},
	}
}

// LoadIconRules reads a YAML rules file, or returns the built-in table when
// path is empty.
func LoadIconRules(path string) (*IconRules, error) {
	if path == "" {
		return defaultIconRules(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("icon rules: %w", err)
	}
	var r IconRules
	if err := yaml.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("icon rules: parse %s: %w", path, err)
	}
	if r.Default == "" {
		r.Default = "📦"
	}
	return &r, nil
}

// IconFor resolves the icon for a service name, case-insensitively.
func (r *IconRules) IconFor(name string) string {
	lower := strings.ToLower(name)
	for _, rule := range r.Rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Icon
			}
		}
	}
	return r.Default
}
