// Package profile loads the static, read-only engineer profile the pipeline
// scores every query against. The profile is never written by the pipeline;
// it is loaded once per process and shared by reference across requests.
package profile

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Profile is the fixed candidate record.
type Profile struct {
	Name       string              `yaml:"name"`
	Bio        string              `yaml:"bio"`
	Skills     map[string][]string `yaml:"skills"`
	Projects   []Project           `yaml:"projects"`
	Experience []Experience        `yaml:"experience"`
	Education  string              `yaml:"education"`
	Strengths  []string            `yaml:"strengths"`
}

// Project is a single project entry.
type Project struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Tech        []string `yaml:"tech"`
}

// Experience is a single employment entry.
type Experience struct {
	Title       string   `yaml:"title"`
	Employer    string   `yaml:"employer"`
	Duration    string   `yaml:"duration"`
	Highlights  []string `yaml:"highlights"`
	Tech        []string `yaml:"tech"`
}

// AllSkills flattens the category → skills map into a deduplicated slice,
// used by Phase 4's matching step. Categories are visited in map iteration
// order, so the order of the result is not defined.
func (p *Profile) AllSkills() []string {
	seen := make(map[string]bool)
	var out []string
	for _, category := range p.Skills {
		for _, skill := range category {
			if !seen[skill] {
				seen[skill] = true
				out = append(out, skill)
			}
		}
	}
	return out
}

// Load reads and parses the profile fixture at path. Called once at process
// startup; the returned Profile is treated as immutable thereafter.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "profile: read %s", path)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrapf(err, "profile: parse %s", path)
	}

	if p.Name == "" {
		return nil, eris.Errorf("profile: %s missing required field 'name'", path)
	}

	return &p, nil
}
