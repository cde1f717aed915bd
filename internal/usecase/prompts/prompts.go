// Package prompts loads the stage instruction templates and confirmation
// phrases used by the conversation controller.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/career-consultant/internal/domain"
)

//go:embed prompts.yaml
var defaultCatalog []byte

// Catalog maps stages to system templates and languages to affirmative phrases.
type Catalog struct {
	Stages              map[domain.Stage]string `yaml:"stages"`
	ConfirmationPhrases map[string][]string     `yaml:"confirmation_phrases"`
}

// Default returns the embedded catalog.
func Default() (Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads the catalog at path, or the embedded one when path is empty.
func Load(path string) (Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("op=prompts.Load: %w", err)
	}
	c, err := Parse(b)
	if err != nil {
		return Catalog{}, fmt.Errorf("op=prompts.Load: %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a YAML catalog. All three stages must have a template.
func Parse(b []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Catalog{}, fmt.Errorf("op=prompts.Parse: %w", err)
	}
	for _, st := range []domain.Stage{domain.StageDiscovery, domain.StageDesign, domain.StageFinal} {
		if strings.TrimSpace(c.Stages[st]) == "" {
			return Catalog{}, fmt.Errorf("op=prompts.Parse: %w: no template for %s", domain.ErrInvalidArgument, st)
		}
	}
	return c, nil
}

// Template returns the system instruction for stage.
func (c Catalog) Template(stage domain.Stage) string {
	return c.Stages[domain.ParseStage(string(stage))]
}

// Phrases flattens the confirmation phrases of every language.
func (c Catalog) Phrases() []string {
	var out []string
	for _, ps := range c.ConfirmationPhrases {
		out = append(out, ps...)
	}
	return out
}
