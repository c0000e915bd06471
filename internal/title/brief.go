package title

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"reelsmith/internal/services"
)

// SceneHint seeds one visual beat of the story.
type SceneHint struct {
	Prompt  string `yaml:"prompt"`
	Caption string `yaml:"caption"`
}

// Brief describes one title to produce.
type Brief struct {
	Slug    string      `yaml:"slug"`
	Title   string      `yaml:"title"`
	Premise string      `yaml:"premise"`
	Tone    string      `yaml:"tone"`
	Voice   string      `yaml:"voice"`
	Tags    []string    `yaml:"tags"`
	Scenes  []SceneHint `yaml:"scenes"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// LoadBrief reads and validates a brief document.
func LoadBrief(path string) (*Brief, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read brief: %w", err)
	}
	var brief Brief
	if err := yaml.Unmarshal(data, &brief); err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "parse brief", "brief is not valid YAML", err)
	}
	brief.normalize()
	if err := brief.Validate(); err != nil {
		return nil, err
	}
	return &brief, nil
}

func (b *Brief) normalize() {
	b.Slug = strings.ToLower(strings.TrimSpace(b.Slug))
	b.Title = strings.TrimSpace(b.Title)
	b.Premise = strings.TrimSpace(b.Premise)
	b.Tone = strings.TrimSpace(b.Tone)
	b.Voice = strings.TrimSpace(b.Voice)
	for i := range b.Scenes {
		b.Scenes[i].Prompt = strings.TrimSpace(b.Scenes[i].Prompt)
		b.Scenes[i].Caption = strings.TrimSpace(b.Scenes[i].Caption)
	}
}

// Validate checks the structural invariants a brief must satisfy before a run.
func (b *Brief) Validate() error {
	if b.Slug == "" {
		return services.Wrap(services.ErrValidation, "", "validate brief", "slug must be set", nil)
	}
	if !slugPattern.MatchString(b.Slug) {
		return services.Wrap(services.ErrValidation, "", "validate brief",
			fmt.Sprintf("slug %q must be lowercase words separated by hyphens", b.Slug), nil)
	}
	if b.Title == "" {
		return services.Wrap(services.ErrValidation, "", "validate brief", "title must be set", nil)
	}
	if b.Premise == "" {
		return services.Wrap(services.ErrValidation, "", "validate brief", "premise must be set", nil)
	}
	for i, scene := range b.Scenes {
		if scene.Prompt == "" {
			return services.Wrap(services.ErrValidation, "", "validate brief",
				fmt.Sprintf("scenes[%d].prompt must be set", i), nil)
		}
	}
	return nil
}
