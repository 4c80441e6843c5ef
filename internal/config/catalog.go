package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// StageCatalog is the scripted content for one interview stage.
type StageCatalog struct {
	Title   string         `yaml:"title"`
	Focus   string         `yaml:"focus"`
	Persona domain.Persona `yaml:"persona"`
}

// Catalog holds interviewer prompts, default personas and the voice table.
type Catalog struct {
	Kickoff string                                 `yaml:"kickoff"`
	Stages  map[domain.InterviewStage]StageCatalog `yaml:"stages"`
	Voices  map[domain.InterviewStage]string       `yaml:"voices"`
}

// Stage returns the catalog entry for s.
func (c *Catalog) Stage(s domain.InterviewStage) (StageCatalog, bool) {
	sc, ok := c.Stages[s]
	return sc, ok
}

// Voice returns the voice configured for s.
func (c *Catalog) Voice(s domain.InterviewStage) string {
	return c.Voices[s]
}

// LoadCatalog reads the catalog at path, or the embedded default when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("op=config.LoadCatalog: %w", err)
		}
		data, err = os.ReadFile(absPath) //nolint:gosec // operator supplied path
		if err != nil {
			return nil, fmt.Errorf("op=config.LoadCatalog: %w", err)
		}
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a catalog and checks every interview stage is covered.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("op=config.ParseCatalog: %w", err)
	}
	if c.Kickoff == "" {
		return nil, fmt.Errorf("op=config.ParseCatalog: kickoff is required")
	}
	for _, s := range domain.InterviewStages {
		sc, ok := c.Stages[s]
		if !ok || sc.Focus == "" || sc.Persona.Name == "" {
			return nil, fmt.Errorf("op=config.ParseCatalog: stage %q is incomplete", s)
		}
	}
	return &c, nil
}
