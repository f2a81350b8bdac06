package face

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/blacktop/xface/internal/registry"
)

// StateFile is the descriptor written by Save inside the state directory.
const StateFile = "state.yaml"

// Descriptor is the persisted form of a face.
type Descriptor struct {
	ProcessorType  string                    `yaml:"processor_type"`
	ScoringType    string                    `yaml:"scoring_type"`
	ScorersParams  map[string]map[string]any `yaml:"scorers_params"`
	ScrapingType   string                    `yaml:"scraping_type"`
	ScrapersParams map[string]map[string]any `yaml:"scrapers_params"`
	ChannelID      string                    `yaml:"channel_id"`
}

// WriteDescriptor stores d in dir.
func WriteDescriptor(dir string, d Descriptor) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, StateFile), data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// ReadDescriptor loads the descriptor stored in dir.
func ReadDescriptor(dir string) (Descriptor, error) {
	data, err := os.ReadFile(filepath.Join(dir, StateFile))
	if err != nil {
		return Descriptor{}, fmt.Errorf("read state: %w", err)
	}
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Descriptor{}, fmt.Errorf("parse state: %w", err)
	}
	if d.ProcessorType == "" || d.ScoringType == "" || d.ScrapingType == "" {
		return Descriptor{}, fmt.Errorf("parse state: %s is missing plugin categories", StateFile)
	}
	if d.ScorersParams == nil {
		d.ScorersParams = map[string]map[string]any{}
	}
	if d.ScrapersParams == nil {
		d.ScrapersParams = map[string]map[string]any{}
	}
	return d, nil
}

// HasDescriptor reports whether dir holds a saved face.
func HasDescriptor(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, StateFile))
	return err == nil
}

type namedPlugin struct {
	kind   string
	plugin any
}

func savePlugins(dir string, plugins ...namedPlugin) error {
	for _, p := range plugins {
		saver, ok := p.plugin.(registry.Saver)
		if !ok {
			continue
		}
		sub := filepath.Join(dir, p.kind)
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return fmt.Errorf("create %s state dir: %w", p.kind, err)
		}
		if err := saver.Save(sub); err != nil {
			return fmt.Errorf("save %s: %w", p.kind, err)
		}
	}
	return nil
}

func restorePlugins(dir string, proc, sc, sp any) error {
	for _, p := range []namedPlugin{{"processor", proc}, {"scorer", sc}, {"scraper", sp}} {
		restorer, ok := p.plugin.(registry.Restorer)
		if !ok {
			continue
		}
		if err := restorer.Restore(filepath.Join(dir, p.kind)); err != nil {
			return fmt.Errorf("restore %s: %w", p.kind, err)
		}
	}
	return nil
}
