// Package seed installs the default extraction patterns so the engine works
// before any learning has happened.
package seed

import (
	"context"
	_ "embed"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/scenescout/extract-cli/internal/model"
	"github.com/scenescout/extract-cli/internal/store"
)

//go:embed patterns.yaml
var patternsYAML []byte

type seedFile struct {
	Patterns []seedPattern `yaml:"patterns"`
}

type seedPattern struct {
	FieldType   string  `yaml:"field_type"`
	Regex       string  `yaml:"regex"`
	Description string  `yaml:"description"`
	Confidence  float64 `yaml:"confidence"`
}

// Store is the slice of the persistence layer seeding depends on.
type Store interface {
	ListPatterns(ctx context.Context, filter store.PatternFilter) ([]model.ExtractionPattern, error)
	CreatePattern(ctx context.Context, p model.ExtractionPattern) (*model.ExtractionPattern, error)
}

// Defaults parses the embedded pattern set.
func Defaults() ([]model.ExtractionPattern, error) {
	var f seedFile
	if err := yaml.Unmarshal(patternsYAML, &f); err != nil {
		return nil, eris.Wrap(err, "seed: parse embedded patterns")
	}

	patterns := make([]model.ExtractionPattern, 0, len(f.Patterns))
	for _, sp := range f.Patterns {
		ft, err := model.ParseFieldType(sp.FieldType)
		if err != nil {
			return nil, eris.Wrapf(err, "seed: pattern %q", sp.Regex)
		}
		p := model.ExtractionPattern{
			FieldType:   ft,
			RegexSource: sp.Regex,
			Description: sp.Description,
			Confidence:  sp.Confidence,
			Priority:    model.PriorityDefault,
			IsActive:    true,
			Source:      model.SourceDefault,
		}
		if err := p.Validate(); err != nil {
			return nil, eris.Wrapf(err, "seed: pattern %q", sp.Regex)
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

// Apply inserts any default pattern not already present, keyed by
// (field_type, regex). Re-running is a no-op for patterns that exist,
// so a later deactivation or confidence change is never clobbered.
func Apply(ctx context.Context, st Store) (int, error) {
	defaults, err := Defaults()
	if err != nil {
		return 0, err
	}

	existing, err := st.ListPatterns(ctx, store.PatternFilter{})
	if err != nil {
		return 0, eris.Wrap(err, "seed: list existing patterns")
	}
	present := make(map[string]bool, len(existing))
	for _, p := range existing {
		present[string(p.FieldType)+"\x00"+p.RegexSource] = true
	}

	var inserted int
	for _, p := range defaults {
		if present[string(p.FieldType)+"\x00"+p.RegexSource] {
			continue
		}
		if _, err := st.CreatePattern(ctx, p); err != nil {
			return inserted, eris.Wrapf(err, "seed: insert pattern %q", p.RegexSource)
		}
		inserted++
	}

	if inserted > 0 {
		zap.L().Info("seeded default patterns", zap.Int("inserted", inserted))
	}
	return inserted, nil
}
