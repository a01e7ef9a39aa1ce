package cards

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// CardSet is the on-disk format of a card-set file.
type CardSet struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"` // default word type for cards that omit one
	Cards []Card `yaml:"cards" validate:"dive"`
}

var validate = validator.New()

// ParseCardSet decodes a YAML card set and validates every card.
func ParseCardSet(data []byte) (*CardSet, error) {
	var set CardSet
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&set); err != nil {
		return nil, fmt.Errorf("decode card set: %w", err)
	}

	defaultType := TypeOther
	if set.Type != "" {
		t, err := ParseWordType(set.Type)
		if err != nil {
			return nil, err
		}
		if t != TypeAny {
			defaultType = t
		}
	}
	for i := range set.Cards {
		c := &set.Cards[i]
		if c.Type == "" {
			c.Type = defaultType
			continue
		}
		t, err := ParseWordType(string(c.Type))
		if err != nil || t == TypeAny {
			return nil, fmt.Errorf("card %d (%q): invalid type %q", i, c.Russian, c.Type)
		}
		c.Type = t
	}

	if err := validate.Struct(&set); err != nil {
		return nil, fmt.Errorf("validate card set: %w", err)
	}
	return &set, nil
}

// LoadPool reads every card-set file matched by the glob patterns and builds
// a single pool from them.
func LoadPool(patterns ...string) (*Pool, error) {
	var all []Card
	for _, pattern := range patterns {
		paths, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read card set: %w", err)
			}
			set, err := ParseCardSet(data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			all = append(all, set.Cards...)
		}
	}
	return NewPool(all...)
}
