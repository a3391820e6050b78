package classify

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"review_monitor/internal/domain"
)

//go:embed dictionary.yaml
var defaultDictionary []byte

// CategoryRules holds the keywords of one category. Keywords match as
// case-insensitive substrings of the review text.
type CategoryRules struct {
	Name     string   `yaml:"name"`
	Cleaning bool     `yaml:"cleaning"`
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
	Advice   string   `yaml:"advice"`
}

// Dictionary is loaded once at startup and never mutated afterwards.
type Dictionary struct {
	Categories    []CategoryRules `yaml:"categories"`
	Crisis        []string        `yaml:"crisis"`
	DefaultAdvice string          `yaml:"default_advice"`
}

// LoadDictionary reads path, or the built-in dictionary when path is empty.
func LoadDictionary(path string) (Dictionary, error) {
	raw := defaultDictionary
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Dictionary{}, fmt.Errorf("read dictionary: %w", err)
		}
		raw = b
	}
	return ParseDictionary(raw)
}

func ParseDictionary(raw []byte) (Dictionary, error) {
	var d Dictionary
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Dictionary{}, fmt.Errorf("parse dictionary: %w", err)
	}
	if err := d.normalize(); err != nil {
		return Dictionary{}, err
	}
	return d, nil
}

// DefaultDictionary panics if the embedded file is broken; it is covered by tests.
func DefaultDictionary() Dictionary {
	d, err := ParseDictionary(defaultDictionary)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Dictionary) normalize() error {
	if len(d.Categories) == 0 {
		return errors.New("dictionary: no categories")
	}
	seen := map[string]bool{domain.CategoryGeneral: true, domain.CategoryOther: true}
	for i := range d.Categories {
		c := &d.Categories[i]
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			return fmt.Errorf("dictionary: category %d has no name", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("dictionary: duplicate or reserved category %q", c.Name)
		}
		seen[c.Name] = true
		c.Positive = lowerAll(c.Positive)
		c.Negative = lowerAll(c.Negative)
	}
	d.Crisis = lowerAll(d.Crisis)
	return nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
