// Package classify tags review text with categories, polarity and a crisis
// flag using a keyword dictionary.
package classify

import (
	"strings"

	"review_monitor/internal/domain"
)

type Polarity string

const (
	Positive Polarity = "positive"
	Negative Polarity = "negative"
)

// Tag is one (category, polarity) hit and the keyword that produced it.
type Tag struct {
	Category string   `json:"category"`
	Polarity Polarity `json:"polarity"`
	Keyword  string   `json:"keyword"`
}

type Classifier struct {
	dict Dictionary
}

func New(d Dictionary) *Classifier { return &Classifier{dict: d} }

func (c *Classifier) Dictionary() Dictionary { return c.dict }

// firstMatch returns the first keyword, in list order, found in text.
func firstMatch(text string, keywords []string) (string, bool) {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return k, true
		}
	}
	return "", false
}

func matchesAny(text string, keywords []string) bool {
	_, ok := firstMatch(text, keywords)
	return ok
}

// DetectCategory returns the first category with a negative hit, else the
// first with a positive hit, else General.
func (c *Classifier) DetectCategory(text string) string {
	low := strings.ToLower(text)
	for _, cat := range c.dict.Categories {
		if matchesAny(low, cat.Negative) {
			return cat.Name
		}
	}
	for _, cat := range c.dict.Categories {
		if matchesAny(low, cat.Positive) {
			return cat.Name
		}
	}
	return domain.CategoryGeneral
}

// Analyze returns at most one positive and one negative tag per category,
// positives first within a category, categories in dictionary order.
func (c *Classifier) Analyze(text string) []Tag {
	low := strings.ToLower(text)
	var tags []Tag
	for _, cat := range c.dict.Categories {
		if k, ok := firstMatch(low, cat.Positive); ok {
			tags = append(tags, Tag{Category: cat.Name, Polarity: Positive, Keyword: k})
		}
		if k, ok := firstMatch(low, cat.Negative); ok {
			tags = append(tags, Tag{Category: cat.Name, Polarity: Negative, Keyword: k})
		}
	}
	return tags
}

func (c *Classifier) AnalyzeSentiments(texts []string) []Tag {
	var out []Tag
	for _, t := range texts {
		out = append(out, c.Analyze(t)...)
	}
	return out
}

// IsCrisis reports whether text contains any crisis keyword.
func (c *Classifier) IsCrisis(text string) bool {
	return matchesAny(strings.ToLower(text), c.dict.Crisis)
}

// Categories is the closed set of valid Category values.
func (c *Classifier) Categories() []string {
	out := make([]string, 0, len(c.dict.Categories)+2)
	for _, cat := range c.dict.Categories {
		out = append(out, cat.Name)
	}
	return append(out, domain.CategoryGeneral, domain.CategoryOther)
}

func (c *Classifier) IsValidCategory(name string) bool {
	for _, v := range c.Categories() {
		if v == name {
			return true
		}
	}
	return false
}

// CleaningCategory names the category that counts against cleaners.
func (c *Classifier) CleaningCategory() string {
	for _, cat := range c.dict.Categories {
		if cat.Cleaning {
			return cat.Name
		}
	}
	return ""
}

// Advice for a category; the dictionary default when none is set.
func (c *Classifier) Advice(category string) string {
	for _, cat := range c.dict.Categories {
		if cat.Name == category && cat.Advice != "" {
			return cat.Advice
		}
	}
	return c.dict.DefaultAdvice
}
