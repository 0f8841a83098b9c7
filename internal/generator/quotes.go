package generator

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/typerpg/internal/model"
)

//go:embed data/quotes.yaml
var defaultQuotes string

// Quotes holds the daily passages per difficulty.
type Quotes struct {
	Easy   []string `yaml:"easy"`
	Medium []string `yaml:"medium"`
	Hard   []string `yaml:"hard"`
}

// For returns the passages of difficulty d. Unknown difficulties map to easy.
func (q Quotes) For(d model.Difficulty) []string {
	switch d {
	case model.Medium:
		return q.Medium
	case model.Hard:
		return q.Hard
	default:
		return q.Easy
	}
}

func (q Quotes) validate() error {
	for _, d := range model.Difficulties {
		if len(q.For(d)) == 0 {
			return fmt.Errorf("no %s quotes", d)
		}
	}
	return nil
}

// LoadQuotes decodes a YAML quote corpus. Passages are normalised to single
// spaces.
func LoadQuotes(r io.Reader) (Quotes, error) {
	var q Quotes
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&q); err != nil {
		return Quotes{}, fmt.Errorf("failed to decode quotes: %w", err)
	}
	for _, list := range []*[]string{&q.Easy, &q.Medium, &q.Hard} {
		cleaned := (*list)[:0]
		for _, s := range *list {
			if s = strings.Join(strings.Fields(s), " "); s != "" {
				cleaned = append(cleaned, s)
			}
		}
		*list = cleaned
	}
	if err := q.validate(); err != nil {
		return Quotes{}, err
	}
	return q, nil
}

// DefaultQuotes returns the built-in quote corpus.
func DefaultQuotes() Quotes {
	q, err := LoadQuotes(strings.NewReader(defaultQuotes))
	if err != nil {
		panic(fmt.Sprintf("embedded quotes: %v", err))
	}
	return q
}
