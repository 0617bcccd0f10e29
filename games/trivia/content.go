/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package trivia

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// CategoriesPerRound is the board width.
	CategoriesPerRound = 6
	// CluesPerCategory is the board height.
	CluesPerCategory = 5
)

var ErrInvalidCatalog = errors.New("invalid catalog")

type Clue struct {
	Value     int      `yaml:"value" json:"value"`
	Clue      string   `yaml:"clue" json:"clue"`
	Responses []string `yaml:"responses" json:"responses"`
	Alt       []string `yaml:"alt,omitempty" json:"alt,omitempty"`
	Notes     string   `yaml:"notes,omitempty" json:"notes,omitempty"`
}

type Category struct {
	Name  string `yaml:"name" json:"name"`
	Clues []Clue `yaml:"clues" json:"clues"`
}

type RoundData struct {
	Categories []Category `yaml:"categories" json:"categories"`
}

type FinalData struct {
	Category  string   `yaml:"category" json:"category"`
	Clue      string   `yaml:"clue" json:"clue"`
	Responses []string `yaml:"responses" json:"responses"`
	Alt       []string `yaml:"alt,omitempty" json:"alt,omitempty"`
	Notes     string   `yaml:"notes,omitempty" json:"notes,omitempty"`
}

type Rounds struct {
	Jeopardy       RoundData `yaml:"jeopardy" json:"jeopardy"`
	DoubleJeopardy RoundData `yaml:"doubleJeopardy" json:"doubleJeopardy"`
	Final          FinalData `yaml:"final" json:"final"`
}

// Catalog is the read-only trivia content for one game. Sessions never
// modify it, so one Catalog may back any number of sessions.
type Catalog struct {
	Rounds Rounds `yaml:"rounds" json:"rounds"`
}

// ParseCatalog decodes and validates a catalog. JSON input is accepted
// because JSON is a subset of YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseCatalog(data)
}

// Round returns the board content for round 1 or 2.
func (c *Catalog) Round(round Round) *RoundData {
	if round == Round2 {
		return &c.Rounds.DoubleJeopardy
	}

	return &c.Rounds.Jeopardy
}

func (c *Catalog) Validate() error {
	for _, round := range []Round{Round1, Round2} {
		if err := c.Round(round).validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidCatalog, round, err)
		}
	}

	final := c.Rounds.Final
	if strings.TrimSpace(final.Category) == "" {
		return fmt.Errorf("%w: final: empty category", ErrInvalidCatalog)
	}
	if strings.TrimSpace(final.Clue) == "" {
		return fmt.Errorf("%w: final: empty clue", ErrInvalidCatalog)
	}

	return nil
}

func (r *RoundData) validate() error {
	if len(r.Categories) != CategoriesPerRound {
		return fmt.Errorf("want %d categories, got %d", CategoriesPerRound, len(r.Categories))
	}

	for i, cat := range r.Categories {
		if len(cat.Clues) != CluesPerCategory {
			return fmt.Errorf("category %d (%q): want %d clues, got %d", i, cat.Name, CluesPerCategory, len(cat.Clues))
		}
		for j, clue := range cat.Clues {
			if clue.Value <= 0 {
				return fmt.Errorf("category %d clue %d: value must be positive, got %d", i, j, clue.Value)
			}
			if strings.TrimSpace(clue.Clue) == "" {
				return fmt.Errorf("category %d clue %d: empty clue text", i, j)
			}
		}
	}

	return nil
}

// HighestValue is the largest clue value on the board.
func (r *RoundData) HighestValue() int {
	highest := 0
	for _, cat := range r.Categories {
		for _, clue := range cat.Clues {
			highest = max(highest, clue.Value)
		}
	}

	return highest
}

func (c Clue) clone() Clue {
	c.Responses = slices.Clone(c.Responses)
	c.Alt = slices.Clone(c.Alt)

	return c
}

func (r RoundData) clone() RoundData {
	if r.Categories == nil {
		return r
	}

	categories := make([]Category, len(r.Categories))
	for i, cat := range r.Categories {
		clues := slices.Clone(cat.Clues)
		for j := range clues {
			clues[j] = clues[j].clone()
		}
		categories[i] = Category{Name: cat.Name, Clues: clues}
	}
	r.Categories = categories

	return r
}

func (r Rounds) clone() Rounds {
	r.Jeopardy = r.Jeopardy.clone()
	r.DoubleJeopardy = r.DoubleJeopardy.clone()
	r.Final.Responses = slices.Clone(r.Final.Responses)
	r.Final.Alt = slices.Clone(r.Final.Alt)

	return r
}
