package trivia

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseCatalogYAML(t *testing.T) {
	data, err := yaml.Marshal(testCatalog())
	require.NoError(t, err)

	c, err := ParseCatalog(data)
	require.NoError(t, err)

	assert.Equal(t, "first category 0", c.Rounds.Jeopardy.Categories[0].Name)
	assert.Equal(t, 2000, c.Rounds.DoubleJeopardy.Categories[5].Clues[4].Value)
	assert.Equal(t, "Astronomy", c.Rounds.Final.Category)
}

func TestParseCatalogJSON(t *testing.T) {
	data, err := json.Marshal(testCatalog())
	require.NoError(t, err)

	c, err := ParseCatalog(data)
	require.NoError(t, err)
	assert.Equal(t, testCatalog().Rounds.Final, c.Rounds.Final)
}

func TestLoadCatalog(t *testing.T) {
	data, err := yaml.Marshal(testCatalog())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "trivia.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Len(t, c.Rounds.Jeopardy.Categories, CategoriesPerRound)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCatalogValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Catalog)
	}{
		{"too few categories", func(c *Catalog) {
			c.Rounds.Jeopardy.Categories = c.Rounds.Jeopardy.Categories[:5]
		}},
		{"too many clues", func(c *Catalog) {
			cat := &c.Rounds.DoubleJeopardy.Categories[2]
			cat.Clues = append(cat.Clues, Clue{Value: 100, Clue: "extra"})
		}},
		{"zero value", func(c *Catalog) {
			c.Rounds.Jeopardy.Categories[0].Clues[0].Value = 0
		}},
		{"blank clue", func(c *Catalog) {
			c.Rounds.DoubleJeopardy.Categories[1].Clues[3].Clue = "  "
		}},
		{"no final category", func(c *Catalog) {
			c.Rounds.Final.Category = ""
		}},
		{"no final clue", func(c *Catalog) {
			c.Rounds.Final.Clue = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testCatalog()
			tt.mutate(c)

			err := c.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCatalog))
		})
	}

	assert.NoError(t, testCatalog().Validate())
}

func TestParseCatalogRejectsGarbage(t *testing.T) {
	_, err := ParseCatalog([]byte("rounds: [unterminated"))
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestHighestValue(t *testing.T) {
	c := testCatalog()
	assert.Equal(t, 1000, c.Rounds.Jeopardy.HighestValue())
	assert.Equal(t, 2000, c.Round(Round2).HighestValue())
}

func TestNewRejectsBadCatalog(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	c := testCatalog()
	c.Rounds.Final.Clue = ""
	_, err = New(c)
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}
