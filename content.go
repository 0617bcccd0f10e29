package main

import (
	_ "embed"

	"github.com/Seednode/buzzboard/games/trivia"
)

//go:embed assets/trivia.yaml
var defaultCatalog []byte

// loadCatalog reads --content, falling back to the built-in catalog.
func loadCatalog(cfg *Config) (*trivia.Catalog, error) {
	if cfg.content == "" {
		return trivia.ParseCatalog(defaultCatalog)
	}

	return trivia.LoadCatalog(cfg.content)
}
