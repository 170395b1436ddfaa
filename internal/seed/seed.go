// Package seed holds the default catalog. It is the only source of defaults:
// stores use it when their backing medium is empty and the reset command
// replaces the catalog with it.
package seed

import (
	_ "embed"
	"fmt"

	"catalog-cli/internal/model"
)

//go:embed default_catalog.json
var defaultJSON []byte

var defaultCatalog = mustDecode(defaultJSON)

func mustDecode(b []byte) model.Catalog {
	c, err := model.Decode(b)
	if err != nil {
		panic(fmt.Sprintf("seed: invalid default catalog: %v", err))
	}
	if err := model.ValidateCatalog(c); err != nil {
		panic(fmt.Sprintf("seed: invalid default catalog: %v", err))
	}
	return c
}

// Catalog returns a fresh copy of the default catalog. Callers may modify it.
func Catalog() model.Catalog {
	return defaultCatalog.Clone()
}

// JSON returns the default catalog in its on-disk encoding.
func JSON() []byte {
	b, err := model.MarshalFile(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return b
}
