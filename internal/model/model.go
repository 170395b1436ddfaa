package model

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/zeebo/blake3"
)

// Template is a titled block of reusable text. Its ID is unique within the
// owning category only.
type Template struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type Category struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Templates []Template `json:"templates"`
}

// Catalog is the ordered list of categories. It is always persisted and
// replaced as a whole.
type Catalog []Category

// Clone returns a deep copy that shares no backing arrays with c.
func (c Catalog) Clone() Catalog {
	if c == nil {
		return nil
	}
	out := make(Catalog, len(c))
	for i, cat := range c {
		out[i] = cat
		out[i].Templates = slices.Clone(cat.Templates)
		if out[i].Templates == nil {
			out[i].Templates = []Template{}
		}
	}
	return out
}

// Equal reports structural equality. A nil and an empty template list are
// treated the same.
func (c Catalog) Equal(o Catalog) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		a, b := c[i], o[i]
		if a.ID != b.ID || a.Name != b.Name {
			return false
		}
		if !slices.Equal(a.Templates, b.Templates) {
			return false
		}
	}
	return true
}

// Normalize replaces nil template lists with empty ones so the JSON form is
// stable ("templates": [] rather than null). It returns c for chaining.
func (c Catalog) Normalize() Catalog {
	for i := range c {
		if c[i].Templates == nil {
			c[i].Templates = []Template{}
		}
	}
	return c
}

func (c Catalog) Category(id string) (Category, int, bool) {
	for i, cat := range c {
		if cat.ID == id {
			return cat, i, true
		}
	}
	return Category{}, -1, false
}

func (c Category) Template(id string) (Template, int, bool) {
	for i, t := range c.Templates {
		if t.ID == id {
			return t, i, true
		}
	}
	return Template{}, -1, false
}

// TemplateCount is the number of templates across all categories.
func (c Catalog) TemplateCount() int {
	n := 0
	for _, cat := range c {
		n += len(cat.Templates)
	}
	return n
}

// Fingerprint is a content hash of the canonical JSON encoding. Two catalogs
// with the same fingerprint are the same snapshot.
func (c Catalog) Fingerprint() string {
	b, err := json.Marshal(c.Clone().Normalize())
	if err != nil {
		return ""
	}
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:16])
}

// MarshalFile encodes c the way it is stored on disk: 2-space indented JSON.
func MarshalFile(c Catalog) ([]byte, error) {
	if c == nil {
		c = Catalog{}
	}
	return json.MarshalIndent(c.Clone().Normalize(), "", "  ")
}

var ErrNotArray = errors.New("catalog must be a JSON array")

// Decode parses a catalog document. The top-level value must be an array.
func Decode(b []byte) (Catalog, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}
	var c Catalog
	if err := json.Unmarshal(trimmed, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return c.Normalize(), nil
}

// ValidateCatalog checks that c is a well-formed, non-empty catalog that can
// replace the current one.
func ValidateCatalog(c Catalog) error {
	if len(c) == 0 {
		return errors.New("catalog is empty")
	}
	seen := make(map[string]bool, len(c))
	for i, cat := range c {
		if strings.TrimSpace(cat.ID) == "" {
			return fmt.Errorf("category %d: missing id", i)
		}
		if strings.TrimSpace(cat.Name) == "" {
			return fmt.Errorf("category %s: missing name", cat.ID)
		}
		if seen[cat.ID] {
			return fmt.Errorf("duplicate category id: %s", cat.ID)
		}
		seen[cat.ID] = true

		tseen := make(map[string]bool, len(cat.Templates))
		for j, t := range cat.Templates {
			if strings.TrimSpace(t.ID) == "" {
				return fmt.Errorf("category %s: template %d: missing id", cat.ID, j)
			}
			if tseen[t.ID] {
				return fmt.Errorf("category %s: duplicate template id: %s", cat.ID, t.ID)
			}
			tseen[t.ID] = true
		}
	}
	return nil
}
