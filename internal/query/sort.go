package query

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"catalog-cli/internal/model"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type Field string

const (
	SortTitle   Field = "title"
	SortContent Field = "content"
	SortLength  Field = "length"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func (d Direction) Toggle() Direction {
	if d == Desc {
		return Asc
	}
	return Desc
}

func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case SortTitle, SortContent, SortLength:
		return f, nil
	default:
		return "", fmt.Errorf("unknown sort field: %s (want title|content|length)", s)
	}
}

// Fields lists sort fields in the order the table cycles through them.
var Fields = []Field{SortTitle, SortContent, SortLength}

// Sort returns a new slice ordered by field. Text fields use Thai collation;
// length compares content character counts. Equal keys keep their input
// order.
func Sort(ts []model.Template, field Field, dir Direction) []model.Template {
	out := slices.Clone(ts)
	cmp := comparator(field)
	slices.SortStableFunc(out, func(a, b model.Template) int {
		r := cmp(a, b)
		if dir == Desc {
			return -r
		}
		return r
	})
	return out
}

// SortEntries orders entries across categories by their template.
func SortEntries(entries []Entry, field Field, dir Direction) []Entry {
	out := slices.Clone(entries)
	cmp := comparator(field)
	slices.SortStableFunc(out, func(a, b Entry) int {
		r := cmp(a.Template, b.Template)
		if dir == Desc {
			return -r
		}
		return r
	})
	return out
}

// SortCatalog sorts the templates of every category, keeping category
// order.
func SortCatalog(c model.Catalog, field Field, dir Direction) model.Catalog {
	out := make(model.Catalog, len(c))
	for i, cat := range c {
		cat.Templates = Sort(cat.Templates, field, dir)
		out[i] = cat
	}
	return out
}

func comparator(field Field) func(a, b model.Template) int {
	switch field {
	case SortLength:
		return func(a, b model.Template) int {
			return utf8.RuneCountInString(a.Content) - utf8.RuneCountInString(b.Content)
		}
	case SortContent:
		col := collate.New(language.Thai)
		return func(a, b model.Template) int { return col.CompareString(a.Content, b.Content) }
	default:
		col := collate.New(language.Thai)
		return func(a, b model.Template) int { return col.CompareString(a.Title, b.Title) }
	}
}
