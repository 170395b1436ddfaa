package mutate

import (
	"fmt"
	"slices"
	"strings"

	"catalog-cli/internal/clock"
	"catalog-cli/internal/model"
	"catalog-cli/internal/seed"
)

// Command is one admin mutation. Commands never touch storage; the pipeline
// turns (Catalog, Command) into a replacement Catalog or a rejection.
type Command interface {
	Op() string
}

type AddCategory struct {
	Name string
}

type DeleteCategory struct {
	CategoryID string
}

type AddTemplate struct {
	CategoryID string
	Title      string
	Content    string
}

type EditTemplate struct {
	CategoryID string
	TemplateID string
	Title      string
	Content    string
}

type DeleteTemplate struct {
	CategoryID string
	TemplateID string
}

// Import replaces the whole catalog with a user supplied one.
type Import struct {
	Catalog model.Catalog
}

// Reset replaces the catalog with the seeded default.
type Reset struct{}

func (AddCategory) Op() string    { return "add-category" }
func (DeleteCategory) Op() string { return "delete-category" }
func (AddTemplate) Op() string    { return "add-template" }
func (EditTemplate) Op() string   { return "edit-template" }
func (DeleteTemplate) Op() string { return "delete-template" }
func (Import) Op() string         { return "import" }
func (Reset) Op() string          { return "reset" }

// Result is the replacement catalog. ID is set for commands that create an
// entity.
type Result struct {
	Catalog model.Catalog
	ID      string
}

type Pipeline struct {
	IDs *IDGenerator
}

func NewPipeline(c clock.Clock) *Pipeline {
	return &Pipeline{IDs: NewIDGenerator(c)}
}

// Apply runs cmd against c. The input catalog is never modified; categories
// and templates the command does not touch keep their backing storage.
func (p *Pipeline) Apply(c model.Catalog, cmd Command) (Result, error) {
	switch cmd := cmd.(type) {
	case AddCategory:
		return addCategory(c, p.IDs, cmd)
	case DeleteCategory:
		return deleteCategory(c, cmd)
	case AddTemplate:
		return addTemplate(c, p.IDs, cmd)
	case EditTemplate:
		return editTemplate(c, cmd)
	case DeleteTemplate:
		return deleteTemplate(c, cmd)
	case Import:
		return importCatalog(cmd)
	case Reset:
		return Result{Catalog: seed.Catalog()}, nil
	case nil:
		return Result{}, fmt.Errorf("nil command")
	default:
		return Result{}, fmt.Errorf("unknown command: %T", cmd)
	}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func addCategory(c model.Catalog, ids *IDGenerator, cmd AddCategory) (Result, error) {
	if blank(cmd.Name) {
		return Result{}, emptyField("name")
	}
	id := ids.CategoryID(c)
	out := append(slices.Clip(c), model.Category{ID: id, Name: cmd.Name, Templates: []model.Template{}})
	return Result{Catalog: out, ID: id}, nil
}

func deleteCategory(c model.Catalog, cmd DeleteCategory) (Result, error) {
	_, idx, ok := c.Category(cmd.CategoryID)
	if !ok {
		return Result{}, NotFoundError{Kind: "category", ID: cmd.CategoryID}
	}
	out := make(model.Catalog, 0, len(c)-1)
	out = append(out, c[:idx]...)
	out = append(out, c[idx+1:]...)
	return Result{Catalog: out}, nil
}

func validateFields(title, content string) error {
	if blank(title) {
		return emptyField("title")
	}
	if blank(content) {
		return emptyField("content")
	}
	return nil
}

// replaceCategory returns a shallow copy of c with position idx swapped for
// cat.
func replaceCategory(c model.Catalog, idx int, cat model.Category) model.Catalog {
	out := slices.Clone(c)
	out[idx] = cat
	return out
}

func addTemplate(c model.Catalog, ids *IDGenerator, cmd AddTemplate) (Result, error) {
	if err := validateFields(cmd.Title, cmd.Content); err != nil {
		return Result{}, err
	}
	cat, idx, ok := c.Category(cmd.CategoryID)
	if !ok {
		return Result{}, NotFoundError{Kind: "category", ID: cmd.CategoryID}
	}
	id := ids.TemplateID(cat)
	cat.Templates = append(slices.Clip(cat.Templates), model.Template{ID: id, Title: cmd.Title, Content: cmd.Content})
	return Result{Catalog: replaceCategory(c, idx, cat), ID: id}, nil
}

func findTemplate(c model.Catalog, categoryID, templateID string) (model.Category, int, int, error) {
	cat, ci, ok := c.Category(categoryID)
	if !ok {
		return model.Category{}, -1, -1, NotFoundError{Kind: "category", ID: categoryID}
	}
	_, ti, ok := cat.Template(templateID)
	if !ok {
		return model.Category{}, -1, -1, NotFoundError{Kind: "template", ID: templateID}
	}
	return cat, ci, ti, nil
}

func editTemplate(c model.Catalog, cmd EditTemplate) (Result, error) {
	if err := validateFields(cmd.Title, cmd.Content); err != nil {
		return Result{}, err
	}
	cat, ci, ti, err := findTemplate(c, cmd.CategoryID, cmd.TemplateID)
	if err != nil {
		return Result{}, err
	}
	cat.Templates = slices.Clone(cat.Templates)
	cat.Templates[ti] = model.Template{ID: cmd.TemplateID, Title: cmd.Title, Content: cmd.Content}
	return Result{Catalog: replaceCategory(c, ci, cat), ID: cmd.TemplateID}, nil
}

func deleteTemplate(c model.Catalog, cmd DeleteTemplate) (Result, error) {
	cat, ci, ti, err := findTemplate(c, cmd.CategoryID, cmd.TemplateID)
	if err != nil {
		return Result{}, err
	}
	ts := make([]model.Template, 0, len(cat.Templates)-1)
	ts = append(ts, cat.Templates[:ti]...)
	ts = append(ts, cat.Templates[ti+1:]...)
	cat.Templates = ts
	return Result{Catalog: replaceCategory(c, ci, cat)}, nil
}

func importCatalog(cmd Import) (Result, error) {
	if err := model.ValidateCatalog(cmd.Catalog); err != nil {
		return Result{}, ValidationError{Code: ReasonMalformedImport, Err: err}
	}
	return Result{Catalog: cmd.Catalog.Clone()}, nil
}
