package cli

import (
	"fmt"
	"io"
	"strings"

	"catalog-cli/internal/model"
	"catalog-cli/internal/mutate"
	"catalog-cli/internal/query"
	"catalog-cli/internal/view"

	"github.com/spf13/cobra"
)

// envelope is the JSON/YAML shape of every command's output. text, when
// set, is what --format text prints instead.
type envelope struct {
	Data  any      `json:"data"`
	Hints []string `json:"_hints,omitempty"`

	text func(w io.Writer) error
}

func (e envelope) WriteText(w io.Writer) error {
	if e.text != nil {
		return e.text(w)
	}
	_, err := fmt.Fprintln(w, e.Data)
	return err
}

func textLine(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := fmt.Fprintln(w, s)
		return err
	}
}

func writeCatalogText(w io.Writer, c model.Catalog) error {
	for _, cat := range c {
		if _, err := fmt.Fprintf(w, "%s [%s]  %s\n", cat.Name, cat.ID, view.ItemCount(len(cat.Templates))); err != nil {
			return err
		}
		if len(cat.Templates) == 0 {
			if _, err := fmt.Fprintln(w, "  "+view.MsgEmptyCategory); err != nil {
				return err
			}
		}
		for _, t := range cat.Templates {
			if _, err := fmt.Fprintf(w, "  %s  %s  (%s)\n", t.ID, t.Title, view.CharCount(t.Content)); err != nil {
				return err
			}
		}
	}
	return nil
}

type entryOut struct {
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	model.Template
}

func entriesOut(entries []query.Entry) []entryOut {
	out := make([]entryOut, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryOut{CategoryID: e.CategoryID, CategoryName: e.CategoryName, Template: e.Template})
	}
	return out
}

func writeEntriesText(w io.Writer, entries []query.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, view.MsgNoResults)
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s/%s  %s · %s  (%s)\n", e.CategoryID, e.Template.ID, e.CategoryName, e.Template.Title, view.CharCount(e.Template.Content)); err != nil {
			return err
		}
	}
	return nil
}

// loadCatalog reads the current catalog. A failed read falls back to the
// default catalog with a warning, as the interactive browser does.
func loadCatalog(cmd *cobra.Command, app *App) (model.Catalog, error) {
	ctrl, done, err := openController(cmd.Context(), app)
	if err != nil {
		return nil, err
	}
	defer done()
	return ctrl.Current(), nil
}

func newListCmd(app *App) *cobra.Command {
	var category, sortBy string
	var desc bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories and templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			var field query.Field
			if sortBy != "" {
				f, err := query.ParseField(sortBy)
				if err != nil {
					return writeErr(cmd, err)
				}
				field = f
			}
			c, err := loadCatalog(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if category != "" {
				cat, ok := findCategory(c, category)
				if !ok {
					return writeErr(cmd, mutate.NotFoundError{Kind: "category", ID: category})
				}
				c = model.Catalog{cat}
			}
			if field != "" {
				c = query.SortCatalog(c, field, direction(desc))
			}
			return writeOut(cmd, app, envelope{
				Data: c,
				text: func(w io.Writer) error { return writeCatalogText(w, c) },
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only this category (id or name)")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort templates within each category by title, content or length")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	return cmd
}

func newSearchCmd(app *App) *cobra.Command {
	var fuzzy, desc bool
	var sortBy string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find templates by title or content",
		Long: strings.TrimSpace(`
Find templates whose title or content contains the query, ignoring case.
With --fuzzy, results are ranked by fuzzy match score instead.
`),
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			var field query.Field
			if sortBy != "" {
				f, err := query.ParseField(sortBy)
				if err != nil {
					return writeErr(cmd, err)
				}
				field = f
			}
			c, err := loadCatalog(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}

			var entries []query.Entry
			if fuzzy {
				entries = query.FuzzySearch(c, q)
			} else {
				entries = query.Flatten(query.Filter(c, q))
			}
			if field != "" {
				entries = query.SortEntries(entries, field, direction(desc))
			}
			return writeOut(cmd, app, envelope{
				Data: entriesOut(entries),
				text: func(w io.Writer) error { return writeEntriesText(w, entries) },
			})
		},
	}
	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "Rank by fuzzy match")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort by title, content or length")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	return cmd
}

func direction(desc bool) query.Direction {
	if desc {
		return query.Desc
	}
	return query.Asc
}

func findCategory(c model.Catalog, ref string) (model.Category, bool) {
	if cat, _, ok := c.Category(ref); ok {
		return cat, true
	}
	for _, cat := range c {
		if strings.EqualFold(cat.Name, ref) {
			return cat, true
		}
	}
	return model.Category{}, false
}

func findTemplate(cat model.Category, ref string) (model.Template, bool) {
	if t, _, ok := cat.Template(ref); ok {
		return t, true
	}
	for _, t := range cat.Templates {
		if strings.EqualFold(t.Title, ref) {
			return t, true
		}
	}
	return model.Template{}, false
}

// resolveRef finds "<category>/<template>", each part an id or a
// case-insensitive name.
func resolveRef(c model.Catalog, ref string) (query.Entry, error) {
	catRef, tplRef, ok := strings.Cut(ref, "/")
	if !ok || strings.TrimSpace(catRef) == "" || strings.TrimSpace(tplRef) == "" {
		return query.Entry{}, fmt.Errorf("invalid template reference %q (want <category>/<template>)", ref)
	}
	cat, ok := findCategory(c, strings.TrimSpace(catRef))
	if !ok {
		return query.Entry{}, mutate.NotFoundError{Kind: "category", ID: catRef}
	}
	t, ok := findTemplate(cat, strings.TrimSpace(tplRef))
	if !ok {
		return query.Entry{}, mutate.NotFoundError{Kind: "template", ID: tplRef}
	}
	return query.Entry{CategoryID: cat.ID, CategoryName: cat.Name, Template: t}, nil
}

func newCopyCmd(app *App) *cobra.Command {
	var toStdout bool
	cmd := &cobra.Command{
		Use:   "copy <category>/<template>...",
		Short: "Copy templates to the clipboard",
		Long: strings.TrimSpace(`
Copy one template's content to the clipboard. With several references the
templates are copied together as "title\ncontent" blocks separated by ---.
`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCatalog(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			entries := make([]query.Entry, 0, len(args))
			for _, ref := range args {
				e, err := resolveRef(c, ref)
				if err != nil {
					return writeErr(cmd, err)
				}
				entries = append(entries, e)
			}

			text := entries[0].Template.Content
			if len(entries) > 1 {
				text = query.FormatEntries(entries)
			}
			if toStdout {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
				return err
			}

			if err := app.clip.WriteText(text); err != nil {
				// Without a clipboard the text still reaches the user.
				fmt.Fprintln(cmd.ErrOrStderr(), describe(err))
				_, werr := fmt.Fprintln(cmd.OutOrStdout(), text)
				return werr
			}
			return writeOut(cmd, app, envelope{
				Data: map[string]any{"copied": len(entries), "characters": len([]rune(text))},
				text: textLine(view.MsgCopied),
			})
		},
	}
	cmd.Flags().BoolVar(&toStdout, "print", false, "Print to stdout instead of the clipboard")
	return cmd
}
