package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"catalog-cli/internal/model"
	"catalog-cli/internal/mutate"

	"github.com/spf13/cobra"
)

const (
	promptDeleteTemplate = "คุณแน่ใจว่าต้องการลบเทมเพลตนี้?"
	promptDeleteCategory = "คุณแน่ใจว่าต้องการลบหมวดหมู่นี้? เทมเพลตทั้งหมดในหมวดหมู่นี้จะถูกลบด้วย"
	promptReset          = "คุณแน่ใจว่าต้องการรีเซ็ตเป็นค่าตั้งต้น? การเปลี่ยนแปลงทั้งหมดจะถูกลบ"
	msgResetDone         = "รีเซ็ตเป็นค่าตั้งต้นเรียบร้อยแล้ว"
)

// confirm asks prompt on stderr and reads y/N from stdin. yes skips the
// question.
func confirm(cmd *cobra.Command, prompt string, yes bool) error {
	if yes {
		return nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s (y/N): ", prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return errCancelled
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return nil
	}
	return errCancelled
}

// contentArg resolves --content or --content-file ("-" reads stdin).
func contentArg(cmd *cobra.Command, content, file string) (string, error) {
	switch {
	case file == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	case file != "":
		b, err := os.ReadFile(file)
		return string(b), err
	}
	return content, nil
}

func resultOut(id string, c model.Catalog, msg string) envelope {
	return envelope{
		Data: map[string]any{"id": id, "catalog": c},
		text: textLine(msg),
	}
}

func newCategoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Add or delete categories",
	}

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an empty category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := execute(cmd, app, command(mutate.AddCategory{Name: args[0]}))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, resultOut(res.ID, res.Catalog, "added category "+res.ID))
		},
	}

	var yes bool
	del := &cobra.Command{
		Use:   "delete <category>",
		Short: "Delete a category and all of its templates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var catID string
			res, err := execute(cmd, app, func(c model.Catalog) (mutate.Command, error) {
				cat, ok := findCategory(c, args[0])
				if !ok {
					return nil, mutate.NotFoundError{Kind: "category", ID: args[0]}
				}
				prompt := fmt.Sprintf("%s (%s, %d)", promptDeleteCategory, cat.Name, len(cat.Templates))
				if err := confirm(cmd, prompt, yes); err != nil {
					return nil, err
				}
				catID = cat.ID
				return mutate.DeleteCategory{CategoryID: cat.ID}, nil
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, resultOut(catID, res.Catalog, "deleted category "+catID))
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	cmd.AddCommand(add, del)
	return cmd
}

func newTemplateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Add, edit or delete templates",
	}

	var title, content, contentFile string
	add := &cobra.Command{
		Use:   "add <category>",
		Short: "Add a template to a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := contentArg(cmd, content, contentFile)
			if err != nil {
				return writeErr(cmd, err)
			}
			var catID string
			res, err := execute(cmd, app, func(c model.Catalog) (mutate.Command, error) {
				catID = args[0]
				if cat, ok := findCategory(c, args[0]); ok {
					catID = cat.ID
				}
				return mutate.AddTemplate{CategoryID: catID, Title: title, Content: body}, nil
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, resultOut(res.ID, res.Catalog, "added template "+catID+"/"+res.ID))
		},
	}
	add.Flags().StringVar(&title, "title", "", "Template title")
	add.Flags().StringVar(&content, "content", "", "Template content")
	add.Flags().StringVar(&contentFile, "content-file", "", "Read content from a file (- for stdin)")

	var editTitle, editContent, editFile string
	edit := &cobra.Command{
		Use:   "edit <category>/<template>",
		Short: "Change a template's title or content",
		Long: strings.TrimSpace(`
Change a template's title and/or content. Omitted fields keep their value;
both must be non-empty afterwards.
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body *string
			if cmd.Flags().Changed("content") || editFile != "" {
				b, err := contentArg(cmd, editContent, editFile)
				if err != nil {
					return writeErr(cmd, err)
				}
				body = &b
			}
			var ref string
			res, err := execute(cmd, app, func(c model.Catalog) (mutate.Command, error) {
				e, err := resolveRef(c, args[0])
				if err != nil {
					return nil, err
				}
				t := e.Template
				if cmd.Flags().Changed("title") {
					t.Title = editTitle
				}
				if body != nil {
					t.Content = *body
				}
				ref = e.CategoryID + "/" + t.ID
				return mutate.EditTemplate{CategoryID: e.CategoryID, TemplateID: t.ID, Title: t.Title, Content: t.Content}, nil
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, resultOut(ref, res.Catalog, "updated template "+ref))
		},
	}
	edit.Flags().StringVar(&editTitle, "title", "", "New title")
	edit.Flags().StringVar(&editContent, "content", "", "New content")
	edit.Flags().StringVar(&editFile, "content-file", "", "Read new content from a file (- for stdin)")

	var yes bool
	del := &cobra.Command{
		Use:   "delete <category>/<template>",
		Short: "Delete a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ref string
			res, err := execute(cmd, app, func(c model.Catalog) (mutate.Command, error) {
				e, err := resolveRef(c, args[0])
				if err != nil {
					return nil, err
				}
				if err := confirm(cmd, promptDeleteTemplate+" ("+e.Template.Title+")", yes); err != nil {
					return nil, err
				}
				ref = e.CategoryID + "/" + e.Template.ID
				return mutate.DeleteTemplate{CategoryID: e.CategoryID, TemplateID: e.Template.ID}, nil
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, resultOut(ref, res.Catalog, "deleted template "+ref))
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	cmd.AddCommand(add, edit, del)
	return cmd
}

func newResetCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Replace the catalog with the default templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := confirm(cmd, promptReset, yes); err != nil {
				return writeErr(cmd, err)
			}
			res, err := execute(cmd, app, command(mutate.Reset{}))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, resultOut("", res.Catalog, msgResetDone))
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
