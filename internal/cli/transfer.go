package cli

import (
	"errors"
	"fmt"

	"catalog-cli/internal/model"
	"catalog-cli/internal/mutate"
	"catalog-cli/internal/transfer"

	"github.com/spf13/cobra"
)

const (
	msgExportDone = "ส่งออกข้อมูลเรียบร้อยแล้ว"
	msgImportDone = "นำเข้าข้อมูลเรียบร้อยแล้ว"
)

func importPrompt(n int) string {
	return fmt.Sprintf("คุณแน่ใจว่าต้องการนำเข้าข้อมูล? ข้อมูลปัจจุบันจะถูกแทนที่ด้วยข้อมูลใหม่ (%d หมวดหมู่)", n)
}

func newExportCmd(app *App) *cobra.Command {
	var output string
	var compressed bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog to a backup file",
		Long: `Write the catalog to templates-backup-YYYY-MM-DD.json in the current
directory, or to --output (a file, a directory, or - for stdout).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCatalog(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if output == "-" {
				return transfer.Write(cmd.OutOrStdout(), c, compressed)
			}
			path, err := transfer.WriteFile(output, c, app.clock.Now(), compressed)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{
				Data: map[string]any{"path": path, "categories": len(c), "templates": c.TemplateCount()},
				text: textLine(msgExportDone + ": " + path),
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file or directory (- for stdout)")
	cmd.Flags().BoolVar(&compressed, "gzip", false, "Compress the backup")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the catalog with a backup file",
		Long: `Replace the whole catalog with the contents of a backup written by export.
Plain and gzip-compressed files are accepted; - reads stdin and requires --yes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var c model.Catalog
			var err error
			if args[0] == "-" {
				if !yes {
					return writeErr(cmd, errors.New("import from stdin requires --yes"))
				}
				c, err = transfer.Read(cmd.InOrStdin())
			} else {
				c, err = transfer.ReadFile(args[0])
			}
			if err != nil {
				if !errors.Is(err, transfer.ErrMalformed) {
					fmt.Fprintln(cmd.ErrOrStderr(), msgReadFailed)
				}
				return writeErr(cmd, err)
			}
			if err := confirm(cmd, importPrompt(len(c)), yes); err != nil {
				return writeErr(cmd, err)
			}
			res, err := execute(cmd, app, command(mutate.Import{Catalog: c}))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{
				Data: map[string]any{"categories": len(res.Catalog), "templates": res.Catalog.TemplateCount()},
				text: textLine(msgImportDone + " (" + transfer.Summary(res.Catalog) + ")"),
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
