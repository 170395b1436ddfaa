package cli

import (
	"fmt"
	"io"
	"strings"

	"catalog-cli/internal/docs"

	"github.com/spf13/cobra"
)

func newDocsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "docs [topic]",
		Short:     "Show help topics",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: docs.Topics(),
		// Reading docs needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				topics := docs.Topics()
				return writeOut(cmd, app, envelope{
					Data: topics,
					text: textLine(strings.Join(topics, "\n")),
				})
			}
			md, ok := docs.Get(args[0])
			if !ok {
				return writeErr(cmd, fmt.Errorf("unknown topic %q (have: %s)", args[0], strings.Join(docs.Topics(), ", ")))
			}
			return writeOut(cmd, app, envelope{
				Data: map[string]any{"topic": strings.ToLower(args[0]), "markdown": md},
				text: func(w io.Writer) error {
					_, err := io.WriteString(w, md)
					return err
				},
			})
		},
	}
}
