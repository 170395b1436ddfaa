package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"catalog-cli/internal/prefs"

	"github.com/spf13/cobra"
)

type prefsOut struct {
	ViewMode prefs.ViewMode `json:"viewMode"`
	Settings prefs.Settings `json:"settings"`
}

func (p prefsOut) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "view: %s\nitemsPerPage: %d\ncardSize: %s\nshowPreview: %t\nautoSave: %t\ncompactMode: %t\n",
		p.ViewMode, p.Settings.ItemsPerPage, p.Settings.CardSize, p.Settings.ShowPreview, p.Settings.AutoSave, p.Settings.CompactMode)
	return err
}

func currentPrefs(p *prefs.Store) envelope {
	out := prefsOut{ViewMode: p.ViewMode(), Settings: p.Settings()}
	return envelope{Data: out, text: out.WriteText}
}

// applySetting sets one settings field from its JSON name.
func applySetting(s *prefs.Settings, key, value string) error {
	parseBool := func(dst *bool) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}
	switch key {
	case "itemsPerPage":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		s.ItemsPerPage = n
	case "cardSize":
		s.CardSize = prefs.CardSize(strings.ToLower(value))
	case "showPreview":
		return parseBool(&s.ShowPreview)
	case "autoSave":
		return parseBool(&s.AutoSave)
	case "compactMode":
		return parseBool(&s.CompactMode)
	default:
		return fmt.Errorf("unknown setting %q (itemsPerPage, cardSize, showPreview, autoSave, compactMode)", key)
	}
	return nil
}

func newPrefsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change viewer preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOut(cmd, app, currentPrefs(prefs.Open(app.cfg.PrefsPath)))
		},
	}

	view := &cobra.Command{
		Use:       "view <list|cards|table>",
		Short:     "Set the default view",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(prefs.ViewList), string(prefs.ViewCards), string(prefs.ViewTable)},
		RunE: func(cmd *cobra.Command, args []string) error {
			p := prefs.Open(app.cfg.PrefsPath)
			if err := p.SetViewMode(prefs.ViewMode(strings.ToLower(args[0]))); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, currentPrefs(p))
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one view setting",
		Long: `Change one view setting. Keys: itemsPerPage (6, 12, 24, 48, 96),
cardSize (small, medium, large), showPreview, autoSave, compactMode.
While autoSave is off, changes apply to this invocation only.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := prefs.Open(app.cfg.PrefsPath)
			next := p.Settings()
			if err := applySetting(&next, args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			s, err := p.UpdateSettings(func(s *prefs.Settings) { *s = next })
			if err != nil {
				return writeErr(cmd, err)
			}
			out := prefsOut{ViewMode: p.ViewMode(), Settings: s}
			return writeOut(cmd, app, envelope{Data: out, text: out.WriteText})
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore default view settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := prefs.Open(app.cfg.PrefsPath)
			if err := p.ResetSettings(); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, currentPrefs(p))
		},
	}

	cmd.AddCommand(view, set, reset)
	return cmd
}
