package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"catalog-cli/internal/clipboard"
	"catalog-cli/internal/clock"
	"catalog-cli/internal/config"
	"catalog-cli/internal/format"
	"catalog-cli/internal/logging"
	"catalog-cli/internal/model"
	"catalog-cli/internal/mutate"
	"catalog-cli/internal/prefs"
	"catalog-cli/internal/store"
	"catalog-cli/internal/syncer"
	"catalog-cli/internal/tui"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type App struct {
	ConfigPath string
	Store      storeFlag
	DataPath   string
	PrettyJSON bool
	Format     string

	cfg   config.Config
	log   zerolog.Logger
	clip  clipboard.Writer
	clock clock.Clock
}

// Deps replaces process-wide side effects. Zero fields use the real ones.
type Deps struct {
	Clipboard clipboard.Writer
	Clock     clock.Clock
	Logger    *zerolog.Logger
}

func NewRootCmd() *cobra.Command {
	return NewRootCmdWith(Deps{})
}

func NewRootCmdWith(d Deps) *cobra.Command {
	app := &App{clip: d.Clipboard, clock: d.Clock}
	if app.clip == nil {
		app.clip = clipboard.System{}
	}
	if app.clock == nil {
		app.clock = clock.Real()
	}

	cmd := &cobra.Command{
		Use:          "catalog",
		Short:        "Template catalog CLI + TUI",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Browse and copy templates interactively
  catalog

  # Scriptable commands
  catalog list --format text
  catalog search refund --fuzzy

  # Copy one template (shortcut for: catalog copy <category>/<template>)
  catalog greetings/hello

  # Share one catalog between machines
  catalog serve --addr :3000
  catalog --store remote   # with CATALOG_REMOTE_URL=http://host:3000
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.LoadOptions{ConfigPath: app.ConfigPath, EnvFiles: []string{".env"}})
		if err != nil {
			return writeErr(cmd, err)
		}
		if app.Store.set {
			cfg.Store.Backend = app.Store.value
		}
		if strings.TrimSpace(app.DataPath) != "" {
			cfg.Store.Path = app.DataPath
		}
		if err := cfg.Validate(); err != nil {
			return writeErr(cmd, err)
		}
		app.cfg = cfg
		if d.Logger != nil {
			app.log = *d.Logger
		} else {
			app.log = logging.New(cfg.Log)
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Path to a YAML config file (default: "+config.EnvConfig+" or ~/.catalog/config.yaml)")
	cmd.PersistentFlags().Var(&app.Store, "store", "Storage backend ("+strings.Join(storeBackends, "|")+")")
	cmd.PersistentFlags().StringVar(&app.DataPath, "data", "", "Catalog JSON file for the file backend")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("CATALOG_FORMAT", "json"), "Output format ("+strings.Join(format.Formats, "|")+")")

	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newSearchCmd(app))
	cmd.AddCommand(newCopyCmd(app))
	cmd.AddCommand(newCategoryCmd(app))
	cmd.AddCommand(newTemplateCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newResetCmd(app))
	cmd.AddCommand(newPrefsCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

func runTUI(cmd *cobra.Command, app *App) error {
	ctrl, done, err := openController(cmd.Context(), app)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer done()
	return tui.Run(tui.Options{
		Controller: ctrl,
		Prefs:      prefs.Open(app.cfg.PrefsPath),
		Clipboard:  app.clip,
		Logger:     app.log,
	})
}

// openController opens the configured backend and reads the first snapshot.
// done closes both.
func openController(ctx context.Context, app *App) (*syncer.Controller, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(ctx, app.cfg.StoreOptions(app.log))
	if err != nil {
		return nil, nil, err
	}
	ctrl, err := syncer.New(ctx, st, syncer.Options{
		Pipeline: mutate.NewPipeline(app.clock),
		Logger:   app.log,
	})
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return ctrl, func() {
		ctrl.Close()
		if err := st.Close(); err != nil {
			app.log.Warn().Err(err).Msg("close store")
		}
	}, nil
}

// execute opens the store, lets build turn the current catalog into a
// mutation, and runs it.
func execute(cmd *cobra.Command, app *App, build func(model.Catalog) (mutate.Command, error)) (mutate.Result, error) {
	ctrl, done, err := openController(cmd.Context(), app)
	if err != nil {
		return mutate.Result{}, err
	}
	defer done()
	m, err := build(ctrl.Current())
	if err != nil {
		return mutate.Result{}, err
	}
	return ctrl.Execute(cmd.Context(), m)
}

// command adapts a fixed mutation for execute.
func command(m mutate.Command) func(model.Catalog) (mutate.Command, error) {
	return func(model.Catalog) (mutate.Command, error) { return m, nil }
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), describe(err))
	return err
}
