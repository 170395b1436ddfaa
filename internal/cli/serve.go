package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"catalog-cli/internal/store"
	"catalog-cli/internal/web"

	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Share the catalog over HTTP",
		Long: strings.TrimSpace(`
Serve the configured catalog store over HTTP so other clients can use it
with --store remote.

  GET  /api/templates         the whole catalog
  POST /api/templates         replace the whole catalog
  GET  /api/templates/stream  WebSocket: a snapshot now and after every change

There is no authentication. Every client can replace the catalog, and when
two clients save at the same time the later save wins.
`),
		Example: strings.TrimSpace(`
# Serve the local catalog file on all interfaces
catalog serve --addr :3000

# Serve a Postgres-backed catalog
CATALOG_STORE=postgres CATALOG_DSN=postgres://... catalog serve
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.cfg.Store.Backend == store.BackendRemote {
				return writeErr(cmd, errors.New("serve: a remote store cannot be served; pick file, sqlite or postgres"))
			}
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				listenAddr = app.cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := app.cfg.StoreOptions(app.log)
			// Other processes may write the same file; clients should see it.
			opts.Watch = opts.Watch || opts.Backend == store.BackendFile
			st, err := store.Open(ctx, opts)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			srv, err := web.NewServer(web.ServerConfig{Addr: listenAddr, Store: st, Logger: app.log})
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, 127.0.0.1:3000)")
	return cmd
}
