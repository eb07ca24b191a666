package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/connectkit/internal/logging"
	"github.com/blackwell-systems/connectkit/internal/server"
)

var (
	serveAddr string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve checks over a local HTTP API",
		Long: `Start an HTTP server that answers check and plan requests, for editor
and CI integrations.

Endpoints:
  GET /healthz                         liveness
  GET /api/check?dir=<path>            full check report (JSON)
  GET /api/plan?dir=&manager=&type=    install plan (JSON)
  GET /api/history?dir=&limit=         recorded checks (JSON)

Relative dir values are resolved against the project directory. The server
binds to 127.0.0.1 by default; it runs package manager commands, so do not
expose it to untrusted networks.`,
		Example: `  # Serve on the configured address (default 127.0.0.1:7433)
  connectkit serve

  # Serve on another port
  connectkit serve --addr 127.0.0.1:9000`,
		RunE: runServe,
	}
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr from config)")
	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot()
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	srv := server.New(newChecker(), root, history, logging.Component(logger, "server"))
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s (press Ctrl+C to stop)\n", root, addr)
	if err := srv.ListenAndServe(cmd.Context(), addr); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
