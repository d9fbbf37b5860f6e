package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hungpv1995/blog-api/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the blog post HTTP API.

The store is chosen from the database URL scheme. When REDIS_ADDR is set,
single post reads are cached in Redis.

Example:
  blog-api serve --database-url mongodb://localhost:27017/blog-app
  blog-api serve --database-url sqlite://./blog.db --port 9000`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				rootOpts.Config.Server.Port = port
			}
			return runServe(cmd.Context(), rootOpts)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on (overrides SERVER_PORT)")

	return cmd
}

func runServe(ctx context.Context, opts *RootOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.RunServer(ctx, opts.Config)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to start server", err)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		opts.Log.Info("Received shutdown signal, shutting down")
	case serveErr = <-srv.Done():
	}

	if err := srv.Close(context.Background()); err != nil {
		return WrapExitError(ExitFailure, "failed to stop server", err)
	}
	if serveErr != nil {
		return WrapExitError(ExitFailure, "server error", serveErr)
	}
	return nil
}
