package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hungpv1995/blog-api/internal/config"
	"github.com/hungpv1995/blog-api/internal/logger"
)

// RootOptions holds global flags and the state resolved from them.
type RootOptions struct {
	DatabaseURL string
	LogLevel    string
	LogJSON     bool

	Config *config.Config
	Log    logger.Logger
}

// NewRootCommand creates the root command for the blog API.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "blog-api",
		Short:         "Blog post REST API",
		Long:          "A CRUD REST API for blog posts backed by MongoDB, PostgreSQL, SQLite or Elasticsearch.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			msg := fmt.Sprintf("unknown command %q for %q", args[0], cmd.CommandPath())
			if suggestions := cmd.SuggestionsFor(args[0]); len(suggestions) > 0 {
				msg += fmt.Sprintf(", did you mean %q?", suggestions[0])
			}
			return NewExitError(ExitCommandError, msg)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "database-url", "", "store connection string (overrides DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&opts.LogJSON, "log-json", false, "log in JSON format")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewDropCommand(opts))

	return cmd
}

// resolve loads configuration with flag overrides and builds the logger
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	flags := cmd.Flags()
	overrides := map[string]any{}
	if flags.Changed("database-url") {
		overrides["database.url"] = o.DatabaseURL
	}
	if flags.Changed("log-level") {
		overrides["log.level"] = o.LogLevel
	}
	if flags.Changed("log-json") {
		overrides["log.json"] = o.LogJSON
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	o.Config = cfg
	o.Log = logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		JSON:       cfg.Log.JSON,
		Output:     cmd.ErrOrStderr(),
		TimeFormat: "15:04:05",
	})
	cmd.SetContext(logger.ContextWithLogger(cmd.Context(), o.Log))
	return nil
}

// noArgs is cobra.NoArgs reporting a command error exit code
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	}
	return nil
}
