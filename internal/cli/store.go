package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hungpv1995/blog-api/internal/repository"
	"github.com/hungpv1995/blog-api/internal/seed"
	"github.com/hungpv1995/blog-api/internal/server"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Prepare the store schema",
		Long: `Apply SQL migrations (PostgreSQL, SQLite) or create the Elasticsearch
index. MongoDB needs no preparation.`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), rootOpts, func(context.Context, repository.PostStore) error {
				rootOpts.Log.Info("Store ready")
				fmt.Fprintln(cmd.OutOrStdout(), "Store ready")
				return nil
			})
		},
	}
}

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Count     int
	Generator string
	Seed      int64
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert generated blog posts",
		Long: `Insert generated blog posts into the store.

Example:
  blog-api seed --count 10
  blog-api seed --count 100 --generator fake --seed 42`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Count < 1 {
				return NewExitError(ExitCommandError, "count must be at least 1")
			}
			gen, err := seed.ByName(opts.Generator, opts.Seed)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid generator", err)
			}
			return withStore(cmd.Context(), rootOpts, func(ctx context.Context, store repository.PostStore) error {
				created, err := seed.Seed(ctx, store, gen, opts.Count)
				if err != nil {
					return err
				}
				opts.Log.Info("Posts seeded", "count", len(created), "generator", opts.Generator)
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d posts\n", len(created))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&opts.Count, "count", "n", 10, "number of posts to insert")
	cmd.Flags().StringVarP(&opts.Generator, "generator", "g", "pool", "post generator (pool|fake)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed, 0 for a random one")

	return cmd
}

// NewDropCommand creates the drop command.
func NewDropCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:           "drop",
		Short:         "Delete every stored post",
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return NewExitError(ExitCommandError, "refusing to drop without --yes")
			}
			return withStore(cmd.Context(), rootOpts, func(ctx context.Context, store repository.PostStore) error {
				if err := seed.TearDown(ctx, store); err != nil {
					return err
				}
				rootOpts.Log.Info("Store dropped")
				fmt.Fprintln(cmd.OutOrStdout(), "Store dropped")
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the drop")

	return cmd
}

func withStore(ctx context.Context, opts *RootOptions, fn func(context.Context, repository.PostStore) error) error {
	store, err := server.OpenStore(ctx, opts.Config, opts.Log)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open store", err)
	}
	defer func() {
		if err := store.Close(ctx); err != nil {
			opts.Log.Error("Failed to close store", "error", err)
		}
	}()

	if err := fn(ctx, store); err != nil {
		return WrapExitError(ExitFailure, "command failed", err)
	}
	return nil
}
