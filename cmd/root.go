package main

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"slidewake/internal/cache"
	"slidewake/internal/logging"
	"slidewake/internal/platform"
	"slidewake/internal/ui/setup"

	"github.com/spf13/cobra"
)

const cacheFileName = "cache.db"

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "slidewake [media...]",
		Short: "Fullscreen signage slideshow that keeps the display awake",
		Long: `Slidewake cycles through images and short looping videos fullscreen and
keeps the display from sleeping while it runs.

Media comes from positional arguments (paths, file://, http(s):// or data: URIs),
from --media-dir, or from the setup window when neither is given. Remote media is
served from the offline cache once 'slidewake cache install' has run.

Examples:
  slidewake ~/Pictures/lobby/*.jpg
  slidewake --media-dir ~/signage --title "Welcome"
  slidewake --dwell-policy uniform --windowed https://example.com/a.jpg`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, path, err := opts.loadSettings(cmd, args)
			if err != nil {
				return err
			}
			ctx := withLogger(cmd.Context(), newLogger(settings))
			return runSlideshow(ctx, settings, path)
		},
	}
	opts.register(root)

	root.AddCommand(newCacheCommand(opts), newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", appName, version)
		},
	}
}

func newCacheCommand(opts *options) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the offline media cache",
	}

	install := &cobra.Command{
		Use:   "install [url...]",
		Short: "Download remote media into the current cache generation",
		Long: `Download every remote media reference from the settings file, plus any URLs
given as arguments, into the current cache generation, then drop older
generations. Individual download failures are reported and skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, _, err := opts.loadSettings(cmd, nil)
			if err != nil {
				return err
			}
			ctx := withLogger(cmd.Context(), newLogger(settings))

			store, db, err := openCache(ctx, settings)
			if err != nil {
				return err
			}
			defer db.Close()

			media := append(settings.CacheConfig("").Media, args...)
			report, err := store.Install(ctx, nil, media)
			if err != nil {
				return fmt.Errorf("install cache: %w", err)
			}
			removed, err := store.Activate(ctx)
			if err != nil {
				return fmt.Errorf("activate cache: %w", err)
			}
			cmd.Printf("generation %s: %d of %d stored, %d failed, %d stale entries removed\n",
				store.Generation(), report.Stored, report.Requested, report.Failed, removed)
			return nil
		},
	}

	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete every cache generation except the current one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, _, err := opts.loadSettings(cmd, nil)
			if err != nil {
				return err
			}
			ctx := withLogger(cmd.Context(), newLogger(settings))

			store, db, err := openCache(ctx, settings)
			if err != nil {
				return err
			}
			defer db.Close()

			removed, err := store.Activate(ctx)
			if err != nil {
				return fmt.Errorf("prune cache: %w", err)
			}
			cmd.Printf("generation %s kept, %d stale entries removed\n", store.Generation(), removed)
			return nil
		},
	}

	cacheCmd.AddCommand(install, prune)
	return cacheCmd
}

func cachePath() (string, error) {
	dir, err := platform.NewService().AppConfigDir(appName)
	if err != nil {
		return "", fmt.Errorf("resolve cache dir: %w", err)
	}
	return filepath.Join(dir, cacheFileName), nil
}

func openCache(ctx context.Context, settings setup.Settings) (*cache.Store, *sql.DB, error) {
	path, err := cachePath()
	if err != nil {
		return nil, nil, err
	}
	config := settings.CacheConfig(path)
	db, err := cache.OpenDB(ctx, config.Path)
	if err != nil {
		return nil, nil, err
	}
	logging.FromContext(ctx).Debug().Str("path", config.Path).Msg("cache opened")
	return cache.NewStore(ctx, db, config.Generation, cache.Options{}), db, nil
}
