package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"media-directory/internal/logging"
	"media-directory/internal/startup"
	"media-directory/internal/storage"
	"media-directory/internal/storage/backends"
)

// Default timeout for catalog operations
const defaultTimeout = 5 * time.Minute

type options struct {
	configFile string
	driver     string
	sqliteFile string
	jsonOutput bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "cdsctl",
		Short:         "Inspect and maintain a content directory catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				logging.SetLevel(logging.LevelDebug)
			} else {
				logging.SetLevel(logging.LevelWarn)
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to config file (default $"+startup.ConfigEnv+")")
	root.PersistentFlags().StringVar(&opts.driver, "driver", "", "Storage driver: sqlite3, mysql or postgres (overrides config)")
	root.PersistentFlags().StringVar(&opts.sqliteFile, "sqlite-file", "", "SQLite database file (overrides config)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newCompileCmd(opts),
		newBrowseCmd(opts),
		newSearchCmd(opts),
		newStatsCmd(opts),
		newRemoveCmd(opts),
		newBackupCmd(opts),
	)
	return root
}

// loadConfig applies the command line overrides to the server configuration.
func (o *options) loadConfig() (*startup.Config, error) {
	cfg, err := startup.LoadConfig(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.driver != "" {
		cfg.Storage.Driver = o.driver
	}
	if o.sqliteFile != "" {
		abs, err := filepath.Abs(o.sqliteFile)
		if err != nil {
			return nil, err
		}
		cfg.Storage.SQLite.File = abs
	}
	return cfg, nil
}

// withStorage opens the configured catalog, runs fn and closes it again.
// Periodic backups are disabled; the backup command writes one explicitly.
func (o *options) withStorage(cmd *cobra.Command, fn func(ctx context.Context, s *storage.Storage) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
	defer cancel()

	bc := cfg.Backend(nil)
	bc.SQLite.BackupEnabled = false
	s, err := backends.Open(ctx, bc, nil)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}

	runErr := fn(ctx, s)
	if err := s.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to close catalog: %w", err)
	}
	return runErr
}

func (o *options) writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
