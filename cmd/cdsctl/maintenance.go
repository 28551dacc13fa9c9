package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"media-directory/internal/storage"
	"media-directory/internal/storage/sqlite"
)

func newRemoveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove objects with their references and emptied containers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			return opts.withStorage(cmd, func(ctx context.Context, s *storage.Storage) error {
				for _, id := range ids {
					if err := s.RemoveObject(ctx, id); err != nil {
						return fmt.Errorf("remove %d: %w", id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Removed %d\n", id)
				}
				return nil
			})
		},
	}
}

func newBackupCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a compressed backup of the embedded database",
		Long: `Writes <database>.backup next to the sqlite3 database, replacing the previous
backup once the new one is complete. The server does this periodically when the
database changed; run this before maintenance or upgrades.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStorage(cmd, func(ctx context.Context, s *storage.Storage) error {
				engine, ok := s.Backend().(*sqlite.Engine)
				if !ok {
					return fmt.Errorf("backups are only available for the sqlite3 backend, not %s", s.Backend().Name())
				}
				if err := engine.Backup(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s.backup\n", engine.Path())
				return nil
			})
		},
	}
}
