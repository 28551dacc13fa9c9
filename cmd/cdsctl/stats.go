package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"media-directory/internal/storage"
)

type statsResult struct {
	Containers int64    `json:"containers"`
	Items      int64    `json:"items"`
	Virtual    int64    `json:"virtual"`
	Files      int64    `json:"files"`
	MimeTypes  []string `json:"mimeTypes"`
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStorage(cmd, func(ctx context.Context, s *storage.Storage) error {
				stats, err := s.CollectStats(ctx)
				if err != nil {
					return err
				}
				files, err := s.TotalFileCount(ctx)
				if err != nil {
					return err
				}
				types, err := s.MimeTypes(ctx)
				if err != nil {
					return err
				}

				res := statsResult{
					Containers: stats.Containers,
					Items:      stats.Items,
					Virtual:    stats.Virtual,
					Files:      files,
					MimeTypes:  types,
				}
				if opts.jsonOutput {
					return opts.writeJSON(cmd.OutOrStdout(), res)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Containers:  %d\n", res.Containers)
				fmt.Fprintf(out, "Items:       %d\n", res.Items)
				fmt.Fprintf(out, "Virtual:     %d\n", res.Virtual)
				fmt.Fprintf(out, "Files:       %d\n", res.Files)
				fmt.Fprintf(out, "MIME types:  %d\n", len(res.MimeTypes))
				for _, t := range res.MimeTypes {
					fmt.Fprintf(out, "  %s\n", t)
				}
				return nil
			})
		},
	}
}
