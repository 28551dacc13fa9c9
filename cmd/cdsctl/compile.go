package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"media-directory/internal/search"
	"media-directory/internal/storage/backends"
)

func newCompileCmd(opts *options) *cobra.Command {
	var sortCriteria string

	cmd := &cobra.Command{
		Use:   "compile <criteria>",
		Short: "Compile UPnP search criteria to SQL",
		Long: `Compiles search criteria with the quoting of the selected driver and prints
the resulting WHERE predicate. No database is opened.

Examples:
  cdsctl compile 'dc:title contains "live"'
  cdsctl compile --driver postgres 'upnp:artist exists true'
  cdsctl compile '*' --sort '+dc:title,-upnp:date'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			driver := opts.driver
			if driver == "" {
				driver = backends.DriverSQLite
			}
			quote, err := backends.Quote(driver)
			if err != nil {
				return err
			}
			emitter := search.NewDefaultEmitter(quote)

			predicate, err := search.Compile(args[0], emitter)
			if err != nil {
				return err
			}
			order := search.CompileSort(sortCriteria, emitter)

			if opts.jsonOutput {
				return opts.writeJSON(cmd.OutOrStdout(), map[string]string{
					"criteria": args[0],
					"sql":      predicate,
					"orderBy":  order,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), predicate)
			if order != "" {
				fmt.Fprintln(cmd.OutOrStdout(), "ORDER BY "+order)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sortCriteria, "sort", "", "UPnP sort criteria, e.g. +dc:title,-upnp:date")
	return cmd
}
