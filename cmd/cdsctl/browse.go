package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"media-directory/internal/cds"
	"media-directory/internal/storage"
)

func newBrowseCmd(opts *options) *cobra.Command {
	var (
		start, count int
		metadata     bool
		filter       string
		sortCriteria string
	)

	cmd := &cobra.Command{
		Use:   "browse <id>",
		Short: "List the children of a container",
		Long: `Lists the direct children of a container, or the object itself with --metadata.

Examples:
  cdsctl browse 0
  cdsctl browse 1 --filter containers
  cdsctl browse 42 --start 100 --count 50`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			p := storage.BrowseParams{ObjectID: id, Start: start, Count: count, Sort: sortCriteria}
			if !metadata {
				p.Flags = storage.BrowseDirectChildren
			}
			switch filter {
			case "":
			case "items":
				p.Flags |= storage.BrowseItems
			case "containers":
				p.Flags |= storage.BrowseContainers
			default:
				return fmt.Errorf("--filter must be items or containers, got %q", filter)
			}

			return opts.withStorage(cmd, func(ctx context.Context, s *storage.Storage) error {
				res, err := s.Browse(ctx, p)
				if err != nil {
					return err
				}
				return opts.printResult(cmd.OutOrStdout(), res)
			})
		},
	}

	cmd.Flags().IntVar(&start, "start", 0, "Offset of the first child")
	cmd.Flags().IntVar(&count, "count", 0, "Maximum number of children (0 = all)")
	cmd.Flags().BoolVar(&metadata, "metadata", false, "Show the object itself instead of its children")
	cmd.Flags().StringVar(&filter, "filter", "", "Restrict children to items or containers")
	cmd.Flags().StringVar(&sortCriteria, "sort", "", "UPnP sort criteria")
	return cmd
}

func newSearchCmd(opts *options) *cobra.Command {
	var (
		start, count int
		sortCriteria string
	)

	cmd := &cobra.Command{
		Use:   "search <criteria>",
		Short: "Search the catalog with UPnP search criteria",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := storage.SearchParams{Criteria: args[0], Start: start, Count: count, Sort: sortCriteria}
			return opts.withStorage(cmd, func(ctx context.Context, s *storage.Storage) error {
				res, err := s.Search(ctx, p)
				if err != nil {
					return err
				}
				return opts.printResult(cmd.OutOrStdout(), res)
			})
		},
	}

	cmd.Flags().IntVar(&start, "start", 0, "Offset of the first match")
	cmd.Flags().IntVar(&count, "count", 0, "Maximum number of matches (0 = all)")
	cmd.Flags().StringVar(&sortCriteria, "sort", "", "UPnP sort criteria")
	return cmd
}

type objectRow struct {
	ID       int64  `json:"id"`
	ParentID int64  `json:"parentId"`
	RefID    int64  `json:"refId,omitempty"`
	Type     string `json:"type"`
	Class    string `json:"class"`
	Title    string `json:"title"`
	Children *int64 `json:"childCount,omitempty"`
	Location string `json:"location,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

func newObjectRow(o *cds.Object) objectRow {
	row := objectRow{
		ID:       o.ID,
		ParentID: o.ParentID,
		RefID:    o.RefID,
		Type:     o.Type().String(),
		Class:    o.Class,
		Title:    o.Title,
		Location: o.Location(),
		MimeType: o.MimeType(),
	}
	if c := o.Container(); c != nil {
		row.Children = &c.ChildCount
	}
	return row
}

func (o *options) printResult(w io.Writer, res *storage.BrowseResult) error {
	rows := make([]objectRow, 0, len(res.Objects))
	for _, obj := range res.Objects {
		rows = append(rows, newObjectRow(obj))
	}

	if o.jsonOutput {
		return o.writeJSON(w, map[string]interface{}{
			"objects":      rows,
			"totalMatches": res.TotalMatches,
		})
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPARENT\tTYPE\tTITLE\tCLASS\tDETAIL")
	for _, r := range rows {
		detail := r.Location
		if r.Children != nil {
			detail = strconv.FormatInt(*r.Children, 10) + " children"
		}
		if r.RefID != 0 {
			detail += " -> " + strconv.FormatInt(r.RefID, 10)
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\n", r.ID, r.ParentID, r.Type, r.Title, r.Class, detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d\n", len(rows), res.TotalMatches)
	return err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid object id %q", s)
	}
	return id, nil
}
