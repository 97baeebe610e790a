package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/rite/catalog"
)

func newCatalogCommand(root *rootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Record loaded images in the catalog database",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "catalog database (default from rite.toml)")

	open := func() (*catalog.Catalog, error) {
		path := dbPath
		if path == "" {
			path = root.config.CatalogPath()
		}
		return catalog.Open(path)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <file>...",
		Short: "Parse images and record them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			defer c.Close()

			for _, path := range args {
				data, img, err := root.parseFile(path)
				if err != nil {
					return err
				}
				e, err := catalog.Summarize(path, data, img.Root)
				if err != nil {
					return err
				}
				if err := c.Record(cmd.Context(), e); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", e.ID, path)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recorded images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			defer c.Close()

			entries, err := c.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %.12s  %7d  records=%-4d depth=%-3d literals=%-4d %s\n",
					e.LoadedAt.Format("2006-01-02T15:04:05Z"), e.HashString(), e.Size,
					e.Records, e.MaxDepth, e.Literals, e.Path)
			}
			return nil
		},
	})

	return cmd
}
