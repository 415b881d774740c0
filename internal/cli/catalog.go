package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"katari/internal/catalog"
)

func newCatalogCmd(st *rootState) *cobra.Command {
	var (
		catalogPath string
		outputDir   string
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List recorded reports and their last run status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := st.cfg
			fl := cmd.Flags()
			if fl.Changed("output") {
				cfg.Output.Dir = outputDir
			}
			if fl.Changed("catalog") {
				cfg.Output.CatalogPath = catalogPath
			}

			path := cfg.Catalog()
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(cmd.OutOrStdout(), "no catalog at %s, run describe first\n", path)
				return nil
			}

			cat, err := catalog.Open(path, st.logger)
			if err != nil {
				return err
			}
			defer cat.Close()

			records, err := cat.ListReports(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "catalog is empty")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSTATUS\tLAST SEEN\tDESCRIPTION\tURL")
			for _, r := range records {
				seen := ""
				if !r.LastSeenAt.IsZero() {
					seen = r.LastSeenAt.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Name, r.LastStatus, seen, r.DescriptionPath, r.URL)
			}
			return tw.Flush()
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&catalogPath, "catalog", "", "catalog database path (default <output>/katari.db)")
	fl.StringVarP(&outputDir, "output", "o", "output", "artifact directory the catalog lives under")
	return cmd
}
