package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"validity.app/auditor/internal/taxonomy"
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Print the allowed finding types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printTaxonomy(cmd.OutOrStdout(), taxonomy.Default())
	},
}

func printTaxonomy(w io.Writer, t *taxonomy.Table) error {
	fmt.Fprintf(w, "taxonomy version %s\n\n", t.Version())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tID\tSEVERITY\tACTION\tNAME")
	for _, kind := range []taxonomy.Kind{taxonomy.KindMicro, taxonomy.KindStructural} {
		for _, e := range t.Entries(kind) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Kind, e.ID, e.Severity, e.Actionability, e.Name)
		}
	}
	return tw.Flush()
}
