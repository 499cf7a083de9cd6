package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	_ "fcexport/internal/export/sources"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List supported source types and configured named sources",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, cleanup, err := newService(false)
	if err != nil {
		return err
	}
	defer cleanup()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tLABEL\tEXAMPLE")
	for _, spec := range svc.ListSourceTypes() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", spec.Type, spec.Label, spec.Example)
	}
	w.Flush()

	if len(cfg.Sources) > 0 {
		fmt.Fprintln(cmd.OutOrStdout())
		w = tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tLOCATION")
		for _, conn := range cfg.Sources {
			fmt.Fprintf(w, "%s\t%s\n", conn.Name, conn.Location)
		}
		w.Flush()
	}
	return nil
}
