package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/addrcluster/internal/region"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List configured regions and their datasets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		formatRegions(region.FromConfig(cfg).All(), cfg.Data.DefaultDataset)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(regionsCmd)
}

func formatRegions(regions []region.Region, fallback string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REGION\tDATASET\tCONNECTED")
	for _, r := range regions {
		connected := r.Connected
		if connected == "" {
			connected = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Dataset, connected)
	}
	if fallback != "" {
		fmt.Fprintf(w, "(other)\t%s\t-\n", fallback)
	}
	w.Flush()
}
