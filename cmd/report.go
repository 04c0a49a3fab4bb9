package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/addrcluster/internal/model"
)

// writeReport prints a run in the given format: json, yaml or table.
func writeReport(w io.Writer, format string, run *model.Run) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(run), "encode json report")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(run); err != nil {
			return eris.Wrap(err, "encode yaml report")
		}
		return eris.Wrap(enc.Close(), "encode yaml report")
	case "table", "":
		formatRun(w, run)
		return nil
	default:
		return eris.Errorf("unknown format %q (json, yaml, table)", format)
	}
}

func formatRun(w io.Writer, run *model.Run) {
	fmt.Fprintf(w, "Run:     %s\n", run.ID)
	if run.Region != "" {
		fmt.Fprintf(w, "Region:  %s\n", run.Region)
	}
	fmt.Fprintf(w, "Drawing: %s\n", run.Drawing)
	fmt.Fprintf(w, "Dataset: %s\n", run.Dataset)
	fmt.Fprintf(w, "Radius:  %g\n", run.Radius)
	fmt.Fprintf(w, "Status:  %s\n", run.Status)
	if run.Error != "" {
		fmt.Fprintf(w, "Error:   %s\n", run.Error)
	}
	if run.Output != "" {
		fmt.Fprintf(w, "Output:  %s\n", run.Output)
	}

	rec := run.Record
	if rec == nil {
		return
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tUNITS\tSTRUCTURES")
	fmt.Fprintf(tw, "house\t%d\t%d\n", rec.NumHouses, rec.NumHouseBuildings)
	fmt.Fprintf(tw, "apartment\t%d\t%d\n", rec.NumApartments, rec.NumApartmentBuildings)
	fmt.Fprintf(tw, "building\t%d\t%d\n", rec.NumBuildings, rec.NumBuildingStructures)
	fmt.Fprintf(tw, "total\t%d\t%d\n", rec.TotalHouses, rec.TotalBuildings)
	tw.Flush()

	if len(rec.Districts) == 0 {
		return
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DISTRICT\tUNITS\tSTRUCTURES\tCONNECTED\tRATE")
	for _, d := range rec.Districts {
		connected, rate := "-", "-"
		if d.Connected != nil {
			connected = fmt.Sprintf("%d", *d.Connected)
		}
		if d.Rate != nil {
			rate = d.Rate.String()
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", d.District, d.TotalUnits, d.Structures, connected, rate)
	}
	tw.Flush()
}

func formatRunsList(w io.Writer, runs []model.Run) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREGION\tSTATUS\tUNITS\tSTRUCTURES\tCREATED")
	for _, r := range runs {
		units, structures := "-", "-"
		if r.Record != nil {
			units = fmt.Sprintf("%d", r.Record.TotalHouses)
			structures = fmt.Sprintf("%d", r.Record.TotalBuildings)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Region, r.Status, units, structures, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	tw.Flush()
}
