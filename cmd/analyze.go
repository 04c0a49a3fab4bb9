package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	analyzeDrawing     string
	analyzeBoundarySHP string
	analyzeRegion      string
	analyzeDataset     string
	analyzeConnected   string
	analyzeRadius      float64
	analyzeOutput      string
	analyzeGeoJSON     string
	analyzeFormat      string
	analyzeNoStore     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Count houses, apartments and buildings inside a drawing's boundaries",
	Example: `  addrcluster analyze --drawing site.dxf --region 台中
  addrcluster analyze --drawing site.dxf --dataset points.xlsx --radius 0.2 --format json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if analyzeRegion == "" && analyzeDataset == "" {
			return eris.New("one of --region or --dataset is required")
		}
		if cmd.Flags().Changed("radius") {
			cfg.Analysis.Radius = analyzeRadius
		}
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		ctx := cmd.Context()
		env, err := initEnv(ctx, cfg, !analyzeNoStore)
		if err != nil {
			return err
		}
		defer env.Close()

		output := analyzeOutput
		if output == "" {
			output = filepath.Join(cfg.Output.Dir, outputName(analyzeDrawing))
		}

		run, _, err := env.execute(ctx, job{
			Drawing:   analyzeDrawing,
			Boundary:  analyzeBoundarySHP,
			Region:    analyzeRegion,
			Dataset:   analyzeDataset,
			Connected: analyzeConnected,
			Output:    output,
			GeoJSON:   analyzeGeoJSON,
		})
		if err != nil {
			return eris.Wrap(err, "analyze")
		}
		return writeReport(os.Stdout, analyzeFormat, run)
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeDrawing, "drawing", "", "DXF drawing with closed boundary polylines")
	f.StringVar(&analyzeBoundarySHP, "boundary-shp", "", "read boundaries from a .shp or zipped shapefile instead of the drawing")
	f.StringVar(&analyzeRegion, "region", "", "region name from the region table")
	f.StringVar(&analyzeDataset, "dataset", "", "address dataset path or URL (overrides --region)")
	f.StringVar(&analyzeConnected, "connected", "", "already-connected address dataset path or URL")
	f.Float64Var(&analyzeRadius, "radius", 0.17, "clustering radius in drawing units (default from config)")
	f.StringVar(&analyzeOutput, "output", "", "annotated drawing path (default output.dir/<name>_with_points.dxf)")
	f.StringVar(&analyzeGeoJSON, "geojson", "", "write joined points as GeoJSON")
	f.StringVar(&analyzeFormat, "format", "table", "report format: json, yaml or table")
	f.BoolVar(&analyzeNoStore, "no-store", false, "do not record the run in the store")
	_ = analyzeCmd.MarkFlagRequired("drawing")
	rootCmd.AddCommand(analyzeCmd)
}
