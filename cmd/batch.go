package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/addrcluster/internal/model"
)

var (
	batchDir         string
	batchRegion      string
	batchDataset     string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze every drawing in a directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("concurrency") {
			cfg.Batch.Concurrency = batchConcurrency
		}
		if err := cfg.Validate("batch"); err != nil {
			return err
		}

		env, err := initEnv(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer env.Close()

		drawings, err := listDrawings(batchDir)
		if err != nil {
			return err
		}

		runs, err := processBatch(ctx, env, drawings, batchRegion, batchDataset, cfg.Batch.Concurrency)
		if len(runs) > 0 {
			formatRunsList(os.Stdout, runs)
		}
		return err
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchDir, "dir", ".", "directory of .dxf drawings")
	batchCmd.Flags().StringVar(&batchRegion, "region", "", "region name for every drawing")
	batchCmd.Flags().StringVar(&batchDataset, "dataset", "", "address dataset for every drawing (overrides --region)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 4, "max drawings analyzed at once (default from config)")
	rootCmd.AddCommand(batchCmd)
}

// listDrawings returns the .dxf files in dir, sorted by name.
func listDrawings(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: read dir %s", dir)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".dxf") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// processBatch analyzes drawings concurrently. Each drawing is an
// independent run; a failure is recorded and does not stop the others.
// Runs are returned in drawing order.
func processBatch(ctx context.Context, env *runEnv, drawings []string, regionName, datasetLoc string, concurrency int) ([]model.Run, error) {
	if len(drawings) == 0 {
		zap.L().Info("no drawings found")
		return nil, nil
	}

	zap.L().Info("processing batch",
		zap.Int("drawings", len(drawings)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64
	runs := make([]model.Run, len(drawings))

	for i, drawing := range drawings {
		g.Go(func() error {
			log := zap.L().With(zap.String("drawing", drawing))

			run, _, err := env.execute(gctx, job{
				Drawing: drawing,
				Region:  regionName,
				Dataset: datasetLoc,
				Output:  filepath.Join(env.Config.Output.Dir, outputName(drawing)),
			})
			runs[i] = *run
			if err != nil {
				failed.Add(1)
				log.Error("analysis failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			succeeded.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return runs, eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	if n := failed.Load(); n > 0 {
		return runs, eris.Errorf("batch: %d of %d drawings failed", n, len(drawings))
	}
	return runs, nil
}
