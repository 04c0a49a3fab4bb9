package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/addrcluster/internal/annotate"
	"github.com/sells-group/addrcluster/internal/boundary"
	"github.com/sells-group/addrcluster/internal/config"
	"github.com/sells-group/addrcluster/internal/dataset"
	"github.com/sells-group/addrcluster/internal/dxf"
	"github.com/sells-group/addrcluster/internal/fetcher"
	"github.com/sells-group/addrcluster/internal/model"
	"github.com/sells-group/addrcluster/internal/pipeline"
	"github.com/sells-group/addrcluster/internal/region"
	"github.com/sells-group/addrcluster/internal/store"
)

// runEnv holds the collaborators shared by commands that run analyses.
type runEnv struct {
	Config   *config.Config
	Analyzer *pipeline.Analyzer
	Regions  *region.Table
	Loader   *region.Loader
	Store    store.Store
}

// initEnv builds the run environment from config. With withStore false,
// runs are not persisted.
func initEnv(ctx context.Context, c *config.Config, withStore bool) (*runEnv, error) {
	analyzer, err := pipeline.New(
		pipeline.WithRadius(c.Analysis.Radius),
		pipeline.WithLogger(zap.L().With(zap.String("component", "pipeline"))),
	)
	if err != nil {
		return nil, err
	}

	resolver := fetcher.NewResolver(
		fetcher.FTPOptions{Timeout: time.Duration(c.FTP.TimeoutSecs) * time.Second},
		fetcher.HTTPOptions{
			Timeout:    time.Duration(c.HTTP.TimeoutSecs) * time.Second,
			MaxRetries: c.HTTP.MaxRetries,
		},
	)

	var st store.Store = store.Nop{}
	if withStore {
		st, err = store.Open(ctx, c.Store)
		if err != nil {
			return nil, eris.Wrap(err, "init store")
		}
	}

	return &runEnv{
		Config:   c,
		Analyzer: analyzer,
		Regions:  region.FromConfig(c),
		Loader:   region.NewLoader(resolver, datasetOptions(c), ""),
		Store:    st,
	}, nil
}

// Close releases the store.
func (e *runEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func datasetOptions(c *config.Config) dataset.Options {
	opts := dataset.DefaultOptions()
	if c.Dataset.XColumn != "" {
		opts.XColumn = c.Dataset.XColumn
	}
	if c.Dataset.YColumn != "" {
		opts.YColumn = c.Dataset.YColumn
	}
	if c.Dataset.Encoding != "" {
		opts.Encoding = c.Dataset.Encoding
	}
	opts.Delimiter = c.Dataset.DelimiterRune()
	opts.Sheet = c.Dataset.Sheet
	opts.DistrictColumn = c.Analysis.DistrictColumn
	return opts
}

// job describes one analysis run.
type job struct {
	ID        string
	Name      string   // drawing name recorded with the run; defaults to Drawing
	Drawing   string   // .dxf to annotate
	Boundary  string   // optional .shp or .zip; boundaries come from Drawing when empty
	Region    string   // resolved through the region table when Dataset is empty
	Dataset   string   // explicit address dataset
	Connected string   // explicit connected dataset; overrides the region's
	Output    string   // annotated drawing path; skipped when empty
	GeoJSON   string   // joined point export path; skipped when empty
	Radius    *float64 // overrides the configured radius
}

// outputName is the annotated drawing name for a source drawing.
func outputName(drawing string) string {
	base := filepath.Base(drawing)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_with_points.dxf"
}

// execute runs a job and records it in the store, failed runs included.
func (e *runEnv) execute(ctx context.Context, j job) (*model.Run, *pipeline.Result, error) {
	run := &model.Run{
		ID:      j.ID,
		Region:  j.Region,
		Drawing: j.Drawing,
		Radius:  e.Analyzer.Radius(),
	}
	if j.Name != "" {
		run.Drawing = j.Name
	}

	res, err := e.analyze(ctx, j, run)
	if err != nil {
		run.Status = model.RunStatusFailed
		run.Error = err.Error()
		run.Output = ""
	}

	if serr := e.Store.SaveRun(ctx, run); serr != nil {
		zap.L().Warn("failed to save run", zap.String("run_id", run.ID), zap.Error(serr))
	}
	return run, res, err
}

func (e *runEnv) analyze(ctx context.Context, j job, run *model.Run) (*pipeline.Result, error) {
	log := zap.L().With(zap.String("drawing", j.Drawing))

	doc, err := dxf.ReadFile(j.Drawing)
	if err != nil {
		return nil, err
	}

	var boundaries boundary.Set
	if j.Boundary != "" {
		boundaries, err = boundary.Load(j.Boundary)
	} else {
		boundaries, err = boundary.Extract(doc)
	}
	if err != nil {
		return nil, err
	}

	points, connected, err := e.datasets(ctx, j, run)
	if err != nil {
		return nil, err
	}

	analyzer := e.Analyzer
	if j.Radius != nil {
		analyzer, err = pipeline.New(pipeline.WithRadius(*j.Radius))
		if err != nil {
			return nil, err
		}
	}
	run.Radius = analyzer.Radius()

	res, err := analyzer.Run(ctx, boundaries, points, connected)
	if err != nil {
		return nil, err
	}
	run.Record = &res.Record
	run.Status = model.RunStatusComplete
	if res.Empty() {
		run.Status = model.RunStatusEmpty
	}

	if j.Output != "" {
		if err := os.MkdirAll(filepath.Dir(j.Output), 0o755); err != nil {
			return nil, eris.Wrap(err, "create output dir")
		}
		annotated := res.Annotate(doc, annotate.Options{Layer: e.Config.Annotate.Layer})
		if err := annotated.WriteFile(j.Output); err != nil {
			return nil, err
		}
		run.Output = j.Output
	}

	if j.GeoJSON != "" {
		data, err := res.GeoJSON()
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(j.GeoJSON, data, 0o644); err != nil {
			return nil, eris.Wrap(err, "write geojson")
		}
	}

	log.Info("run complete",
		zap.String("status", string(run.Status)),
		zap.Int("boundaries", len(boundaries)),
		zap.Int("joined", len(res.Joined)),
	)
	return res, nil
}

func (e *runEnv) datasets(ctx context.Context, j job, run *model.Run) (points, connected *dataset.Dataset, err error) {
	if j.Dataset != "" {
		run.Dataset = j.Dataset
		points, err = e.Loader.LoadDataset(ctx, j.Dataset)
		if err != nil {
			return nil, nil, err
		}
	} else {
		r, err := e.Regions.Resolve(j.Region)
		if err != nil {
			return nil, nil, err
		}
		run.Dataset = r.Dataset
		if j.Connected != "" {
			r.Connected = ""
		}
		run.Connected = r.Connected
		points, connected, err = e.Loader.Load(ctx, r)
		if err != nil {
			return nil, nil, err
		}
	}

	if j.Connected != "" {
		run.Connected = j.Connected
		connected, err = e.Loader.LoadDataset(ctx, j.Connected)
		if err != nil {
			return nil, nil, eris.Wrap(err, "connected dataset")
		}
	}
	return points, connected, nil
}
