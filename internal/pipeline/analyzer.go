// Package pipeline runs the boundary join, proximity clustering and
// classification passes that produce a result record.
package pipeline

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/addrcluster/internal/boundary"
	"github.com/sells-group/addrcluster/internal/classify"
	"github.com/sells-group/addrcluster/internal/cluster"
	"github.com/sells-group/addrcluster/internal/dataset"
	"github.com/sells-group/addrcluster/internal/geo"
	"github.com/sells-group/addrcluster/internal/model"
)

// Analyzer runs analysis passes. It holds no per-run state and is safe
// for concurrent use.
type Analyzer struct {
	radius float64
	log    *zap.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithRadius sets the clustering radius.
func WithRadius(r float64) Option {
	return func(a *Analyzer) {
		a.radius = r
	}
}

// WithLogger sets the logger used for run summaries.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.log = l
		}
	}
}

// New creates an Analyzer with the default radius.
func New(opts ...Option) (*Analyzer, error) {
	a := &Analyzer{
		radius: cluster.DefaultRadius,
		log:    zap.L().With(zap.String("component", "pipeline")),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.radius < 0 || math.IsNaN(a.radius) || math.IsInf(a.radius, 0) {
		return nil, eris.Errorf("pipeline: invalid radius %v", a.radius)
	}
	return a, nil
}

// Radius returns the clustering radius.
func (a *Analyzer) Radius() float64 {
	return a.radius
}

// Pass is the outcome of one join and cluster pass over a dataset.
type Pass struct {
	Joined     []model.JoinedPoint
	Assignment cluster.Assignment
	Record     model.ResultRecord
}

// Result is the outcome of a run. Connected is nil unless a connected
// dataset was supplied.
type Result struct {
	Record     model.ResultRecord
	Joined     []model.JoinedPoint
	Assignment cluster.Assignment
	Connected  *Pass
}

// Empty reports whether no point intersected any boundary.
func (r *Result) Empty() bool {
	return r == nil || len(r.Joined) == 0
}

// Run analyzes points against boundaries. When connected is non-nil it is
// run against the same boundaries and its district totals are merged into
// the result's district list.
func (a *Analyzer) Run(ctx context.Context, boundaries boundary.Set, points, connected *dataset.Dataset) (*Result, error) {
	if points == nil {
		return nil, eris.New("pipeline: nil dataset")
	}

	var main, conn *Pass
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		main, err = a.pass(gctx, boundaries, points)
		return err
	})
	if connected != nil {
		g.Go(func() error {
			var err error
			conn, err = a.pass(gctx, boundaries, connected)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Record:     main.Record,
		Joined:     main.Joined,
		Assignment: main.Assignment,
		Connected:  conn,
	}
	if conn != nil {
		res.Record.Districts = classify.MergeConnected(res.Record.Districts, conn.Record.Districts)
	}

	a.log.Info("pipeline: run complete",
		zap.Int("boundaries", len(boundaries)),
		zap.Int("points", points.Len()),
		zap.Int("joined", len(res.Joined)),
		zap.Int("clusters", res.Assignment.Len()),
		zap.Int("total_houses", res.Record.TotalHouses),
		zap.Int("total_buildings", res.Record.TotalBuildings),
		zap.Bool("connected", conn != nil),
	)
	return res, nil
}

func (a *Analyzer) pass(ctx context.Context, boundaries boundary.Set, ds *dataset.Dataset) (*Pass, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	joined := geo.Join(boundaries, ds.Points)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	assignment := cluster.Assign(joined, a.radius)

	a.log.Debug("pipeline: pass complete",
		zap.String("source", ds.Source),
		zap.Int("joined", len(joined)),
		zap.Int("clusters", assignment.Len()),
	)
	return &Pass{
		Joined:     joined,
		Assignment: assignment,
		Record:     classify.Summarize(joined, assignment, ds.HasDistrict),
	}, nil
}
