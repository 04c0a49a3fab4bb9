// Package region maps region names to their address datasets and loads
// them from local or remote storage.
package region

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/addrcluster/internal/config"
	"github.com/sells-group/addrcluster/internal/dataset"
	"github.com/sells-group/addrcluster/internal/fetcher"
)

// ErrUnknownRegion is returned for a region name with no table entry and
// no default dataset to fall back to.
var ErrUnknownRegion = eris.New("unknown region")

// Region is a named dataset pair. Connected is empty when the region has
// no already-connected dataset.
type Region struct {
	Name      string `json:"name" yaml:"name"`
	Dataset   string `json:"dataset" yaml:"dataset"`
	Connected string `json:"connected,omitempty" yaml:"connected,omitempty"`
	Fallback  bool   `json:"-" yaml:"-"`
}

// Table resolves region names in configured order.
type Table struct {
	regions  []Region
	byName   map[string]int
	dataDir  string
	fallback string
}

// NewTable builds a table from configured regions. Relative dataset paths
// resolve against dataDir; unknown names resolve to defaultDataset.
func NewTable(regions []config.RegionConfig, dataDir, defaultDataset string) *Table {
	t := &Table{
		byName:   make(map[string]int, len(regions)),
		dataDir:  dataDir,
		fallback: defaultDataset,
	}
	for _, rc := range regions {
		r := Region{
			Name:      rc.Name,
			Dataset:   t.locate(rc.Dataset),
			Connected: t.locate(rc.Connected),
		}
		if i, ok := t.byName[r.Name]; ok {
			t.regions[i] = r
			continue
		}
		t.byName[r.Name] = len(t.regions)
		t.regions = append(t.regions, r)
	}
	return t
}

// FromConfig builds the table from the application config.
func FromConfig(cfg *config.Config) *Table {
	return NewTable(cfg.Regions, cfg.Data.Dir, cfg.Data.DefaultDataset)
}

func (t *Table) locate(loc string) string {
	if loc == "" || fetcher.IsRemote(loc) || filepath.IsAbs(loc) {
		return loc
	}
	return filepath.Join(t.dataDir, loc)
}

// Names returns the region names in configured order.
func (t *Table) Names() []string {
	names := make([]string, len(t.regions))
	for i, r := range t.regions {
		names[i] = r.Name
	}
	return names
}

// All returns the configured regions.
func (t *Table) All() []Region {
	return append([]Region(nil), t.regions...)
}

// Lookup returns the named region.
func (t *Table) Lookup(name string) (Region, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Region{}, false
	}
	return t.regions[i], true
}

// Resolve returns the named region, or the default dataset when the name
// is unknown. It fails only when there is no default dataset either.
func (t *Table) Resolve(name string) (Region, error) {
	if r, ok := t.Lookup(name); ok {
		return r, nil
	}
	if t.fallback == "" {
		return Region{}, eris.Wrapf(ErrUnknownRegion, "region: %q", name)
	}
	zap.L().Warn("region: unknown region, using default dataset",
		zap.String("region", name),
		zap.String("dataset", t.fallback),
	)
	return Region{Name: name, Dataset: t.locate(t.fallback), Fallback: true}, nil
}

// Loader reads region datasets, downloading remote ones first.
type Loader struct {
	resolver *fetcher.Resolver
	opts     dataset.Options
	tmpDir   string
}

// NewLoader creates a Loader. Remote files are staged under tmpDir, or the
// system temp dir when tmpDir is empty.
func NewLoader(resolver *fetcher.Resolver, opts dataset.Options, tmpDir string) *Loader {
	return &Loader{resolver: resolver, opts: opts, tmpDir: tmpDir}
}

// Load reads the region's dataset and, when configured, its connected
// dataset. connected is nil when the region has none.
func (l *Loader) Load(ctx context.Context, r Region) (points, connected *dataset.Dataset, err error) {
	points, err = l.LoadDataset(ctx, r.Dataset)
	if err != nil {
		return nil, nil, err
	}
	if r.Connected == "" {
		return points, nil, nil
	}
	connected, err = l.LoadDataset(ctx, r.Connected)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "region: connected dataset for %s", r.Name)
	}
	return points, connected, nil
}

// LoadDataset reads one dataset from a local path or URL.
func (l *Loader) LoadDataset(ctx context.Context, loc string) (*dataset.Dataset, error) {
	path, cleanup, err := l.resolver.Localize(ctx, loc, l.tmpDir)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	ds, err := dataset.LoadFile(path, l.opts)
	if err != nil {
		return nil, err
	}
	ds.Source = loc
	return ds, nil
}
