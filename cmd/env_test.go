package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/addrcluster/internal/config"
	"github.com/sells-group/addrcluster/internal/dxf"
	"github.com/sells-group/addrcluster/internal/model"
	"github.com/sells-group/addrcluster/internal/region"
	"github.com/sells-group/addrcluster/internal/store"
)

// siteDXF has one closed 10x10 boundary at the origin.
const siteDXF = "0\nSECTION\n2\nENTITIES\n" +
	"0\nLWPOLYLINE\n8\n0\n70\n1\n10\n0\n20\n0\n10\n10\n20\n0\n10\n10\n20\n10\n10\n0\n20\n10\n" +
	"0\nENDSEC\n0\nEOF\n"

// pointsCSV puts two close points and one lone point inside the boundary
// and one point outside it.
const pointsCSV = "X,Y\n5,5\n5.1,5\n2,2\n20,20\n"

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	writeFile(t, filepath.Join(dataDir, "TC.csv"), pointsCSV)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "uploads"), 0o755))

	return &config.Config{
		Analysis: config.AnalysisConfig{Radius: 0.17},
		Dataset:  config.DatasetConfig{XColumn: "X", YColumn: "Y", Encoding: "utf-8", Delimiter: ","},
		Annotate: config.AnnotateConfig{Layer: "0"},
		Regions:  []config.RegionConfig{{Name: "台中", Dataset: "TC.csv"}},
		Data:     config.DataConfig{Dir: dataDir},
		Upload:   config.UploadConfig{Dir: filepath.Join(dir, "uploads"), MaxMB: 8},
		Output:   config.OutputConfig{Dir: filepath.Join(dir, "outputs")},
		Batch:    config.BatchConfig{Concurrency: 2},
		Server:   config.ServerConfig{Port: 5000, RateLimit: 100, RateBurst: 100, CORSOrigins: []string{"*"}},
		Store:    config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(dir, "runs.db")},
		FTP:      config.FTPConfig{TimeoutSecs: 5},
		HTTP:     config.HTTPConfig{TimeoutSecs: 5},
	}
}

func testEnv(t *testing.T, c *config.Config) *runEnv {
	t.Helper()
	env, err := initEnv(context.Background(), c, true)
	require.NoError(t, err)
	t.Cleanup(env.Close)
	return env
}

func TestExecute_Region(t *testing.T) {
	c := testConfig(t)
	env := testEnv(t, c)
	drawing := writeFile(t, filepath.Join(t.TempDir(), "site.dxf"), siteDXF)
	output := filepath.Join(c.Output.Dir, outputName(drawing))

	run, res, err := env.execute(context.Background(), job{Drawing: drawing, Region: "台中", Output: output})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, filepath.Join(c.Data.Dir, "TC.csv"), run.Dataset)
	require.NotNil(t, run.Record)
	assert.Equal(t, 1, run.Record.NumHouses)
	assert.Equal(t, 1, run.Record.NumHouseBuildings)
	assert.Equal(t, 2, run.Record.NumApartments)
	assert.Equal(t, 1, run.Record.NumApartmentBuildings)
	assert.Equal(t, 3, run.Record.TotalHouses)
	assert.Equal(t, 2, run.Record.TotalBuildings)
	require.Len(t, run.Record.Districts, 1)
	assert.Equal(t, "ALL", run.Record.Districts[0].District)

	doc, err := dxf.ReadFile(output)
	require.NoError(t, err)
	var circles int
	for _, e := range doc.Entities() {
		if e.Type == "CIRCLE" {
			circles++
		}
	}
	assert.Equal(t, 3, circles)

	stored, err := env.Store.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, stored.Status)
	assert.Equal(t, output, stored.Output)
}

func TestExecute_DatasetAndGeoJSON(t *testing.T) {
	env := testEnv(t, testConfig(t))
	dir := t.TempDir()
	drawing := writeFile(t, filepath.Join(dir, "site.dxf"), siteDXF)
	points := writeFile(t, filepath.Join(dir, "points.csv"), pointsCSV)
	geo := filepath.Join(dir, "points.geojson")

	run, _, err := env.execute(context.Background(), job{Drawing: drawing, Dataset: points, GeoJSON: geo})
	require.NoError(t, err)
	assert.Equal(t, points, run.Dataset)
	assert.Empty(t, run.Output)

	data, err := os.ReadFile(geo)
	require.NoError(t, err)
	assert.Contains(t, string(data), "FeatureCollection")
	assert.Equal(t, 3, strings.Count(string(data), `"Point"`))
}

func TestExecute_RadiusOverride(t *testing.T) {
	env := testEnv(t, testConfig(t))
	drawing := writeFile(t, filepath.Join(t.TempDir(), "site.dxf"), siteDXF)
	zero := 0.0

	run, _, err := env.execute(context.Background(), job{Drawing: drawing, Region: "台中", Radius: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0.0, run.Radius)
	assert.Equal(t, 3, run.Record.NumHouses)
	assert.Equal(t, 3, run.Record.TotalBuildings)
}

func TestExecute_EmptyJoin(t *testing.T) {
	env := testEnv(t, testConfig(t))
	dir := t.TempDir()
	drawing := writeFile(t, filepath.Join(dir, "site.dxf"), siteDXF)
	points := writeFile(t, filepath.Join(dir, "far.csv"), "X,Y\n50,50\n60,60\n")

	run, res, err := env.execute(context.Background(), job{Drawing: drawing, Dataset: points})
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Equal(t, model.RunStatusEmpty, run.Status)
	assert.True(t, run.Record.IsZero())
}

func TestExecute_Connected(t *testing.T) {
	env := testEnv(t, testConfig(t))
	dir := t.TempDir()
	drawing := writeFile(t, filepath.Join(dir, "site.dxf"), siteDXF)
	connected := writeFile(t, filepath.Join(dir, "connected.csv"), "X,Y\n5,5\n")

	run, _, err := env.execute(context.Background(), job{Drawing: drawing, Region: "台中", Connected: connected})
	require.NoError(t, err)
	assert.Equal(t, connected, run.Connected)
	require.Len(t, run.Record.Districts, 1)
	d := run.Record.Districts[0]
	require.NotNil(t, d.Connected)
	assert.Equal(t, 1, *d.Connected)
	require.NotNil(t, d.Rate)
	assert.Equal(t, "33.333", d.Rate.String())
}

func TestExecute_MalformedDrawingIsRecorded(t *testing.T) {
	env := testEnv(t, testConfig(t))
	drawing := writeFile(t, filepath.Join(t.TempDir(), "broken.dxf"), "0\nSECTION\n")

	run, _, err := env.execute(context.Background(), job{Drawing: drawing, Region: "台中"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrMalformedDrawing))

	stored, err := env.Store.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.Error)
	assert.Nil(t, stored.Record)
}

func TestExecute_InvalidRecord(t *testing.T) {
	env := testEnv(t, testConfig(t))
	dir := t.TempDir()
	drawing := writeFile(t, filepath.Join(dir, "site.dxf"), siteDXF)
	points := writeFile(t, filepath.Join(dir, "bad.csv"), "X,Y\n5,five\n")

	_, _, err := env.execute(context.Background(), job{Drawing: drawing, Dataset: points})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidRecord))
}

func TestExecute_UnknownRegion(t *testing.T) {
	env := testEnv(t, testConfig(t))
	drawing := writeFile(t, filepath.Join(t.TempDir(), "site.dxf"), siteDXF)

	_, _, err := env.execute(context.Background(), job{Drawing: drawing, Region: "花蓮"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, region.ErrUnknownRegion))
}

func TestExecute_NameOverridesDrawing(t *testing.T) {
	env := testEnv(t, testConfig(t))
	drawing := writeFile(t, filepath.Join(t.TempDir(), "1234.dxf"), siteDXF)

	run, _, err := env.execute(context.Background(), job{Name: "site.dxf", Drawing: drawing, Region: "台中"})
	require.NoError(t, err)
	assert.Equal(t, "site.dxf", run.Drawing)
}

func TestInitEnv_WithoutStore(t *testing.T) {
	env, err := initEnv(context.Background(), testConfig(t), false)
	require.NoError(t, err)
	defer env.Close()

	runs, err := env.Store.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestInitEnv_InvalidRadius(t *testing.T) {
	c := testConfig(t)
	c.Analysis.Radius = -1
	_, err := initEnv(context.Background(), c, false)
	assert.Error(t, err)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "site_with_points.dxf", outputName("/tmp/drawings/site.dxf"))
	assert.Equal(t, "plan_with_points.dxf", outputName("plan.DXF"))
}

func TestDatasetOptions(t *testing.T) {
	c := testConfig(t)
	c.Dataset = config.DatasetConfig{XColumn: "TWD97_X", YColumn: "TWD97_Y", Encoding: "big5", Delimiter: ";", Sheet: "points"}
	c.Analysis.DistrictColumn = "村里代碼"

	opts := datasetOptions(c)
	assert.Equal(t, "TWD97_X", opts.XColumn)
	assert.Equal(t, "TWD97_Y", opts.YColumn)
	assert.Equal(t, "big5", opts.Encoding)
	assert.Equal(t, ';', opts.Delimiter)
	assert.Equal(t, "points", opts.Sheet)
	assert.Equal(t, "村里代碼", opts.DistrictColumn)
}
