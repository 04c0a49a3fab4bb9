package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/addrcluster/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleRun(id, region string, status model.RunStatus, at time.Time) *model.Run {
	rate := model.Rate(33.333)
	connected := 1
	return &model.Run{
		ID:      id,
		Region:  region,
		Drawing: "plan.dxf",
		Dataset: "TC.csv",
		Radius:  0.17,
		Status:  status,
		Record: &model.ResultRecord{
			NumHouses: 1, NumHouseBuildings: 1, NumApartments: 2, NumApartmentBuildings: 1,
			TotalHouses: 3, TotalBuildings: 2,
			Districts: []model.DistrictStat{{District: "A", TotalUnits: 3, Structures: 2, Connected: &connected, Rate: &rate}},
		},
		Output:    id + ".dxf",
		CreatedAt: at,
	}
}

func TestSQLite_SaveAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, st.SaveRun(ctx, sampleRun("run-1", "台中", model.RunStatusComplete, at)))

	got, err := st.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "台中", got.Region)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.InDelta(t, 0.17, got.Radius, 1e-12)
	assert.True(t, at.Equal(got.CreatedAt))
	require.NotNil(t, got.Record)
	assert.Equal(t, 3, got.Record.TotalHouses)
	require.Len(t, got.Record.Districts, 1)
	require.NotNil(t, got.Record.Districts[0].Rate)
	assert.Equal(t, "33.333", got.Record.Districts[0].Rate.String())
}

func TestSQLite_SaveRun_AssignsID(t *testing.T) {
	st := newTestSQLiteStore(t)
	run := &model.Run{Drawing: "a.dxf", Dataset: "b.csv", Status: model.RunStatusFailed, Error: "boom"}

	require.NoError(t, st.SaveRun(context.Background(), run))
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.CreatedAt.IsZero())

	got, err := st.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Record)
	assert.Equal(t, "boom", got.Error)
}

func TestSQLite_SaveRun_Replaces(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	run := sampleRun("run-1", "", model.RunStatusComplete, time.Now().UTC())
	require.NoError(t, st.SaveRun(ctx, run))

	run.Status = model.RunStatusFailed
	run.Record = nil
	require.NoError(t, st.SaveRun(ctx, run))

	got, err := st.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Nil(t, got.Record)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, st.SaveRun(ctx, sampleRun("r1", "台中", model.RunStatusComplete, base)))
	require.NoError(t, st.SaveRun(ctx, sampleRun("r2", "台南", model.RunStatusEmpty, base.Add(time.Hour))))
	require.NoError(t, st.SaveRun(ctx, sampleRun("r3", "台中", model.RunStatusComplete, base.Add(2*time.Hour))))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "r3", all[0].ID)
	assert.Equal(t, "r1", all[2].ID)

	byRegion, err := st.ListRuns(ctx, RunFilter{Region: "台中"})
	require.NoError(t, err)
	assert.Len(t, byRegion, 2)

	byStatus, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusEmpty})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "r2", byStatus[0].ID)

	page, err := st.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "r2", page[0].ID)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}
