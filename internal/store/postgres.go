package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/addrcluster/internal/db"
	"github.com/sells-group/addrcluster/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	region     TEXT NOT NULL DEFAULT '',
	drawing    TEXT NOT NULL,
	dataset    TEXT NOT NULL,
	connected  TEXT NOT NULL DEFAULT '',
	radius     DOUBLE PRECISION NOT NULL,
	status     TEXT NOT NULL,
	record     JSONB,
	output     TEXT NOT NULL DEFAULT '',
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_districts (
	run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	district        TEXT NOT NULL,
	total_units     INTEGER NOT NULL,
	structures      INTEGER NOT NULL,
	connected_units INTEGER,
	connection_rate NUMERIC(7,3)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_region ON runs(region);
CREATE INDEX IF NOT EXISTS idx_run_districts_run_id ON run_districts(run_id);
`

var districtColumns = []string{"run_id", "district", "total_units", "structures", "connected_units", "connection_rate"}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveRun upserts the run and rewrites its district rows in one transaction.
func (s *PostgresStore) SaveRun(ctx context.Context, run *model.Run) error {
	prepare(run)

	var record []byte
	if run.Record != nil {
		b, err := json.Marshal(run.Record)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal record")
		}
		record = b
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, record = EXCLUDED.record,
			output = EXCLUDED.output, error = EXCLUDED.error`,
		run.ID, run.Region, run.Drawing, run.Dataset, run.Connected, run.Radius,
		string(run.Status), record, run.Output, run.Error, run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save run %s", run.ID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM run_districts WHERE run_id = $1`, run.ID); err != nil {
		return eris.Wrapf(err, "postgres: clear districts %s", run.ID)
	}
	if _, err := db.CopyFrom(ctx, tx, "run_districts", districtColumns, districtRows(run)); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit")
}

func districtRows(run *model.Run) [][]any {
	if run.Record == nil {
		return nil
	}
	rows := make([][]any, 0, len(run.Record.Districts))
	for _, d := range run.Record.Districts {
		var connected, rate any
		if d.Connected != nil {
			connected = *d.Connected
		}
		if d.Rate != nil {
			rate = float64(*d.Rate)
		}
		rows = append(rows, []any{run.ID, d.District, d.TotalUnits, d.Structures, connected, rate})
	}
	return rows
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, runID)
	r, err := scanPostgresRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Region != "" {
		query += fmt.Sprintf(` AND region = $%d`, argIdx)
		args = append(args, filter.Region)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, filter.limit())
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPostgresRun(row scannable) (*model.Run, error) {
	var r model.Run
	var status string
	var record []byte

	if err := row.Scan(&r.ID, &r.Region, &r.Drawing, &r.Dataset, &r.Connected, &r.Radius,
		&status, &record, &r.Output, &r.Error, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)

	if len(record) > 0 {
		r.Record = &model.ResultRecord{}
		if err := json.Unmarshal(record, r.Record); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal record")
		}
	}
	return &r, nil
}
