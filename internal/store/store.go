// Package store persists analysis run history.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/addrcluster/internal/config"
	"github.com/sells-group/addrcluster/internal/model"
)

// ErrNotFound is returned when a run ID does not exist.
var ErrNotFound = eris.New("run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Region string          `json:"region,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return 100
	}
	return f.Limit
}

// Store defines the persistence interface for analysis runs.
type Store interface {
	SaveRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects the backend named by cfg.Driver and applies migrations.
// Driver "none" yields a store that discards runs.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		st, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	case "none":
		return Nop{}, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// prepare assigns an ID and creation time to runs that lack them.
func prepare(run *model.Run) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
}

// Nop is a Store that keeps nothing.
type Nop struct{}

func (Nop) SaveRun(_ context.Context, run *model.Run) error {
	prepare(run)
	return nil
}

func (Nop) GetRun(_ context.Context, runID string) (*model.Run, error) {
	return nil, eris.Wrapf(ErrNotFound, "store: %s", runID)
}

func (Nop) ListRuns(context.Context, RunFilter) ([]model.Run, error) { return nil, nil }

func (Nop) Migrate(context.Context) error { return nil }

func (Nop) Close() error { return nil }
