// Package store persists stage run history and memoizes paid lookups
// (searches, enrichments) across runs. Pipeline files stay the source of
// truth; the store only saves repeat API calls.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Cache namespaces.
const (
	NamespaceSearch      = "search"
	NamespaceEnrichment  = "enrichment"
	NamespaceCompanyPage = "company_page"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Stage  string          `json:"stage,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, stage, input, output string) (*model.StageRun, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, stats model.RunStats, runErr string) error
	GetRun(ctx context.Context, runID string) (*model.StageRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.StageRun, error)

	// Cache. Get returns nil, nil on a miss or an expired entry.
	GetCached(ctx context.Context, namespace, key string) ([]byte, error)
	SetCached(ctx context.Context, namespace, key string, data []byte, ttl time.Duration) error
	DeleteExpired(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// GetJSON reads a cached value into T. ok is false on a miss.
func GetJSON[T any](ctx context.Context, s Store, namespace, key string) (T, bool, error) {
	var v T
	data, err := s.GetCached(ctx, namespace, key)
	if err != nil || data == nil {
		return v, false, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, eris.Wrapf(err, "store: decode cached %s/%s", namespace, key)
	}
	return v, true, nil
}

// SetJSON caches v as JSON.
func SetJSON(ctx context.Context, s Store, namespace, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "store: encode %s/%s", namespace, key)
	}
	return s.SetCached(ctx, namespace, key, data, ttl)
}

// Config selects and configures a backend.
type Config struct {
	Driver      string      `yaml:"driver" mapstructure:"driver"` // none, sqlite, postgres
	DSN         string      `yaml:"dsn" mapstructure:"dsn"`
	Pool        *PoolConfig `yaml:"pool" mapstructure:"pool"`
	CacheTTLHrs int         `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// Open returns the configured backend, migrated and ready. Driver "none" or
// "" returns a Nop store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "none":
		return Nop{}, nil
	case "sqlite":
		s, err = NewSQLite(cfg.DSN)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DSN, cfg.Pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Nop is a Store that records nothing and always misses.
type Nop struct{}

func (Nop) CreateRun(_ context.Context, stage, input, output string) (*model.StageRun, error) {
	return &model.StageRun{Stage: stage, Input: input, Output: output, Status: model.RunStatusRunning, StartedAt: time.Now().UTC()}, nil
}

func (Nop) FinishRun(context.Context, string, model.RunStatus, model.RunStats, string) error {
	return nil
}

func (Nop) GetRun(_ context.Context, runID string) (*model.StageRun, error) {
	return nil, eris.Errorf("run not found: %s", runID)
}

func (Nop) ListRuns(context.Context, RunFilter) ([]model.StageRun, error) { return nil, nil }

func (Nop) GetCached(context.Context, string, string) ([]byte, error) { return nil, nil }

func (Nop) SetCached(context.Context, string, string, []byte, time.Duration) error { return nil }

func (Nop) DeleteExpired(context.Context) (int, error) { return 0, nil }

func (Nop) Migrate(context.Context) error { return nil }

func (Nop) Close() error { return nil }
