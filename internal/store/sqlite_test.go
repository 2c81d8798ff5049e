package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	run, err := s.CreateRun(ctx, "companies websites", "naukri_jobs_clean.csv", "naukri_with_websites.csv")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	stats := model.RunStats{Total: 10, Succeeded: 8, Failed: 1, Skipped: 1, CostUSD: 0.01}
	require.NoError(t, s.FinishRun(ctx, run.ID, model.RunStatusComplete, stats, ""))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "companies websites", got.Stage)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, stats, got.Stats)
	require.NotNil(t, got.FinishedAt)
}

func TestSQLite_FinishRunUnknown(t *testing.T) {
	s := newTestSQLite(t)
	err := s.FinishRun(context.Background(), "missing", model.RunStatusFailed, model.RunStats{}, "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")

	_, err = s.GetRun(context.Background(), "missing")
	assert.Error(t, err)
}

func TestSQLite_ListRuns(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	a, err := s.CreateRun(ctx, "jobs scrape", "", "naukri_jobs.csv")
	require.NoError(t, err)
	b, err := s.CreateRun(ctx, "jobs clean", "naukri_jobs.csv", "naukri_jobs_clean.csv")
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, a.ID, model.RunStatusFailed, model.RunStats{}, "browser crashed"))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID, "newest first")

	failed, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "browser crashed", failed[0].Error)

	byStage, err := s.ListRuns(ctx, RunFilter{Stage: "jobs clean", Limit: 1})
	require.NoError(t, err)
	require.Len(t, byStage, 1)
	assert.Equal(t, b.ID, byStage[0].ID)
}

func TestSQLite_Cache(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	data, err := s.GetCached(ctx, NamespaceSearch, "Acme official website")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, s.SetCached(ctx, NamespaceSearch, "Acme official website", []byte(`{"organic":[]}`), time.Hour))
	data, err = s.GetCached(ctx, NamespaceSearch, "Acme official website")
	require.NoError(t, err)
	assert.JSONEq(t, `{"organic":[]}`, string(data))

	// Same key in another namespace is a different entry.
	data, err = s.GetCached(ctx, NamespaceEnrichment, "Acme official website")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, s.SetCached(ctx, NamespaceSearch, "Acme official website", []byte(`{"organic":[{}]}`), time.Hour))
	data, err = s.GetCached(ctx, NamespaceSearch, "Acme official website")
	require.NoError(t, err)
	assert.JSONEq(t, `{"organic":[{}]}`, string(data))
}

func TestSQLite_CacheExpiry(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	require.NoError(t, s.SetCached(ctx, NamespaceEnrichment, "acme.io", []byte(`{}`), time.Hour))
	require.NoError(t, s.SetCached(ctx, NamespaceEnrichment, "orbit.dev", []byte(`{}`), 48*time.Hour))

	now = now.Add(2 * time.Hour)
	data, err := s.GetCached(ctx, NamespaceEnrichment, "acme.io")
	require.NoError(t, err)
	assert.Nil(t, data)

	n, err := s.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err = s.GetCached(ctx, NamespaceEnrichment, "orbit.dev")
	require.NoError(t, err)
	assert.NotNil(t, data)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	type entry struct {
		Website string `json:"website"`
	}
	_, ok, err := GetJSON[entry](ctx, s, NamespaceSearch, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(ctx, s, NamespaceSearch, "k", entry{Website: "https://acme.io"}, time.Hour))
	got, ok, err := GetJSON[entry](ctx, s, NamespaceSearch, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://acme.io", got.Website)

	require.NoError(t, s.SetCached(ctx, NamespaceSearch, "bad", []byte("{"), time.Hour))
	_, _, err = GetJSON[entry](ctx, s, NamespaceSearch, "bad")
	assert.Error(t, err)
}
