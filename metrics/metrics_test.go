package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/goliatone/go-search-cache/cache"
	"github.com/goliatone/go-search-cache/model"
	"github.com/goliatone/go-search-cache/pkg/testsupport"
	"github.com/goliatone/go-search-cache/store"
)

func newManager(t *testing.T) *cache.Manager {
	t.Helper()
	m, err := cache.NewDefaultManager(zaptest.NewLogger(t), cache.WithoutSweeper())
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func exercise(m *cache.Manager) {
	ctx := context.Background()
	m.SetJob(ctx, model.Job{ID: 1}, 0)
	m.GetJob(ctx, 1)
	m.GetJob(ctx, 2)
}

type brokenTables struct{}

func (brokenTables) Collect(context.Context) ([]store.TableStat, error) {
	return nil, errors.New("permission denied for pg_stat_user_tables")
}

func TestReporter_Snapshot(t *testing.T) {
	m := newManager(t)
	exercise(m)

	db := testsupport.OpenSQLite(t)
	testsupport.SeedJobs(t, db, 2, nil)

	r := NewReporter(m, store.NewTableStats(db, "jobs"), zaptest.NewLogger(t))
	r.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	snap := r.Snapshot(context.Background())
	require.Len(t, snap.Partitions, len(cache.Partitions()))
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), snap.TakenAt)

	var jobs PartitionSnapshot
	for _, p := range snap.Partitions {
		if p.Name == string(cache.PartitionJobs) {
			jobs = p
		}
	}
	assert.Equal(t, 1, jobs.Keys)
	assert.Equal(t, uint64(1), jobs.Hits)
	assert.Equal(t, uint64(1), jobs.Misses)
	assert.InDelta(t, 0.5, jobs.HitRate, 0.0001)

	assert.Equal(t, []store.TableStat{{Table: "jobs", Rows: 2}}, snap.Tables)
	assert.Empty(t, snap.TableError)
}

func TestReporter_TableFailureIsReported(t *testing.T) {
	r := NewReporter(newManager(t), brokenTables{}, nil)

	snap := r.Snapshot(context.Background())
	assert.NotEmpty(t, snap.Partitions)
	assert.Nil(t, snap.Tables)
	assert.Contains(t, snap.TableError, "permission denied")
}

func TestCollector(t *testing.T) {
	m := newManager(t)
	exercise(m)
	c := NewCollector(m, "search")

	// six metrics per partition
	assert.Equal(t, 6*len(cache.Partitions()), testutil.CollectAndCount(c))

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	_, err := reg.Gather()
	require.NoError(t, err)
}

func TestRoutes(t *testing.T) {
	m := newManager(t)
	exercise(m)

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(m, "search"))
	srv := httptest.NewServer(Routes(NewReporter(m, nil, nil), reg))
	defer srv.Close()

	res, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), `search_cache_hits_total{partition="jobs"} 1`)
	assert.Contains(t, string(body), `search_cache_keys{partition="static"} 0`)

	res, err = http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

	var snap Snapshot
	require.NoError(t, json.NewDecoder(res.Body).Decode(&snap))
	assert.Len(t, snap.Partitions, len(cache.Partitions()))
}
