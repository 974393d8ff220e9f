// Package metrics exposes cache and datastore statistics to operators: a
// Snapshot for ad hoc inspection, a prometheus Collector, and chi routes
// serving both.
package metrics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-search-cache/cache"
	"github.com/goliatone/go-search-cache/store"
)

// TableStatsSource reports datastore table statistics.
type TableStatsSource interface {
	Collect(ctx context.Context) ([]store.TableStat, error)
}

// PartitionSnapshot is one partition's statistics.
type PartitionSnapshot struct {
	cache.PartitionStats
	HitRate float64 `json:"hitRate"`
}

// Snapshot is a point in time view of the cache and datastore.
type Snapshot struct {
	TakenAt    time.Time           `json:"takenAt"`
	Partitions []PartitionSnapshot `json:"partitions"`
	Tables     []store.TableStat   `json:"tables,omitempty"`
	TableError string              `json:"tableError,omitempty"`
}

// Reporter assembles snapshots.
type Reporter struct {
	cache  *cache.Manager
	tables TableStatsSource
	logger *zap.Logger
	now    func() time.Time
}

// NewReporter returns a Reporter. tables may be nil, in which case
// snapshots only cover the cache.
func NewReporter(manager *cache.Manager, tables TableStatsSource, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		cache:  manager,
		tables: tables,
		logger: logger.Named("metrics"),
		now:    time.Now,
	}
}

// Snapshot collects partition statistics and, when configured, table
// statistics. A table statistics failure is reported in the snapshot, not
// returned.
func (r *Reporter) Snapshot(ctx context.Context) Snapshot {
	stats := r.cache.Stats()
	snap := Snapshot{
		TakenAt:    r.now().UTC(),
		Partitions: make([]PartitionSnapshot, 0, len(stats)),
	}
	for _, s := range stats {
		snap.Partitions = append(snap.Partitions, PartitionSnapshot{PartitionStats: s, HitRate: s.HitRate()})
	}

	if r.tables == nil {
		return snap
	}

	tables, err := r.tables.Collect(ctx)
	if err != nil {
		r.logger.Warn("table statistics unavailable", zap.Error(err))
		snap.TableError = err.Error()
		return snap
	}
	snap.Tables = tables
	return snap
}
