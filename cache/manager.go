package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-search-cache/model"
)

// Manager is a stateless facade over the partitions. All state lives in the
// stores. Every operation is total: backend failures degrade to a miss on
// reads and a no-op on writes, and are logged.
type Manager struct {
	stores map[Partition]Store
	logger *zap.Logger
	group  singleflight.Group
}

// NewManager wraps the given stores. A nil logger disables logging.
func NewManager(stores map[Partition]Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		stores: stores,
		logger: logger.Named("cache"),
	}
}

// NewDefaultManager builds every partition from DefaultConfigs.
func NewDefaultManager(logger *zap.Logger, opts ...PartitionOption) (*Manager, error) {
	stores, err := NewPartitions(DefaultConfigs(), opts...)
	if err != nil {
		return nil, err
	}
	return NewManager(stores, logger), nil
}

// Store returns the store backing a partition.
func (m *Manager) Store(p Partition) (Store, bool) {
	s, ok := m.stores[p]
	return s, ok
}

// Partitions returns the configured partitions sorted by name.
func (m *Manager) Partitions() []Partition {
	names := make([]Partition, 0, len(m.stores))
	for name := range m.stores {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func (m *Manager) store(p Partition) Store {
	s, ok := m.stores[p]
	if !ok {
		m.logger.Warn("unknown cache partition", zap.String("partition", string(p)))
		return nil
	}
	return s
}

// Get returns the value stored under key in partition p. Any failure,
// including a value that no longer decodes into T, is reported as a miss.
func Get[T any](ctx context.Context, m *Manager, p Partition, key string) (value T, ok bool) {
	s := m.store(p)
	if s == nil {
		return value, false
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("cache get panicked",
				zap.String("partition", string(p)),
				zap.String("key", key),
				zap.Any("panic", r),
			)
			var zero T
			value, ok = zero, false
		}
	}()

	data, found := s.Get(key)
	if !found {
		return value, false
	}

	if err := msgpack.Unmarshal(data, &value); err != nil {
		m.logger.Warn("cache decode failed, dropping entry",
			zap.String("partition", string(p)),
			zap.String("key", key),
			zap.Error(wrapCacheError(err, "decode")),
		)
		s.Delete(key)
		var zero T
		return zero, false
	}

	return value, true
}

// Set stores value under key in partition p for ttl, or the partition default
// when ttl is zero. Tags attached to ctx with WithTags are indexed. It reports
// whether the value was stored; callers treat false as "not cached".
func Set[T any](ctx context.Context, m *Manager, p Partition, key string, value T, ttl time.Duration) (stored bool) {
	s := m.store(p)
	if s == nil {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("cache set panicked",
				zap.String("partition", string(p)),
				zap.String("key", key),
				zap.Any("panic", r),
			)
			stored = false
		}
	}()

	data, err := msgpack.Marshal(value)
	if err != nil {
		m.logger.Warn("cache encode failed",
			zap.String("partition", string(p)),
			zap.String("key", key),
			zap.Error(wrapCacheError(err, "encode")),
		)
		return false
	}

	if !s.Set(key, data, ttl) {
		m.logger.Warn("cache set rejected",
			zap.String("partition", string(p)),
			zap.String("key", key),
		)
		return false
	}

	if tags := tagsFromContext(ctx); len(tags) > 0 {
		s.Tag(key, tags...)
	}
	return true
}

// GetOrFetch returns the cached value or calls fetchFn, caching its result on
// success. Concurrent misses for the same key share one fetch. Fetch errors
// are returned and never cached.
//
// The shared fetch runs detached from the cancellation of the caller that
// started it; fetchFn must bound its own work, as store tables do with their
// query timeout. Each caller stops waiting when its own ctx is done.
func GetOrFetch[T any](ctx context.Context, m *Manager, p Partition, key string, ttl time.Duration, fetchFn FetchFn[T]) (T, error) {
	if value, ok := Get[T](ctx, m, p, key); ok {
		return value, nil
	}

	ch := m.group.DoChan(string(p)+"|"+key, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		value, err := fetchFn(fetchCtx)
		if err != nil {
			return value, err
		}
		Set(fetchCtx, m, p, key, value, ttl)
		return value, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res = <-ch:
	}

	result, err := res.Val, res.Err
	if err != nil {
		var zero T
		return zero, err
	}

	if result == nil {
		var zero T
		return zero, nil
	}

	value, ok := result.(T)
	if !ok {
		var zero T
		return zero, goerrors.New(fmt.Sprintf("unexpected fetch result type %T", result), goerrors.CategoryInternal)
	}
	return value, nil
}

// Delete removes keys from partition p and returns how many were present.
func (m *Manager) Delete(p Partition, keys ...string) int {
	s := m.store(p)
	if s == nil {
		return 0
	}
	return s.Delete(keys...)
}

// DeletePattern removes every key in p containing pattern as a substring and
// every key tagged exactly with pattern. An empty pattern flushes p.
func (m *Manager) DeletePattern(p Partition, pattern string) int {
	s := m.store(p)
	if s == nil {
		return 0
	}
	if pattern == "" {
		return s.Flush()
	}

	matched := make(map[string]struct{})
	for _, key := range s.Keys() {
		if strings.Contains(key, pattern) {
			matched[key] = struct{}{}
		}
	}
	for _, key := range s.KeysTagged(pattern) {
		matched[key] = struct{}{}
	}

	keys := make([]string, 0, len(matched))
	for key := range matched {
		keys = append(keys, key)
	}
	return s.Delete(keys...)
}

// Flush drops every entry in p.
func (m *Manager) Flush(p Partition) int {
	s := m.store(p)
	if s == nil {
		return 0
	}
	n := s.Flush()
	m.logger.Debug("cache partition flushed", zap.String("partition", string(p)), zap.Int("keys", n))
	return n
}

// FlushAll drops every entry in every partition.
func (m *Manager) FlushAll() {
	for _, p := range m.Partitions() {
		m.Flush(p)
	}
}

// Stats returns per partition statistics sorted by partition name.
func (m *Manager) Stats() []PartitionStats {
	partitions := m.Partitions()
	stats := make([]PartitionStats, 0, len(partitions))
	for _, p := range partitions {
		stats = append(stats, m.stores[p].Stats())
	}
	return stats
}

// Close stops every partition.
func (m *Manager) Close() {
	for _, s := range m.stores {
		s.Close()
	}
}

// GetUserProfile returns the cached profile of a user.
func (m *Manager) GetUserProfile(ctx context.Context, userID int64) (model.User, bool) {
	return Get[model.User](ctx, m, PartitionUsers, UserProfileKey(userID))
}

// SetUserProfile caches the profile of a user.
func (m *Manager) SetUserProfile(ctx context.Context, userID int64, user model.User, ttl time.Duration) bool {
	return Set(ctx, m, PartitionUsers, UserProfileKey(userID), user, ttl)
}

// InvalidateUser removes the profile, resumes and applications keys of a user.
func (m *Manager) InvalidateUser(userID int64) int {
	return m.Delete(PartitionUsers, UserKeys(userID)...)
}

// GetCompanyProfile returns the cached profile of a company.
func (m *Manager) GetCompanyProfile(ctx context.Context, companyID int64) (model.Company, bool) {
	return Get[model.Company](ctx, m, PartitionCompanies, CompanyProfileKey(companyID))
}

// SetCompanyProfile caches the profile of a company.
func (m *Manager) SetCompanyProfile(ctx context.Context, companyID int64, company model.Company, ttl time.Duration) bool {
	return Set(ctx, m, PartitionCompanies, CompanyProfileKey(companyID), company, ttl)
}

// InvalidateCompany removes the profile and jobs keys of a company.
func (m *Manager) InvalidateCompany(companyID int64) int {
	return m.Delete(PartitionCompanies, CompanyKeys(companyID)...)
}

// GetJob returns a cached job.
func (m *Manager) GetJob(ctx context.Context, jobID int64) (model.Job, bool) {
	return Get[model.Job](ctx, m, PartitionJobs, JobKey(jobID))
}

// SetJob caches a job, tagged with its job tag.
func (m *Manager) SetJob(ctx context.Context, job model.Job, ttl time.Duration) bool {
	return Set(WithTags(ctx, job.Tag()), m, PartitionJobs, JobKey(job.ID), job, ttl)
}

// InvalidateJobCache removes job cache keys matching pattern, or the whole
// job partition when pattern is empty. Every job mutation must call it.
func (m *Manager) InvalidateJobCache(pattern string) int {
	n := m.DeletePattern(PartitionJobs, pattern)
	m.logger.Debug("job cache invalidated", zap.String("pattern", pattern), zap.Int("keys", n))
	return n
}

// InvalidateSearchCache removes search cache keys matching pattern, or the
// whole search partition when pattern is empty.
func (m *Manager) InvalidateSearchCache(pattern string) int {
	return m.DeletePattern(PartitionSearch, pattern)
}

func wrapCacheError(err error, op string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, "cache "+op+" failed").
		WithTextCode("CACHE_" + strings.ToUpper(op))
}
