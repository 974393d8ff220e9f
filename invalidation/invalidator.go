// Package invalidation keeps the cache honest on the write path. Every
// mutation of a job, company or user is reported here right after it
// commits.
package invalidation

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/goliatone/go-search-cache/cache"
	"github.com/goliatone/go-search-cache/model"
	"github.com/goliatone/go-search-cache/search"
)

// ViewsColumn is the counter BulkUpdateViews increments.
const ViewsColumn = "views"

// Incrementer applies counter increments. store.Table implements it.
type Incrementer interface {
	Increment(ctx context.Context, column string, ids []int64) (int64, error)
}

// Invalidator applies counter writes and drops the cache entries they make
// stale.
type Invalidator struct {
	cache  *cache.Manager
	jobs   Incrementer
	logger *zap.Logger
}

// New returns an Invalidator. A nil logger disables logging.
func New(manager *cache.Manager, jobs Incrementer, logger *zap.Logger) *Invalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invalidator{
		cache:  manager,
		jobs:   jobs,
		logger: logger.Named("invalidation"),
	}
}

// BulkUpdateViews increments the view counter of every job in ids and then
// flushes the whole jobs partition. The flush happens even when the update
// fails, since a partial write may have landed. An empty id list is a no-op.
func (i *Invalidator) BulkUpdateViews(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	updated, err := i.jobs.Increment(ctx, ViewsColumn, ids)
	flushed := i.cache.InvalidateJobCache("")

	if err != nil {
		i.logger.Error("bulk view update failed",
			zap.Int("jobs", len(ids)),
			zap.Int("flushed", flushed),
			zap.Error(err),
		)
		return 0, err
	}

	i.logger.Debug("bulk view update",
		zap.Int64("updated", updated),
		zap.Int("flushed", flushed),
	)
	return updated, nil
}

// JobChanged drops every cached value showing job: the single job entry,
// job search pages and recommendations containing it, the job list of its
// company and the filter options. Call it after an edit, a delete or a
// status change.
func (i *Invalidator) JobChanged(ctx context.Context, job model.Job) int {
	tag := job.Tag()

	n := i.cache.InvalidateJobCache(tag)
	n += i.cache.DeletePattern(cache.PartitionCompanies, tag)
	if job.CompanyID != 0 {
		n += i.cache.Delete(cache.PartitionCompanies, cache.CompanyJobsKey(job.CompanyID))
	}
	n += i.cache.Flush(cache.PartitionStatic)

	i.logger.Debug("job invalidated", zap.Int64("job_id", job.ID), zap.Int("keys", n))
	return n
}

// JobCreated drops the cached job list of the owning company and every job
// search page, since any of them may now be missing the new job.
func (i *Invalidator) JobCreated(ctx context.Context, job model.Job) int {
	n := i.cache.Delete(cache.PartitionCompanies, cache.CompanyJobsKey(job.CompanyID))
	n += i.cache.InvalidateJobCache(search.JobSearchNamespace)
	n += i.cache.InvalidateJobCache(search.RecommendationsNamespace)
	n += i.cache.Flush(cache.PartitionStatic)

	i.logger.Debug("job created", zap.Int64("job_id", job.ID), zap.Int("keys", n))
	return n
}

// CompanyChanged drops the enumerated keys of a company and every cached
// company search page.
func (i *Invalidator) CompanyChanged(ctx context.Context, companyID int64) int {
	n := i.cache.InvalidateCompany(companyID)
	n += i.cache.InvalidateSearchCache(search.CompanySearchNamespace)

	i.logger.Debug("company invalidated", zap.Int64("company_id", companyID), zap.Int("keys", n))
	return n
}

// UserChanged drops the enumerated keys of a user, the user's cached
// recommendations and every cached user search page.
func (i *Invalidator) UserChanged(ctx context.Context, userID int64) int {
	n := i.cache.InvalidateUser(userID)
	n += i.cache.InvalidateJobCache(recommendationsPrefix(userID))
	n += i.cache.InvalidateSearchCache(search.UserSearchNamespace)

	i.logger.Debug("user invalidated", zap.Int64("user_id", userID), zap.Int("keys", n))
	return n
}

func recommendationsPrefix(userID int64) string {
	return search.RecommendationsNamespace + cache.KeySeparator + strconv.FormatInt(userID, 10) + cache.KeySeparator
}
