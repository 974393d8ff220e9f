package search

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-search-cache/cache"
	"github.com/goliatone/go-search-cache/model"
	"github.com/goliatone/go-search-cache/pagination"
	"github.com/goliatone/go-search-cache/query"
	"github.com/goliatone/go-search-cache/store"
)

const tracerName = "github.com/goliatone/go-search-cache/search"

// Key namespaces for cached search results.
const (
	JobSearchNamespace       = "jobs:search"
	CompanySearchNamespace   = "companies:search"
	UserSearchNamespace      = "users:search"
	RecommendationsNamespace = "jobs:recommendations"
	FilterOptionsKey         = "static:filters:jobs"
)

// JobStore is the datastore surface needed for jobs.
type JobStore interface {
	pagination.Source[model.Job]
	FindByID(ctx context.Context, id int64, criteria ...repository.SelectCriteria) (model.Job, error)
	Distinct(ctx context.Context, column string, criteria ...repository.SelectCriteria) ([]string, error)
}

// CompanyStore is the datastore surface needed for companies.
type CompanyStore interface {
	pagination.Source[model.Company]
	FindByID(ctx context.Context, id int64, criteria ...repository.SelectCriteria) (model.Company, error)
}

// UserStore is the datastore surface needed for users.
type UserStore interface {
	pagination.Source[model.User]
	FindByID(ctx context.Context, id int64, criteria ...repository.SelectCriteria) (model.User, error)
}

var (
	_ JobStore     = (*store.Table[model.Job])(nil)
	_ CompanyStore = (*store.Table[model.Company])(nil)
	_ UserStore    = (*store.Table[model.User])(nil)
)

// Service answers search and lookup requests from cache when possible and
// from the datastore otherwise. Datastore failures never reach the caller:
// searches degrade to an empty page and lookups to not found.
type Service struct {
	cache     *cache.Manager
	keys      cache.KeySerializer
	jobs      JobStore
	companies CompanyStore
	users     UserStore
	ttl       TTLs
	logger    *zap.Logger
	tracer    trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTTLs overrides the per operation cache lifetimes.
func WithTTLs(ttl TTLs) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithKeySerializer replaces the default key serializer.
func WithKeySerializer(keys cache.KeySerializer) Option {
	return func(s *Service) {
		if keys != nil {
			s.keys = keys
		}
	}
}

// WithTracer sets the tracer used for spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// NewService wires a Service over the cache manager and the datastore.
func NewService(manager *cache.Manager, jobs JobStore, companies CompanyStore, users UserStore, opts ...Option) *Service {
	s := &Service{
		cache:     manager,
		keys:      cache.NewDefaultKeySerializer(),
		jobs:      jobs,
		companies: companies,
		users:     users,
		ttl:       DefaultTTLs(),
		logger:    zap.NewNop(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("search")
	return s
}

// SearchJobs returns a page of active jobs matching params. Cached pages
// are tagged with the ids of the jobs they contain.
func (s *Service) SearchJobs(ctx context.Context, params JobSearchParams) pagination.Result[model.Job] {
	params.JobFilter = params.JobFilter.Normalize()
	params.Params = pagination.Normalize(params.Params)
	key := s.keys.SerializeKey(JobSearchNamespace, params)

	ctx, span := s.tracer.Start(ctx, "search.SearchJobs")
	defer span.End()
	span.SetAttributes(attribute.String("cache.key", key), attribute.Int("page", params.Page))

	if result, ok := cache.Get[pagination.Result[model.Job]](ctx, s.cache, cache.PartitionJobs, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return result
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	plan := query.Jobs(params.JobFilter, params.SortBy, params.SortOrder)
	result, err := pagination.Paginate[model.Job](ctx, s.logger, s.jobs, plan.Rows(), plan.Count(), params.Params)
	if err != nil {
		s.fail(span, err, "jobs", "search", key, params)
		return result
	}

	cache.Set(cache.WithTags(ctx, jobTags(result.Data)...), s.cache, cache.PartitionJobs, key, result, s.ttl.JobSearch)
	return result
}

// SearchCompanies returns a page of active companies matching params.
func (s *Service) SearchCompanies(ctx context.Context, params CompanySearchParams) pagination.Result[model.Company] {
	params.CompanyFilter = params.CompanyFilter.Normalize()
	params.Params = pagination.Normalize(params.Params)
	key := s.keys.SerializeKey(CompanySearchNamespace, params)

	ctx, span := s.tracer.Start(ctx, "search.SearchCompanies")
	defer span.End()
	span.SetAttributes(attribute.String("cache.key", key), attribute.Int("page", params.Page))

	if result, ok := cache.Get[pagination.Result[model.Company]](ctx, s.cache, cache.PartitionSearch, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return result
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	plan := query.Companies(params.CompanyFilter, params.SortBy, params.SortOrder)
	result, err := pagination.Paginate[model.Company](ctx, s.logger, s.companies, plan.Rows(), plan.Count(), params.Params)
	if err != nil {
		s.fail(span, err, "companies", "search", key, params)
		return result
	}

	cache.Set(ctx, s.cache, cache.PartitionSearch, key, result, s.ttl.CompanySearch)
	return result
}

// SearchUsers returns a page of active users matching params.
func (s *Service) SearchUsers(ctx context.Context, params UserSearchParams) pagination.Result[model.User] {
	params.UserFilter = params.UserFilter.Normalize()
	params.Params = pagination.Normalize(params.Params)
	key := s.keys.SerializeKey(UserSearchNamespace, params)

	ctx, span := s.tracer.Start(ctx, "search.SearchUsers")
	defer span.End()
	span.SetAttributes(attribute.String("cache.key", key), attribute.Int("page", params.Page))

	if result, ok := cache.Get[pagination.Result[model.User]](ctx, s.cache, cache.PartitionSearch, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return result
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	plan := query.Users(params.UserFilter, params.SortBy, params.SortOrder)
	result, err := pagination.Paginate[model.User](ctx, s.logger, s.users, plan.Rows(), plan.Count(), params.Params)
	if err != nil {
		s.fail(span, err, "users", "search", key, params)
		return result
	}

	cache.Set(ctx, s.cache, cache.PartitionSearch, key, result, s.ttl.UserSearch)
	return result
}

// GetJobRecommendations returns up to limit active jobs matching the
// location, industry and experience level of the user. An unknown user or a
// datastore failure yields an empty slice.
func (s *Service) GetJobRecommendations(ctx context.Context, userID int64, limit int) []model.Job {
	limit = pagination.Normalize(pagination.Params{Limit: limit}).Limit
	key := s.keys.SerializeKey(RecommendationsNamespace, userID, limit)

	ctx, span := s.tracer.Start(ctx, "search.GetJobRecommendations")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID), attribute.Int("limit", limit))

	if jobs, ok := cache.Get[[]model.Job](ctx, s.cache, cache.PartitionJobs, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return jobs
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	user, ok := s.GetUserProfile(ctx, userID)
	if !ok {
		return []model.Job{}
	}

	plan := query.Recommendations(user)
	result, err := pagination.Paginate[model.Job](ctx, s.logger, s.jobs, plan.Rows(), plan.Count(), pagination.Params{Page: 1, Limit: limit})
	if err != nil {
		s.fail(span, err, "jobs", "recommendations", key, userID)
		return []model.Job{}
	}

	cache.Set(cache.WithTags(ctx, jobTags(result.Data)...), s.cache, cache.PartitionJobs, key, result.Data, s.ttl.Recommendations)
	return result.Data
}

// GetJob returns an active job by id.
func (s *Service) GetJob(ctx context.Context, id int64) (model.Job, bool) {
	ctx, span := s.tracer.Start(ctx, "search.GetJob")
	defer span.End()
	span.SetAttributes(attribute.Int64("job.id", id))

	job, err := cache.GetOrFetch[model.Job](cache.WithTags(ctx, model.JobTag(id)), s.cache, cache.PartitionJobs, cache.JobKey(id), s.ttl.Job,
		func(ctx context.Context) (model.Job, error) {
			return s.jobs.FindByID(ctx, id, activeOnly)
		})
	return lookup(s, span, job, err, "jobs", id)
}

// GetCompanyProfile returns an active company by id.
func (s *Service) GetCompanyProfile(ctx context.Context, id int64) (model.Company, bool) {
	ctx, span := s.tracer.Start(ctx, "search.GetCompanyProfile")
	defer span.End()
	span.SetAttributes(attribute.Int64("company.id", id))

	company, err := cache.GetOrFetch[model.Company](ctx, s.cache, cache.PartitionCompanies, cache.CompanyProfileKey(id), s.ttl.CompanyProfile,
		func(ctx context.Context) (model.Company, error) {
			return s.companies.FindByID(ctx, id, activeOnly)
		})
	return lookup(s, span, company, err, "companies", id)
}

// GetUserProfile returns an active user by id.
func (s *Service) GetUserProfile(ctx context.Context, id int64) (model.User, bool) {
	ctx, span := s.tracer.Start(ctx, "search.GetUserProfile")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", id))

	user, err := cache.GetOrFetch[model.User](ctx, s.cache, cache.PartitionUsers, cache.UserProfileKey(id), s.ttl.UserProfile,
		func(ctx context.Context) (model.User, error) {
			return s.users.FindByID(ctx, id, activeOnly)
		})
	return lookup(s, span, user, err, "users", id)
}

// CompanyJobs returns every active job of a company, newest first. The list
// is cached with the company and tagged with its job ids.
func (s *Service) CompanyJobs(ctx context.Context, companyID int64) []model.Job {
	key := cache.CompanyJobsKey(companyID)

	ctx, span := s.tracer.Start(ctx, "search.CompanyJobs")
	defer span.End()
	span.SetAttributes(attribute.Int64("company.id", companyID))

	if jobs, ok := cache.Get[[]model.Job](ctx, s.cache, cache.PartitionCompanies, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return jobs
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	plan := query.CompanyJobs(companyID)
	jobs, err := s.jobs.Find(ctx, plan.Rows())
	if err != nil {
		s.fail(span, err, "jobs", "company_jobs", key, companyID)
		return []model.Job{}
	}

	cache.Set(cache.WithTags(ctx, jobTags(jobs)...), s.cache, cache.PartitionCompanies, key, jobs, s.ttl.CompanyJobs)
	return jobs
}

// FilterOptions returns the distinct filter values present among active
// jobs. A datastore failure yields empty lists and is not cached.
func (s *Service) FilterOptions(ctx context.Context) FilterOptions {
	ctx, span := s.tracer.Start(ctx, "search.FilterOptions")
	defer span.End()

	if opts, ok := cache.Get[FilterOptions](ctx, s.cache, cache.PartitionStatic, FilterOptionsKey); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return opts
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	var opts FilterOptions
	columns := []struct {
		name string
		dest *[]string
	}{
		{"industry", &opts.Industries},
		{"location", &opts.Locations},
		{"employment_type", &opts.EmploymentTypes},
		{"work_type", &opts.WorkTypes},
		{"experience_level", &opts.ExperienceLevels},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range columns {
		g.Go(func() error {
			values, err := s.jobs.Distinct(gctx, c.name, activeOnly)
			if err != nil {
				return err
			}
			*c.dest = values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.fail(span, err, "jobs", "filter_options", FilterOptionsKey, nil)
		return FilterOptions{
			Industries:       []string{},
			Locations:        []string{},
			EmploymentTypes:  []string{},
			WorkTypes:        []string{},
			ExperienceLevels: []string{},
		}
	}

	cache.Set(ctx, s.cache, cache.PartitionStatic, FilterOptionsKey, opts, s.ttl.FilterOptions)
	return opts
}

func lookup[T any](s *Service, span trace.Span, value T, err error, domain string, id int64) (T, bool) {
	if err == nil {
		return value, true
	}

	var zero T
	if store.IsNotFound(err) {
		span.SetAttributes(attribute.Bool("found", false))
		return zero, false
	}

	s.fail(span, err, domain, "lookup", "", id)
	return zero, false
}

func (s *Service) fail(span trace.Span, err error, domain, operation, key string, params any) {
	span.RecordError(err)
	span.SetStatus(codes.Error, operation+" failed")
	s.logger.Error("datastore query failed",
		zap.String("domain", domain),
		zap.String("operation", operation),
		zap.String("key", key),
		zap.Any("params", params),
		zap.Error(err),
	)
}

var activeOnly = query.Active()

func jobTags(jobs []model.Job) []string {
	tags := make([]string, 0, len(jobs))
	for _, j := range jobs {
		tags = append(tags, j.Tag())
	}
	return tags
}
