package di

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/goliatone/go-search-cache/cache"
	"github.com/goliatone/go-search-cache/config"
	"github.com/goliatone/go-search-cache/internal/logging"
	"github.com/goliatone/go-search-cache/invalidation"
	"github.com/goliatone/go-search-cache/metrics"
	"github.com/goliatone/go-search-cache/model"
	"github.com/goliatone/go-search-cache/search"
	"github.com/goliatone/go-search-cache/store"
)

// Tables reported by the metrics reporter.
var reportedTables = []string{"jobs", "companies", "users"}

// Container wires the cache partitions, the datastore tables, the search
// service, the write path invalidator and the metrics reporter from a single
// configuration. It owns the partitions and, when it opened it, the database.
type Container struct {
	config   *config.Config
	logger   *zap.Logger
	db       *bun.DB
	ownsDB   bool
	keys     cache.KeySerializer
	manager  *cache.Manager
	registry *prometheus.Registry

	jobs      *store.Table[model.Job]
	companies *store.Table[model.Company]
	users     *store.Table[model.User]

	search      *search.Service
	invalidator *invalidation.Invalidator
	reporter    *metrics.Reporter
}

// Option customizes container construction.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	db         *bun.DB
	partitions []cache.PartitionOption
	keys       cache.KeySerializer
}

// WithLogger uses logger instead of one built from the log configuration.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDB uses an already opened database. The container will not close it.
func WithDB(db *bun.DB) Option {
	return func(o *options) {
		o.db = db
	}
}

// WithPartitionOptions forwards options to every partition, for example a
// test clock.
func WithPartitionOptions(opts ...cache.PartitionOption) Option {
	return func(o *options) {
		o.partitions = append(o.partitions, opts...)
	}
}

// WithKeySerializer overrides the key serializer used by the search service.
func WithKeySerializer(keys cache.KeySerializer) Option {
	return func(o *options) {
		o.keys = keys
	}
}

// NewContainer validates cfg and builds every component. The database is
// opened from cfg.Database unless WithDB is given.
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		if logger, err = logging.New(cfg.Environment, cfg.Log.Level); err != nil {
			return nil, err
		}
	}

	stores, err := cache.NewPartitions(cfg.Cache, o.partitions...)
	if err != nil {
		return nil, err
	}

	db, ownsDB := o.db, false
	if db == nil {
		if db, err = store.Open(cfg.Database.Options()); err != nil {
			for _, s := range stores {
				s.Close()
			}
			return nil, err
		}
		ownsDB = true
	}

	keys := o.keys
	if keys == nil {
		keys = cache.NewDefaultKeySerializer()
	}

	c := &Container{
		config:   cfg,
		logger:   logger,
		db:       db,
		ownsDB:   ownsDB,
		keys:     keys,
		manager:  cache.NewManager(stores, logger),
		registry: prometheus.NewRegistry(),
	}

	timeout := cfg.Database.QueryTimeout
	c.jobs = store.NewTable[model.Job](db, "jobs", timeout)
	c.companies = store.NewTable[model.Company](db, "companies", timeout)
	c.users = store.NewTable[model.User](db, "users", timeout)

	c.search = search.NewService(c.manager, c.jobs, c.companies, c.users,
		search.WithLogger(logger),
		search.WithTTLs(cfg.Search),
		search.WithKeySerializer(keys),
	)
	c.invalidator = invalidation.New(c.manager, c.jobs, logger)
	c.reporter = metrics.NewReporter(c.manager, store.NewTableStats(db, reportedTables...), logger)

	if err := c.registry.Register(metrics.NewCollector(c.manager, cfg.Metrics.Namespace)); err != nil {
		c.Close()
		return nil, err
	}
	c.registry.MustRegister(collectors.NewGoCollector())

	return c, nil
}

// NewContainerWithDefaults creates a container from config.Default. This is
// a convenience constructor for tests and examples backed by in-memory
// SQLite.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(config.Default(), opts...)
}

// EnsureSchema creates the tables and indexes when they do not exist.
func (c *Container) EnsureSchema(ctx context.Context) error {
	return store.CreateSchema(ctx, c.db)
}

// Config returns the configuration the container was built from.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the shared logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// DB returns the database handle.
func (c *Container) DB() *bun.DB {
	return c.db
}

// Cache returns the cache manager.
func (c *Container) Cache() *cache.Manager {
	return c.manager
}

// KeySerializer returns the key serializer shared with the search service.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keys
}

// Jobs returns the jobs table.
func (c *Container) Jobs() *store.Table[model.Job] {
	return c.jobs
}

// Companies returns the companies table.
func (c *Container) Companies() *store.Table[model.Company] {
	return c.companies
}

// Users returns the users table.
func (c *Container) Users() *store.Table[model.User] {
	return c.users
}

// Search returns the cached search service.
func (c *Container) Search() *search.Service {
	return c.search
}

// Invalidator returns the write path invalidator.
func (c *Container) Invalidator() *invalidation.Invalidator {
	return c.invalidator
}

// Reporter returns the metrics reporter.
func (c *Container) Reporter() *metrics.Reporter {
	return c.reporter
}

// Registry returns the prometheus registry holding the cache collector.
func (c *Container) Registry() *prometheus.Registry {
	return c.registry
}

// Routes returns the monitoring router serving /metrics and /stats.
func (c *Container) Routes() chi.Router {
	return metrics.Routes(c.reporter, c.registry)
}

// Close stops the partition sweepers and closes the database when the
// container opened it.
func (c *Container) Close() error {
	c.manager.Close()
	_ = c.logger.Sync()
	if c.ownsDB {
		return c.db.Close()
	}
	return nil
}
