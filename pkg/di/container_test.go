package di

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/goliatone/go-search-cache/cache"
	"github.com/goliatone/go-search-cache/config"
	"github.com/goliatone/go-search-cache/metrics"
	"github.com/goliatone/go-search-cache/pkg/testsupport"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Environment = config.Test
	cfg.Database.DSN = ":memory:"
	return cfg
}

func TestNewContainer(t *testing.T) {
	cfg := testConfig()
	jobs := cfg.Cache[cache.PartitionJobs]
	jobs.Capacity = 50
	jobs.NumShards = 2
	cfg.Cache[cache.PartitionJobs] = jobs

	container, err := NewContainer(cfg, WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	if container.Cache() == nil || container.Search() == nil || container.Invalidator() == nil {
		t.Fatal("Container should build the cache, search service and invalidator")
	}

	if container.Reporter() == nil || container.Registry() == nil {
		t.Error("Container should build the metrics reporter and registry")
	}

	if container.KeySerializer() == nil {
		t.Error("Container should have a non-nil key serializer")
	}

	if got := container.Config(); got != cfg {
		t.Error("Config() should return the configuration the container was built from")
	}

	if got := len(container.Cache().Partitions()); got != len(cache.Partitions()) {
		t.Errorf("Expected %d partitions, got %d", len(cache.Partitions()), got)
	}

	store, ok := container.Cache().Store(cache.PartitionJobs)
	if !ok {
		t.Fatal("jobs partition should be configured")
	}
	if store.Stats().Capacity != 50 {
		t.Errorf("Expected jobs capacity 50, got %d", store.Stats().Capacity)
	}

	if err := container.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() failed: %v", err)
	}

	count, err := container.Jobs().Count(context.Background())
	if err != nil {
		t.Fatalf("Count() on a fresh schema failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected an empty jobs table, got %d rows", count)
	}
}

func TestNewContainerWithDefaults(t *testing.T) {
	db := testsupport.OpenSQLite(t)

	container, err := NewContainerWithDefaults(WithDB(db), WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	defer container.Close()

	if container.DB() != db {
		t.Error("WithDB should be used instead of opening a new database")
	}

	defaults := config.Default()
	if container.Config().Search != defaults.Search {
		t.Errorf("Expected default search TTLs %+v, got %+v", defaults.Search, container.Config().Search)
	}

	for _, stats := range container.Cache().Stats() {
		want := defaults.Cache[cache.Partition(stats.Name)].Capacity
		if stats.Capacity != want {
			t.Errorf("partition %s: expected capacity %d, got %d", stats.Name, want, stats.Capacity)
		}
	}
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	cases := map[string]func(*config.Config){
		"unknown environment": func(c *config.Config) { c.Environment = "staging" },
		"unsupported driver":  func(c *config.Config) { c.Database.Driver = "mysql" },
		"missing partition":   func(c *config.Config) { delete(c.Cache, cache.PartitionStatic) },
		"invalid partition": func(c *config.Config) {
			c.Cache[cache.PartitionUsers] = cache.Config{Capacity: -1}
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(cfg)

			container, err := NewContainer(cfg)
			if err == nil {
				container.Close()
				t.Fatal("Expected NewContainer() to fail")
			}
			if container != nil {
				t.Error("Expected nil container on error")
			}
		})
	}
}

func TestContainerSingletonBehavior(t *testing.T) {
	container, err := NewContainer(testConfig(), WithDB(testsupport.OpenSQLite(t)))
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	if container.Cache() != container.Cache() {
		t.Error("Cache() should return the same manager")
	}
	if container.Search() != container.Search() {
		t.Error("Search() should return the same service")
	}
	if container.KeySerializer() != container.KeySerializer() {
		t.Error("KeySerializer() should return the same instance")
	}
	if container.Jobs() != container.Jobs() {
		t.Error("Jobs() should return the same table")
	}
}

func TestKeySerializerIntegration(t *testing.T) {
	keys := cache.NewKeySerializer(64)

	container, err := NewContainer(testConfig(),
		WithDB(testsupport.OpenSQLite(t)),
		WithKeySerializer(keys),
	)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	if container.KeySerializer() != keys {
		t.Fatal("WithKeySerializer should replace the default serializer")
	}

	a := container.KeySerializer().SerializeKey("jobs:search", map[string]any{"page": 1, "location": "Berlin"})
	b := container.KeySerializer().SerializeKey("jobs:search", map[string]any{"location": "Berlin", "page": 1})
	if a != b {
		t.Errorf("Expected map order not to change the key: %q != %q", a, b)
	}
}

func TestContainerClose(t *testing.T) {
	db := testsupport.OpenSQLite(t)

	borrowed, err := NewContainer(testConfig(), WithDB(db))
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	if err := borrowed.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Errorf("Close() should not close a database passed with WithDB: %v", err)
	}

	owned, err := NewContainer(testConfig())
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	ownedDB := owned.DB()
	if err := owned.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := ownedDB.Ping(); err == nil {
		t.Error("Close() should close a database the container opened")
	}

	ctx := context.Background()
	if cache.Set(ctx, owned.Cache(), cache.PartitionStatic, "k", "v", 0) {
		t.Error("Closed partitions should refuse writes")
	}
}

func TestContainerRoutes(t *testing.T) {
	container, err := NewContainer(testConfig(), WithDB(testsupport.OpenSQLite(t)))
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	srv := httptest.NewServer(container.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatalf("GET /stats failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var snap metrics.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if len(snap.Partitions) != len(cache.Partitions()) {
		t.Errorf("Expected %d partitions in snapshot, got %d", len(cache.Partitions()), len(snap.Partitions))
	}
	if len(snap.Tables) != len(reportedTables) {
		t.Errorf("Expected %d tables in snapshot, got %d (error %q)", len(reportedTables), len(snap.Tables), snap.TableError)
	}

	metricsResp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer metricsResp.Body.Close()

	if metricsResp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from /metrics, got %d", metricsResp.StatusCode)
	}
}
