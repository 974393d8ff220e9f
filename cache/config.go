package cache

import (
	"time"

	"github.com/goliatone/go-search-cache/internal/cacheinfra"
)

// PartitionStats is a point in time view of a partition.
type PartitionStats = cacheinfra.Stats

// PartitionOption customizes a partition created by NewPartition.
type PartitionOption = cacheinfra.Option

// Config exposes partition configuration options for consumers of the cache package.
type Config struct {
	Capacity           int           `yaml:"max_entries"`
	NumShards          int           `yaml:"shards"`
	TTL                time.Duration `yaml:"ttl"`
	MaxTTL             time.Duration `yaml:"max_ttl"`
	EvictionPercentage int           `yaml:"eviction_percentage"`
	SweepInterval      time.Duration `yaml:"sweep_interval"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// DefaultConfigs returns the per partition defaults.
func DefaultConfigs() map[Partition]Config {
	return map[Partition]Config{
		PartitionUsers:     partitionConfig(1000, 10*time.Minute, 2*time.Minute),
		PartitionCompanies: partitionConfig(500, 30*time.Minute, 5*time.Minute),
		PartitionJobs:      partitionConfig(2000, 5*time.Minute, time.Minute),
		PartitionSearch:    partitionConfig(1000, 5*time.Minute, time.Minute),
		PartitionStatic:    partitionConfig(100, time.Hour, 10*time.Minute),
	}
}

func partitionConfig(capacity int, ttl, sweep time.Duration) Config {
	cfg := DefaultConfig()
	cfg.Capacity = capacity
	cfg.TTL = ttl
	cfg.MaxTTL = 4 * ttl
	cfg.SweepInterval = sweep
	if cfg.NumShards > capacity {
		cfg.NumShards = capacity
	}
	return cfg
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal("partition").Validate()
}

// WithClock overrides the time source a partition uses for expiry.
func WithClock(now func() time.Time) PartitionOption {
	return cacheinfra.WithClock(now)
}

// WithoutSweeper disables the background expiry sweep of a partition.
func WithoutSweeper() PartitionOption {
	return cacheinfra.WithoutSweeper()
}

// NewPartition constructs the default sturdyc backed Store.
func NewPartition(name Partition, cfg Config, opts ...PartitionOption) (Store, error) {
	p, err := cacheinfra.NewPartition(cfg.toInternal(string(name)), opts...)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NewPartitions constructs one Store per entry in cfgs. Stores created before
// a failure are closed.
func NewPartitions(cfgs map[Partition]Config, opts ...PartitionOption) (map[Partition]Store, error) {
	stores := make(map[Partition]Store, len(cfgs))
	for _, name := range Partitions() {
		cfg, ok := cfgs[name]
		if !ok {
			continue
		}
		store, err := NewPartition(name, cfg, opts...)
		if err != nil {
			for _, s := range stores {
				s.Close()
			}
			return nil, err
		}
		stores[name] = store
	}
	return stores, nil
}

func (c Config) toInternal(name string) cacheinfra.Config {
	return cacheinfra.Config{
		Name:               name,
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		MaxTTL:             c.MaxTTL,
		EvictionPercentage: c.EvictionPercentage,
		SweepInterval:      c.SweepInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		MaxTTL:             cfg.MaxTTL,
		EvictionPercentage: cfg.EvictionPercentage,
		SweepInterval:      cfg.SweepInterval,
	}
}
